package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch(items, 2))
	require.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Batch(items, 0))
	require.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Batch(items, 10))
	require.Nil(t, Batch([]int(nil), 3))

	chunks := Batch(items, 2)
	chunks[0] = append(chunks[0], 99)
	require.Equal(t, 3, items[2], "appending to a chunk must not clobber the next one")
}

func TestFingerprint(t *testing.T) {
	a := map[string]any{"name": "web", "vrf": map[string]any{"tenant": "common", "name": "shared"}}
	b := map[string]any{"vrf": map[string]any{"name": "shared", "tenant": "common"}, "name": "web"}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
	require.Len(t, Fingerprint(a), 16)

	b["name"] = "db"
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

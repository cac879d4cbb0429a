package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	cases := []struct {
		name     string
		current  any
		proposed any
		want     bool
	}{
		{"nil vs empty", nil, "", true},
		{"empty vs nil", "", nil, true},
		{"both nil", nil, nil, true},
		{"reference by id", map[string]any{"id": float64(5), "display": "x"}, 5, true},
		{"reference differs", map[string]any{"id": float64(5)}, 6, false},
		{"choice value", map[string]any{"value": "leaf", "label": "Leaf"}, "leaf", true},
		{"bool from nil", nil, false, true},
		{"bool from nil true", nil, true, false},
		{"bool direct", true, true, true},
		{"json number", json.Number("12"), 12, true},
		{"float vs int", float64(4093), 4093, true},
		{"string mismatch", "a", "b", false},
		{"string vs number", "1", 1, false},
		{"nil vs value", nil, "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Equal(tc.current, tc.proposed))
		})
	}
}

func TestRefID(t *testing.T) {
	require.Equal(t, 7, RefID(map[string]any{"id": float64(7)}))
	require.Equal(t, 3, RefID(3))
	require.Equal(t, 0, RefID("x"))
	require.Equal(t, 0, RefID(nil))
}

type rec struct {
	Alias string
	Learn string
	Mac   string
}

var testFields = FieldMap[rec]{
	{Source: "name_alias", Dest: "name_alias", Value: func(r rec) any { return Optional(r.Alias) }},
	{Source: "learn", Dest: "learn_enabled", Value: func(r rec) any { return r.Learn }, Convert: EqualsConverter("enabled")},
	{Source: "mac", Dest: "mac_address", Value: func(r rec) any { return r.Mac }, Convert: MACAddress},
}

func TestBuildUpdateSet(t *testing.T) {
	assert := require.New(t)
	current := map[string]any{"name_alias": nil, "learn_enabled": true, "mac_address": "00:22:BD:F8:19:FF"}

	updates := testFields.BuildUpdateSet(current, rec{Learn: "enabled", Mac: "00:22:BD:F8:19:FF"}, nil)
	assert.Empty(updates)

	updates = testFields.BuildUpdateSet(current, rec{Alias: "web", Learn: "disabled", Mac: "not-applicable"}, map[string]any{"aci_vrf": 9})
	assert.Equal(map[string]any{"name_alias": "web", "learn_enabled": false, "aci_vrf": 9}, updates)
}

func TestBuildCreateSet(t *testing.T) {
	params := testFields.BuildCreateSet(rec{Learn: "enabled", Mac: "n/a"})
	require.Equal(t, map[string]any{"learn_enabled": true}, params)
}

func TestMACAddress(t *testing.T) {
	cases := map[string]any{
		"00:22:BD:F8:19:FF": "00:22:BD:F8:19:FF",
		"00-22-BD-F8-19-FF": "00-22-BD-F8-19-FF",
		"not-applicable":    nil,
		"N/A":               nil,
		"None":              nil,
		"":                  nil,
		"0022bdf819ff":      nil,
		"zz:zz:zz:zz:zz:zz": nil,
	}
	for in, want := range cases {
		require.Equal(t, want, MACAddress(in), in)
	}
	require.Nil(t, MACAddress(12))
}

func TestChanged(t *testing.T) {
	changes := Changed(map[string]any{"a": "x", "b": map[string]any{"id": float64(2)}}, map[string]any{"a": "x", "b": 3})
	require.Equal(t, map[string]any{"b": 3}, changes)
}

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// Fingerprint 返回属性集合的稳定摘要，嵌套 map 按键排序展开。
func Fingerprint(m map[string]any) string {
	h := sha256.New()
	writeMap(h, m)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func writeMap(h io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=", k)
		if nested, ok := m[k].(map[string]any); ok {
			h.Write([]byte("{"))
			writeMap(h, nested)
			h.Write([]byte("}"))
		} else {
			fmt.Fprintf(h, "%v", m[k])
		}
		h.Write([]byte{0})
	}
}

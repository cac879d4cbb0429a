package diff

import (
	"net"
	"strings"
)

var macPlaceholders = map[string]struct{}{
	"not-applicable": {},
	"n/a":            {},
	"none":           {},
	"":               {},
}

// MACAddress 校验 MAC 地址，占位值或非法格式返回 nil，使字段在创建和更新中都被丢弃。
func MACAddress(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if _, skip := macPlaceholders[strings.ToLower(s)]; skip {
		return nil
	}
	if !strings.ContainsAny(s, ":-") {
		return nil
	}
	if _, err := net.ParseMAC(s); err != nil {
		return nil
	}
	return s
}

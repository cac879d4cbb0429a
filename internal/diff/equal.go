package diff

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Equal 判断 NetBox 当前值与 ACI 期望值是否等价。
//
// 规则依次为：nil 与 "" 互等；两者皆 nil 相等；引用对象按 id（或选项的 value）比较；
// 期望值为 bool 时将当前值强制为 bool；其余直接比较，数字按数值比较。
func Equal(current, proposed any) bool {
	if current == nil && proposed == "" {
		return true
	}
	if proposed == nil && current == "" {
		return true
	}
	if current == nil && proposed == nil {
		return true
	}

	current = Reduce(current)
	proposed = Reduce(proposed)

	if b, ok := proposed.(bool); ok {
		return truthy(current) == b
	}

	if cf, ok := number(current); ok {
		if pf, ok := number(proposed); ok {
			return cf == pf
		}
		return false
	}
	if _, ok := number(proposed); ok {
		return false
	}
	if current == nil || proposed == nil {
		return current == nil && proposed == nil
	}
	if reflect.TypeOf(current).Comparable() && reflect.TypeOf(proposed).Comparable() {
		return current == proposed
	}
	return reflect.DeepEqual(current, proposed)
}

// Reduce 把嵌套引用对象归约为其标识：带 id 的对象返回 id，选项对象返回 value。
func Reduce(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if id, ok := m["id"]; ok && id != nil {
		return id
	}
	if value, ok := m["value"]; ok {
		return value
	}
	return v
}

// RefID 返回引用的整型 id，不是引用时返回 0。
func RefID(v any) int {
	f, ok := number(Reduce(v))
	if !ok {
		return 0
	}
	return int(f)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	}
	return 0, false
}

package diff

// Field 描述一个源字段到 NetBox 字段的映射。
type Field[R any] struct {
	Source  string
	Dest    string
	Value   func(R) any
	Convert func(any) any
}

// FieldMap 是某类对象的静态字段映射表。
type FieldMap[R any] []Field[R]

func (f Field[R]) resolve(rec R) (any, bool) {
	if f.Value == nil {
		return nil, false
	}
	v := f.Value(rec)
	if v == nil {
		return nil, false
	}
	if f.Convert != nil {
		v = f.Convert(v)
		if v == nil {
			return nil, false
		}
	}
	return v, true
}

// BuildUpdateSet 计算需要更新的字段：源值为 nil 或转换结果为 nil 的字段被忽略，
// 仅保留与 current 不等价的字段，最后合并 extra。
func (m FieldMap[R]) BuildUpdateSet(current map[string]any, rec R, extra map[string]any) map[string]any {
	updates := make(map[string]any)
	for _, f := range m {
		v, ok := f.resolve(rec)
		if !ok {
			continue
		}
		if !Equal(current[f.Dest], v) {
			updates[f.Dest] = v
		}
	}
	for k, v := range extra {
		updates[k] = v
	}
	return updates
}

// BuildCreateSet 返回创建所需的全部非 nil 字段。
func (m FieldMap[R]) BuildCreateSet(rec R) map[string]any {
	params := make(map[string]any, len(m))
	for _, f := range m {
		if v, ok := f.resolve(rec); ok {
			params[f.Dest] = v
		}
	}
	return params
}

// Changed 返回 proposed 中与 current 不等价的字段。
func Changed(current map[string]any, proposed map[string]any) map[string]any {
	changes := make(map[string]any)
	for k, v := range proposed {
		if !Equal(current[k], v) {
			changes[k] = v
		}
	}
	return changes
}

// Optional 把空字符串视为缺失。
func Optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// EqualsConverter 返回“值等于 want 时为 true”的转换器。
func EqualsConverter(want string) func(any) any {
	return func(v any) any {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		return s == want
	}
}

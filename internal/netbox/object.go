package netbox

import (
	"context"
	"fmt"

	"aci2netbox/internal/diff"
)

// Object 是 NetBox 返回的一条记录（JSON 对象）。
type Object map[string]any

// Params 是创建或更新时提交的字段。
type Params map[string]any

// Filter 是列表查询的过滤参数。
type Filter map[string]string

// Cache 以自然键索引已存在的对象。
type Cache map[string]Object

// ID 返回对象主键，不存在时为 0。
func (o Object) ID() int {
	if o == nil {
		return 0
	}
	return diff.RefID(o["id"])
}

// Ref 返回引用字段指向对象的 id。
func (o Object) Ref(field string) int {
	if o == nil {
		return 0
	}
	return diff.RefID(o[field])
}

// String 返回字符串字段，选项对象取其 value。
func (o Object) String(field string) string {
	if o == nil {
		return ""
	}
	switch v := diff.Reduce(o[field]).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Clone 返回浅拷贝。
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Store 是 NetBox REST 的最小读写接口，HTTP 实现与内存实现共用。
type Store interface {
	List(ctx context.Context, kind Kind, filter Filter) ([]Object, error)
	Get(ctx context.Context, kind Kind, id int) (Object, error)
	Create(ctx context.Context, kind Kind, params Params) (Object, error)
	Patch(ctx context.Context, kind Kind, id int, changes Params) (Object, error)
}

// APIError 表示 NetBox 返回的非 2xx 响应。
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netbox %s %s 返回状态码 %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

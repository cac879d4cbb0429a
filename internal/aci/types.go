package aci

import (
	"fmt"
	"strconv"
	"strings"
)

// ApicObjectBody 是 APIC 对象的属性与子对象。
type ApicObjectBody struct {
	Attributes map[string]any `json:"attributes,omitempty"`
	Children   []ApicObject   `json:"children,omitempty"`
}

// ApicObject 以类名为键包裹对象体，例如 {"fvTenant": {...}}。
type ApicObject map[string]*ApicObjectBody

// ApicResponse 是 APIC REST 查询的响应。
type ApicResponse struct {
	TotalCount any          `json:"totalCount"`
	Imdata     []ApicObject `json:"imdata"`
}

// ClassName 返回对象类名。
func (o ApicObject) ClassName() string {
	for class := range o {
		return class
	}
	return ""
}

func (o ApicObject) body() *ApicObjectBody {
	for _, body := range o {
		return body
	}
	return nil
}

// Has 判断属性是否存在。
func (o ApicObject) Has(name string) bool {
	body := o.body()
	if body == nil || body.Attributes == nil {
		return false
	}
	_, ok := body.Attributes[name]
	return ok
}

// Attr 返回字符串属性，不存在时为空串。
func (o ApicObject) Attr(name string) string {
	body := o.body()
	if body == nil || body.Attributes == nil {
		return ""
	}
	switch v := body.Attributes[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// AttrOr 属性存在时返回其值，否则返回 def。
func (o ApicObject) AttrOr(name, def string) string {
	if !o.Has(name) {
		return def
	}
	return o.Attr(name)
}

// Flag 属性存在时返回“值等于 want”，否则返回 def。
func (o ApicObject) Flag(name, want string, def bool) bool {
	if !o.Has(name) {
		return def
	}
	return o.Attr(name) == want
}

// Int 解析整数属性，失败返回 def。
func (o ApicObject) Int(name string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(o.Attr(name)))
	if err != nil {
		return def
	}
	return v
}

// Dn 返回对象的 dn。
func (o ApicObject) Dn() string {
	return o.Attr("dn")
}

// Children 返回指定类名的子对象。
func (o ApicObject) Children(class string) []ApicObject {
	body := o.body()
	if body == nil {
		return nil
	}
	var out []ApicObject
	for _, child := range body.Children {
		if _, ok := child[class]; ok {
			out = append(out, child)
		}
	}
	return out
}

// dnTenant 返回 dn 第二段去掉 tn- 前缀后的租户名，例如 uni/tn-prod/ctx-a 返回 prod。
func dnTenant(dn string) string {
	parts := strings.Split(dn, "/")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimPrefix(parts[1], "tn-")
}

// dnSegment 返回 dn 中第一个以 prefix 开头的段（去掉前缀）。
func dnSegment(dn, prefix string) string {
	for _, part := range strings.Split(dn, "/") {
		if strings.HasPrefix(part, prefix) {
			return strings.TrimPrefix(part, prefix)
		}
	}
	return ""
}

// dnPodID 从 topology/pod-1/node-101 中解析 pod id，缺省为 1。
func dnPodID(dn string) int {
	seg := dnSegment(dn, "pod-")
	if seg == "" {
		return 1
	}
	id, err := strconv.Atoi(seg)
	if err != nil {
		return 1
	}
	return id
}

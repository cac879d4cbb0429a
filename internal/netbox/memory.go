package netbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"aci2netbox/internal/diff"
)

// MemoryStore 是进程内的 Store 实现，用于测试和离线预览。
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int
	objects map[Kind]map[int]Object
	creates map[Kind]int
	patches map[Kind]int
	fail    map[Kind]error
}

// NewMemoryStore 创建空的内存 Store。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[Kind]map[int]Object),
		creates: make(map[Kind]int),
		patches: make(map[Kind]int),
		fail:    make(map[Kind]error),
	}
}

// Seed 直接写入一个对象（不计入创建次数），返回分配的 id。
func (s *MemoryStore) Seed(kind Kind, params Params) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(kind, params).ID()
}

// FailCreates 让指定类型的创建请求返回 err，传 nil 取消。
func (s *MemoryStore) FailCreates(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, kind)
		return
	}
	s.fail[kind] = err
}

// Creates 返回某类型的创建次数。
func (s *MemoryStore) Creates(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[kind]
}

// Patches 返回某类型的更新次数。
func (s *MemoryStore) Patches(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[kind]
}

// All 返回某类型的全部对象，按 id 排序。
func (s *MemoryStore) All(kind Kind) []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(kind, nil)
}

// List 实现 Store。
func (s *MemoryStore) List(_ context.Context, kind Kind, filter Filter) ([]Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(kind, filter), nil
}

// Get 实现 Store。
func (s *MemoryStore) Get(_ context.Context, kind Kind, id int) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[kind][id]
	if !ok {
		return nil, &APIError{Method: "GET", Path: kind.Path(), StatusCode: 404, Body: "not found"}
	}
	return obj.Clone(), nil
}

// Create 实现 Store。
func (s *MemoryStore) Create(_ context.Context, kind Kind, params Params) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[kind]; err != nil {
		return nil, err
	}
	s.creates[kind]++
	return s.insert(kind, params).Clone(), nil
}

// Patch 实现 Store。
func (s *MemoryStore) Patch(_ context.Context, kind Kind, id int, changes Params) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[kind][id]
	if !ok {
		return nil, &APIError{Method: "PATCH", Path: kind.Path(), StatusCode: 404, Body: "not found"}
	}
	for k, v := range changes {
		obj[k] = v
	}
	s.patches[kind]++
	return obj.Clone(), nil
}

func (s *MemoryStore) insert(kind Kind, params Params) Object {
	s.nextID++
	obj := make(Object, len(params)+1)
	for k, v := range params {
		obj[k] = v
	}
	obj["id"] = s.nextID
	if s.objects[kind] == nil {
		s.objects[kind] = make(map[int]Object)
	}
	s.objects[kind][s.nextID] = obj
	return obj
}

func (s *MemoryStore) sorted(kind Kind, filter Filter) []Object {
	var out []Object
	for _, obj := range s.objects[kind] {
		if matches(obj, filter) {
			out = append(out, obj.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// matches 模拟 NetBox 的过滤语义：字段精确匹配，xxx_id 匹配引用字段 xxx 的 id，
// address 只比较主机部分。
func matches(obj Object, filter Filter) bool {
	for key, want := range filter {
		if key == "address" {
			if hostPart(obj.String("address")) != hostPart(want) {
				return false
			}
			continue
		}
		if v, ok := obj[key]; ok {
			if format(v) != want {
				return false
			}
			continue
		}
		if strings.HasSuffix(key, "_id") {
			if v, ok := obj[strings.TrimSuffix(key, "_id")]; ok {
				if strconv.Itoa(diff.RefID(v)) != want {
					return false
				}
				continue
			}
		}
		return false
	}
	return true
}

func format(v any) string {
	v = diff.Reduce(v)
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func hostPart(address string) string {
	if i := strings.IndexByte(address, '/'); i >= 0 {
		return address[:i]
	}
	return address
}

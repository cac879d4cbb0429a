package syncer

import "strings"

const defaultTEPPoolMask = "16"

// Context 在模块之间传递已同步对象的 NetBox id。
// 后续模块只能引用前序模块已经写入的条目。
type Context struct {
	FabricID    int
	FabricName  string
	TEPPoolMask string
	PodTEPPools map[int]string

	PodMap  map[int]int
	NodeMap map[int]int

	TenantMap    map[string]int
	VRFMap       map[string]int
	BDMap        map[string]int
	APMap        map[string]int
	EPGMap       map[string]int
	ESGMap       map[string]int
	ContractMap  map[string]int
	FilterMap    map[string]int
	SubjectMap   map[string]int
	SWVersionMap map[string]int
}

// NewContext 创建空的 Context。
func NewContext() *Context {
	return &Context{
		TEPPoolMask:  defaultTEPPoolMask,
		PodTEPPools:  make(map[int]string),
		PodMap:       make(map[int]int),
		NodeMap:      make(map[int]int),
		TenantMap:    make(map[string]int),
		VRFMap:       make(map[string]int),
		BDMap:        make(map[string]int),
		APMap:        make(map[string]int),
		EPGMap:       make(map[string]int),
		ESGMap:       make(map[string]int),
		ContractMap:  make(map[string]int),
		FilterMap:    make(map[string]int),
		SubjectMap:   make(map[string]int),
		SWVersionMap: make(map[string]int),
	}
}

// Key 拼接层级名称，例如 Key("prod", "web") == "prod/web"。
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

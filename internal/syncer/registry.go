package syncer

import (
	"fmt"
	"strings"
)

// Name 是模块在命令行与配置中使用的名字。
type Name string

const (
	NameFabric        Name = "fabric"
	NamePods          Name = "pods"
	NameNodes         Name = "nodes"
	NameTenants       Name = "tenants"
	NameVRFs          Name = "vrfs"
	NameBDs           Name = "bds"
	NameSubnets       Name = "subnets"
	NameAPs           Name = "aps"
	NameEPGs          Name = "epgs"
	NameESGs          Name = "esgs"
	NameFilters       Name = "filters"
	NameContracts     Name = "contracts"
	NameRelationships Name = "relationships"
	NameSoftware      Name = "software"
)

var registry = map[Name]func(Deps) Runner{
	NameFabric:        NewFabricModule,
	NamePods:          NewPodModule,
	NameNodes:         NewNodeModule,
	NameTenants:       NewTenantModule,
	NameVRFs:          NewVRFModule,
	NameBDs:           NewBridgeDomainModule,
	NameSubnets:       NewSubnetModule,
	NameAPs:           NewAppProfileModule,
	NameEPGs:          NewEPGModule,
	NameESGs:          NewESGModule,
	NameFilters:       NewContractFilterModule,
	NameContracts:     NewContractModule,
	NameRelationships: NewContractRelationshipModule,
	NameSoftware:      NewSoftwareModule,
}

// DefaultOrder 是依赖顺序，后面的模块依赖前面模块写入的 Context。
var DefaultOrder = []Name{
	NameFabric, NamePods, NameNodes,
	NameTenants, NameVRFs, NameBDs, NameSubnets,
	NameAPs, NameEPGs, NameESGs,
	NameFilters, NameContracts, NameRelationships,
}

// 命令行中的 contracts 同时选中过滤器、合约和合约关系。
var aliases = map[string][]Name{
	"contracts": {NameFilters, NameContracts, NameRelationships},
}

func fullOrder() []Name {
	return append(append([]Name(nil), DefaultOrder...), NameSoftware)
}

func expand(items []string) (map[Name]bool, error) {
	out := make(map[Name]bool)
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if names, ok := aliases[part]; ok {
				for _, n := range names {
					out[n] = true
				}
				continue
			}
			if _, ok := registry[Name(part)]; !ok {
				return nil, fmt.Errorf("未知的模块 %q", part)
			}
			out[Name(part)] = true
		}
	}
	return out, nil
}

// Resolve 根据 only/skip 计算要运行的模块，结果始终保持依赖顺序。
// only 为空时运行默认模块，includeSoftware 追加软件版本模块。
func Resolve(only, skip []string, includeSoftware bool) ([]Name, error) {
	selected, err := expand(only)
	if err != nil {
		return nil, err
	}
	skipped, err := expand(skip)
	if err != nil {
		return nil, err
	}

	var out []Name
	for _, name := range fullOrder() {
		switch {
		case len(selected) > 0 && !selected[name]:
			continue
		case len(selected) == 0 && name == NameSoftware && !includeSoftware:
			continue
		case skipped[name]:
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	LabelFabric       = "Fabric"
	LabelPod          = "Pod"
	LabelNode         = "Node"
	LabelTenant       = "Tenant"
	LabelVRF          = "VRF"
	LabelBridgeDomain = "BridgeDomain"
	LabelSubnet       = "Subnet"
	LabelAppProfile   = "AppProfile"
	LabelEPG          = "EPG"
	LabelESG          = "ESG"
	LabelContract     = "Contract"
	LabelFilter       = "Filter"

	// LabelACI 打在所有节点上，便于清理和统计。
	LabelACI = "ACI"

	RelHasPod      = "HAS_POD"
	RelHasNode     = "HAS_NODE"
	RelHasTenant   = "HAS_TENANT"
	RelHasVRF      = "HAS_VRF"
	RelHasBD       = "HAS_BD"
	RelInVRF       = "IN_VRF"
	RelHasSubnet   = "HAS_SUBNET"
	RelHasAP       = "HAS_AP"
	RelHasEPG      = "HAS_EPG"
	RelHasESG      = "HAS_ESG"
	RelUsesBD      = "USES_BD"
	RelHasContract = "HAS_CONTRACT"
	RelHasFilter   = "HAS_FILTER"
	RelProvides    = "PROVIDES"
	RelConsumes    = "CONSUMES"
)

const (
	PrefixFabric   = "FAB"
	PrefixPod      = "POD"
	PrefixNode     = "NODE"
	PrefixTenant   = "TN"
	PrefixVRF      = "CTX"
	PrefixBD       = "BD"
	PrefixSubnet   = "SUBNET"
	PrefixAP       = "AP"
	PrefixEPG      = "EPG"
	PrefixESG      = "ESG"
	PrefixContract = "BRC"
	PrefixFilter   = "FLT"
)

// AllLabels 是需要唯一约束的业务标签。
var AllLabels = []string{
	LabelFabric, LabelPod, LabelNode, LabelTenant, LabelVRF, LabelBridgeDomain,
	LabelSubnet, LabelAppProfile, LabelEPG, LabelESG, LabelContract, LabelFilter,
}

// MakeKey 统一生成 aci_key，带上前缀以避免不同实体冲突。
// 多段名称以 "/" 连接，如 MakeKey(PrefixBD, "common", "web") 得到 "BD_common/web"。
func MakeKey(prefix string, parts ...any) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, fmt.Sprint(p))
	}
	return prefix + "_" + strings.Join(segs, "/")
}

// LabelPattern 根据标签集合拼成 Cypher 模板所需的字符串，如 ":A:B"。
func LabelPattern(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return ":" + strings.Join(sorted, ":")
}

// JoinLabels 简单拼接标签用于 map key（内部使用）。
func JoinLabels(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, ":")
}

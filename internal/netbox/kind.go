package netbox

// Kind 标识一种 NetBox 对象类型及其 REST 路径。
type Kind int

const (
	KindFabric Kind = iota + 1
	KindPod
	KindNode
	KindTenant
	KindVRF
	KindBridgeDomain
	KindBridgeDomainSubnet
	KindAppProfile
	KindEndpointGroup
	KindEndpointSecurityGroup
	KindContract
	KindContractSubject
	KindContractFilter
	KindContractFilterEntry
	KindContractRelation

	KindManufacturer
	KindSite
	KindDeviceRole
	KindDeviceType
	KindDevice
	KindIPAddress
	KindPrefix

	KindSoftwareImage
	KindGoldenImage
)

type kindInfo struct {
	name string
	path string
}

var kinds = map[Kind]kindInfo{
	KindFabric:                {"fabric", "plugins/aci/fabrics/"},
	KindPod:                   {"pod", "plugins/aci/pods/"},
	KindNode:                  {"node", "plugins/aci/nodes/"},
	KindTenant:                {"tenant", "plugins/aci/tenants/"},
	KindVRF:                   {"vrf", "plugins/aci/vrfs/"},
	KindBridgeDomain:          {"bridge_domain", "plugins/aci/bridge-domains/"},
	KindBridgeDomainSubnet:    {"bridge_domain_subnet", "plugins/aci/bridge-domain-subnets/"},
	KindAppProfile:            {"app_profile", "plugins/aci/app-profiles/"},
	KindEndpointGroup:         {"endpoint_group", "plugins/aci/endpoint-groups/"},
	KindEndpointSecurityGroup: {"endpoint_security_group", "plugins/aci/endpoint-security-groups/"},
	KindContract:              {"contract", "plugins/aci/contracts/"},
	KindContractSubject:       {"contract_subject", "plugins/aci/contract-subjects/"},
	KindContractFilter:        {"contract_filter", "plugins/aci/contract-filters/"},
	KindContractFilterEntry:   {"contract_filter_entry", "plugins/aci/contract-filter-entries/"},
	KindContractRelation:      {"contract_relation", "plugins/aci/contract-relations/"},

	KindManufacturer: {"manufacturer", "dcim/manufacturers/"},
	KindSite:         {"site", "dcim/sites/"},
	KindDeviceRole:   {"device_role", "dcim/device-roles/"},
	KindDeviceType:   {"device_type", "dcim/device-types/"},
	KindDevice:       {"device", "dcim/devices/"},
	KindIPAddress:    {"ip_address", "ipam/ip-addresses/"},
	KindPrefix:       {"prefix", "ipam/prefixes/"},

	KindSoftwareImage: {"software_image", "plugins/netbox_software_tracker/software-image/"},
	KindGoldenImage:   {"golden_image", "plugins/netbox_software_tracker/golden-image/"},
}

// Path 返回相对 /api/ 的端点路径。
func (k Kind) Path() string {
	return kinds[k].path
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

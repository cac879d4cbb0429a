package aci

// 以下记录由 Reader 从 APIC 类查询结果解码而来。字符串字段为空表示 APIC 未提供该值，
// 布尔与枚举字段在解码时已按 APIC 缺省值填充。

// FabricSettings 是 fabric 级别设置。
type FabricSettings struct {
	Name      string
	FabricID  int
	InfraVLAN int
	GIPOPool  string
}

// Pod 对应 fabricPod。
type Pod struct {
	PodID   int
	Name    string
	Dn      string
	TEPPool string
}

// Node 对应 fabricNode（leaf、spine、controller）。
type Node struct {
	NodeID      int
	Name        string
	Serial      string
	Model       string
	Role        string
	PodID       int
	FabricState string
	Address     string
	Version     string
	Dn          string
}

// Tenant 对应 fvTenant。
type Tenant struct {
	Name        string
	Dn          string
	NameAlias   string
	Description string
}

// VRF 对应 fvCtx。
type VRF struct {
	Name                string
	Dn                  string
	Tenant              string
	NameAlias           string
	Description         string
	BDEnforced          bool
	IPDataPlaneLearning string
	PCEnfDir            string
	PCEnfPref           string
	PIMv4               bool
	PIMv6               bool
	PreferredGroup      bool
}

// BridgeDomain 对应 fvBD。VRFTenant 为 VRF 实际所在的租户（可能是 common）。
type BridgeDomain struct {
	Name            string
	Dn              string
	Tenant          string
	VRF             string
	VRFTenant       string
	NameAlias       string
	Description     string
	ARPFlood        bool
	EPMoveDetect    string
	IPLearning      bool
	LimitIPLearn    bool
	MAC             string
	MultiDestPktAct string
	UnicastRoute    bool
	UnkMacUcastAct  string
	UnkMcastAct     string
	V6UnkMcastAct   string
	VMAC            string
	PIMv4           bool
	HostRouteAdv    bool
}

// Subnet 对应 fvSubnet。
type Subnet struct {
	IP           string
	Dn           string
	Tenant       string
	BridgeDomain string
	Name         string
	NameAlias    string
	Description  string
	Preferred    bool
	Scope        string
	Virtual      bool
	Ctrl         string
}

// AppProfile 对应 fvAp。
type AppProfile struct {
	Name        string
	Dn          string
	Tenant      string
	NameAlias   string
	Description string
}

// EPG 对应 fvAEPg。
type EPG struct {
	Name         string
	Dn           string
	Tenant       string
	AppProfile   string
	BridgeDomain string
	NameAlias    string
	Description  string
	PrefGrMemb   string
	Prio         string
	PCEnfPref    string
	FloodOnEncap bool
	AttrBased    bool
	Shutdown     bool
}

// ESG 对应 fvESg。
type ESG struct {
	Name        string
	Dn          string
	Tenant      string
	AppProfile  string
	VRF         string
	NameAlias   string
	Description string
	PrefGrMemb  string
	Prio        string
	Shutdown    bool
}

// Subject 对应 vzSubj。
type Subject struct {
	Name        string
	Description string
}

// Contract 对应 vzBrCP。
type Contract struct {
	Name        string
	Dn          string
	Tenant      string
	NameAlias   string
	Description string
	Scope       string
	Prio        string
	TargetDSCP  string
	Subjects    []Subject
}

// FilterEntry 对应 vzEntry，字段保留 APIC 原始属性名的语义。
type FilterEntry struct {
	Name      string
	EtherT    string
	Prot      string
	DFromPort string
	DToPort   string
	SFromPort string
	SToPort   string
}

// ContractFilter 对应 vzFilter。
type ContractFilter struct {
	Name        string
	Dn          string
	Tenant      string
	NameAlias   string
	Description string
	Entries     []FilterEntry
}

// Relationship 是一条 EPG 或 vzAny 与合约的提供/消费关系。
type Relationship struct {
	Contract   string
	Tenant     string
	AppProfile string
	EPG        string
	VRF        string
	VzAny      bool
}

// Relationships 汇总提供者与消费者。
type Relationships struct {
	Providers []Relationship
	Consumers []Relationship
}

// Firmware 是某个固件版本的镜像信息。
type Firmware struct {
	Version       string
	Filename      string
	Checksum      string
	Type          string
	InternalLabel string
	NodeDn        string
}

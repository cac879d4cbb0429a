package syncer

import (
	"context"

	"aci2netbox/internal/aci"
)

// Source 是同步的数据来源，由 aci.Reader 实现。
type Source interface {
	FabricSettings(ctx context.Context) (aci.FabricSettings, error)
	Pods(ctx context.Context) ([]aci.Pod, error)
	Nodes(ctx context.Context) ([]aci.Node, error)
	Tenants(ctx context.Context) ([]aci.Tenant, error)
	VRFs(ctx context.Context) ([]aci.VRF, error)
	BridgeDomains(ctx context.Context) ([]aci.BridgeDomain, error)
	Subnets(ctx context.Context) ([]aci.Subnet, error)
	AppProfiles(ctx context.Context) ([]aci.AppProfile, error)
	EPGs(ctx context.Context) ([]aci.EPG, error)
	ESGs(ctx context.Context) ([]aci.ESG, error)
	Contracts(ctx context.Context) ([]aci.Contract, error)
	ContractFilters(ctx context.Context) ([]aci.ContractFilter, error)
	ContractRelationships(ctx context.Context) (aci.Relationships, error)
	FirmwareDetails(ctx context.Context) (map[string]aci.Firmware, error)
}

var _ Source = (*aci.Reader)(nil)

// StaticSource 返回预置记录，用于测试或回放导出的快照。
type StaticSource struct {
	Fabric        aci.FabricSettings
	PodList       []aci.Pod
	NodeList      []aci.Node
	TenantList    []aci.Tenant
	VRFList       []aci.VRF
	BDList        []aci.BridgeDomain
	SubnetList    []aci.Subnet
	APList        []aci.AppProfile
	EPGList       []aci.EPG
	ESGList       []aci.ESG
	ContractList  []aci.Contract
	FilterList    []aci.ContractFilter
	Relationships aci.Relationships
	Firmware      map[string]aci.Firmware
	Err           error
}

func (s *StaticSource) FabricSettings(context.Context) (aci.FabricSettings, error) {
	return s.Fabric, s.Err
}

func (s *StaticSource) Pods(context.Context) ([]aci.Pod, error) { return s.PodList, s.Err }

func (s *StaticSource) Nodes(context.Context) ([]aci.Node, error) { return s.NodeList, s.Err }

func (s *StaticSource) Tenants(context.Context) ([]aci.Tenant, error) { return s.TenantList, s.Err }

func (s *StaticSource) VRFs(context.Context) ([]aci.VRF, error) { return s.VRFList, s.Err }

func (s *StaticSource) BridgeDomains(context.Context) ([]aci.BridgeDomain, error) {
	return s.BDList, s.Err
}

func (s *StaticSource) Subnets(context.Context) ([]aci.Subnet, error) { return s.SubnetList, s.Err }

func (s *StaticSource) AppProfiles(context.Context) ([]aci.AppProfile, error) {
	return s.APList, s.Err
}

func (s *StaticSource) EPGs(context.Context) ([]aci.EPG, error) { return s.EPGList, s.Err }

func (s *StaticSource) ESGs(context.Context) ([]aci.ESG, error) { return s.ESGList, s.Err }

func (s *StaticSource) Contracts(context.Context) ([]aci.Contract, error) {
	return s.ContractList, s.Err
}

func (s *StaticSource) ContractFilters(context.Context) ([]aci.ContractFilter, error) {
	return s.FilterList, s.Err
}

func (s *StaticSource) ContractRelationships(context.Context) (aci.Relationships, error) {
	return s.Relationships, s.Err
}

func (s *StaticSource) FirmwareDetails(context.Context) (map[string]aci.Firmware, error) {
	return s.Firmware, s.Err
}

// Settings 控制一次同步的行为。
type Settings struct {
	DryRun          bool
	VerifyUpdates   bool
	ContinueOnError bool
	MaxWorkers      int
}

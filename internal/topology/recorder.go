package topology

import (
	"context"
	"sync"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/syncer"
)

// Snapshot 是一次同步读取到的全部 ACI 记录。
type Snapshot struct {
	Fabric        aci.FabricSettings
	Pods          []aci.Pod
	Nodes         []aci.Node
	Tenants       []aci.Tenant
	VRFs          []aci.VRF
	BridgeDomains []aci.BridgeDomain
	Subnets       []aci.Subnet
	AppProfiles   []aci.AppProfile
	EPGs          []aci.EPG
	ESGs          []aci.ESG
	Contracts     []aci.Contract
	Filters       []aci.ContractFilter
	Relationships aci.Relationships
}

// Recorder 包装 syncer.Source，记录各模块拉取到的数据，导出拓扑时无需再次查询 APIC。
type Recorder struct {
	src syncer.Source

	mu   sync.Mutex
	snap Snapshot
}

var _ syncer.Source = (*Recorder)(nil)

// NewRecorder 创建 Recorder。
func NewRecorder(src syncer.Source) *Recorder {
	return &Recorder{src: src}
}

// Snapshot 返回目前记录到的数据。
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Reset 清空记录，每次运行前调用。
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.snap = Snapshot{}
	r.mu.Unlock()
}

func (r *Recorder) record(fn func(*Snapshot)) {
	r.mu.Lock()
	fn(&r.snap)
	r.mu.Unlock()
}

func (r *Recorder) FabricSettings(ctx context.Context) (aci.FabricSettings, error) {
	v, err := r.src.FabricSettings(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Fabric = v })
	}
	return v, err
}

func (r *Recorder) Pods(ctx context.Context) ([]aci.Pod, error) {
	v, err := r.src.Pods(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Pods = v })
	}
	return v, err
}

func (r *Recorder) Nodes(ctx context.Context) ([]aci.Node, error) {
	v, err := r.src.Nodes(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Nodes = v })
	}
	return v, err
}

func (r *Recorder) Tenants(ctx context.Context) ([]aci.Tenant, error) {
	v, err := r.src.Tenants(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Tenants = v })
	}
	return v, err
}

func (r *Recorder) VRFs(ctx context.Context) ([]aci.VRF, error) {
	v, err := r.src.VRFs(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.VRFs = v })
	}
	return v, err
}

func (r *Recorder) BridgeDomains(ctx context.Context) ([]aci.BridgeDomain, error) {
	v, err := r.src.BridgeDomains(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.BridgeDomains = v })
	}
	return v, err
}

func (r *Recorder) Subnets(ctx context.Context) ([]aci.Subnet, error) {
	v, err := r.src.Subnets(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Subnets = v })
	}
	return v, err
}

func (r *Recorder) AppProfiles(ctx context.Context) ([]aci.AppProfile, error) {
	v, err := r.src.AppProfiles(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.AppProfiles = v })
	}
	return v, err
}

func (r *Recorder) EPGs(ctx context.Context) ([]aci.EPG, error) {
	v, err := r.src.EPGs(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.EPGs = v })
	}
	return v, err
}

func (r *Recorder) ESGs(ctx context.Context) ([]aci.ESG, error) {
	v, err := r.src.ESGs(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.ESGs = v })
	}
	return v, err
}

func (r *Recorder) Contracts(ctx context.Context) ([]aci.Contract, error) {
	v, err := r.src.Contracts(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Contracts = v })
	}
	return v, err
}

func (r *Recorder) ContractFilters(ctx context.Context) ([]aci.ContractFilter, error) {
	v, err := r.src.ContractFilters(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Filters = v })
	}
	return v, err
}

func (r *Recorder) ContractRelationships(ctx context.Context) (aci.Relationships, error) {
	v, err := r.src.ContractRelationships(ctx)
	if err == nil {
		r.record(func(s *Snapshot) { s.Relationships = v })
	}
	return v, err
}

// FirmwareDetails 不进入拓扑，直接透传。
func (r *Recorder) FirmwareDetails(ctx context.Context) (map[string]aci.Firmware, error) {
	return r.src.FirmwareDetails(ctx)
}

package syncer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/netbox"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(src Source, store *netbox.MemoryStore, settings Settings) *Orchestrator {
	writer := netbox.NewWriter(store, netbox.WithVerifyDelay(0))
	return NewOrchestrator(src, writer, settings, nil)
}

func defaultSettings() Settings {
	return Settings{VerifyUpdates: true, ContinueOnError: true, MaxWorkers: 2}
}

func scenarioSource() *StaticSource {
	return &StaticSource{
		Fabric:     aci.FabricSettings{Name: "Fabric1", FabricID: 1, InfraVLAN: 3967},
		TenantList: []aci.Tenant{{Name: "Tenant1"}},
		VRFList: []aci.VRF{{
			Name:                "VRF1",
			Tenant:              "Tenant1",
			IPDataPlaneLearning: "enabled",
			PCEnfDir:            "ingress",
			PCEnfPref:           "enforced",
		}},
		BDList: []aci.BridgeDomain{{Name: "BD1", Tenant: "Tenant1", VRF: "VRF1"}},
	}
}

func resultFor(t *testing.T, stats *Stats, objectType string) *Result {
	t.Helper()
	for _, r := range stats.Results {
		if r.ObjectType == objectType {
			return r
		}
	}
	t.Fatalf("no result for %s", objectType)
	return nil
}

func TestScenarioCreateThenUpdate(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := scenarioSource()
	ctx := context.Background()

	stats := newTestOrchestrator(src, store, defaultSettings()).RunAll(ctx, DefaultOrder)
	assert.Equal(4, stats.TotalCreated())
	assert.Equal(0, stats.TotalUpdated())
	assert.Equal(0, stats.TotalFailed())
	assert.NotEmpty(stats.RunID)

	vrfs := store.All(netbox.KindVRF)
	assert.Len(vrfs, 1)
	assert.Equal(true, vrfs[0]["ip_data_plane_learning_enabled"])

	fabrics := store.All(netbox.KindFabric)
	assert.Len(fabrics, 1)
	assert.Equal("Fabric1", fabrics[0]["name"])
	assert.Equal(3967, fabrics[0]["infra_vlan_vid"])

	src.VRFList[0].IPDataPlaneLearning = "disabled"
	stats = newTestOrchestrator(src, store, defaultSettings()).RunAll(ctx, DefaultOrder)
	assert.Equal(0, stats.TotalCreated())
	assert.Equal(1, stats.TotalUpdated())
	assert.Equal(3, stats.TotalUnchanged())
	assert.Equal(0, stats.TotalFailed())

	vrf := resultFor(t, stats, "VRF")
	assert.Equal(1, vrf.Updated)
	assert.Equal(1, vrf.Verified)
	assert.Equal(false, store.All(netbox.KindVRF)[0]["ip_data_plane_learning_enabled"])
}

func fullSource() *StaticSource {
	return &StaticSource{
		Fabric:  aci.FabricSettings{Name: "ACI Fabric", FabricID: 1, InfraVLAN: 3967, GIPOPool: "225.0.0.0/15"},
		PodList: []aci.Pod{{PodID: 1, Name: "pod-1", TEPPool: "10.0.0.0/16"}},
		NodeList: []aci.Node{
			{NodeID: 101, Name: "leaf-101", Role: "leaf", Model: "N9K-C93180YC-FX", Serial: "FDO1", PodID: 1, Address: "10.0.72.64"},
			{NodeID: 1, Name: "apic1", Role: "controller", PodID: 1, Address: "10.0.0.1"},
		},
		TenantList: []aci.Tenant{{Name: "common"}, {Name: "prod", Description: "production"}},
		VRFList: []aci.VRF{
			{Name: "shared", Tenant: "common", IPDataPlaneLearning: "enabled", PCEnfDir: "ingress", PCEnfPref: "enforced"},
			{Name: "prod-vrf", Tenant: "prod", IPDataPlaneLearning: "enabled", PCEnfDir: "ingress", PCEnfPref: "enforced"},
		},
		BDList: []aci.BridgeDomain{
			{Name: "web", Tenant: "prod", VRF: "shared", VRFTenant: "common", MAC: "00:22:BD:F8:19:FF", UnicastRoute: true, EPMoveDetect: "garp"},
		},
		SubnetList: []aci.Subnet{{IP: "10.1.1.1/24", Tenant: "prod", BridgeDomain: "web", Scope: "public,shared", Ctrl: "nd"}},
		APList:     []aci.AppProfile{{Name: "shop", Tenant: "prod"}},
		EPGList: []aci.EPG{
			{Name: "web", Tenant: "prod", AppProfile: "shop", BridgeDomain: "web", PrefGrMemb: "include", Prio: "level3", PCEnfPref: "enforced"},
			{Name: "useg", Tenant: "prod", AppProfile: "shop", BridgeDomain: "web", AttrBased: true},
		},
		ESGList:  []aci.ESG{{Name: "pci", Tenant: "prod", AppProfile: "shop", VRF: "prod-vrf", PrefGrMemb: "exclude"}},
		FilterList: []aci.ContractFilter{{Name: "http", Tenant: "prod", Entries: []aci.FilterEntry{
			{Name: "tcp80", EtherT: "ip", Prot: "tcp", DFromPort: "80", DToPort: "80", SFromPort: "unspecified", SToPort: "unspecified"},
		}}},
		ContractList: []aci.Contract{
			{Name: "web", Tenant: "prod", Scope: "context", Subjects: []aci.Subject{{Name: "s1", Description: "http"}}},
			{Name: "dns", Tenant: "common", Scope: "global"},
		},
		Relationships: aci.Relationships{
			Providers: []aci.Relationship{{Contract: "web", Tenant: "prod", AppProfile: "shop", EPG: "web"}},
			Consumers: []aci.Relationship{
				{Contract: "dns", Tenant: "prod", AppProfile: "shop", EPG: "web"},
				{Contract: "web", Tenant: "prod", VRF: "prod-vrf", VzAny: true},
			},
		},
	}
}

func TestIdempotentSecondRun(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := fullSource()
	ctx := context.Background()

	first := newTestOrchestrator(src, store, defaultSettings()).RunAll(ctx, DefaultOrder)
	assert.Equal(0, first.TotalFailed(), first.Errors())
	assert.Empty(first.Errors())
	assert.Equal(2, resultFor(t, first, "Node").Created)
	assert.Equal(3, resultFor(t, first, "ContractRelationship").Created)

	second := newTestOrchestrator(src, store, defaultSettings()).RunAll(ctx, DefaultOrder)
	assert.Equal(0, second.TotalCreated())
	assert.Equal(0, second.TotalUpdated())
	assert.Equal(0, second.TotalFailed())
	assert.Equal(first.TotalCreated(), second.TotalUnchanged())
	assert.Len(store.All(netbox.KindContractRelation), 3)
	assert.Len(store.All(netbox.KindContractFilterEntry), 1)
	assert.Len(store.All(netbox.KindContractSubject), 1)
}

func TestFullRunWiresReferences(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	stats := newTestOrchestrator(fullSource(), store, defaultSettings()).RunAll(context.Background(), DefaultOrder)
	sctx := stats.Context

	assert.Equal("ACI_Fabric", sctx.FabricName)
	assert.Equal("10.0.0.0/16", sctx.PodTEPPools[1])

	nodes := store.All(netbox.KindNode)
	assert.Len(nodes, 2)
	ips := store.All(netbox.KindIPAddress)
	var addresses []string
	for _, ip := range ips {
		addresses = append(addresses, ip.String("address"))
	}
	assert.Contains(addresses, "10.0.72.64/16")
	assert.Contains(addresses, "10.1.1.1/24")

	bd := store.All(netbox.KindBridgeDomain)[0]
	assert.Equal(sctx.VRFMap["common/shared"], bd.Ref("aci_vrf"))
	assert.Equal(true, bd["ep_move_detection_enabled"])

	subnet := store.All(netbox.KindBridgeDomainSubnet)[0]
	assert.Equal("web-10.1.1.1_24", subnet["name"])
	assert.Equal(true, subnet["advertised_externally_enabled"])
	assert.Equal(true, subnet["shared_enabled"])
	assert.Equal(true, subnet["nd_ra_enabled"])
	assert.Equal(false, subnet["igmp_querier_enabled"])

	epgs := store.All(netbox.KindEndpointGroup)
	assert.Len(epgs, 1, "attribute based epg is skipped")
	assert.Equal(true, epgs[0]["intra_epg_isolation_enabled"])
	assert.Equal(true, epgs[0]["preferred_group_member_enabled"])
	assert.Equal("level3", epgs[0]["qos_class"])

	esg := store.All(netbox.KindEndpointSecurityGroup)[0]
	assert.Equal(sctx.VRFMap["prod/prod-vrf"], esg.Ref("aci_vrf"))

	entry := store.All(netbox.KindContractFilterEntry)[0]
	assert.Equal("tcp", entry["ip_protocol"])
	assert.NotContains(entry, "source_port_from")

	var vzany, common netbox.Object
	for _, rel := range store.All(netbox.KindContractRelation) {
		if rel.String("aci_object_type") == netbox.TargetVRF.ObjectType() {
			vzany = rel
		}
		if rel.Ref("aci_contract") == sctx.ContractMap["common/dns"] {
			common = rel
		}
	}
	assert.NotNil(vzany)
	assert.Equal("cons", vzany["role"])
	assert.NotContains(vzany, "aci_fabric")
	assert.NotNil(common)
	assert.Equal(sctx.TenantMap["common"], common.Ref("aci_tenant"))
	assert.Equal(sctx.FabricID, common.Ref("aci_fabric"))
}

func TestOrderDependencySkipsBridgeDomains(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	stats := newTestOrchestrator(scenarioSource(), store, defaultSettings()).
		RunAll(context.Background(), []Name{NameFabric, NameTenants, NameBDs, NameVRFs})

	bd := resultFor(t, stats, "BridgeDomain")
	assert.Equal(0, bd.Created)
	assert.Equal(0, bd.Failed)
	assert.Empty(store.All(netbox.KindBridgeDomain))
	assert.Equal(1, resultFor(t, stats, "VRF").Created)
}

func TestCrossTenantVRFResolution(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := &StaticSource{
		Fabric:     aci.FabricSettings{Name: "f", FabricID: 1},
		TenantList: []aci.Tenant{{Name: "common"}, {Name: "TenantA"}},
		VRFList: []aci.VRF{
			{Name: "default", Tenant: "common"},
			{Name: "default", Tenant: "TenantA"},
		},
		BDList: []aci.BridgeDomain{{Name: "bd", Tenant: "TenantA", VRF: "default", VRFTenant: "common"}},
	}
	stats := newTestOrchestrator(src, store, defaultSettings()).RunAll(context.Background(), DefaultOrder)

	bds := store.All(netbox.KindBridgeDomain)
	assert.Len(bds, 1)
	assert.Equal(stats.Context.VRFMap["common/default"], bds[0].Ref("aci_vrf"))
	assert.NotEqual(stats.Context.VRFMap["TenantA/default"], bds[0].Ref("aci_vrf"))
}

func TestMACFiltering(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := scenarioSource()
	src.BDList = []aci.BridgeDomain{
		{Name: "a", Tenant: "Tenant1", VRF: "VRF1", MAC: "not-applicable", VMAC: "00:11:22:33:44:ab"},
		{Name: "b", Tenant: "Tenant1", VRF: "VRF1", MAC: "n/a", VMAC: ""},
	}
	newTestOrchestrator(src, store, defaultSettings()).RunAll(context.Background(), DefaultOrder)

	bds := store.All(netbox.KindBridgeDomain)
	assert.Len(bds, 2)
	assert.NotContains(bds[0], "mac_address")
	assert.Equal("00:11:22:33:44:ab", bds[0]["virtual_mac_address"])
	assert.NotContains(bds[1], "mac_address")
	assert.NotContains(bds[1], "virtual_mac_address")

	// 已存在的 BD 上占位 MAC 也不会进入更新集。
	stats := newTestOrchestrator(src, store, defaultSettings()).RunAll(context.Background(), DefaultOrder)
	assert.Equal(0, resultFor(t, stats, "BridgeDomain").Updated)
}

func TestRelationshipDedup(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := fullSource()
	dup := aci.Relationship{Contract: "web", Tenant: "prod", AppProfile: "shop", EPG: "web"}
	src.Relationships = aci.Relationships{Providers: []aci.Relationship{dup, dup}}

	stats := newTestOrchestrator(src, store, defaultSettings()).RunAll(context.Background(), DefaultOrder)
	rel := resultFor(t, stats, "ContractRelationship")
	assert.Equal(1, rel.Created)
	assert.Equal(1, rel.Unchanged)
	assert.Len(store.All(netbox.KindContractRelation), 1)
}

func TestRelationshipCreateFailureCountsUnchanged(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	store.FailCreates(netbox.KindContractRelation, errors.New("schema rejected"))

	stats := newTestOrchestrator(fullSource(), store, defaultSettings()).RunAll(context.Background(), DefaultOrder)
	rel := resultFor(t, stats, "ContractRelationship")
	assert.Equal(0, rel.Created)
	assert.Equal(0, rel.Failed)
	assert.Equal(3, rel.Unchanged)
}

func TestRecordFailuresAreIsolated(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	store.FailCreates(netbox.KindTenant, errors.New("boom"))
	src := scenarioSource()
	src.TenantList = append(src.TenantList, aci.Tenant{Name: "Tenant2"})

	stats := newTestOrchestrator(src, store, Settings{ContinueOnError: false}).RunAll(context.Background(), DefaultOrder)
	tenant := resultFor(t, stats, "Tenant")
	assert.Equal(2, tenant.Failed)
	assert.Len(tenant.Errors, 2)
	assert.Len(stats.Results, len(DefaultOrder), "record failures never stop the run")
	assert.True(stats.HasFailures())
}

type failingSource struct {
	*StaticSource
}

func (failingSource) Tenants(context.Context) ([]aci.Tenant, error) {
	return nil, errors.New("apic unavailable")
}

func TestModuleFailureHonoursContinueOnError(t *testing.T) {
	assert := require.New(t)
	src := failingSource{scenarioSource()}

	stats := newTestOrchestrator(src, netbox.NewMemoryStore(), Settings{ContinueOnError: false}).
		RunAll(context.Background(), DefaultOrder)
	assert.Len(stats.Results, 4)
	tenant := resultFor(t, stats, "Tenant")
	assert.Len(tenant.Errors, 1)
	assert.Contains(tenant.Errors[0], "apic unavailable")

	stats = newTestOrchestrator(src, netbox.NewMemoryStore(), Settings{ContinueOnError: true}).
		RunAll(context.Background(), DefaultOrder)
	assert.Len(stats.Results, len(DefaultOrder))
	assert.True(stats.HasFailures())
}

func TestDryRunSkipsWrites(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	settings := defaultSettings()
	settings.DryRun = true

	stats := newTestOrchestrator(fullSource(), store, settings).RunAll(context.Background(), DefaultOrder)
	assert.Equal(0, stats.TotalCreated())
	assert.Equal(2, resultFor(t, stats, "Tenant").Unchanged)
	assert.Equal(3, resultFor(t, stats, "ContractRelationship").Unchanged)
	assert.Empty(store.All(netbox.KindTenant))
	assert.Empty(store.All(netbox.KindManufacturer))
}

func TestCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := newTestOrchestrator(scenarioSource(), netbox.NewMemoryStore(), defaultSettings()).RunAll(ctx, DefaultOrder)
	require.True(t, stats.Aborted)
	require.Empty(t, stats.Results)
}

type recordingTagger struct{ ids []string }

func (r *recordingTagger) SetRequestID(id string) { r.ids = append(r.ids, id) }

func TestRunIDIsTagged(t *testing.T) {
	tagger := &recordingTagger{}
	writer := netbox.NewWriter(netbox.NewMemoryStore(), netbox.WithVerifyDelay(0))
	o := NewOrchestrator(scenarioSource(), writer, defaultSettings(), nil, WithRequestTagger(tagger))

	first := o.RunAll(context.Background(), []Name{NameFabric})
	second := o.RunAll(context.Background(), []Name{NameFabric})
	require.Equal(t, []string{first.RunID, second.RunID}, tagger.ids)
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestSummaryFormat(t *testing.T) {
	stats := &Stats{}
	stats.Add(&Result{ObjectType: "Tenant", Created: 2, Unchanged: 1, DurationSeconds: 0.5})
	stats.Add(&Result{ObjectType: "VRF", Updated: 1, Verified: 1, DurationSeconds: 0.25})

	lines := strings.Split(stats.Summary(), "\n")
	require.Equal(t, []string{
		strings.Repeat("=", 60),
		"SYNC SUMMARY",
		strings.Repeat("=", 60),
		"Tenant: created=2, updated=0, unchanged=1, failed=0, verified=0",
		"VRF: created=0, updated=1, unchanged=0, failed=0, verified=1",
		strings.Repeat("-", 60),
		"Total: created=2, updated=1, unchanged=1, failed=0",
		"Duration: 0.75 seconds",
		strings.Repeat("=", 60),
	}, lines)
}

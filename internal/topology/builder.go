package topology

import (
	"time"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/domain"
	"aci2netbox/internal/syncer"
	"aci2netbox/pkg/util"
)

const commonTenant = "common"

type builder struct {
	fabric string
	runID  string
	now    time.Time
	ids    *syncer.Context

	nodes  []domain.NodeRow
	rels   []domain.RelRow
	labels map[string]string
	seen   map[string]struct{}
}

// FabricName 返回拓扑中使用的 fabric 名称，优先使用同步后规范化的名称。
func FabricName(snap Snapshot, ids *syncer.Context) string {
	if ids != nil && ids.FabricName != "" {
		return ids.FabricName
	}
	if snap.Fabric.Name != "" {
		return snap.Fabric.Name
	}
	return "ACI_Fabric"
}

// Build 根据快照生成建图所需的节点和关系。ids 提供各对象的 NetBox id，可为 nil。
// 只有两端节点都存在的关系才会输出。
func Build(snap Snapshot, ids *syncer.Context, runID string, now time.Time) ([]domain.NodeRow, []domain.RelRow) {
	if ids == nil {
		ids = syncer.NewContext()
	}
	b := &builder{
		fabric: FabricName(snap, ids),
		runID:  runID,
		now:    now.UTC(),
		ids:    ids,
		labels: make(map[string]string),
		seen:   make(map[string]struct{}),
	}
	b.physical(snap)
	b.tenancy(snap)
	b.policy(snap)
	return b.nodes, b.rels
}

func (b *builder) key(prefix string, parts ...any) string {
	return domain.MakeKey(prefix, append([]any{b.fabric}, parts...)...)
}

func (b *builder) node(label, key string, props map[string]any, netboxID int) {
	if _, dup := b.labels[key]; dup {
		return
	}
	if netboxID != 0 {
		props["netbox_id"] = netboxID
	}
	props["fabric"] = b.fabric
	props["fingerprint"] = util.Fingerprint(props)
	b.labels[key] = label
	b.nodes = append(b.nodes, domain.NodeRow{
		Key:        key,
		Labels:     []string{label, domain.LabelACI},
		Properties: props,
		RunID:      b.runID,
		UpdatedAt:  b.now,
	})
}

func (b *builder) rel(relType, start, end string) {
	startLabel, ok := b.labels[start]
	if !ok {
		return
	}
	endLabel, ok := b.labels[end]
	if !ok {
		return
	}
	id := relType + "|" + start + "|" + end
	if _, dup := b.seen[id]; dup {
		return
	}
	b.seen[id] = struct{}{}
	b.rels = append(b.rels, domain.RelRow{
		StartKey:   start,
		StartLabel: startLabel,
		EndKey:     end,
		EndLabel:   endLabel,
		Type:       relType,
		Properties: map[string]any{"source": "aci"},
		RunID:      b.runID,
	})
}

func (b *builder) physical(snap Snapshot) {
	fabricKey := b.key(domain.PrefixFabric)
	b.node(domain.LabelFabric, fabricKey, map[string]any{
		"name":       b.fabric,
		"fabric_id":  snap.Fabric.FabricID,
		"infra_vlan": snap.Fabric.InfraVLAN,
		"gipo_pool":  snap.Fabric.GIPOPool,
	}, b.ids.FabricID)

	for _, pod := range snap.Pods {
		if pod.PodID == 0 {
			continue
		}
		key := b.key(domain.PrefixPod, pod.PodID)
		b.node(domain.LabelPod, key, map[string]any{
			"pod_id":   pod.PodID,
			"name":     pod.Name,
			"tep_pool": pod.TEPPool,
		}, b.ids.PodMap[pod.PodID])
		b.rel(domain.RelHasPod, fabricKey, key)
	}

	for _, n := range snap.Nodes {
		if n.NodeID == 0 {
			continue
		}
		key := b.key(domain.PrefixNode, n.NodeID)
		b.node(domain.LabelNode, key, map[string]any{
			"node_id": n.NodeID,
			"name":    n.Name,
			"role":    n.Role,
			"model":   n.Model,
			"serial":  n.Serial,
			"address": n.Address,
			"version": n.Version,
		}, b.ids.NodeMap[n.NodeID])
		podID := n.PodID
		if podID == 0 {
			podID = 1
		}
		b.rel(domain.RelHasNode, b.key(domain.PrefixPod, podID), key)
	}
}

func (b *builder) tenancy(snap Snapshot) {
	fabricKey := b.key(domain.PrefixFabric)
	for _, t := range snap.Tenants {
		if t.Name == "" {
			continue
		}
		key := b.key(domain.PrefixTenant, t.Name)
		b.node(domain.LabelTenant, key, map[string]any{
			"name":        t.Name,
			"description": t.Description,
		}, b.ids.TenantMap[t.Name])
		b.rel(domain.RelHasTenant, fabricKey, key)
	}

	for _, v := range snap.VRFs {
		if v.Name == "" {
			continue
		}
		key := b.key(domain.PrefixVRF, v.Tenant, v.Name)
		b.node(domain.LabelVRF, key, map[string]any{
			"name":                   v.Name,
			"tenant":                 v.Tenant,
			"ip_data_plane_learning": v.IPDataPlaneLearning,
			"pc_enf_pref":            v.PCEnfPref,
		}, b.ids.VRFMap[syncer.Key(v.Tenant, v.Name)])
		b.rel(domain.RelHasVRF, b.key(domain.PrefixTenant, v.Tenant), key)
	}

	for _, bd := range snap.BridgeDomains {
		if bd.Name == "" {
			continue
		}
		key := b.key(domain.PrefixBD, bd.Tenant, bd.Name)
		b.node(domain.LabelBridgeDomain, key, map[string]any{
			"name":          bd.Name,
			"tenant":        bd.Tenant,
			"unicast_route": bd.UnicastRoute,
			"mac":           bd.MAC,
		}, b.ids.BDMap[syncer.Key(bd.Tenant, bd.Name)])
		b.rel(domain.RelHasBD, b.key(domain.PrefixTenant, bd.Tenant), key)
		if bd.VRF != "" {
			vrfTenant := bd.VRFTenant
			if vrfTenant == "" {
				vrfTenant = bd.Tenant
			}
			b.rel(domain.RelInVRF, key, b.key(domain.PrefixVRF, vrfTenant, bd.VRF))
		}
	}

	for _, s := range snap.Subnets {
		if s.IP == "" {
			continue
		}
		key := b.key(domain.PrefixSubnet, s.Tenant, s.BridgeDomain, s.IP)
		b.node(domain.LabelSubnet, key, map[string]any{
			"ip":     s.IP,
			"scope":  s.Scope,
			"tenant": s.Tenant,
		}, 0)
		b.rel(domain.RelHasSubnet, b.key(domain.PrefixBD, s.Tenant, s.BridgeDomain), key)
	}
}

func (b *builder) policy(snap Snapshot) {
	for _, ap := range snap.AppProfiles {
		if ap.Name == "" {
			continue
		}
		key := b.key(domain.PrefixAP, ap.Tenant, ap.Name)
		b.node(domain.LabelAppProfile, key, map[string]any{
			"name":   ap.Name,
			"tenant": ap.Tenant,
		}, b.ids.APMap[syncer.Key(ap.Tenant, ap.Name)])
		b.rel(domain.RelHasAP, b.key(domain.PrefixTenant, ap.Tenant), key)
	}

	for _, epg := range snap.EPGs {
		if epg.Name == "" || epg.AttrBased {
			continue
		}
		key := b.key(domain.PrefixEPG, epg.Tenant, epg.AppProfile, epg.Name)
		b.node(domain.LabelEPG, key, map[string]any{
			"name":        epg.Name,
			"tenant":      epg.Tenant,
			"app_profile": epg.AppProfile,
			"shutdown":    epg.Shutdown,
		}, b.ids.EPGMap[syncer.Key(epg.Tenant, epg.AppProfile, epg.Name)])
		b.rel(domain.RelHasEPG, b.key(domain.PrefixAP, epg.Tenant, epg.AppProfile), key)
		if epg.BridgeDomain != "" {
			b.rel(domain.RelUsesBD, key, b.key(domain.PrefixBD, epg.Tenant, epg.BridgeDomain))
		}
	}

	for _, esg := range snap.ESGs {
		if esg.Name == "" {
			continue
		}
		key := b.key(domain.PrefixESG, esg.Tenant, esg.AppProfile, esg.Name)
		b.node(domain.LabelESG, key, map[string]any{
			"name":        esg.Name,
			"tenant":      esg.Tenant,
			"app_profile": esg.AppProfile,
		}, b.ids.ESGMap[syncer.Key(esg.Tenant, esg.AppProfile, esg.Name)])
		b.rel(domain.RelHasESG, b.key(domain.PrefixAP, esg.Tenant, esg.AppProfile), key)
		if esg.VRF != "" {
			b.rel(domain.RelInVRF, key, b.key(domain.PrefixVRF, esg.Tenant, esg.VRF))
		}
	}

	for _, f := range snap.Filters {
		if f.Name == "" {
			continue
		}
		key := b.key(domain.PrefixFilter, f.Tenant, f.Name)
		b.node(domain.LabelFilter, key, map[string]any{
			"name":    f.Name,
			"tenant":  f.Tenant,
			"entries": len(f.Entries),
		}, b.ids.FilterMap[syncer.Key(f.Tenant, f.Name)])
		b.rel(domain.RelHasFilter, b.key(domain.PrefixTenant, f.Tenant), key)
	}

	for _, c := range snap.Contracts {
		if c.Name == "" {
			continue
		}
		key := b.key(domain.PrefixContract, c.Tenant, c.Name)
		b.node(domain.LabelContract, key, map[string]any{
			"name":     c.Name,
			"tenant":   c.Tenant,
			"scope":    c.Scope,
			"subjects": len(c.Subjects),
		}, b.ids.ContractMap[syncer.Key(c.Tenant, c.Name)])
		b.rel(domain.RelHasContract, b.key(domain.PrefixTenant, c.Tenant), key)
	}

	for _, r := range snap.Relationships.Providers {
		b.contractRel(domain.RelProvides, r)
	}
	for _, r := range snap.Relationships.Consumers {
		b.contractRel(domain.RelConsumes, r)
	}
}

// contractRel 连接 EPG 或 vzAny(VRF) 与合约，本租户找不到合约时退回 common。
func (b *builder) contractRel(relType string, r aci.Relationship) {
	if r.Contract == "" || r.Tenant == "" {
		return
	}
	contractKey := b.key(domain.PrefixContract, r.Tenant, r.Contract)
	if _, ok := b.labels[contractKey]; !ok {
		contractKey = b.key(domain.PrefixContract, commonTenant, r.Contract)
	}
	var start string
	if r.VzAny {
		if r.VRF == "" {
			return
		}
		start = b.key(domain.PrefixVRF, r.Tenant, r.VRF)
	} else {
		if r.AppProfile == "" || r.EPG == "" {
			return
		}
		start = b.key(domain.PrefixEPG, r.Tenant, r.AppProfile, r.EPG)
	}
	b.rel(relType, start, contractKey)
}

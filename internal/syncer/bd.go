package syncer

import (
	"context"
	"fmt"
	"strings"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/diff"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

var bdFields = diff.FieldMap[aci.BridgeDomain]{
	{Source: "name_alias", Dest: "name_alias", Value: func(b aci.BridgeDomain) any { return b.NameAlias }},
	{Source: "description", Dest: "description", Value: func(b aci.BridgeDomain) any { return b.Description }},
	{Source: "arp_flood", Dest: "arp_flooding_enabled", Value: func(b aci.BridgeDomain) any { return b.ARPFlood }},
	{Source: "ip_learning", Dest: "ip_data_plane_learning_enabled", Value: func(b aci.BridgeDomain) any { return b.IPLearning }},
	{Source: "limit_ip_learn", Dest: "limit_ip_learn_enabled", Value: func(b aci.BridgeDomain) any { return b.LimitIPLearn }},
	{Source: "mac", Dest: "mac_address", Value: func(b aci.BridgeDomain) any { return b.MAC }, Convert: diff.MACAddress},
	{Source: "multi_dest_pkt_act", Dest: "multi_destination_flooding", Value: func(b aci.BridgeDomain) any { return diff.Optional(b.MultiDestPktAct) }},
	{Source: "unicast_route", Dest: "unicast_routing_enabled", Value: func(b aci.BridgeDomain) any { return b.UnicastRoute }},
	{Source: "unk_mac_ucast_act", Dest: "unknown_unicast", Value: func(b aci.BridgeDomain) any { return diff.Optional(b.UnkMacUcastAct) }},
	{Source: "unk_mcast_act", Dest: "unknown_ipv4_multicast", Value: func(b aci.BridgeDomain) any { return diff.Optional(b.UnkMcastAct) }},
	{Source: "v6_unk_mcast_act", Dest: "unknown_ipv6_multicast", Value: func(b aci.BridgeDomain) any { return diff.Optional(b.V6UnkMcastAct) }},
	{Source: "vmac", Dest: "virtual_mac_address", Value: func(b aci.BridgeDomain) any { return b.VMAC }, Convert: diff.MACAddress},
	{Source: "pim_v4_enabled", Dest: "pim_ipv4_enabled", Value: func(b aci.BridgeDomain) any { return b.PIMv4 }},
	{Source: "host_route_adv", Dest: "advertise_host_routes_enabled", Value: func(b aci.BridgeDomain) any { return b.HostRouteAdv }},
	{
		Source:  "ep_move_detect",
		Dest:    "ep_move_detection_enabled",
		Value:   func(b aci.BridgeDomain) any { return b.EPMoveDetect },
		Convert: diff.EqualsConverter("garp"),
	},
}

var subnetFields = diff.FieldMap[aci.Subnet]{
	{Source: "name_alias", Dest: "name_alias", Value: func(s aci.Subnet) any { return s.NameAlias }},
	{Source: "description", Dest: "description", Value: func(s aci.Subnet) any { return s.Description }},
	{Source: "preferred", Dest: "preferred_ip_address_enabled", Value: func(s aci.Subnet) any { return s.Preferred }},
	{Source: "virtual", Dest: "virtual_ip_enabled", Value: func(s aci.Subnet) any { return s.Virtual }},
}

type bridgeDomainModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewBridgeDomainModule 同步 BD，VRF 可能位于其他租户（通常是 common）。
func NewBridgeDomainModule(d Deps) Runner {
	m := &bridgeDomainModule{Base: newBase(d, "BridgeDomain")}
	return newRunner[aci.BridgeDomain](m, d)
}

func (m *bridgeDomainModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.TenantMap, func(ctx context.Context, tenantID int) (netbox.Cache, error) {
		return m.Writer.FetchByTenant(ctx, netbox.KindBridgeDomain, tenantID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *bridgeDomainModule) Fetch(ctx context.Context) ([]aci.BridgeDomain, error) {
	return m.Source.BridgeDomains(ctx)
}

func (m *bridgeDomainModule) SyncObject(ctx context.Context, rec aci.BridgeDomain) error {
	tenantID, ok := m.Context.TenantMap[rec.Tenant]
	if !ok {
		return m.skip("tenant not found for bd, skipping", zap.String("tenant", rec.Tenant), zap.String("bd", rec.Name))
	}
	vrfTenant := rec.VRFTenant
	if vrfTenant == "" {
		vrfTenant = rec.Tenant
	}
	label := Key(rec.Tenant, rec.Name)
	vrfID, ok := m.Context.VRFMap[Key(vrfTenant, rec.VRF)]
	if rec.VRF == "" || !ok {
		return m.skip("VRF not found for bd, skipping",
			zap.String("vrf", Key(vrfTenant, rec.VRF)), zap.String("bd", label))
	}
	if rec.Name == "" {
		return m.skip("bd without name, skipping", zap.String("dn", rec.Dn))
	}

	bd, created, err := m.Writer.GetOrCreateBridgeDomain(ctx, cacheFor(m.caches, tenantID), tenantID, vrfID, rec.Name,
		netbox.Params(bdFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步 BD %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		extra := map[string]any{}
		if bd.Ref("aci_vrf") != vrfID {
			extra["aci_vrf"] = vrfID
		}
		m.ApplyUpdateSet(ctx, netbox.KindBridgeDomain, bd, bdFields.BuildUpdateSet(bd, rec, extra), label)
	}
	m.Context.BDMap[label] = bd.ID()
	return nil
}

type subnetModule struct {
	Base
}

// NewSubnetModule 同步 BD 子网，以网关地址作为唯一键。
func NewSubnetModule(d Deps) Runner {
	m := &subnetModule{Base: newBase(d, "Subnet")}
	return newRunner[aci.Subnet](m, d)
}

func (m *subnetModule) Fetch(ctx context.Context) ([]aci.Subnet, error) {
	return m.Source.Subnets(ctx)
}

// hasFlag 按子串判断，APIC 的 scope/ctrl 是逗号分隔的标志串。
func hasFlag(list, flag string) bool {
	return strings.Contains(list, flag)
}

// subnetFlags 由 scope 与 ctrl 派生布尔字段，每次更新都重新计算。
func subnetFlags(rec aci.Subnet) map[string]any {
	return map[string]any{
		"advertised_externally_enabled": hasFlag(rec.Scope, "public"),
		"shared_enabled":                hasFlag(rec.Scope, "shared"),
		"no_default_svi_gateway":        hasFlag(rec.Ctrl, "no-default-gateway"),
		"nd_ra_enabled":                 hasFlag(rec.Ctrl, "nd"),
		"igmp_querier_enabled":          hasFlag(rec.Ctrl, "querier"),
	}
}

func (m *subnetModule) SyncObject(ctx context.Context, rec aci.Subnet) error {
	bdLabel := Key(rec.Tenant, rec.BridgeDomain)
	bdID, ok := m.Context.BDMap[bdLabel]
	if !ok {
		return m.skip("bd not found for subnet, skipping", zap.String("bd", bdLabel), zap.String("subnet", rec.IP))
	}
	if rec.IP == "" {
		return m.skip("subnet without ip, skipping", zap.String("dn", rec.Dn))
	}

	gateway, _, err := m.Writer.GetOrCreateIPAddress(ctx, rec.IP,
		netbox.Params{"description": "BD Subnet Gateway - " + rec.BridgeDomain})
	if err != nil {
		return fmt.Errorf("同步子网 %s 的网关地址失败: %w", rec.IP, err)
	}

	name := rec.Name
	if name == "" {
		name = rec.BridgeDomain + "-" + strings.ReplaceAll(rec.IP, "/", "_")
	}
	params := netbox.Params(subnetFields.BuildCreateSet(rec))
	for k, v := range subnetFlags(rec) {
		params[k] = v
	}
	params["name"] = name

	label := Key(bdLabel, rec.IP)
	subnet, created, err := m.Writer.GetOrCreateSubnet(ctx, bdID, gateway.ID(), params)
	if err != nil {
		return fmt.Errorf("同步子网 %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
		return nil
	}
	extra := diff.Changed(subnet, subnetFlags(rec))
	if subnet.Ref("aci_bridge_domain") != bdID {
		extra["aci_bridge_domain"] = bdID
	}
	m.ApplyUpdateSet(ctx, netbox.KindBridgeDomainSubnet, subnet, subnetFields.BuildUpdateSet(subnet, rec, extra), label)
	return nil
}

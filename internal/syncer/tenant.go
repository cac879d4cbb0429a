package syncer

import (
	"context"
	"fmt"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/diff"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

var tenantFields = diff.FieldMap[aci.Tenant]{
	{Source: "name_alias", Dest: "name_alias", Value: func(t aci.Tenant) any { return t.NameAlias }},
	{Source: "description", Dest: "description", Value: func(t aci.Tenant) any { return t.Description }},
}

var vrfFields = diff.FieldMap[aci.VRF]{
	{Source: "name_alias", Dest: "name_alias", Value: func(v aci.VRF) any { return v.NameAlias }},
	{Source: "description", Dest: "description", Value: func(v aci.VRF) any { return v.Description }},
	{Source: "bd_enforced_enabled", Dest: "bd_enforcement_enabled", Value: func(v aci.VRF) any { return v.BDEnforced }},
	{
		Source:  "ip_data_plane_learning",
		Dest:    "ip_data_plane_learning_enabled",
		Value:   func(v aci.VRF) any { return diff.Optional(v.IPDataPlaneLearning) },
		Convert: diff.EqualsConverter("enabled"),
	},
	{Source: "pc_enf_dir", Dest: "pc_enforcement_direction", Value: func(v aci.VRF) any { return diff.Optional(v.PCEnfDir) }},
	{Source: "pc_enf_pref", Dest: "pc_enforcement_preference", Value: func(v aci.VRF) any { return diff.Optional(v.PCEnfPref) }},
	{Source: "pim_v4_enabled", Dest: "pim_ipv4_enabled", Value: func(v aci.VRF) any { return v.PIMv4 }},
	{Source: "pim_v6_enabled", Dest: "pim_ipv6_enabled", Value: func(v aci.VRF) any { return v.PIMv6 }},
	{Source: "preferred_group", Dest: "preferred_group_enabled", Value: func(v aci.VRF) any { return v.PreferredGroup }},
}

type tenantModule struct {
	Base
	cache netbox.Cache
}

// NewTenantModule 同步租户，写入 Context.TenantMap。
func NewTenantModule(d Deps) Runner {
	m := &tenantModule{Base: newBase(d, "Tenant")}
	return newRunner[aci.Tenant](m, d)
}

func (m *tenantModule) PreSync(ctx context.Context) error {
	m.cache = make(netbox.Cache)
	if m.Context.FabricID == 0 {
		return nil
	}
	cache, err := m.Writer.FetchTenants(ctx, m.Context.FabricID)
	if err != nil {
		return err
	}
	m.cache = cache
	return nil
}

func (m *tenantModule) Fetch(ctx context.Context) ([]aci.Tenant, error) {
	return m.Source.Tenants(ctx)
}

func (m *tenantModule) SyncObject(ctx context.Context, rec aci.Tenant) error {
	if rec.Name == "" {
		return m.skip("tenant without name, skipping", zap.String("dn", rec.Dn))
	}
	if m.Context.FabricID == 0 {
		return m.skip("fabric not in context, skipping tenant", zap.String("tenant", rec.Name))
	}
	tenant, created, err := m.Writer.GetOrCreateTenant(ctx, m.cache, m.Context.FabricID, rec.Name,
		netbox.Params(tenantFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步租户 %s 失败: %w", rec.Name, err)
	}
	if created {
		m.RecordCreated(rec.Name)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindTenant, tenant, tenantFields.BuildUpdateSet(tenant, rec, nil), rec.Name)
	}
	m.Context.TenantMap[rec.Name] = tenant.ID()
	return nil
}

type vrfModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewVRFModule 同步 VRF，写入 Context.VRFMap["租户/VRF"]。
func NewVRFModule(d Deps) Runner {
	m := &vrfModule{Base: newBase(d, "VRF")}
	return newRunner[aci.VRF](m, d)
}

func (m *vrfModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.TenantMap, func(ctx context.Context, tenantID int) (netbox.Cache, error) {
		return m.Writer.FetchByTenant(ctx, netbox.KindVRF, tenantID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *vrfModule) Fetch(ctx context.Context) ([]aci.VRF, error) {
	return m.Source.VRFs(ctx)
}

func (m *vrfModule) SyncObject(ctx context.Context, rec aci.VRF) error {
	tenantID, ok := m.Context.TenantMap[rec.Tenant]
	if !ok {
		return m.skip("tenant not found for vrf, skipping", zap.String("tenant", rec.Tenant), zap.String("vrf", rec.Name))
	}
	if rec.Name == "" {
		return m.skip("vrf without name, skipping", zap.String("dn", rec.Dn))
	}
	label := Key(rec.Tenant, rec.Name)
	vrf, created, err := m.Writer.GetOrCreateVRF(ctx, cacheFor(m.caches, tenantID), tenantID, rec.Name,
		netbox.Params(vrfFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步 VRF %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindVRF, vrf, vrfFields.BuildUpdateSet(vrf, rec, nil), label)
	}
	m.Context.VRFMap[label] = vrf.ID()
	return nil
}

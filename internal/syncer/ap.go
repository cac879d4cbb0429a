package syncer

import (
	"context"
	"fmt"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/diff"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

var apFields = diff.FieldMap[aci.AppProfile]{
	{Source: "name_alias", Dest: "name_alias", Value: func(a aci.AppProfile) any { return a.NameAlias }},
	{Source: "description", Dest: "description", Value: func(a aci.AppProfile) any { return a.Description }},
}

var epgFields = diff.FieldMap[aci.EPG]{
	{Source: "name_alias", Dest: "name_alias", Value: func(e aci.EPG) any { return e.NameAlias }},
	{Source: "description", Dest: "description", Value: func(e aci.EPG) any { return e.Description }},
	{
		Source:  "pref_gr_memb",
		Dest:    "preferred_group_member_enabled",
		Value:   func(e aci.EPG) any { return diff.Optional(e.PrefGrMemb) },
		Convert: diff.EqualsConverter("include"),
	},
	{Source: "prio", Dest: "qos_class", Value: func(e aci.EPG) any { return diff.Optional(e.Prio) }},
	{Source: "flood_on_encap", Dest: "flood_in_encapsulation_enabled", Value: func(e aci.EPG) any { return e.FloodOnEncap }},
	{Source: "shutdown", Dest: "admin_shutdown", Value: func(e aci.EPG) any { return e.Shutdown }},
}

var esgFields = diff.FieldMap[aci.ESG]{
	{Source: "name_alias", Dest: "name_alias", Value: func(e aci.ESG) any { return e.NameAlias }},
	{Source: "description", Dest: "description", Value: func(e aci.ESG) any { return e.Description }},
	{
		Source:  "pref_gr_memb",
		Dest:    "preferred_group_member_enabled",
		Value:   func(e aci.ESG) any { return diff.Optional(e.PrefGrMemb) },
		Convert: diff.EqualsConverter("include"),
	},
	{Source: "prio", Dest: "qos_class", Value: func(e aci.ESG) any { return diff.Optional(e.Prio) }},
	{Source: "shutdown", Dest: "admin_shutdown", Value: func(e aci.ESG) any { return e.Shutdown }},
}

type appProfileModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewAppProfileModule 同步应用模板，写入 Context.APMap["租户/AP"]。
func NewAppProfileModule(d Deps) Runner {
	m := &appProfileModule{Base: newBase(d, "AppProfile")}
	return newRunner[aci.AppProfile](m, d)
}

func (m *appProfileModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.TenantMap, func(ctx context.Context, tenantID int) (netbox.Cache, error) {
		return m.Writer.FetchByTenant(ctx, netbox.KindAppProfile, tenantID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *appProfileModule) Fetch(ctx context.Context) ([]aci.AppProfile, error) {
	return m.Source.AppProfiles(ctx)
}

func (m *appProfileModule) SyncObject(ctx context.Context, rec aci.AppProfile) error {
	tenantID, ok := m.Context.TenantMap[rec.Tenant]
	if !ok {
		return m.skip("tenant not found for app profile, skipping", zap.String("tenant", rec.Tenant), zap.String("ap", rec.Name))
	}
	if rec.Name == "" {
		return m.skip("app profile without name, skipping", zap.String("dn", rec.Dn))
	}
	label := Key(rec.Tenant, rec.Name)
	ap, created, err := m.Writer.GetOrCreateAppProfile(ctx, cacheFor(m.caches, tenantID), tenantID, rec.Name,
		netbox.Params(apFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步应用模板 %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindAppProfile, ap, apFields.BuildUpdateSet(ap, rec, nil), label)
	}
	m.Context.APMap[label] = ap.ID()
	return nil
}

type epgModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewEPGModule 同步 EPG，跳过基于属性的微分段 EPG。
func NewEPGModule(d Deps) Runner {
	m := &epgModule{Base: newBase(d, "EndpointGroup")}
	return newRunner[aci.EPG](m, d)
}

func (m *epgModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.APMap, func(ctx context.Context, apID int) (netbox.Cache, error) {
		return m.Writer.FetchByAppProfile(ctx, netbox.KindEndpointGroup, apID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *epgModule) Fetch(ctx context.Context) ([]aci.EPG, error) {
	return m.Source.EPGs(ctx)
}

func (m *epgModule) SyncObject(ctx context.Context, rec aci.EPG) error {
	apLabel := Key(rec.Tenant, rec.AppProfile)
	apID, ok := m.Context.APMap[apLabel]
	if !ok {
		return m.skip("app profile not found for epg, skipping", zap.String("ap", apLabel), zap.String("epg", rec.Name))
	}
	label := Key(rec.Tenant, rec.AppProfile, rec.Name)
	bdID, ok := m.Context.BDMap[Key(rec.Tenant, rec.BridgeDomain)]
	if rec.BridgeDomain == "" || !ok {
		return m.skip("bd not found for epg, skipping", zap.String("bd", rec.BridgeDomain), zap.String("epg", label))
	}
	if rec.Name == "" {
		return m.skip("epg without name, skipping", zap.String("dn", rec.Dn))
	}
	if rec.AttrBased {
		m.Logger.Debug("skipping attribute based epg", zap.String("epg", label))
		return nil
	}

	isolation := rec.PCEnfPref == "enforced"
	params := netbox.Params(epgFields.BuildCreateSet(rec))
	if isolation {
		params["intra_epg_isolation_enabled"] = true
	}
	epg, created, err := m.Writer.GetOrCreateEPG(ctx, cacheFor(m.caches, apID), apID, bdID, rec.Name, params)
	if err != nil {
		return fmt.Errorf("同步 EPG %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		extra := diff.Changed(epg, map[string]any{"intra_epg_isolation_enabled": isolation})
		if epg.Ref("aci_bridge_domain") != bdID {
			extra["aci_bridge_domain"] = bdID
		}
		m.ApplyUpdateSet(ctx, netbox.KindEndpointGroup, epg, epgFields.BuildUpdateSet(epg, rec, extra), label)
	}
	m.Context.EPGMap[label] = epg.ID()
	return nil
}

type esgModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewESGModule 同步 ESG，VRF 缺失时仍然同步，只记录告警。
func NewESGModule(d Deps) Runner {
	m := &esgModule{Base: newBase(d, "EndpointSecurityGroup")}
	return newRunner[aci.ESG](m, d)
}

func (m *esgModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.APMap, func(ctx context.Context, apID int) (netbox.Cache, error) {
		return m.Writer.FetchByAppProfile(ctx, netbox.KindEndpointSecurityGroup, apID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *esgModule) Fetch(ctx context.Context) ([]aci.ESG, error) {
	return m.Source.ESGs(ctx)
}

func (m *esgModule) SyncObject(ctx context.Context, rec aci.ESG) error {
	apLabel := Key(rec.Tenant, rec.AppProfile)
	apID, ok := m.Context.APMap[apLabel]
	if !ok {
		return m.skip("app profile not found for esg, skipping", zap.String("ap", apLabel), zap.String("esg", rec.Name))
	}
	if rec.Name == "" {
		return m.skip("esg without name, skipping", zap.String("dn", rec.Dn))
	}
	label := Key(rec.Tenant, rec.AppProfile, rec.Name)

	vrfID := 0
	if rec.VRF != "" {
		if id, ok := m.Context.VRFMap[Key(rec.Tenant, rec.VRF)]; ok {
			vrfID = id
		} else {
			m.Logger.Warn("vrf not found for esg", zap.String("vrf", rec.VRF), zap.String("esg", label))
		}
	}

	esg, created, err := m.Writer.GetOrCreateESG(ctx, cacheFor(m.caches, apID), apID, vrfID, rec.Name,
		netbox.Params(esgFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步 ESG %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		extra := map[string]any{}
		if vrfID != 0 && esg.Ref("aci_vrf") != vrfID {
			extra["aci_vrf"] = vrfID
		}
		m.ApplyUpdateSet(ctx, netbox.KindEndpointSecurityGroup, esg, esgFields.BuildUpdateSet(esg, rec, extra), label)
	}
	m.Context.ESGMap[label] = esg.ID()
	return nil
}

package syncer

import (
	"context"
	"fmt"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/diff"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

var filterFields = diff.FieldMap[aci.ContractFilter]{
	{Source: "name_alias", Dest: "name_alias", Value: func(f aci.ContractFilter) any { return f.NameAlias }},
	{Source: "description", Dest: "description", Value: func(f aci.ContractFilter) any { return f.Description }},
}

// specified 把空值与 APIC 的 "unspecified" 都视为缺失。
func specified(v string) any {
	if v == "" || v == "unspecified" {
		return nil
	}
	return v
}

var filterEntryFields = diff.FieldMap[aci.FilterEntry]{
	{Source: "etherT", Dest: "ether_type", Value: func(e aci.FilterEntry) any { return specified(e.EtherT) }},
	{Source: "prot", Dest: "ip_protocol", Value: func(e aci.FilterEntry) any { return specified(e.Prot) }},
	{Source: "dFromPort", Dest: "destination_port_from", Value: func(e aci.FilterEntry) any { return specified(e.DFromPort) }},
	{Source: "dToPort", Dest: "destination_port_to", Value: func(e aci.FilterEntry) any { return specified(e.DToPort) }},
	{Source: "sFromPort", Dest: "source_port_from", Value: func(e aci.FilterEntry) any { return specified(e.SFromPort) }},
	{Source: "sToPort", Dest: "source_port_to", Value: func(e aci.FilterEntry) any { return specified(e.SToPort) }},
}

var contractFields = diff.FieldMap[aci.Contract]{
	{Source: "name_alias", Dest: "name_alias", Value: func(c aci.Contract) any { return c.NameAlias }},
	{Source: "description", Dest: "description", Value: func(c aci.Contract) any { return c.Description }},
	{Source: "scope", Dest: "scope", Value: func(c aci.Contract) any { return diff.Optional(c.Scope) }},
	{Source: "prio", Dest: "qos_class", Value: func(c aci.Contract) any { return diff.Optional(c.Prio) }},
	{Source: "target_dscp", Dest: "target_dscp", Value: func(c aci.Contract) any { return diff.Optional(c.TargetDSCP) }},
}

type contractFilterModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewContractFilterModule 同步过滤器及其条目，写入 Context.FilterMap。
func NewContractFilterModule(d Deps) Runner {
	m := &contractFilterModule{Base: newBase(d, "ContractFilter")}
	return newRunner[aci.ContractFilter](m, d)
}

func (m *contractFilterModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.TenantMap, func(ctx context.Context, tenantID int) (netbox.Cache, error) {
		return m.Writer.FetchByTenant(ctx, netbox.KindContractFilter, tenantID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *contractFilterModule) Fetch(ctx context.Context) ([]aci.ContractFilter, error) {
	return m.Source.ContractFilters(ctx)
}

func (m *contractFilterModule) SyncObject(ctx context.Context, rec aci.ContractFilter) error {
	tenantID, ok := m.Context.TenantMap[rec.Tenant]
	if !ok {
		return m.skip("tenant not found for filter, skipping", zap.String("tenant", rec.Tenant), zap.String("filter", rec.Name))
	}
	if rec.Name == "" {
		return m.skip("filter without name, skipping", zap.String("dn", rec.Dn))
	}
	label := Key(rec.Tenant, rec.Name)
	flt, created, err := m.Writer.GetOrCreateContractFilter(ctx, cacheFor(m.caches, tenantID), tenantID, rec.Name,
		netbox.Params(filterFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步过滤器 %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindContractFilter, flt, filterFields.BuildUpdateSet(flt, rec, nil), label)
	}
	m.Context.FilterMap[label] = flt.ID()

	for _, entry := range rec.Entries {
		m.syncEntry(ctx, flt.ID(), label, entry)
	}
	return nil
}

// syncEntry 的失败只记录日志，不影响过滤器本身的计数。
func (m *contractFilterModule) syncEntry(ctx context.Context, filterID int, filterLabel string, entry aci.FilterEntry) {
	if entry.Name == "" {
		return
	}
	params := filterEntryFields.BuildCreateSet(entry)
	obj, created, err := m.Writer.GetOrCreateFilterEntry(ctx, filterID, entry.Name, netbox.Params(params))
	if err != nil {
		m.Logger.Debug("sync filter entry failed", zap.String("entry", Key(filterLabel, entry.Name)), zap.Error(err))
		return
	}
	if created {
		m.Logger.Info("created filter entry", zap.String("entry", Key(filterLabel, entry.Name)))
		return
	}
	if changes := diff.Changed(obj, params); len(changes) > 0 {
		if changed, _ := m.Writer.Update(ctx, netbox.KindContractFilterEntry, obj, changes, m.Settings.VerifyUpdates); changed {
			m.Logger.Info("updated filter entry", zap.String("entry", Key(filterLabel, entry.Name)))
		}
	}
}

type contractModule struct {
	Base
	caches map[int]netbox.Cache
}

// NewContractModule 同步合约及其主题，写入 Context.ContractMap 与 SubjectMap。
func NewContractModule(d Deps) Runner {
	m := &contractModule{Base: newBase(d, "Contract")}
	return newRunner[aci.Contract](m, d)
}

func (m *contractModule) PreSync(ctx context.Context) error {
	caches, err := m.prefetch(ctx, m.Context.TenantMap, func(ctx context.Context, tenantID int) (netbox.Cache, error) {
		return m.Writer.FetchByTenant(ctx, netbox.KindContract, tenantID)
	})
	if err != nil {
		return err
	}
	m.caches = caches
	return nil
}

func (m *contractModule) Fetch(ctx context.Context) ([]aci.Contract, error) {
	return m.Source.Contracts(ctx)
}

func (m *contractModule) SyncObject(ctx context.Context, rec aci.Contract) error {
	tenantID, ok := m.Context.TenantMap[rec.Tenant]
	if !ok {
		return m.skip("tenant not found for contract, skipping", zap.String("tenant", rec.Tenant), zap.String("contract", rec.Name))
	}
	if rec.Name == "" {
		return m.skip("contract without name, skipping", zap.String("dn", rec.Dn))
	}
	label := Key(rec.Tenant, rec.Name)
	contract, created, err := m.Writer.GetOrCreateContract(ctx, cacheFor(m.caches, tenantID), tenantID, rec.Name,
		netbox.Params(contractFields.BuildCreateSet(rec)))
	if err != nil {
		return fmt.Errorf("同步合约 %s 失败: %w", label, err)
	}
	if created {
		m.RecordCreated(label)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindContract, contract, contractFields.BuildUpdateSet(contract, rec, nil), label)
	}
	m.Context.ContractMap[label] = contract.ID()

	for _, subj := range rec.Subjects {
		m.syncSubject(ctx, contract.ID(), label, subj)
	}
	return nil
}

func (m *contractModule) syncSubject(ctx context.Context, contractID int, contractLabel string, subj aci.Subject) {
	if subj.Name == "" {
		return
	}
	label := Key(contractLabel, subj.Name)
	params := netbox.Params{}
	if subj.Description != "" {
		params["description"] = subj.Description
	}
	obj, created, err := m.Writer.GetOrCreateContractSubject(ctx, contractID, subj.Name, params)
	if err != nil {
		m.Logger.Error("sync contract subject failed", zap.String("subject", label), zap.Error(err))
		return
	}
	if created {
		m.Logger.Info("created contract subject", zap.String("subject", label))
	} else if subj.Description != "" && obj.String("description") != subj.Description {
		if changed, _ := m.Writer.Update(ctx, netbox.KindContractSubject, obj,
			map[string]any{"description": subj.Description}, m.Settings.VerifyUpdates); changed {
			m.Logger.Info("updated contract subject", zap.String("subject", label))
		}
	}
	m.Context.SubjectMap[label] = obj.ID()
}

const (
	roleProvider = "provider"
	roleConsumer = "consumer"
)

var relationRoles = map[string]string{roleProvider: "prov", roleConsumer: "cons"}

// relationshipRecord 是展开后的一条提供或消费关系。
type relationshipRecord struct {
	aci.Relationship
	Role string
}

type contractRelationshipModule struct {
	Base
}

// NewContractRelationshipModule 同步 EPG 与 vzAny 的合约关系。
// 关系写入失败一律计为 unchanged。
func NewContractRelationshipModule(d Deps) Runner {
	m := &contractRelationshipModule{Base: newBase(d, "ContractRelationship")}
	return newRunner[relationshipRecord](m, d)
}

func (m *contractRelationshipModule) PreSync(ctx context.Context) error {
	count, err := m.Writer.LoadRelations(ctx)
	if err != nil {
		m.Logger.Warn("prefetch contract relations failed", zap.Error(err))
		return nil
	}
	m.Logger.Info("prefetched contract relations", zap.Int("count", count))
	return nil
}

func (m *contractRelationshipModule) Fetch(ctx context.Context) ([]relationshipRecord, error) {
	rels, err := m.Source.ContractRelationships(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]relationshipRecord, 0, len(rels.Providers)+len(rels.Consumers))
	vzAny := 0
	for _, r := range rels.Providers {
		out = append(out, relationshipRecord{Relationship: r, Role: roleProvider})
		if r.VzAny {
			vzAny++
		}
	}
	for _, r := range rels.Consumers {
		out = append(out, relationshipRecord{Relationship: r, Role: roleConsumer})
		if r.VzAny {
			vzAny++
		}
	}
	m.Logger.Info("flattened contract relationships", zap.Int("epg", len(out)-vzAny), zap.Int("vzany", vzAny))
	return out, nil
}

func (m *contractRelationshipModule) SyncObject(ctx context.Context, rec relationshipRecord) error {
	if rec.Contract == "" || rec.Tenant == "" || rec.Role == "" {
		return nil
	}
	role, ok := relationRoles[rec.Role]
	if !ok {
		role = rec.Role
	}

	tenantID := m.Context.TenantMap[rec.Tenant]
	contractID, ok := m.Context.ContractMap[Key(rec.Tenant, rec.Contract)]
	if !ok {
		// 引用 common 租户中的合约时，关系归属于 common。
		contractID, ok = m.Context.ContractMap[Key("common", rec.Contract)]
		if ok {
			if id, found := m.Context.TenantMap["common"]; found {
				tenantID = id
			}
		}
	}
	if !ok {
		m.Logger.Debug("contract not found for relationship", zap.String("contract", rec.Contract), zap.String("tenant", rec.Tenant))
		return nil
	}

	rel := netbox.Relation{ContractID: contractID, Role: role, TenantID: tenantID}
	var label string
	if rec.VzAny {
		if rec.VRF == "" {
			return nil
		}
		label = "vzAny " + Key(rec.Tenant, rec.VRF) + " -> " + rec.Contract
		vrfID, ok := m.Context.VRFMap[Key(rec.Tenant, rec.VRF)]
		if !ok {
			m.Logger.Debug("vrf not found for vzany relationship", zap.String("vrf", rec.VRF))
			return nil
		}
		rel.Target = netbox.TargetVRF
		rel.ObjectID = vrfID
	} else {
		if rec.AppProfile == "" || rec.EPG == "" {
			return nil
		}
		epgKey := Key(rec.Tenant, rec.AppProfile, rec.EPG)
		label = "epg " + epgKey + " -> " + rec.Contract
		epgID, ok := m.Context.EPGMap[epgKey]
		if !ok {
			m.Logger.Debug("epg not found for relationship", zap.String("epg", epgKey))
			return nil
		}
		rel.Target = netbox.TargetEndpointGroup
		rel.ObjectID = epgID
		rel.FabricID = m.Context.FabricID
	}

	created, err := m.Writer.CreateRelation(ctx, rel)
	if err != nil {
		m.Logger.Debug("create contract relation failed", zap.String("relation", label), zap.Error(err))
		m.RecordUnchanged()
		return nil
	}
	if created {
		m.RecordCreated(rec.Role + " " + label)
	} else {
		m.RecordUnchanged()
	}
	return nil
}

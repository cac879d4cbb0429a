package netbox

import (
	"context"
	"errors"
	"strings"
	"sync"

	"aci2netbox/internal/diff"
	"go.uber.org/zap"
)

// RelationTarget 是合约关系可以指向的对象类型。
type RelationTarget int

const (
	TargetEndpointGroup RelationTarget = iota + 1
	TargetVRF
)

// ObjectType 返回插件使用的多态类型名。
func (t RelationTarget) ObjectType() string {
	switch t {
	case TargetEndpointGroup:
		return "netbox_aci_plugin.aciendpointgroup"
	case TargetVRF:
		return "netbox_aci_plugin.acivrf"
	}
	return ""
}

// match 是存在性检查时对 aci_object_type 的子串过滤。
func (t RelationTarget) match() string {
	switch t {
	case TargetEndpointGroup:
		return "endpointgroup"
	case TargetVRF:
		return "vrf"
	}
	return ""
}

func (t RelationTarget) String() string {
	switch t {
	case TargetEndpointGroup:
		return "epg"
	case TargetVRF:
		return "vrf"
	}
	return "unknown"
}

// Relation 描述一条合约关系（提供者或消费者）。
type Relation struct {
	Target     RelationTarget
	ObjectID   int
	ContractID int
	Role       string
	TenantID   int
	FabricID   int
}

type relationCache struct {
	mu     sync.Mutex
	loaded bool
	items  []Object
}

// LoadRelations 一次性拉取全部合约关系供存在性检查使用，返回条数。
func (w *Writer) LoadRelations(ctx context.Context) (int, error) {
	items, err := w.store.List(ctx, KindContractRelation, nil)
	w.relations.mu.Lock()
	defer w.relations.mu.Unlock()
	if err != nil {
		w.relations.items = nil
		w.relations.loaded = true
		return 0, err
	}
	w.relations.items = items
	w.relations.loaded = true
	return len(items), nil
}

// RelationExists 检查缓存中是否已存在相同 (对象, 合约, 角色) 的关系。
func (w *Writer) RelationExists(ctx context.Context, rel Relation) bool {
	w.relations.mu.Lock()
	loaded := w.relations.loaded
	w.relations.mu.Unlock()
	if !loaded {
		if _, err := w.LoadRelations(ctx); err != nil {
			w.logger.Warn("fetch contract relations failed", zap.Error(err))
		}
	}

	w.relations.mu.Lock()
	defer w.relations.mu.Unlock()
	typeFilter := rel.Target.match()
	for _, item := range w.relations.items {
		if item.Ref("aci_object_id") != rel.ObjectID {
			continue
		}
		if item.Ref("aci_contract") != rel.ContractID {
			continue
		}
		if item.String("role") != rel.Role {
			continue
		}
		if typeFilter != "" && !strings.Contains(strings.ToLower(item.String("aci_object_type")), typeFilter) {
			continue
		}
		return true
	}
	return false
}

// CreateRelation 在关系不存在时创建，返回是否新建。
func (w *Writer) CreateRelation(ctx context.Context, rel Relation) (bool, error) {
	if rel.Target.ObjectType() == "" {
		return false, errors.New("未知的合约关系目标类型")
	}
	if w.RelationExists(ctx, rel) {
		w.logger.Debug("contract relation already exists",
			zap.Stringer("target", rel.Target),
			zap.Int("object_id", rel.ObjectID),
			zap.Int("contract_id", rel.ContractID),
			zap.String("role", rel.Role))
		return false, nil
	}
	params := Params{
		"aci_contract":    rel.ContractID,
		"aci_object_type": rel.Target.ObjectType(),
		"aci_object_id":   rel.ObjectID,
		"role":            rel.Role,
	}
	if rel.TenantID != 0 {
		params["aci_tenant"] = rel.TenantID
	}
	if rel.FabricID != 0 && rel.Target == TargetEndpointGroup {
		params["aci_fabric"] = rel.FabricID
	}
	created, err := w.store.Create(ctx, KindContractRelation, params)
	if err != nil {
		return false, err
	}
	if created == nil {
		created = Object(params)
	}
	w.relations.mu.Lock()
	w.relations.items = append(w.relations.items, created)
	w.relations.mu.Unlock()
	w.logger.Info("created contract relation",
		zap.Stringer("target", rel.Target),
		zap.Int("object_id", rel.ObjectID),
		zap.Int("contract_id", diff.RefID(created["aci_contract"])),
		zap.String("role", rel.Role))
	return true, nil
}

package syncer

import (
	"context"
	"fmt"
	"strings"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

const (
	defaultFabricName = "ACI_Fabric"
	defaultInfraVLAN  = 4093
)

var fabricNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

type fabricModule struct {
	Base
}

// NewFabricModule 同步 fabric 本身，并写入 Context.FabricID 与 FabricName。
func NewFabricModule(d Deps) Runner {
	m := &fabricModule{Base: newBase(d, "Fabric")}
	return newRunner[aci.FabricSettings](m, d)
}

func (m *fabricModule) Fetch(ctx context.Context) ([]aci.FabricSettings, error) {
	settings, err := m.Source.FabricSettings(ctx)
	if err != nil {
		return nil, err
	}
	return []aci.FabricSettings{settings}, nil
}

func (m *fabricModule) SyncObject(ctx context.Context, rec aci.FabricSettings) error {
	name := rec.Name
	if name == "" {
		name = defaultFabricName
	}
	name = fabricNameReplacer.Replace(name)
	fabricID := rec.FabricID
	if fabricID <= 0 {
		fabricID = 1
	}
	vlan := rec.InfraVLAN
	if vlan <= 0 {
		vlan = defaultInfraVLAN
	}

	params := netbox.Params{"infra_vlan_vid": vlan}
	if rec.GIPOPool != "" {
		params["gipo_pool"] = rec.GIPOPool
	}
	fabric, created, err := m.Writer.GetOrCreateFabric(ctx, name, fabricID, params)
	if err != nil {
		return fmt.Errorf("同步 fabric %s 失败: %w", name, err)
	}
	if created {
		m.RecordCreated(name)
	} else {
		updates := map[string]any{"fabric_id": fabricID, "infra_vlan_vid": vlan}
		if rec.GIPOPool != "" {
			updates["gipo_pool"] = rec.GIPOPool
		}
		m.ApplyUpdateSet(ctx, netbox.KindFabric, fabric, updates, name)
	}

	m.Context.FabricID = fabric.ID()
	m.Context.FabricName = name
	return nil
}

type podModule struct {
	Base
	cache netbox.Cache
}

// NewPodModule 同步 pod 及其 TEP 地址池。
func NewPodModule(d Deps) Runner {
	m := &podModule{Base: newBase(d, "Pod")}
	return newRunner[aci.Pod](m, d)
}

func (m *podModule) PreSync(ctx context.Context) error {
	m.cache = make(netbox.Cache)
	if m.Context.FabricID == 0 {
		return nil
	}
	cache, err := m.Writer.FetchPods(ctx, m.Context.FabricID)
	if err != nil {
		return err
	}
	m.cache = cache
	return nil
}

func (m *podModule) Fetch(ctx context.Context) ([]aci.Pod, error) {
	return m.Source.Pods(ctx)
}

func (m *podModule) SyncObject(ctx context.Context, rec aci.Pod) error {
	if m.Context.FabricID == 0 {
		return m.skip("fabric not in context, skipping pod", zap.Int("pod_id", rec.PodID))
	}
	if rec.PodID == 0 {
		return m.skip("pod without id, skipping", zap.String("dn", rec.Dn))
	}
	name := rec.Name
	if name == "" {
		name = fmt.Sprintf("pod-%d", rec.PodID)
	}

	params := netbox.Params{"name": name}
	tepPoolID := 0
	if rec.TEPPool != "" {
		prefix, _, err := m.Writer.GetOrCreatePrefix(ctx, rec.TEPPool, netbox.Params{"description": "TEP Pool - " + name})
		if err != nil {
			return fmt.Errorf("同步 pod %s 的 TEP 地址池失败: %w", name, err)
		}
		tepPoolID = prefix.ID()
		params["tep_pool"] = tepPoolID
		m.Context.TEPPoolMask = maskOf(rec.TEPPool)
		m.Context.PodTEPPools[rec.PodID] = rec.TEPPool
	}

	pod, created, err := m.Writer.GetOrCreatePod(ctx, m.cache, m.Context.FabricID, rec.PodID, params)
	if err != nil {
		return fmt.Errorf("同步 pod %s 失败: %w", name, err)
	}
	if created {
		m.RecordCreated(name)
	} else {
		updates := map[string]any{}
		if tepPoolID != 0 && pod.Ref("tep_pool") != tepPoolID {
			updates["tep_pool"] = tepPoolID
		}
		m.ApplyUpdateSet(ctx, netbox.KindPod, pod, updates, name)
	}
	m.Context.PodMap[rec.PodID] = pod.ID()
	return nil
}

func maskOf(prefix string) string {
	if i := strings.IndexByte(prefix, '/'); i >= 0 && i+1 < len(prefix) {
		return prefix[i+1:]
	}
	return defaultTEPPoolMask
}

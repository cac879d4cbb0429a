package syncer

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/netbox"
	"github.com/yl2chen/cidranger"
	"go.uber.org/zap"
)

const (
	manufacturerName = "Cisco"
	fallbackSiteName = "ACI-Fabric"
)

var nodeRoles = map[string]string{
	"controller":  "apic",
	"spine":       "spine",
	"leaf":        "leaf",
	"unspecified": "leaf",
}

// 顺序即优先级，先匹配更长的前缀。
var modelPrefixes = []string{
	"N9K-C", "N9K-", "N5K-C", "N5K-", "N3K-C", "N3K-",
	"N77-C", "N77-", "N7K-C", "N7K-",
	"APIC-SERVER-", "APIC-",
	"Nexus ", "nexus ",
	"ACI-",
}

var modelStripper = strings.NewReplacer("-", "", " ", "", "_", "")

// normalizeModel 把 N9K-C93180YC-FX、Nexus 93180YC-FX 等写法归一为 93180ycfx。
func normalizeModel(model string) string {
	s := strings.TrimSpace(model)
	lower := strings.ToLower(s)
	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			s = s[len(prefix):]
			break
		}
	}
	return modelStripper.Replace(strings.ToLower(s))
}

func nodeRole(role string) string {
	if r, ok := nodeRoles[strings.ToLower(role)]; ok {
		return r
	}
	return "leaf"
}

// tepIndex 按 pod 的 TEP 地址池确定节点 TEP 地址的掩码长度。
type tepIndex struct {
	ranger   cidranger.Ranger
	fallback string
}

func newTEPIndex(pools map[int]string, fallback string, logger *zap.Logger) *tepIndex {
	idx := &tepIndex{ranger: cidranger.NewPCTrieRanger(), fallback: fallback}
	if idx.fallback == "" {
		idx.fallback = defaultTEPPoolMask
	}
	for podID, pool := range pools {
		_, network, err := net.ParseCIDR(pool)
		if err != nil {
			logger.Warn("invalid tep pool", zap.Int("pod_id", podID), zap.String("pool", pool), zap.Error(err))
			continue
		}
		if err := idx.ranger.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			logger.Warn("index tep pool failed", zap.String("pool", pool), zap.Error(err))
		}
	}
	return idx
}

// MaskFor 返回包含 ip 的最长前缀的掩码，找不到时返回全局掩码。
func (t *tepIndex) MaskFor(ip string) string {
	addr := net.ParseIP(ip)
	if addr == nil {
		return t.fallback
	}
	entries, err := t.ranger.ContainingNetworks(addr)
	if err != nil || len(entries) == 0 {
		return t.fallback
	}
	best := -1
	for _, entry := range entries {
		network := entry.Network()
		if ones, _ := network.Mask.Size(); ones > best {
			best = ones
		}
	}
	return strconv.Itoa(best)
}

type nodeModule struct {
	Base
	cache        netbox.Cache
	manufacturer netbox.Object
	site         netbox.Object
	deviceTypes  map[string]netbox.Object
	normalized   map[string]netbox.Object
	roles        map[string]netbox.Object
	tep          *tepIndex
}

// NewNodeModule 同步 fabric 节点及其 DCIM 设备和 TEP 地址。
func NewNodeModule(d Deps) Runner {
	m := &nodeModule{Base: newBase(d, "Node")}
	return newRunner[aci.Node](m, d)
}

func (m *nodeModule) PreSync(ctx context.Context) error {
	m.cache = make(netbox.Cache)
	m.deviceTypes = make(map[string]netbox.Object)
	m.normalized = make(map[string]netbox.Object)
	m.roles = make(map[string]netbox.Object)
	m.tep = newTEPIndex(m.Context.PodTEPPools, m.Context.TEPPoolMask, m.Logger)

	if m.Context.FabricID != 0 {
		cache, err := m.Writer.FetchNodes(ctx, m.Context.FabricID)
		if err != nil {
			return err
		}
		m.cache = cache
	}

	manufacturer, _, err := m.Writer.GetOrCreateManufacturer(ctx, manufacturerName)
	if err != nil {
		return fmt.Errorf("获取厂商 %s 失败: %w", manufacturerName, err)
	}
	m.manufacturer = manufacturer

	siteName := m.Context.FabricName
	if siteName == "" {
		siteName = fallbackSiteName
	}
	site, _, err := m.Writer.GetOrCreateSite(ctx, siteName)
	if err != nil {
		return fmt.Errorf("获取站点 %s 失败: %w", siteName, err)
	}
	m.site = site

	types, err := m.Writer.FetchDeviceTypes(ctx, manufacturer.ID())
	if err != nil {
		return fmt.Errorf("预取设备类型失败: %w", err)
	}
	// 按 id 排序保证同一归一化键下结果稳定。
	sort.Slice(types, func(i, j int) bool { return types[i].ID() < types[j].ID() })
	for _, dt := range types {
		model := dt.String("model")
		if norm := normalizeModel(model); norm != "" {
			if _, ok := m.normalized[norm]; !ok {
				m.normalized[norm] = dt
			}
			m.deviceTypes[model] = dt
		}
	}
	m.Logger.Debug("prefetched device types", zap.Int("count", len(types)), zap.Int("normalized", len(m.normalized)))
	return nil
}

func (m *nodeModule) Fetch(ctx context.Context) ([]aci.Node, error) {
	return m.Source.Nodes(ctx)
}

// deviceType 依次查精确缓存、归一化索引，都未命中时创建。
func (m *nodeModule) deviceType(ctx context.Context, model string) (netbox.Object, error) {
	if dt, ok := m.deviceTypes[model]; ok {
		return dt, nil
	}
	norm := normalizeModel(model)
	if dt, ok := m.normalized[norm]; ok && norm != "" {
		m.Logger.Info("matched device type", zap.String("aci_model", model), zap.String("netbox_model", dt.String("model")))
		m.deviceTypes[model] = dt
		return dt, nil
	}
	dt, _, err := m.Writer.GetOrCreateDeviceType(ctx, m.manufacturer.ID(), model)
	if err != nil {
		return nil, fmt.Errorf("获取设备类型 %s 失败: %w", model, err)
	}
	m.deviceTypes[model] = dt
	if norm != "" {
		m.normalized[norm] = dt
	}
	return dt, nil
}

func (m *nodeModule) deviceRole(ctx context.Context, name string) (netbox.Object, error) {
	if r, ok := m.roles[name]; ok {
		return r, nil
	}
	r, _, err := m.Writer.GetOrCreateDeviceRole(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("获取设备角色 %s 失败: %w", name, err)
	}
	m.roles[name] = r
	return r, nil
}

// tepAddress 创建节点 TEP 地址，创建失败时退回到同主机地址的已有记录。
func (m *nodeModule) tepAddress(ctx context.Context, address, nodeName string) int {
	if address == "" || address == "0.0.0.0" {
		return 0
	}
	host := address
	if i := strings.IndexByte(address, '/'); i >= 0 {
		host = address[:i]
	}
	withMask := host + "/" + m.tep.MaskFor(host)
	ip, _, err := m.Writer.GetOrCreateIPAddress(ctx, withMask, netbox.Params{"description": "TEP IP - " + nodeName})
	if err == nil {
		return ip.ID()
	}
	m.Logger.Warn("create tep ip failed", zap.String("address", withMask), zap.Error(err))
	existing, err := m.Writer.IPAddress(ctx, host)
	if err != nil || existing == nil {
		return 0
	}
	return existing.ID()
}

func (m *nodeModule) SyncObject(ctx context.Context, rec aci.Node) error {
	if m.Context.FabricID == 0 {
		return m.skip("fabric not in context, skipping node", zap.Int("node_id", rec.NodeID))
	}
	if rec.NodeID == 0 {
		return m.skip("node without id, skipping", zap.String("dn", rec.Dn))
	}
	name := rec.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", rec.NodeID)
	}
	podID := rec.PodID
	if podID == 0 {
		podID = 1
	}
	aciPod, ok := m.Context.PodMap[podID]
	if !ok {
		return m.skip("pod not found for node, skipping", zap.Int("pod_id", podID), zap.String("node", name))
	}

	role := nodeRole(rec.Role)
	model := rec.Model
	if model == "" {
		model = "ACI-" + strings.ToUpper(role)
	}
	dt, err := m.deviceType(ctx, model)
	if err != nil {
		return err
	}
	deviceRole, err := m.deviceRole(ctx, "ACI "+strings.ToUpper(role[:1])+role[1:])
	if err != nil {
		return err
	}
	deviceParams := netbox.Params{}
	if rec.Serial != "" {
		deviceParams["serial"] = rec.Serial
	}
	device, deviceCreated, err := m.Writer.GetOrCreateDevice(ctx, name, dt.ID(), m.site.ID(), deviceRole.ID(), deviceParams)
	if err != nil {
		return fmt.Errorf("同步节点 %s 的 DCIM 设备失败: %w", name, err)
	}
	if deviceCreated {
		m.Logger.Debug("created dcim device", zap.String("device", name))
	}

	params := netbox.Params{
		"name":             name,
		"aci_pod":          aciPod,
		"role":             role,
		"node_type":        "virtual",
		"node_object_type": "dcim.device",
		"node_object_id":   device.ID(),
	}
	tepID := m.tepAddress(ctx, rec.Address, name)
	if tepID != 0 {
		params["tep_ip_address"] = tepID
	}

	node, created, err := m.Writer.GetOrCreateNode(ctx, m.cache, m.Context.FabricID, rec.NodeID, params)
	if err != nil {
		return fmt.Errorf("同步节点 %s 失败: %w", name, err)
	}
	label := fmt.Sprintf("%s (%d)", name, rec.NodeID)
	if created {
		m.RecordCreated(label)
	} else {
		updates := map[string]any{}
		if node.String("role") != role {
			updates["role"] = role
		}
		if tepID != 0 && node.Ref("tep_ip_address") != tepID {
			updates["tep_ip_address"] = tepID
		}
		m.ApplyUpdateSet(ctx, netbox.KindNode, node, updates, label)
	}
	m.Context.NodeMap[rec.NodeID] = node.ID()
	return nil
}

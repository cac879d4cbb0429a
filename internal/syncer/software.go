package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/diff"
	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

const (
	maxVersionLen  = 32
	maxFilenameLen = 256
	maxChecksumLen = 36
	commentNodes   = 10
)

func knownVersion(v string) bool {
	switch v {
	case "", "unknown", "n/a":
		return false
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// versionRecord 是运行同一固件版本的节点集合。
type versionRecord struct {
	Version string
	Nodes   []aci.Node
}

func (v versionRecord) comments() string {
	names := make([]string, 0, commentNodes)
	for i, n := range v.Nodes {
		if i == commentNodes {
			break
		}
		name := n.Name
		if name == "" {
			name = "unknown"
		}
		names = append(names, name)
	}
	suffix := ""
	if len(v.Nodes) > commentNodes {
		suffix = fmt.Sprintf(" (+%d more)", len(v.Nodes)-commentNodes)
	}
	return fmt.Sprintf("ACI firmware running on %d node(s): %s%s", len(v.Nodes), strings.Join(names, ", "), suffix)
}

type softwareModule struct {
	Base
	firmware map[string]aci.Firmware
	nodes    []aci.Node
}

// NewSoftwareModule 把节点固件版本同步到 netbox-software-tracker，
// 并在设备上记录固件信息、为设备类型指定黄金镜像。
func NewSoftwareModule(d Deps) Runner {
	m := &softwareModule{Base: newBase(d, "SoftwareVersion")}
	return newRunner[versionRecord](m, d)
}

func (m *softwareModule) PreSync(ctx context.Context) error {
	firmware, err := m.Source.FirmwareDetails(ctx)
	if err != nil {
		m.Logger.Warn("fetch firmware details failed", zap.Error(err))
		firmware = nil
	}
	if firmware == nil {
		firmware = make(map[string]aci.Firmware)
	}
	m.firmware = firmware
	m.Logger.Info("loaded firmware details", zap.Int("versions", len(firmware)))
	return nil
}

func (m *softwareModule) Fetch(ctx context.Context) ([]versionRecord, error) {
	nodes, err := m.Source.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	m.nodes = nodes

	byVersion := make(map[string][]aci.Node)
	var order []string
	for _, n := range nodes {
		if !knownVersion(n.Version) {
			continue
		}
		if _, ok := byVersion[n.Version]; !ok {
			order = append(order, n.Version)
		}
		byVersion[n.Version] = append(byVersion[n.Version], n)
	}
	out := make([]versionRecord, 0, len(order))
	for _, v := range order {
		out = append(out, versionRecord{Version: v, Nodes: byVersion[v]})
	}
	m.Logger.Info("grouped firmware versions", zap.Int("versions", len(out)), zap.Int("nodes", len(nodes)))
	return out, nil
}

func (m *softwareModule) SyncObject(ctx context.Context, rec versionRecord) error {
	if rec.Version == "" {
		return m.skip("firmware entry without version, skipping")
	}
	version := truncate(rec.Version, maxVersionLen)
	proposed := map[string]any{"comments": rec.comments()}
	fw := m.firmware[rec.Version]
	if fw.Filename != "" {
		proposed["filename"] = truncate(fw.Filename, maxFilenameLen)
	}
	if fw.Checksum != "" {
		proposed["md5sum"] = truncate(fw.Checksum, maxChecksumLen)
	}

	image, created, err := m.Writer.GetOrCreateSoftwareImage(ctx, version, netbox.Params(proposed))
	if err != nil {
		return fmt.Errorf("同步软件版本 %s 失败: %w", version, err)
	}
	if created {
		m.RecordCreated(version)
	} else {
		m.ApplyUpdateSet(ctx, netbox.KindSoftwareImage, image, diff.Changed(image, proposed), version)
	}
	m.Context.SWVersionMap[rec.Version] = image.ID()
	return nil
}

func (m *softwareModule) PostSync(ctx context.Context) error {
	if len(m.Context.SWVersionMap) == 0 {
		return nil
	}
	m.stampDevices(ctx)
	m.assignGoldenImages(ctx)
	return nil
}

// firmwareContext 是写入设备 local_context_data.firmware 的内容。
func (m *softwareModule) firmwareContext(n aci.Node) map[string]any {
	out := map[string]any{
		"version": n.Version,
		"model":   n.Model,
		"serial":  n.Serial,
	}
	fw := m.firmware[n.Version]
	if fw.Filename != "" {
		out["filename"] = fw.Filename
	}
	if fw.Checksum != "" {
		out["checksum"] = fw.Checksum
	}
	return out
}

func sameFirmware(current any, want map[string]any) bool {
	cur, ok := current.(map[string]any)
	if !ok || len(cur) != len(want) {
		return false
	}
	for k, v := range want {
		if !diff.Equal(cur[k], v) {
			return false
		}
	}
	return true
}

// stampDevices 合并设备的 local_context_data，仅 firmware 子对象变化时写入。
func (m *softwareModule) stampDevices(ctx context.Context) {
	updated := 0
	for _, n := range m.nodes {
		if !knownVersion(n.Version) || n.Name == "" {
			continue
		}
		device, err := m.Writer.DeviceByName(ctx, n.Name)
		if err != nil || device == nil {
			m.Logger.Debug("dcim device not found for node", zap.String("node", n.Name), zap.Error(err))
			continue
		}
		want := m.firmwareContext(n)
		current, _ := device["local_context_data"].(map[string]any)
		if sameFirmware(current["firmware"], want) {
			continue
		}
		merged := make(map[string]any, len(current)+1)
		for k, v := range current {
			merged[k] = v
		}
		merged["firmware"] = want
		if err := m.Writer.SetLocalContext(ctx, device.ID(), merged); err != nil {
			m.Logger.Debug("set device firmware failed", zap.String("node", n.Name), zap.Error(err))
			continue
		}
		updated++
	}
	if updated > 0 {
		m.Logger.Info("updated device firmware", zap.Int("devices", updated))
	}
}

func (m *softwareModule) assignGoldenImages(ctx context.Context) {
	var keys []string
	pairs := make(map[string]aci.Node)
	for _, n := range m.nodes {
		if !knownVersion(n.Version) || n.Model == "" {
			continue
		}
		key := n.Model + ":" + n.Version
		if _, ok := pairs[key]; ok {
			continue
		}
		keys = append(keys, key)
		pairs[key] = n
	}
	sort.Strings(keys)

	assigned := 0
	for _, key := range keys {
		n := pairs[key]
		imageID, ok := m.Context.SWVersionMap[n.Version]
		if !ok {
			continue
		}
		dt, err := m.Writer.DeviceTypeByModel(ctx, n.Model)
		if err != nil || dt == nil {
			continue
		}
		changed, err := m.Writer.AssignGoldenImage(ctx, dt.ID(), imageID)
		if err != nil {
			m.Logger.Debug("assign golden image failed", zap.String("model", n.Model), zap.Error(err))
			continue
		}
		if changed {
			assigned++
		}
	}
	if assigned > 0 {
		m.Logger.Info("assigned golden images", zap.Int("device_types", assigned))
	}
}

package aci

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const defaultFabricName = "ACI Fabric"

// Reader 把 APIC 类查询结果解码为类型化记录。
type Reader struct {
	q      Querier
	logger *zap.Logger
}

// NewReader 创建 Reader。
func NewReader(q Querier, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{q: q, logger: logger}
}

func (r *Reader) query(ctx context.Context, class string, subtree bool) ([]ApicObject, error) {
	objs, err := r.q.Class(ctx, class, subtree)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", class, err)
	}
	return objs, nil
}

// optional 查询可缺失的类，失败只记录调试日志。
func (r *Reader) optional(ctx context.Context, class string) []ApicObject {
	objs, err := r.q.Class(ctx, class, false)
	if err != nil {
		r.logger.Debug("optional class query failed", zap.String("class", class), zap.Error(err))
		return nil
	}
	return objs
}

// FabricSettings 读取 fabric id、基础设施 VLAN、名称和 GIPO 地址池。
func (r *Reader) FabricSettings(ctx context.Context) (FabricSettings, error) {
	settings := FabricSettings{Name: defaultFabricName, FabricID: 1}

	pols, err := r.query(ctx, "infraSetPol", false)
	if err != nil {
		return settings, err
	}
	for _, pol := range pols {
		if id := pol.Int("fabricId", 0); id > 0 {
			settings.FabricID = id
		}
	}

	for _, acc := range r.optional(ctx, "infraProvAcc") {
		if vid := acc.Int("vid", 0); vid > 0 {
			settings.InfraVLAN = vid
			break
		}
	}
	if settings.InfraVLAN == 0 {
		for _, cont := range r.optional(ctx, "infraCont") {
			if vid := cont.Int("infraVlan", 0); vid > 0 {
				settings.InfraVLAN = vid
				break
			}
		}
	}

	for _, pol := range r.optional(ctx, "fabricSetupP") {
		if name := pol.Attr("name"); name != "" {
			settings.Name = name
			break
		}
	}
	for _, pol := range r.optional(ctx, "fvFabricExtConnP") {
		if pool := pol.Attr("gipoPool"); pool != "" {
			settings.GIPOPool = pool
			break
		}
	}
	return settings, nil
}

// Pods 读取 pod 及其 TEP 地址池；pod 上均无地址池时回退到 fabricSetupP.tepPool。
func (r *Reader) Pods(ctx context.Context) ([]Pod, error) {
	objs, err := r.query(ctx, "fabricPod", false)
	if err != nil {
		return nil, err
	}
	pods := make([]Pod, 0, len(objs))
	anyPool := false
	for _, obj := range objs {
		id := obj.Int("id", 0)
		if id == 0 {
			continue
		}
		pod := Pod{PodID: id, Name: fmt.Sprintf("pod-%d", id), Dn: obj.Dn(), TEPPool: obj.Attr("tepPool")}
		anyPool = anyPool || pod.TEPPool != ""
		pods = append(pods, pod)
	}
	if len(pods) > 0 && !anyPool {
		for _, pol := range r.optional(ctx, "fabricSetupP") {
			if pool := pol.Attr("tepPool"); pool != "" {
				for i := range pods {
					pods[i].TEPPool = pool
				}
				break
			}
		}
	}
	return pods, nil
}

// Nodes 读取 fabric 节点，pod id 从 dn 解析。
func (r *Reader) Nodes(ctx context.Context) ([]Node, error) {
	objs, err := r.query(ctx, "fabricNode", false)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(objs))
	for _, obj := range objs {
		dn := obj.Dn()
		nodes = append(nodes, Node{
			NodeID:      obj.Int("id", 0),
			Name:        obj.Attr("name"),
			Serial:      obj.Attr("serial"),
			Model:       obj.Attr("model"),
			Role:        obj.Attr("role"),
			PodID:       dnPodID(dn),
			FabricState: obj.Attr("fabricSt"),
			Address:     obj.Attr("address"),
			Version:     obj.Attr("version"),
			Dn:          dn,
		})
	}
	return nodes, nil
}

// Tenants 读取 fvTenant。
func (r *Reader) Tenants(ctx context.Context) ([]Tenant, error) {
	objs, err := r.query(ctx, "fvTenant", false)
	if err != nil {
		return nil, err
	}
	out := make([]Tenant, 0, len(objs))
	for _, obj := range objs {
		out = append(out, Tenant{
			Name:        obj.Attr("name"),
			Dn:          obj.Dn(),
			NameAlias:   obj.Attr("nameAlias"),
			Description: obj.Attr("descr"),
		})
	}
	return out, nil
}

// VRFs 读取 fvCtx。
func (r *Reader) VRFs(ctx context.Context) ([]VRF, error) {
	objs, err := r.query(ctx, "fvCtx", false)
	if err != nil {
		return nil, err
	}
	out := make([]VRF, 0, len(objs))
	for _, obj := range objs {
		out = append(out, VRF{
			Name:                obj.Attr("name"),
			Dn:                  obj.Dn(),
			Tenant:              dnTenant(obj.Dn()),
			NameAlias:           obj.Attr("nameAlias"),
			Description:         obj.Attr("descr"),
			BDEnforced:          obj.Flag("bdEnforcedEnable", "yes", false),
			IPDataPlaneLearning: obj.AttrOr("ipDataPlaneLearning", "enabled"),
			PCEnfDir:            obj.AttrOr("pcEnfDir", "ingress"),
			PCEnfPref:           obj.AttrOr("pcEnfPref", "enforced"),
			PIMv4:               obj.Flag("knwMcastAct", "permit", false),
			PreferredGroup:      obj.Flag("vrfPref", "enabled", false),
		})
	}
	return out, nil
}

// BridgeDomains 读取 fvBD，VRF 及其所在租户取自子对象 fvRsCtx 的 tDn。
func (r *Reader) BridgeDomains(ctx context.Context) ([]BridgeDomain, error) {
	objs, err := r.query(ctx, "fvBD", true)
	if err != nil {
		return nil, err
	}
	out := make([]BridgeDomain, 0, len(objs))
	for _, obj := range objs {
		bd := BridgeDomain{
			Name:            obj.Attr("name"),
			Dn:              obj.Dn(),
			Tenant:          dnTenant(obj.Dn()),
			NameAlias:       obj.Attr("nameAlias"),
			Description:     obj.Attr("descr"),
			ARPFlood:        obj.Flag("arpFlood", "yes", false),
			EPMoveDetect:    obj.Attr("epMoveDetectMode"),
			IPLearning:      obj.Flag("ipLearning", "yes", true),
			LimitIPLearn:    obj.Flag("limitIpLearnToSubnets", "yes", true),
			MAC:             obj.AttrOr("mac", "00:22:BD:F8:19:FF"),
			MultiDestPktAct: obj.AttrOr("multiDstPktAct", "bd-flood"),
			UnicastRoute:    obj.Flag("unicastRoute", "yes", true),
			UnkMacUcastAct:  obj.AttrOr("unkMacUcastAct", "proxy"),
			UnkMcastAct:     obj.AttrOr("unkMcastAct", "flood"),
			V6UnkMcastAct:   obj.AttrOr("v6unkMcastAct", "flood"),
			VMAC:            obj.Attr("vmac"),
			PIMv4:           obj.Flag("mcastAllow", "yes", false),
			HostRouteAdv:    obj.Flag("hostBasedRouting", "yes", false),
		}
		for _, rs := range obj.Children("fvRsCtx") {
			tdn := rs.Attr("tDn")
			if tdn == "" {
				continue
			}
			if t := dnSegment(tdn, "tn-"); t != "" {
				bd.VRFTenant = t
			}
			if v := dnSegment(tdn, "ctx-"); v != "" {
				bd.VRF = v
			}
		}
		out = append(out, bd)
	}
	return out, nil
}

// Subnets 读取 fvSubnet，BD 名称从 dn 的 BD- 段解析。
func (r *Reader) Subnets(ctx context.Context) ([]Subnet, error) {
	objs, err := r.query(ctx, "fvSubnet", false)
	if err != nil {
		return nil, err
	}
	out := make([]Subnet, 0, len(objs))
	for _, obj := range objs {
		dn := obj.Dn()
		out = append(out, Subnet{
			IP:           obj.Attr("ip"),
			Dn:           dn,
			Tenant:       dnTenant(dn),
			BridgeDomain: dnSegment(dn, "BD-"),
			Name:         obj.Attr("name"),
			NameAlias:    obj.Attr("nameAlias"),
			Description:  obj.Attr("descr"),
			Preferred:    obj.Flag("preferred", "yes", false),
			Scope:        obj.AttrOr("scope", "private"),
			Virtual:      obj.Flag("virtual", "yes", false),
			Ctrl:         obj.Attr("ctrl"),
		})
	}
	return out, nil
}

// AppProfiles 读取 fvAp。
func (r *Reader) AppProfiles(ctx context.Context) ([]AppProfile, error) {
	objs, err := r.query(ctx, "fvAp", false)
	if err != nil {
		return nil, err
	}
	out := make([]AppProfile, 0, len(objs))
	for _, obj := range objs {
		out = append(out, AppProfile{
			Name:        obj.Attr("name"),
			Dn:          obj.Dn(),
			Tenant:      dnTenant(obj.Dn()),
			NameAlias:   obj.Attr("nameAlias"),
			Description: obj.Attr("descr"),
		})
	}
	return out, nil
}

// EPGs 读取 fvAEPg，BD 取自子对象 fvRsBd。
func (r *Reader) EPGs(ctx context.Context) ([]EPG, error) {
	objs, err := r.query(ctx, "fvAEPg", true)
	if err != nil {
		return nil, err
	}
	out := make([]EPG, 0, len(objs))
	for _, obj := range objs {
		dn := obj.Dn()
		epg := EPG{
			Name:         obj.Attr("name"),
			Dn:           dn,
			Tenant:       dnTenant(dn),
			AppProfile:   dnSegment(dn, "ap-"),
			NameAlias:    obj.Attr("nameAlias"),
			Description:  obj.Attr("descr"),
			PrefGrMemb:   obj.AttrOr("prefGrMemb", "exclude"),
			Prio:         obj.AttrOr("prio", "unspecified"),
			PCEnfPref:    obj.AttrOr("pcEnfPref", "unenforced"),
			FloodOnEncap: obj.Flag("floodOnEncap", "enabled", false),
			AttrBased:    obj.Flag("isAttrBasedEPg", "yes", false),
			Shutdown:     obj.Flag("shutdown", "yes", false),
		}
		for _, rs := range obj.Children("fvRsBd") {
			epg.BridgeDomain = rs.Attr("tnFvBDName")
		}
		out = append(out, epg)
	}
	return out, nil
}

// ESGs 读取 fvESg，VRF 取自子对象 fvRsScope 的 tDn 最后一段。
func (r *Reader) ESGs(ctx context.Context) ([]ESG, error) {
	objs, err := r.query(ctx, "fvESg", true)
	if err != nil {
		return nil, err
	}
	out := make([]ESG, 0, len(objs))
	for _, obj := range objs {
		dn := obj.Dn()
		esg := ESG{
			Name:        obj.Attr("name"),
			Dn:          dn,
			Tenant:      dnTenant(dn),
			AppProfile:  dnSegment(dn, "ap-"),
			NameAlias:   obj.Attr("nameAlias"),
			Description: obj.Attr("descr"),
			PrefGrMemb:  obj.AttrOr("prefGrMemb", "exclude"),
			Prio:        obj.AttrOr("prio", "unspecified"),
			Shutdown:    obj.Flag("shutdown", "yes", false),
		}
		for _, rs := range obj.Children("fvRsScope") {
			if tdn := rs.Attr("tDn"); tdn != "" {
				parts := strings.Split(tdn, "/")
				esg.VRF = strings.TrimPrefix(parts[len(parts)-1], "ctx-")
			}
		}
		out = append(out, esg)
	}
	return out, nil
}

// Contracts 读取 vzBrCP 及其主题。
func (r *Reader) Contracts(ctx context.Context) ([]Contract, error) {
	objs, err := r.query(ctx, "vzBrCP", true)
	if err != nil {
		return nil, err
	}
	out := make([]Contract, 0, len(objs))
	for _, obj := range objs {
		c := Contract{
			Name:        obj.Attr("name"),
			Dn:          obj.Dn(),
			Tenant:      dnTenant(obj.Dn()),
			NameAlias:   obj.Attr("nameAlias"),
			Description: obj.Attr("descr"),
			Scope:       obj.AttrOr("scope", "context"),
			Prio:        obj.AttrOr("prio", "unspecified"),
			TargetDSCP:  obj.AttrOr("targetDscp", "unspecified"),
		}
		for _, subj := range obj.Children("vzSubj") {
			c.Subjects = append(c.Subjects, Subject{Name: subj.Attr("name"), Description: subj.Attr("descr")})
		}
		out = append(out, c)
	}
	return out, nil
}

// ContractFilters 读取 vzFilter 及其条目。
func (r *Reader) ContractFilters(ctx context.Context) ([]ContractFilter, error) {
	objs, err := r.query(ctx, "vzFilter", true)
	if err != nil {
		return nil, err
	}
	out := make([]ContractFilter, 0, len(objs))
	for _, obj := range objs {
		f := ContractFilter{
			Name:        obj.Attr("name"),
			Dn:          obj.Dn(),
			Tenant:      dnTenant(obj.Dn()),
			NameAlias:   obj.Attr("nameAlias"),
			Description: obj.Attr("descr"),
		}
		for _, e := range obj.Children("vzEntry") {
			f.Entries = append(f.Entries, FilterEntry{
				Name:      e.Attr("name"),
				EtherT:    e.AttrOr("etherT", "unspecified"),
				Prot:      e.AttrOr("prot", "unspecified"),
				DFromPort: e.AttrOr("dFromPort", "unspecified"),
				DToPort:   e.AttrOr("dToPort", "unspecified"),
				SFromPort: e.AttrOr("sFromPort", "unspecified"),
				SToPort:   e.AttrOr("sToPort", "unspecified"),
			})
		}
		out = append(out, f)
	}
	return out, nil
}

// ContractRelationships 读取 EPG（fvRsProv/fvRsCons）与 vzAny（vzRsAnyToProv/vzRsAnyToCons）的合约关系。
func (r *Reader) ContractRelationships(ctx context.Context) (Relationships, error) {
	var rels Relationships

	prov, err := r.query(ctx, "fvRsProv", false)
	if err != nil {
		return rels, err
	}
	cons, err := r.query(ctx, "fvRsCons", false)
	if err != nil {
		return rels, err
	}
	rels.Providers = append(rels.Providers, epgRelationships(prov)...)
	rels.Consumers = append(rels.Consumers, epgRelationships(cons)...)
	rels.Providers = append(rels.Providers, vzAnyRelationships(r.optional(ctx, "vzRsAnyToProv"))...)
	rels.Consumers = append(rels.Consumers, vzAnyRelationships(r.optional(ctx, "vzRsAnyToCons"))...)
	return rels, nil
}

func epgRelationships(objs []ApicObject) []Relationship {
	var out []Relationship
	for _, obj := range objs {
		dn := obj.Dn()
		rel := Relationship{
			Contract:   obj.Attr("tnVzBrCPName"),
			Tenant:     dnSegment(dn, "tn-"),
			AppProfile: dnSegment(dn, "ap-"),
			EPG:        dnSegment(dn, "epg-"),
		}
		if rel.Contract != "" && rel.EPG != "" {
			out = append(out, rel)
		}
	}
	return out
}

func vzAnyRelationships(objs []ApicObject) []Relationship {
	var out []Relationship
	for _, obj := range objs {
		dn := obj.Dn()
		rel := Relationship{
			Contract: obj.Attr("tnVzBrCPName"),
			Tenant:   dnSegment(dn, "tn-"),
			VRF:      dnSegment(dn, "ctx-"),
			VzAny:    true,
		}
		if rel.Contract != "" && rel.VRF != "" {
			out = append(out, rel)
		}
	}
	return out
}

package netbox

import (
	"context"
	"strconv"
)

func merge(base Params, extra Params) Params {
	out := make(Params, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// GetOrCreateFabric 先按 fabric_id 再按名称查找 fabric，均不存在时创建。
func (w *Writer) GetOrCreateFabric(ctx context.Context, name string, fabricID int, params Params) (Object, bool, error) {
	existing, err := w.First(ctx, KindFabric, Filter{"fabric_id": itoa(fabricID)})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	existing, err = w.First(ctx, KindFabric, Filter{"name": name})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := w.store.Create(ctx, KindFabric, merge(Params{"name": name, "fabric_id": fabricID}, params))
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// FetchPods 预取 fabric 下的 pod，键为 pod_id。
func (w *Writer) FetchPods(ctx context.Context, fabricID int) (Cache, error) {
	return w.FetchAll(ctx, KindPod, Filter{"aci_fabric_id": itoa(fabricID)}, func(o Object) string {
		return o.String("pod_id")
	})
}

// GetOrCreatePod 基于缓存创建 pod。
func (w *Writer) GetOrCreatePod(ctx context.Context, cache Cache, fabricID, podID int, params Params) (Object, bool, error) {
	base := Params{"aci_fabric": fabricID, "pod_id": podID, "name": "pod-" + itoa(podID)}
	if name, ok := params["name"]; ok {
		base["name"] = name
	}
	return w.GetOrCreateCached(ctx, cache, itoa(podID), KindPod, merge(base, params))
}

// FetchNodes 预取 fabric 下的节点，键为 node_id。
func (w *Writer) FetchNodes(ctx context.Context, fabricID int) (Cache, error) {
	return w.FetchAll(ctx, KindNode, Filter{"aci_fabric_id": itoa(fabricID)}, func(o Object) string {
		return o.String("node_id")
	})
}

// GetOrCreateNode 基于缓存创建节点。
func (w *Writer) GetOrCreateNode(ctx context.Context, cache Cache, fabricID, nodeID int, params Params) (Object, bool, error) {
	base := Params{"aci_fabric": fabricID, "node_id": nodeID, "name": "node-" + itoa(nodeID)}
	if name, ok := params["name"]; ok {
		base["name"] = name
	}
	return w.GetOrCreateCached(ctx, cache, itoa(nodeID), KindNode, merge(base, params))
}

// FetchTenants 预取 fabric 下的租户。
func (w *Writer) FetchTenants(ctx context.Context, fabricID int) (Cache, error) {
	return w.FetchAll(ctx, KindTenant, Filter{"aci_fabric_id": itoa(fabricID)}, ByName)
}

// GetOrCreateTenant 基于缓存创建租户。
func (w *Writer) GetOrCreateTenant(ctx context.Context, cache Cache, fabricID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindTenant, merge(Params{"aci_fabric": fabricID, "name": name}, params))
}

// FetchByTenant 预取某租户下某类对象（VRF、BD、AP、合约、过滤器）。
func (w *Writer) FetchByTenant(ctx context.Context, kind Kind, tenantID int) (Cache, error) {
	return w.FetchAll(ctx, kind, Filter{"aci_tenant_id": itoa(tenantID)}, ByName)
}

// GetOrCreateVRF 基于缓存创建 VRF。
func (w *Writer) GetOrCreateVRF(ctx context.Context, cache Cache, tenantID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindVRF, merge(Params{"aci_tenant": tenantID, "name": name}, params))
}

// GetOrCreateBridgeDomain 基于缓存创建 BD。
func (w *Writer) GetOrCreateBridgeDomain(ctx context.Context, cache Cache, tenantID, vrfID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindBridgeDomain,
		merge(Params{"aci_tenant": tenantID, "aci_vrf": vrfID, "name": name}, params))
}

// GetOrCreateSubnet 以网关地址为唯一键查找或创建 BD 子网。
func (w *Writer) GetOrCreateSubnet(ctx context.Context, bdID, gatewayIPID int, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindBridgeDomainSubnet,
		Filter{"gateway_ip_address_id": itoa(gatewayIPID)},
		merge(Params{"aci_bridge_domain": bdID, "gateway_ip_address": gatewayIPID}, params))
}

// GetOrCreateAppProfile 基于缓存创建应用模板。
func (w *Writer) GetOrCreateAppProfile(ctx context.Context, cache Cache, tenantID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindAppProfile, merge(Params{"aci_tenant": tenantID, "name": name}, params))
}

// FetchByAppProfile 预取某应用模板下的 EPG 或 ESG。
func (w *Writer) FetchByAppProfile(ctx context.Context, kind Kind, apID int) (Cache, error) {
	return w.FetchAll(ctx, kind, Filter{"aci_app_profile_id": itoa(apID)}, ByName)
}

// GetOrCreateEPG 基于缓存创建 EPG。
func (w *Writer) GetOrCreateEPG(ctx context.Context, cache Cache, apID, bdID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindEndpointGroup,
		merge(Params{"aci_app_profile": apID, "aci_bridge_domain": bdID, "name": name}, params))
}

// GetOrCreateESG 基于缓存创建 ESG，vrfID 为 0 时不设置 VRF。
func (w *Writer) GetOrCreateESG(ctx context.Context, cache Cache, apID, vrfID int, name string, params Params) (Object, bool, error) {
	base := Params{"aci_app_profile": apID, "name": name}
	if vrfID != 0 {
		base["aci_vrf"] = vrfID
	}
	return w.GetOrCreateCached(ctx, cache, name, KindEndpointSecurityGroup, merge(base, params))
}

// GetOrCreateContract 基于缓存创建合约。
func (w *Writer) GetOrCreateContract(ctx context.Context, cache Cache, tenantID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindContract, merge(Params{"aci_tenant": tenantID, "name": name}, params))
}

// GetOrCreateContractSubject 查找或创建合约主题。
func (w *Writer) GetOrCreateContractSubject(ctx context.Context, contractID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindContractSubject,
		Filter{"aci_contract_id": itoa(contractID), "name": name},
		merge(Params{"aci_contract": contractID, "name": name}, params))
}

// GetOrCreateContractFilter 基于缓存创建过滤器。
func (w *Writer) GetOrCreateContractFilter(ctx context.Context, cache Cache, tenantID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreateCached(ctx, cache, name, KindContractFilter, merge(Params{"aci_tenant": tenantID, "name": name}, params))
}

// GetOrCreateFilterEntry 查找或创建过滤器条目。
func (w *Writer) GetOrCreateFilterEntry(ctx context.Context, filterID int, name string, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindContractFilterEntry,
		Filter{"aci_contract_filter_id": itoa(filterID), "name": name},
		merge(Params{"aci_contract_filter": filterID, "name": name}, params))
}

package aci

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func obj(class string, attrs map[string]any, children ...ApicObject) ApicObject {
	return ApicObject{class: &ApicObjectBody{Attributes: attrs, Children: children}}
}

func TestFabricSettingsFallbacks(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"infraSetPol":      {obj("infraSetPol", map[string]any{"fabricId": "2"})},
		"infraCont":        {obj("infraCont", map[string]any{"infraVlan": "3967"})},
		"fvFabricExtConnP": {obj("fvFabricExtConnP", map[string]any{"gipoPool": "225.0.0.0/15"})},
	}}
	settings, err := NewReader(q, nil).FabricSettings(context.Background())
	require.NoError(t, err)
	want := FabricSettings{Name: "ACI Fabric", FabricID: 2, InfraVLAN: 3967, GIPOPool: "225.0.0.0/15"}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestPodsUseSetupPoolWhenMissing(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"fabricPod":    {obj("fabricPod", map[string]any{"id": "1", "dn": "topology/pod-1"})},
		"fabricSetupP": {obj("fabricSetupP", map[string]any{"tepPool": "10.0.0.0/16"})},
	}}
	pods, err := NewReader(q, nil).Pods(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Pod{{PodID: 1, Name: "pod-1", Dn: "topology/pod-1", TEPPool: "10.0.0.0/16"}}, pods)
}

func TestNodesParsePodFromDn(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"fabricNode": {
			obj("fabricNode", map[string]any{"id": "101", "name": "leaf-101", "role": "leaf", "dn": "topology/pod-2/node-101", "address": "10.0.72.64"}),
			obj("fabricNode", map[string]any{"id": "1", "name": "apic1", "role": "controller", "dn": "topology/node-1"}),
		},
	}}
	nodes, err := NewReader(q, nil).Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, 2, nodes[0].PodID)
	require.Equal(t, 1, nodes[1].PodID)
	require.Equal(t, "10.0.72.64", nodes[0].Address)
}

func TestBridgeDomainsResolveVRFTenant(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"fvBD": {
			obj("fvBD", map[string]any{"dn": "uni/tn-prod/BD-web", "name": "web", "arpFlood": "yes", "mac": "not-applicable"},
				obj("fvRsCtx", map[string]any{"tDn": "uni/tn-common/ctx-shared"})),
			obj("fvBD", map[string]any{"dn": "uni/tn-prod/BD-db", "name": "db"}),
		},
	}}
	bds, err := NewReader(q, nil).BridgeDomains(context.Background())
	require.NoError(t, err)
	require.Len(t, bds, 2)
	require.Equal(t, "prod", bds[0].Tenant)
	require.Equal(t, "shared", bds[0].VRF)
	require.Equal(t, "common", bds[0].VRFTenant)
	require.True(t, bds[0].ARPFlood)
	require.Equal(t, "not-applicable", bds[0].MAC)
	require.Equal(t, "00:22:BD:F8:19:FF", bds[1].MAC)
	require.True(t, bds[1].UnicastRoute)
	require.Empty(t, bds[1].VRF)
}

func TestEPGsAndESGs(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"fvAEPg": {obj("fvAEPg", map[string]any{"dn": "uni/tn-prod/ap-shop/epg-web", "name": "web", "prefGrMemb": "include", "isAttrBasedEPg": "no"},
			obj("fvRsBd", map[string]any{"tnFvBDName": "web-bd"}))},
		"fvESg": {obj("fvESg", map[string]any{"dn": "uni/tn-prod/ap-shop/esg-pci", "name": "pci"},
			obj("fvRsScope", map[string]any{"tDn": "uni/tn-prod/ctx-prod-vrf"}))},
	}}
	r := NewReader(q, nil)
	epgs, err := r.EPGs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "shop", epgs[0].AppProfile)
	require.Equal(t, "web-bd", epgs[0].BridgeDomain)
	require.Equal(t, "include", epgs[0].PrefGrMemb)
	require.Equal(t, "unenforced", epgs[0].PCEnfPref)
	require.False(t, epgs[0].AttrBased)

	esgs, err := r.ESGs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "prod-vrf", esgs[0].VRF)
}

func TestContractRelationships(t *testing.T) {
	q := &StaticQuerier{
		Objects: map[string][]ApicObject{
			"fvRsProv": {obj("fvRsProv", map[string]any{"dn": "uni/tn-prod/ap-shop/epg-web/rsprov-http", "tnVzBrCPName": "http"})},
			"fvRsCons": {
				obj("fvRsCons", map[string]any{"dn": "uni/tn-prod/ap-shop/epg-app/rscons-http", "tnVzBrCPName": "http"}),
				obj("fvRsCons", map[string]any{"dn": "uni/tn-prod/ap-shop/epg-app/rscons-", "tnVzBrCPName": ""}),
			},
			"vzRsAnyToCons": {obj("vzRsAnyToCons", map[string]any{"dn": "uni/tn-prod/ctx-v1/any/rsanyToCons-dns", "tnVzBrCPName": "dns"})},
		},
		Errors: map[string]error{"vzRsAnyToProv": errors.New("class not supported")},
	}
	rels, err := NewReader(q, nil).ContractRelationships(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Relationship{{Contract: "http", Tenant: "prod", AppProfile: "shop", EPG: "web"}}, rels.Providers)
	require.Len(t, rels.Consumers, 2)
	require.Equal(t, Relationship{Contract: "dns", Tenant: "prod", VRF: "v1", VzAny: true}, rels.Consumers[1])
}

func TestContractsAndFilters(t *testing.T) {
	q := &StaticQuerier{Objects: map[string][]ApicObject{
		"vzBrCP": {obj("vzBrCP", map[string]any{"dn": "uni/tn-prod/brc-http", "name": "http"},
			obj("vzSubj", map[string]any{"name": "s1", "descr": "web"}))},
		"vzFilter": {obj("vzFilter", map[string]any{"dn": "uni/tn-prod/flt-http", "name": "http"},
			obj("vzEntry", map[string]any{"name": "tcp80", "etherT": "ip", "prot": "tcp", "dFromPort": "80", "dToPort": "80"}))},
	}}
	r := NewReader(q, nil)
	contracts, err := r.Contracts(context.Background())
	require.NoError(t, err)
	require.Equal(t, "context", contracts[0].Scope)
	require.Equal(t, []Subject{{Name: "s1", Description: "web"}}, contracts[0].Subjects)

	filters, err := r.ContractFilters(context.Background())
	require.NoError(t, err)
	require.Equal(t, FilterEntry{Name: "tcp80", EtherT: "ip", Prot: "tcp", DFromPort: "80", DToPort: "80", SFromPort: "unspecified", SToPort: "unspecified"}, filters[0].Entries[0])
}

func TestFirmwareDetails(t *testing.T) {
	q := &StaticQuerier{
		Objects: map[string][]ApicObject{
			"firmwareRunning": {obj("firmwareRunning", map[string]any{"version": "n9000-16.0(3e)", "dn": "topology/pod-1/node-101/sys/fwstatuscont/running"})},
			"firmwareFirmware": {
				obj("firmwareFirmware", map[string]any{"version": "n9000-16.0(3e)", "name": "aci-n9000-dk9.16.0.3e.bin", "checksum": "abc"}),
				obj("firmwareFirmware", map[string]any{"version": "n9000-16.1(1a)", "name": "staged", "fileName": "aci-n9000-dk9.16.1.1a.bin"}),
			},
			"firmwareCtrlrRunning": {obj("firmwareCtrlrRunning", map[string]any{"version": "6.0(3e)", "internalLabel": "sha1"})},
			"firmwareCompRunning":  {obj("firmwareCompRunning", map[string]any{"version": "6.0(3e)", "md5sum": "ffff"})},
		},
		Errors: map[string]error{"firmwareOSource": errors.New("ignored")},
	}
	fw, err := NewReader(q, nil).FirmwareDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, fw, 3)
	require.Equal(t, "aci-n9000-dk9.16.0.3e.bin", fw["n9000-16.0(3e)"].Filename)
	require.Equal(t, "abc", fw["n9000-16.0(3e)"].Checksum)
	require.Equal(t, "switch", fw["n9000-16.0(3e)"].Type)
	require.Equal(t, "staged", fw["n9000-16.1(1a)"].Type)
	require.Equal(t, "aci-n9000-dk9.16.1.1a.bin", fw["n9000-16.1(1a)"].Filename)
	require.Equal(t, "controller", fw["6.0(3e)"].Type)
	require.Equal(t, "ffff", fw["6.0(3e)"].Checksum)
}

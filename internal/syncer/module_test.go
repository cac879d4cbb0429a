package syncer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/netbox"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panickyModule struct {
	Base
	records []string
	postErr error
}

func (m *panickyModule) Fetch(context.Context) ([]string, error) { return m.records, nil }

func (m *panickyModule) SyncObject(_ context.Context, rec string) error {
	switch rec {
	case "panic":
		panic("unexpected payload")
	case "fail":
		return errors.New("rejected")
	}
	m.RecordCreated(rec)
	return nil
}

func (m *panickyModule) PostSync(context.Context) error { return m.postErr }

func TestRunRecoversRecordPanic(t *testing.T) {
	assert := require.New(t)
	m := &panickyModule{
		Base:    newBase(Deps{}, "Probe"),
		records: []string{"a", "panic", "fail", "b"},
	}
	res, err := run[string](context.Background(), m, Settings{}, zap.NewNop())
	assert.NoError(err)
	assert.Equal(2, res.Created)
	assert.Equal(2, res.Failed)
	assert.Len(res.Errors, 2)
	assert.Contains(res.Errors[0], "unexpected payload")
}

func TestRunReportsPostSyncError(t *testing.T) {
	m := &panickyModule{
		Base:    newBase(Deps{}, "Probe"),
		records: []string{"a"},
		postErr: errors.New("cleanup failed"),
	}
	res, err := run[string](context.Background(), m, Settings{}, zap.NewNop())
	require.Error(t, err)
	require.Equal(t, 1, res.Created)
	require.Contains(t, res.Errors[0], "cleanup failed")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &panickyModule{Base: newBase(Deps{}, "Probe"), records: []string{"a", "b"}}
	res, err := run[string](ctx, m, Settings{}, zap.NewNop())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, res.Created)
}

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"N9K-C93180YC-FX":  "93180ycfx",
		"Nexus 93180YC-FX": "93180ycfx",
		"N9K-C9336C-FX2":   "9336cfx2",
		"N9K-9336C-FX2":    "9336cfx2",
		"APIC-SERVER-M3":   "m3",
		"ACI-LEAF":         "leaf",
		"  n9k-c9364c  ":   "9364c",
		"UCS_C220_M5":      "ucsc220m5",
		"":                 "",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeModel(in), in)
	}
}

func TestNodeRole(t *testing.T) {
	require.Equal(t, "apic", nodeRole("controller"))
	require.Equal(t, "spine", nodeRole("Spine"))
	require.Equal(t, "leaf", nodeRole("unspecified"))
	require.Equal(t, "leaf", nodeRole("remote-leaf-wan"))
}

func TestTEPIndexLongestPrefix(t *testing.T) {
	idx := newTEPIndex(map[int]string{
		1: "10.0.0.0/16",
		2: "10.0.128.0/20",
		3: "bogus",
	}, "", zap.NewNop())

	require.Equal(t, "16", idx.MaskFor("10.0.32.1"))
	require.Equal(t, "20", idx.MaskFor("10.0.130.7"))
	require.Equal(t, defaultTEPPoolMask, idx.MaskFor("192.168.1.1"))
	require.Equal(t, defaultTEPPoolMask, idx.MaskFor("not-an-ip"))

	require.Equal(t, "24", newTEPIndex(nil, "24", zap.NewNop()).MaskFor("10.0.0.1"))
}

func TestResolve(t *testing.T) {
	assert := require.New(t)

	names, err := Resolve(nil, nil, false)
	assert.NoError(err)
	assert.Equal(DefaultOrder, names)

	names, err = Resolve(nil, nil, true)
	assert.NoError(err)
	assert.Equal(NameSoftware, names[len(names)-1])

	names, err = Resolve([]string{"vrfs,tenants"}, nil, false)
	assert.NoError(err)
	assert.Equal([]Name{NameTenants, NameVRFs}, names)

	names, err = Resolve([]string{"contracts"}, []string{"relationships"}, false)
	assert.NoError(err)
	assert.Equal([]Name{NameFilters, NameContracts}, names)

	names, err = Resolve([]string{"software"}, nil, false)
	assert.NoError(err)
	assert.Equal([]Name{NameSoftware}, names)

	_, err = Resolve([]string{"widgets"}, nil, false)
	assert.Error(err)
	_, err = Resolve(nil, []string{"Tenants", " bogus "}, false)
	assert.Error(err)
}

func TestVersionComments(t *testing.T) {
	rec := versionRecord{Version: "15.2(7f)"}
	for i := 0; i < 12; i++ {
		rec.Nodes = append(rec.Nodes, aci.Node{Name: "leaf-" + strings.Repeat("x", i%2+1)})
	}
	rec.Nodes[0].Name = ""
	got := rec.comments()
	require.True(t, strings.HasPrefix(got, "ACI firmware running on 12 node(s): unknown, leaf-xx"))
	require.True(t, strings.HasSuffix(got, " (+2 more)"))
	require.Equal(t, "ACI firmware running on 1 node(s): spine-201",
		versionRecord{Nodes: []aci.Node{{Name: "spine-201"}}}.comments())
}

func softwareSource() *StaticSource {
	return &StaticSource{
		Fabric:  aci.FabricSettings{Name: "lab", FabricID: 1},
		PodList: []aci.Pod{{PodID: 1, TEPPool: "10.0.0.0/16"}},
		NodeList: []aci.Node{
			{NodeID: 101, Name: "leaf-101", Role: "leaf", Model: "N9K-C93180YC-FX", Serial: "FDO1", PodID: 1, Version: "n9000-15.2(7f)"},
			{NodeID: 102, Name: "leaf-102", Role: "leaf", Model: "N9K-C93180YC-FX", Serial: "FDO2", PodID: 1, Version: "n9000-15.2(7f)"},
			{NodeID: 1, Name: "apic1", Role: "controller", Model: "APIC-SERVER-M3", PodID: 1, Version: "5.2(7f)"},
			{NodeID: 201, Name: "spine-201", Role: "spine", PodID: 1, Version: "unknown"},
		},
		Firmware: map[string]aci.Firmware{
			"n9000-15.2(7f)": {Version: "n9000-15.2(7f)", Filename: "aci-n9000-dk9.15.2.7f.bin", Checksum: "abc123"},
		},
	}
}

func TestSoftwareModule(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	store.Seed(netbox.KindDevice, netbox.Params{
		"name":               "leaf-101",
		"local_context_data": map[string]any{"owner": "netops"},
	})
	names := []Name{NameFabric, NamePods, NameNodes, NameSoftware}

	stats := newTestOrchestrator(softwareSource(), store, defaultSettings()).RunAll(context.Background(), names)
	sw := resultFor(t, stats, "SoftwareVersion")
	assert.Equal(2, sw.Created)
	assert.Equal(0, sw.Failed)

	images := store.All(netbox.KindSoftwareImage)
	assert.Len(images, 2)
	var leafImage netbox.Object
	for _, img := range images {
		if img.String("version") == "n9000-15.2(7f)" {
			leafImage = img
		}
	}
	assert.NotNil(leafImage)
	assert.Equal("aci-n9000-dk9.15.2.7f.bin", leafImage["filename"])
	assert.Equal("abc123", leafImage["md5sum"])
	assert.Equal("ACI firmware running on 2 node(s): leaf-101, leaf-102", leafImage["comments"])

	var stamped netbox.Object
	for _, d := range store.All(netbox.KindDevice) {
		if d.String("name") == "leaf-101" {
			stamped = d
		}
	}
	local, ok := stamped["local_context_data"].(map[string]any)
	assert.True(ok)
	assert.Equal("netops", local["owner"])
	firmware, ok := local["firmware"].(map[string]any)
	assert.True(ok)
	assert.Equal("n9000-15.2(7f)", firmware["version"])
	assert.Equal("abc123", firmware["checksum"])

	assert.Len(store.All(netbox.KindGoldenImage), 2)
	patches := store.Patches(netbox.KindDevice)

	stats = newTestOrchestrator(softwareSource(), store, defaultSettings()).RunAll(context.Background(), names)
	sw = resultFor(t, stats, "SoftwareVersion")
	assert.Equal(0, sw.Created)
	assert.Equal(0, sw.Updated)
	assert.Equal(2, sw.Unchanged)
	assert.Equal(patches, store.Patches(netbox.KindDevice))
	assert.Len(store.All(netbox.KindGoldenImage), 2)
}

func TestGoldenImageStableAcrossRuns(t *testing.T) {
	assert := require.New(t)
	store := netbox.NewMemoryStore()
	src := &StaticSource{
		Fabric:  aci.FabricSettings{Name: "lab", FabricID: 1},
		PodList: []aci.Pod{{PodID: 1, TEPPool: "10.0.0.0/16"}},
		NodeList: []aci.Node{
			{NodeID: 101, Name: "leaf-101", Role: "leaf", Model: "N9K-C93180YC-FX", Serial: "FDO1", PodID: 1, Version: "n9000-16.0(1a)"},
			{NodeID: 102, Name: "leaf-102", Role: "leaf", Model: "N9K-C93180YC-FX", Serial: "FDO2", PodID: 1, Version: "n9000-15.2(7f)"},
		},
	}
	names := []Name{NameFabric, NamePods, NameNodes, NameSoftware}

	for run := 0; run < 3; run++ {
		stats := newTestOrchestrator(src, store, defaultSettings()).RunAll(context.Background(), names)
		assert.Zero(stats.TotalFailed(), stats.Errors())
		if run > 0 {
			sw := resultFor(t, stats, "SoftwareVersion")
			assert.Zero(sw.Created)
			assert.Zero(sw.Updated)
		}
	}

	links := store.All(netbox.KindGoldenImage)
	assert.Len(links, 1)
	assert.Zero(store.Patches(netbox.KindGoldenImage))
	var first netbox.Object
	for _, img := range store.All(netbox.KindSoftwareImage) {
		if img.String("version") == "n9000-15.2(7f)" {
			first = img
		}
	}
	assert.NotNil(first)
	assert.Equal(first.ID(), links[0].Ref("software_image"))
}

func TestSubnetFlagsMatchSubstrings(t *testing.T) {
	flags := subnetFlags(aci.Subnet{Scope: "public, shared", Ctrl: " nd,querier "})
	require.Equal(t, map[string]any{
		"advertised_externally_enabled": true,
		"shared_enabled":                true,
		"no_default_svi_gateway":        false,
		"nd_ra_enabled":                 true,
		"igmp_querier_enabled":          true,
	}, flags)

	flags = subnetFlags(aci.Subnet{Scope: "private", Ctrl: "no-default-gateway"})
	require.Equal(t, false, flags["advertised_externally_enabled"])
	require.Equal(t, true, flags["no_default_svi_gateway"])
}

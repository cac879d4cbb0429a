package metrics

import (
	"testing"

	"aci2netbox/internal/syncer"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestStatus(t *testing.T) {
	require.Equal(t, StatusAborted, Status(nil))
	require.Equal(t, StatusAborted, Status(&syncer.Stats{Aborted: true}))
	require.Equal(t, StatusFailed, Status(&syncer.Stats{Results: []*syncer.Result{{ObjectType: "VRF", Failed: 1}}}))
	require.Equal(t, StatusFailed, Status(&syncer.Stats{Results: []*syncer.Result{{ObjectType: "VRF", Errors: []string{"boom"}}}}))
	require.Equal(t, StatusSuccess, Status(&syncer.Stats{Results: []*syncer.Result{{ObjectType: "VRF", Created: 1}}}))
}

func TestObserve(t *testing.T) {
	assert := require.New(t)
	before := counterValue(t, ModuleObjects.WithLabelValues("Tenant", "created"))
	runsBefore := counterValue(t, SyncRuns.WithLabelValues(StatusFailed))
	errorsBefore := counterValue(t, SyncErrors)

	stats := &syncer.Stats{}
	stats.Add(&syncer.Result{ObjectType: "Tenant", Created: 3, Failed: 1, DurationSeconds: 0.5})
	Observe(stats)

	assert.Equal(before+3, counterValue(t, ModuleObjects.WithLabelValues("Tenant", "created")))
	assert.Equal(runsBefore+1, counterValue(t, SyncRuns.WithLabelValues(StatusFailed)))
	assert.Equal(errorsBefore+1, counterValue(t, SyncErrors))
}

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegister(reg) })
	require.Panics(t, func() { MustRegister(reg) })
}

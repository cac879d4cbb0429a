package metrics

import (
	"aci2netbox/internal/syncer"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aci2netbox_sync_duration_seconds",
		Help:    "单次同步耗时",
		Buckets: prometheus.DefBuckets,
	})

	SyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aci2netbox_sync_runs_total",
		Help: "同步运行次数，按结果区分",
	}, []string{"status"})

	ModuleObjects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aci2netbox_module_objects_total",
		Help: "各模块处理的对象数",
	}, []string{"object_type", "outcome"})

	ModuleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aci2netbox_module_duration_seconds",
		Help:    "各模块耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"object_type"})

	SyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aci2netbox_sync_errors_total",
		Help: "同步失败次数",
	})
)

// 运行结果
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

// MustRegister 注册指标，可在 main 中调用。
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(SyncDuration, SyncRuns, ModuleObjects, ModuleDuration, SyncErrors)
}

// Status 根据运行结果给出 status 标签。
func Status(stats *syncer.Stats) string {
	switch {
	case stats == nil || stats.Aborted:
		return StatusAborted
	case stats.HasFailures():
		return StatusFailed
	default:
		return StatusSuccess
	}
}

// Observe 记录一次运行的结果。
func Observe(stats *syncer.Stats) {
	status := Status(stats)
	SyncRuns.WithLabelValues(status).Inc()
	if status != StatusSuccess {
		SyncErrors.Inc()
	}
	if stats == nil {
		return
	}
	SyncDuration.Observe(stats.TotalDuration)
	for _, r := range stats.Results {
		ModuleDuration.WithLabelValues(r.ObjectType).Observe(r.DurationSeconds)
		add := func(outcome string, n int) {
			if n > 0 {
				ModuleObjects.WithLabelValues(r.ObjectType, outcome).Add(float64(n))
			}
		}
		add("created", r.Created)
		add("updated", r.Updated)
		add("unchanged", r.Unchanged)
		add("failed", r.Failed)
	}
}

package ioc

import (
	"aci2netbox/internal/app"
	"aci2netbox/internal/job"
	"aci2netbox/internal/syncer"
	"go.uber.org/zap"
)

// InitScheduler 构建定时同步调度器。
func InitScheduler(cfg app.Config, svc *app.Service, logger *zap.Logger) *job.Scheduler {
	return job.NewScheduler(cfg.Sync.JobCron, svc.Sync, logger)
}

// InitHeartbeat 构建每小时心跳任务。
func InitHeartbeat(svc *app.Service, logger *zap.Logger) *job.Heartbeat {
	return job.NewHeartbeat(func() *syncer.Stats {
		stats, _ := svc.LastStats()
		return stats
	}, logger)
}

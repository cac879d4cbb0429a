package job

import (
	"context"

	"aci2netbox/internal/syncer"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Heartbeat 每小时输出最近一次同步的汇总，便于从日志判断守护进程是否正常。
type Heartbeat struct {
	last   func() *syncer.Stats
	logger *zap.Logger
	cron   *cron.Cron
}

// NewHeartbeat 创建 Heartbeat，last 返回最近一次同步结果，可能为 nil。
func NewHeartbeat(last func() *syncer.Stats, logger *zap.Logger) *Heartbeat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heartbeat{last: last, logger: logger}
}

func (h *Heartbeat) beat() {
	var stats *syncer.Stats
	if h.last != nil {
		stats = h.last()
	}
	if stats == nil {
		h.logger.Info("heartbeat: no sync completed yet")
		return
	}
	h.logger.Info("heartbeat",
		zap.String("run_id", stats.RunID),
		zap.Time("started_at", stats.StartedAt),
		zap.Int("created", stats.TotalCreated()),
		zap.Int("updated", stats.TotalUpdated()),
		zap.Int("unchanged", stats.TotalUnchanged()),
		zap.Int("failed", stats.TotalFailed()),
		zap.Bool("aborted", stats.Aborted))
}

// Start 启动按小时执行的心跳任务，返回停止函数。
func (h *Heartbeat) Start(parent context.Context) context.CancelFunc {
	if h == nil {
		return func() {}
	}
	c := cron.New()
	if _, err := c.AddFunc("@hourly", h.beat); err != nil {
		h.logger.Error("failed to register heartbeat job", zap.Error(err))
		return func() {}
	}
	h.cron = c
	c.Start()
	h.logger.Info("heartbeat job started")

	stop := func() {
		ctx := h.cron.Stop()
		<-ctx.Done()
	}
	go func() {
		<-parent.Done()
		stop()
	}()
	return stop
}

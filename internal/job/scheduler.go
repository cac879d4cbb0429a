package job

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultCronSpec = "0 * * * *"

// Scheduler 按 cron 表达式触发同步，上一次未结束时跳过本次触发。
type Scheduler struct {
	cronExpr string
	logger   *zap.Logger
	cron     *cron.Cron
	syncFunc func(context.Context) error
	parent   context.Context
}

// NewScheduler 构建调度器，spec 为空时每小时整点执行。
func NewScheduler(spec string, syncFunc func(context.Context) error, logger *zap.Logger) *Scheduler {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = defaultCronSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cronExpr: spec, logger: logger, syncFunc: syncFunc}
}

// Spec 返回生效的 cron 表达式。
func (s *Scheduler) Spec() string { return s.cronExpr }

// cronLogger 把 cron 内部日志转到 zap，Info 级别降为 Debug。
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

// job 返回带跳过与 panic 恢复包装的同步任务。
func (s *Scheduler) job() cron.Job {
	log := cronLogger{l: s.logger.Sugar()}
	return cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log)).Then(cron.FuncJob(s.runOnce))
}

// Start 启动调度器，返回用于停止任务的函数。
func (s *Scheduler) Start(parent context.Context) context.CancelFunc {
	if s == nil {
		return func() {}
	}
	s.parent = parent
	c := cron.New(cron.WithLogger(cronLogger{l: s.logger.Sugar()}))
	id, err := c.AddJob(s.cronExpr, s.job())
	if err != nil {
		s.logger.Error("failed to register cron job", zap.String("cron", s.cronExpr), zap.Error(err))
		return func() {}
	}
	s.cron = c
	c.Start()
	s.logger.Info("job scheduler started", zap.String("cron", s.cronExpr), zap.Time("next", c.Entry(id).Next))

	var once sync.Once
	stop := func() {
		once.Do(func() {
			<-c.Stop().Done()
			s.logger.Info("job scheduler stopped")
		})
	}
	go func() {
		<-parent.Done()
		stop()
	}()
	return stop
}

func (s *Scheduler) runOnce() {
	if s.syncFunc == nil {
		s.logger.Warn("sync function not configured")
		return
	}
	runCtx := context.Background()
	if s.parent != nil {
		if s.parent.Err() != nil {
			s.logger.Info("scheduler context cancelled, skip sync")
			return
		}
		runCtx = s.parent
	}
	start := time.Now()
	if err := s.syncFunc(runCtx); err != nil {
		s.logger.Error("scheduled sync failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync completed", zap.Duration("duration", time.Since(start)))
}

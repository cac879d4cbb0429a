package syncer

import (
	"context"
	"time"

	"aci2netbox/internal/netbox"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestTagger 接收本次运行的 id，用于给写请求打上 X-Request-ID。
type RequestTagger interface {
	SetRequestID(id string)
}

// Orchestrator 按顺序执行模块并汇总结果。
type Orchestrator struct {
	source   Source
	writer   *netbox.Writer
	settings Settings
	tagger   RequestTagger
	logger   *zap.Logger
}

// OrchestratorOption 调整 Orchestrator。
type OrchestratorOption func(*Orchestrator)

// WithRequestTagger 设置运行 id 的接收方。
func WithRequestTagger(t RequestTagger) OrchestratorOption {
	return func(o *Orchestrator) { o.tagger = t }
}

// NewOrchestrator 创建 Orchestrator。
func NewOrchestrator(source Source, writer *netbox.Writer, settings Settings, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{source: source, writer: writer, settings: settings, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Settings 返回同步设置。
func (o *Orchestrator) Settings() Settings { return o.settings }

// RunAll 以全新的 Context 依次运行 names 中的模块。
// 模块级错误在 ContinueOnError 为 false 时终止运行；ctx 取消时在模块或记录之间停止。
func (o *Orchestrator) RunAll(ctx context.Context, names []Name) *Stats {
	runID := uuid.NewString()
	if o.tagger != nil {
		o.tagger.SetRequestID(runID)
	}
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("开始同步编排", zap.Int("modules", len(names)), zap.Bool("dry_run", o.settings.DryRun))

	stats := &Stats{RunID: runID, StartedAt: time.Now(), Context: NewContext()}
	deps := Deps{
		Source:   o.source,
		Writer:   o.writer,
		Settings: o.settings,
		Context:  stats.Context,
		Logger:   logger,
	}

	for _, name := range names {
		if ctx.Err() != nil {
			stats.Aborted = true
			break
		}
		factory, ok := registry[name]
		if !ok {
			logger.Error("unknown module", zap.String("module", string(name)))
			continue
		}
		res, err := factory(deps).Run(ctx)
		stats.Add(res)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			stats.Aborted = true
			break
		}
		logger.Error("模块执行失败", zap.String("module", string(name)), zap.Error(err))
		if !o.settings.ContinueOnError {
			break
		}
	}

	logger.Info("同步编排结束\n" + stats.Summary())
	return stats
}

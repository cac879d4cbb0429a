package app

import (
	"context"
	"fmt"

	"aci2netbox/internal/metrics"
	"aci2netbox/internal/netbox"
	"aci2netbox/internal/syncer"
	"aci2netbox/internal/topology"
	"go.uber.org/zap"
)

// SourceSession 是 APIC 会话的建立与释放。
type SourceSession interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}

// StatusChecker 检查目标端连通性。
type StatusChecker interface {
	Status(ctx context.Context) (map[string]any, error)
}

// SyncFlow 负责一次完整的 ACI 到 NetBox 同步。
type SyncFlow struct {
	Session  SourceSession
	NetBox   StatusChecker
	Source   *topology.Recorder
	Writer   *netbox.Writer
	Tagger   syncer.RequestTagger
	Settings syncer.Settings
	Modules  []syncer.Name
	Export   *ExportFlow
	Logger   *zap.Logger
}

// Connect 登录 APIC 并检查 NetBox，任一失败都视为致命错误。
func (f *SyncFlow) Connect(ctx context.Context) error {
	if f.Session != nil {
		if err := f.Session.Login(ctx); err != nil {
			return fmt.Errorf("连接 APIC 失败: %w", err)
		}
	}
	if f.NetBox != nil {
		status, err := f.NetBox.Status(ctx)
		if err != nil {
			return err
		}
		f.logger().Info("NetBox 连接正常", zap.Any("netbox_version", status["netbox-version"]))
	}
	return nil
}

func (f *SyncFlow) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Run 连接两端并按 modules 运行同步，modules 为空时使用 f.Modules。
// 返回的 error 只表示致命错误或取消，记录级失败体现在 Stats 中。
func (f *SyncFlow) Run(ctx context.Context, modules []syncer.Name) (*syncer.Stats, error) {
	if f == nil {
		return nil, fmt.Errorf("sync flow 未初始化")
	}
	if f.Source == nil || f.Writer == nil {
		return nil, fmt.Errorf("sync flow 依赖未注入完整")
	}
	if len(modules) == 0 {
		modules = f.Modules
	}
	if len(modules) == 0 {
		modules = syncer.DefaultOrder
	}
	logger := f.logger()

	if err := f.Connect(ctx); err != nil {
		return nil, err
	}
	if f.Session != nil {
		defer func() {
			if err := f.Session.Logout(context.Background()); err != nil {
				logger.Warn("apic logout failed", zap.Error(err))
			}
		}()
	}

	f.Source.Reset()
	var opts []syncer.OrchestratorOption
	if f.Tagger != nil {
		opts = append(opts, syncer.WithRequestTagger(f.Tagger))
	}
	stats := syncer.NewOrchestrator(f.Source, f.Writer, f.Settings, logger, opts...).RunAll(ctx, modules)
	metrics.Observe(stats)

	if stats.Aborted || ctx.Err() != nil {
		return stats, fmt.Errorf("同步被中断: %w", context.Canceled)
	}
	f.export(ctx, stats, modules)
	return stats, nil
}

func (f *SyncFlow) export(ctx context.Context, stats *syncer.Stats, modules []syncer.Name) {
	logger := f.logger()
	switch {
	case f.Export == nil:
		return
	case f.Settings.DryRun:
		logger.Info("dry run 模式，跳过拓扑导出")
		return
	case !coversTopology(modules):
		logger.Info("本次只同步了部分模块，跳过拓扑导出")
		return
	}
	if err := f.Export.Run(ctx, f.Source.Snapshot(), stats); err != nil {
		logger.Error("拓扑导出失败", zap.String("run_id", stats.RunID), zap.Error(err))
	}
}

// coversTopology 判断是否运行了全部默认模块，部分运行时清理会误删图中的数据。
func coversTopology(modules []syncer.Name) bool {
	ran := make(map[syncer.Name]bool, len(modules))
	for _, m := range modules {
		ran[m] = true
	}
	for _, m := range syncer.DefaultOrder {
		if !ran[m] {
			return false
		}
	}
	return true
}

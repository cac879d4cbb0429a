package app

import (
	"context"
	"fmt"
	"time"

	"aci2netbox/internal/loader"
	"aci2netbox/internal/syncer"
	"aci2netbox/internal/topology"
	"go.uber.org/zap"
)

// ExportFlow 把一次同步读到的拓扑写入 Neo4j，并清理本次未出现的节点和关系。
type ExportFlow struct {
	Schema  *loader.SchemaManager
	Nodes   *loader.NodeUpserter
	Rels    *loader.RelUpserter
	Cleaner *loader.Cleaner
	Logger  *zap.Logger
}

// NewExportFlow 基于同一个执行器构建导出流程。
func NewExportFlow(exec loader.Executor, batchSize int, logger *zap.Logger) *ExportFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportFlow{
		Schema:  loader.NewSchemaManager(exec),
		Nodes:   loader.NewNodeUpserter(exec, batchSize),
		Rels:    loader.NewRelUpserter(exec, batchSize),
		Cleaner: loader.NewCleaner(exec),
		Logger:  logger,
	}
}

func (f *ExportFlow) Run(ctx context.Context, snap topology.Snapshot, stats *syncer.Stats) error {
	if f == nil {
		return fmt.Errorf("export flow 未初始化")
	}
	if f.Schema == nil || f.Nodes == nil || f.Rels == nil || f.Cleaner == nil {
		return fmt.Errorf("export flow 依赖未注入完整")
	}
	if stats == nil {
		return fmt.Errorf("缺少同步结果")
	}

	fabric := topology.FabricName(snap, stats.Context)
	nodes, rels := topology.Build(snap, stats.Context, stats.RunID, time.Now())
	f.Logger.Info("导出拓扑",
		zap.String("run_id", stats.RunID),
		zap.String("fabric", fabric),
		zap.Int("nodes", len(nodes)),
		zap.Int("rels", len(rels)))

	if err := f.Schema.Ensure(ctx); err != nil {
		return fmt.Errorf("初始化图约束失败: %w", err)
	}
	if err := f.Nodes.UpsertNodes(ctx, nodes); err != nil {
		return fmt.Errorf("写入节点失败: %w", err)
	}
	if err := f.Rels.UpsertRels(ctx, rels); err != nil {
		return fmt.Errorf("写入关系失败: %w", err)
	}
	if err := f.Cleaner.DeleteStaleRelationships(ctx, fabric, stats.RunID); err != nil {
		return fmt.Errorf("删除过期关系失败: %w", err)
	}
	if err := f.Cleaner.DeleteStaleNodes(ctx, fabric, stats.RunID); err != nil {
		return fmt.Errorf("删除过期节点失败: %w", err)
	}

	f.Logger.Info("拓扑导出完成", zap.String("run_id", stats.RunID))
	return nil
}

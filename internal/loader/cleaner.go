package loader

import (
	"context"

	"aci2netbox/internal/cypher"
)

// Cleaner 负责删除某个 fabric 下本次运行未出现的节点和关系。
// run id 是 uuid，不可比较大小，因此按“不等于当前 run”判断过期。
type Cleaner struct {
	exec Executor
}

func NewCleaner(exec Executor) *Cleaner {
	return &Cleaner{exec: exec}
}

// DeleteStaleNodes 删除 last_seen_run_id 不是 runID 的节点。
func (c *Cleaner) DeleteStaleNodes(ctx context.Context, fabric, runID string) error {
	return c.exec.RunWrite(ctx, cypher.MustAsset(cypher.CleanupNodes), map[string]any{"fabric": fabric, "run_id": runID})
}

// DeleteStaleRelationships 删除 last_seen_run_id 不是 runID 的关系。
func (c *Cleaner) DeleteStaleRelationships(ctx context.Context, fabric, runID string) error {
	return c.exec.RunWrite(ctx, cypher.MustAsset(cypher.CleanupRels), map[string]any{"fabric": fabric, "run_id": runID})
}

package loader

import (
	"context"

	"aci2netbox/internal/cypher"
	"aci2netbox/internal/domain"
)

// NodeUpserter 负责批量写入节点。
type NodeUpserter struct {
	exec      Executor
	batchSize int
}

// NewNodeUpserter 创建节点 upsert 器。
func NewNodeUpserter(exec Executor, batchSize int) *NodeUpserter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &NodeUpserter{exec: exec, batchSize: batchSize}
}

// UpsertNodes 按标签组合分组，逐批 MERGE。
func (u *NodeUpserter) UpsertNodes(ctx context.Context, rows []domain.NodeRow) error {
	groups := make(map[string]*group[domain.NodeRow])
	for _, row := range rows {
		key := domain.JoinLabels(row.Labels)
		g, ok := groups[key]
		if !ok {
			g = &group[domain.NodeRow]{
				query: cypher.MustTemplate(cypher.UpsertNodes, map[string]string{"LabelPattern": domain.LabelPattern(row.Labels)}),
				desc:  "写入节点失败 labels=" + key,
			}
			groups[key] = g
		}
		g.rows = append(g.rows, row)
	}
	return writeGroups(ctx, u.exec, u.batchSize, groups, nodeParams)
}

func nodeParams(rows []domain.NodeRow) []map[string]any {
	res := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		res = append(res, map[string]any{
			"aci_key":    row.Key,
			"properties": row.Properties,
			"run_id":     row.RunID,
			"updated_at": row.UpdatedAt,
		})
	}
	return res
}

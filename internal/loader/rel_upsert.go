package loader

import (
	"context"

	"aci2netbox/internal/cypher"
	"aci2netbox/internal/domain"
)

// RelUpserter 负责关系批量写入。
type RelUpserter struct {
	exec      Executor
	batchSize int
}

func NewRelUpserter(exec Executor, batchSize int) *RelUpserter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &RelUpserter{exec: exec, batchSize: batchSize}
}

// UpsertRels 按 (类型, 起点标签, 终点标签) 分组写入，MATCH 时只扫描对应标签的唯一索引。
func (u *RelUpserter) UpsertRels(ctx context.Context, rows []domain.RelRow) error {
	groups := make(map[string]*group[domain.RelRow])
	for _, row := range rows {
		key := row.Type + " " + row.StartLabel + " " + row.EndLabel
		g, ok := groups[key]
		if !ok {
			g = &group[domain.RelRow]{
				query: cypher.MustTemplate(cypher.UpsertRels, map[string]string{
					"RelType":    ":" + row.Type,
					"StartLabel": row.StartLabel,
					"EndLabel":   row.EndLabel,
				}),
				desc: "写入关系失败 type=" + row.Type,
			}
			groups[key] = g
		}
		g.rows = append(g.rows, row)
	}
	return writeGroups(ctx, u.exec, u.batchSize, groups, relParams)
}

func relParams(rows []domain.RelRow) []map[string]any {
	res := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		props := row.Properties
		if props == nil {
			props = map[string]any{}
		}
		res = append(res, map[string]any{
			"start_key":  row.StartKey,
			"end_key":    row.EndKey,
			"properties": props,
			"run_id":     row.RunID,
		})
	}
	return res
}

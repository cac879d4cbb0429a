package topology

import (
	"context"
	"fmt"

	"aci2netbox/internal/cypher"
	"aci2netbox/internal/loader"
)

// Counts 按标签统计图中某个 fabric 的节点数量，fabric 为空时统计全部。
func Counts(ctx context.Context, reader loader.Reader, fabric string) (map[string]int64, error) {
	records, err := reader.RunRead(ctx, cypher.MustAsset(cypher.CountNodes), map[string]any{"fabric": fabric})
	if err != nil {
		return nil, fmt.Errorf("统计拓扑节点失败: %w", err)
	}
	out := make(map[string]int64, len(records))
	for _, rec := range records {
		label, _ := rec["label"].(string)
		if label == "" {
			continue
		}
		switch v := rec["count"].(type) {
		case int64:
			out[label] = v
		case int:
			out[label] = int64(v)
		}
	}
	return out, nil
}

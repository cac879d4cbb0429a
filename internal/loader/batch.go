package loader

import (
	"context"
	"fmt"
	"sort"

	"aci2netbox/pkg/util"
)

const defaultBatchSize = 100

// group 是使用同一条语句写入的一组行。
type group[T any] struct {
	query string
	desc  string
	rows  []T
}

// writeGroups 按 key 的字典序逐组、逐批执行写入，保证同样的输入产生同样的语句顺序。
func writeGroups[T any](ctx context.Context, exec Executor, batchSize int, groups map[string]*group[T], toParams func([]T) []map[string]any) error {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		g := groups[key]
		for _, chunk := range util.Batch(g.rows, batchSize) {
			if err := exec.RunWrite(ctx, g.query, map[string]any{"rows": toParams(chunk)}); err != nil {
				return fmt.Errorf("%s: %w", g.desc, err)
			}
		}
	}
	return nil
}

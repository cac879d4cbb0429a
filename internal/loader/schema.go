package loader

import (
	"context"
	"fmt"
	"sync"

	"aci2netbox/internal/cypher"
)

// SchemaManager 负责初始化约束和索引，同一进程内只执行一次成功的初始化。
type SchemaManager struct {
	exec Executor

	mu   sync.Mutex
	done bool
}

func NewSchemaManager(exec Executor) *SchemaManager {
	return &SchemaManager{exec: exec}
}

func (m *SchemaManager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	for _, query := range cypher.Statements(cypher.InitSchema) {
		if err := m.exec.RunRaw(ctx, query, nil); err != nil {
			return fmt.Errorf("执行 schema 语句失败: %w", err)
		}
	}
	m.done = true
	return nil
}

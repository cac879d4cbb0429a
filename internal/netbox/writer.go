package netbox

import (
	"context"
	"fmt"
	"time"

	"aci2netbox/internal/diff"
	"go.uber.org/zap"
)

const defaultVerifyDelay = 100 * time.Millisecond

// Writer 在 Store 之上提供幂等的 get-or-create、带校验的更新和批量预取。
type Writer struct {
	store       Store
	logger      *zap.Logger
	verifyDelay time.Duration
	relations   *relationCache
}

// Option 调整 Writer 行为。
type Option func(*Writer)

// WithLogger 设置日志。
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithVerifyDelay 设置更新后回读校验前的等待时间。
func WithVerifyDelay(d time.Duration) Option {
	return func(w *Writer) {
		w.verifyDelay = d
	}
}

// NewWriter 创建 Writer。
func NewWriter(store Store, opts ...Option) *Writer {
	w := &Writer{
		store:       store,
		logger:      zap.NewNop(),
		verifyDelay: defaultVerifyDelay,
		relations:   &relationCache{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// First 返回第一个满足 filter 的对象，没有时返回 nil。
func (w *Writer) First(ctx context.Context, kind Kind, filter Filter) (Object, error) {
	items, err := w.store.List(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// GetOrCreate 按 lookup 查询，不存在则以 params 创建。
func (w *Writer) GetOrCreate(ctx context.Context, kind Kind, lookup Filter, params Params) (Object, bool, error) {
	existing, err := w.First(ctx, kind, lookup)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := w.store.Create(ctx, kind, params)
	if err != nil {
		w.logger.Error("create failed", zap.Stringer("kind", kind), zap.Any("params", params), zap.Error(err))
		return nil, false, err
	}
	return created, true, nil
}

// GetOrCreateCached 命中缓存直接返回；否则创建并写回缓存。
// cache 必须已通过 FetchAll 预取完整。
func (w *Writer) GetOrCreateCached(ctx context.Context, cache Cache, key string, kind Kind, params Params) (Object, bool, error) {
	if obj, ok := cache[key]; ok {
		return obj, false, nil
	}
	created, err := w.store.Create(ctx, kind, params)
	if err != nil {
		w.logger.Error("create failed", zap.Stringer("kind", kind), zap.String("key", key), zap.Error(err))
		return nil, false, err
	}
	cache[key] = created
	return created, true, nil
}

// FetchAll 拉取满足 filter 的全部对象，以 keyFn 的结果作为键。keyFn 返回空串的对象被忽略。
func (w *Writer) FetchAll(ctx context.Context, kind Kind, filter Filter, keyFn func(Object) string) (Cache, error) {
	items, err := w.store.List(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("预取 %s 失败: %w", kind, err)
	}
	cache := make(Cache, len(items))
	for _, item := range items {
		if key := keyFn(item); key != "" {
			cache[key] = item
		}
	}
	w.logger.Debug("prefetched objects", zap.Stringer("kind", kind), zap.Int("count", len(cache)))
	return cache, nil
}

// ByName 以 name 字段作为缓存键。
func ByName(o Object) string {
	return o.String("name")
}

// Update 仅提交与当前值不一致的字段，返回 (changed, verified)。
// verify 为 true 时等待片刻后回读并逐字段比对。
func (w *Writer) Update(ctx context.Context, kind Kind, obj Object, updates map[string]any, verify bool) (bool, bool) {
	changes := diff.Changed(obj, updates)
	if len(changes) == 0 {
		return false, true
	}
	id := obj.ID()
	updated, err := w.store.Patch(ctx, kind, id, Params(changes))
	if err != nil {
		w.logger.Error("update failed", zap.Stringer("kind", kind), zap.Int("id", id), zap.Error(err))
		return false, false
	}
	for k, v := range changes {
		obj[k] = v
	}
	for k, v := range updated {
		obj[k] = v
	}
	if !verify {
		return true, true
	}

	if w.verifyDelay > 0 {
		timer := time.NewTimer(w.verifyDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return true, false
		case <-timer.C:
		}
	}
	refreshed, err := w.store.Get(ctx, kind, id)
	if err != nil {
		w.logger.Debug("refresh for verification failed", zap.Stringer("kind", kind), zap.Int("id", id), zap.Error(err))
		return true, false
	}
	for key, expected := range changes {
		if actual := refreshed[key]; !diff.Equal(actual, expected) {
			w.logger.Warn("verification failed",
				zap.Stringer("kind", kind),
				zap.Int("id", id),
				zap.String("field", key),
				zap.Any("expected", expected),
				zap.Any("actual", actual))
			return true, false
		}
	}
	return true, true
}

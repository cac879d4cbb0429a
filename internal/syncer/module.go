package syncer

import (
	"context"
	"fmt"
	"time"

	"aci2netbox/internal/netbox"
	"go.uber.org/zap"
)

// Deps 是所有模块共享的依赖。
type Deps struct {
	Source   Source
	Writer   *netbox.Writer
	Settings Settings
	Context  *Context
	Logger   *zap.Logger
}

// Module 是某一类对象的同步逻辑，R 为来源记录类型。
type Module[R any] interface {
	ObjectType() string
	PreSync(ctx context.Context) error
	Fetch(ctx context.Context) ([]R, error)
	SyncObject(ctx context.Context, rec R) error
	PostSync(ctx context.Context) error
	Result() *Result
}

// Runner 屏蔽记录类型，供 Orchestrator 顺序执行。
type Runner interface {
	ObjectType() string
	Run(ctx context.Context) (*Result, error)
}

// Base 提供计数与更新辅助，具体模块嵌入使用。
type Base struct {
	Deps
	objectType string
	result     *Result
}

func newBase(d Deps, objectType string) Base {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Context == nil {
		d.Context = NewContext()
	}
	d.Logger = d.Logger.With(zap.String("object_type", objectType))
	return Base{Deps: d, objectType: objectType, result: &Result{ObjectType: objectType}}
}

func (b *Base) ObjectType() string { return b.objectType }

func (b *Base) Result() *Result { return b.result }

// PreSync 默认不做任何事。
func (b *Base) PreSync(context.Context) error { return nil }

// PostSync 默认不做任何事。
func (b *Base) PostSync(context.Context) error { return nil }

// RecordCreated 记一次新建。
func (b *Base) RecordCreated(label string) {
	b.result.Created++
	b.Logger.Info("created", zap.String("object", label))
}

// RecordUnchanged 记一次无变化。
func (b *Base) RecordUnchanged() {
	b.result.Unchanged++
}

// ApplyUpdateSet 提交更新集并把结果计入 updated 或 unchanged，校验通过时计 verified。
func (b *Base) ApplyUpdateSet(ctx context.Context, kind netbox.Kind, obj netbox.Object, changes map[string]any, label string) {
	if len(changes) == 0 {
		b.result.Unchanged++
		return
	}
	b.Logger.Debug("pending updates", zap.String("object", label), zap.Any("changes", changes))
	changed, verified := b.Writer.Update(ctx, kind, obj, changes, b.Settings.VerifyUpdates)
	if !changed {
		b.result.Unchanged++
		return
	}
	b.result.Updated++
	if verified {
		b.result.Verified++
	}
	b.Logger.Info("updated", zap.String("object", label))
}

// skip 记录因引用缺失而跳过的记录，不计为失败。
func (b *Base) skip(msg string, fields ...zap.Field) error {
	b.Logger.Warn(msg, fields...)
	return nil
}

type moduleRunner[R any] struct {
	m        Module[R]
	settings Settings
	logger   *zap.Logger
}

func newRunner[R any](m Module[R], d Deps) Runner {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &moduleRunner[R]{m: m, settings: d.Settings, logger: logger.With(zap.String("object_type", m.ObjectType()))}
}

func (r *moduleRunner[R]) ObjectType() string { return r.m.ObjectType() }

func (r *moduleRunner[R]) Run(ctx context.Context) (*Result, error) {
	return run[R](ctx, r.m, r.settings, r.logger)
}

// run 执行模块的完整生命周期。PreSync、Fetch、PostSync 的错误是模块级错误，
// 单条记录的错误或 panic 只计入 failed，迭代继续。
func run[R any](ctx context.Context, m Module[R], settings Settings, logger *zap.Logger) (*Result, error) {
	start := time.Now()
	res := m.Result()
	logger.Info("开始同步")

	err := execute(ctx, m, settings, logger)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		logger.Error("模块同步失败", zap.Error(err))
	}
	res.DurationSeconds = time.Since(start).Seconds()
	logger.Info("同步完成", zap.Stringer("result", res))
	return res, err
}

func execute[R any](ctx context.Context, m Module[R], settings Settings, logger *zap.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s 同步异常: %v", m.ObjectType(), p)
		}
	}()
	res := m.Result()

	// dry-run 不做任何写入，PreSync 可能创建辅助对象，因此一并跳过。
	if !settings.DryRun {
		if err := m.PreSync(ctx); err != nil {
			return fmt.Errorf("%s 预取失败: %w", m.ObjectType(), err)
		}
	}
	records, err := m.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%s 拉取失败: %w", m.ObjectType(), err)
	}
	logger.Info("fetched from aci", zap.Int("count", len(records)))

	if settings.DryRun {
		logger.Info("dry run, skipping writes", zap.Int("count", len(records)))
		res.Unchanged = len(records)
		return nil
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := syncOne(ctx, m, rec); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err.Error())
			logger.Error("record sync failed", zap.Error(err))
		}
	}

	if err := m.PostSync(ctx); err != nil {
		return fmt.Errorf("%s 后处理失败: %w", m.ObjectType(), err)
	}
	return nil
}

func syncOne[R any](ctx context.Context, m Module[R], rec R) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s 记录同步异常: %v", m.ObjectType(), p)
		}
	}()
	return m.SyncObject(ctx, rec)
}

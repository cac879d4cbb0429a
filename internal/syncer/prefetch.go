package syncer

import (
	"context"
	"sync"

	"aci2netbox/internal/netbox"
	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
)

const defaultMaxWorkers = 4

// prefetch 以有限并发为每个父对象预取子对象缓存。只读取 NetBox，
// 全部完成后才返回，写入阶段不会与之并发。
func (b *Base) prefetch(ctx context.Context, parents map[string]int, fetch func(ctx context.Context, parentID int) (netbox.Cache, error)) (map[int]netbox.Cache, error) {
	workers := b.Settings.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	pool := workerpool.New(workers)

	var (
		mu       sync.Mutex
		firstErr error
		caches   = make(map[int]netbox.Cache, len(parents))
	)
	for name, id := range parents {
		name, id := name, id
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			cache, err := fetch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			caches[id] = cache
			b.Logger.Debug("prefetched cache", zap.String("parent", name), zap.Int("count", len(cache)))
		})
	}
	pool.StopWait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return caches, nil
}

// cacheFor 返回父对象的缓存，父对象在预取之后才创建时补一个空缓存。
func cacheFor(caches map[int]netbox.Cache, parentID int) netbox.Cache {
	cache, ok := caches[parentID]
	if !ok {
		cache = make(netbox.Cache)
		caches[parentID] = cache
	}
	return cache
}

package ioc

import (
	"context"

	"aci2netbox/internal/app"
	"go.uber.org/zap"
)

// InitAppService 构建同步服务，cleanup 关闭 Neo4j 连接。
func InitAppService(ctx context.Context, cfg app.Config, logger *zap.Logger) (*app.Service, func(), error) {
	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn("close app service failed", zap.Error(err))
		}
	}
	return svc, cleanup, nil
}

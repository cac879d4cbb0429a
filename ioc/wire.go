//go:build wireinject

package ioc

import (
	"context"

	"aci2netbox/internal/app"
	"aci2netbox/pkg/server"
	"github.com/google/wire"
)

// InitApp 装配守护进程。
func InitApp(ctx context.Context, cfg app.Config) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		InitLogger,
		InitAppService,
		InitMetricsRegistry,
		InitSyncHandler,
		InitGinEngine,
		InitScheduler,
		InitHeartbeat,
		server.NewHTTPServer,
	))
}

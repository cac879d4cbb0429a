package ioc

import (
	"aci2netbox/internal/app"
	"aci2netbox/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// InitSyncHandler 构建同步 HTTP 处理器。
func InitSyncHandler(svc *app.Service, logger *zap.Logger) *router.SyncHandler {
	return router.NewSyncHandler(svc, logger)
}

// InitGinEngine 构建 gin 引擎。
func InitGinEngine(syncHandler *router.SyncHandler, reg *prometheus.Registry) *gin.Engine {
	return router.NewEngine(syncHandler, reg)
}

package ioc

import (
	"aci2netbox/internal/app"
	"aci2netbox/pkg/logging"
	"go.uber.org/zap"
)

// InitLogger 构建全局 logger。
func InitLogger(cfg app.Config) (*zap.Logger, error) {
	return logging.NewZapLogger(logging.Options{Verbose: cfg.Log.Verbose, File: cfg.Log.File})
}

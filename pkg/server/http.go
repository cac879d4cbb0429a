package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"aci2netbox/internal/app"
	"aci2netbox/internal/job"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPServer 封装守护进程运行所需的依赖。
type HTTPServer struct {
	Engine    *gin.Engine
	Logger    *zap.Logger
	Config    app.Config
	Service   *app.Service
	Job       *job.Scheduler
	Heartbeat *job.Heartbeat
}

// NewHTTPServer 构建 HTTPServer。
func NewHTTPServer(engine *gin.Engine, logger *zap.Logger, cfg app.Config, svc *app.Service, scheduler *job.Scheduler, heartbeat *job.Heartbeat) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		Engine:    engine,
		Logger:    logger,
		Config:    cfg,
		Service:   svc,
		Job:       scheduler,
		Heartbeat: heartbeat,
	}
}

// Run 启动 HTTP 服务及后台任务，ctx 取消后优雅退出。
func (s *HTTPServer) Run(ctx context.Context) error {
	listen := strings.TrimSpace(s.Config.HTTP.Listen)
	if listen == "" {
		listen = ":8080"
	}

	if s.Job != nil {
		cancelJob := s.Job.Start(ctx)
		defer cancelJob()
	}
	if s.Heartbeat != nil {
		cancelHeartbeat := s.Heartbeat.Start(ctx)
		defer cancelHeartbeat()
	}

	if s.Config.Sync.InitialSync && s.Service != nil {
		if err := s.Service.Trigger(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Error("initial sync failed to start", zap.Error(err))
		} else {
			s.Logger.Info("initial sync started")
		}
	} else {
		s.Logger.Info("initial sync skipped by configuration")
	}

	srv := &http.Server{Addr: listen, Handler: s.Engine}
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server starting", zap.String("listen", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Shutdown 释放资源。
func (s *HTTPServer) Shutdown(ctx context.Context) {
	if s.Service != nil {
		if err := s.Service.Close(ctx); err != nil {
			s.Logger.Warn("close app service failed", zap.Error(err))
		}
	}
	_ = s.Logger.Sync()
}

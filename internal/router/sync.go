package router

import (
	"context"
	"errors"
	"net/http"

	"aci2netbox/internal/app"
	"aci2netbox/internal/syncer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncService 是 HTTP 层依赖的同步服务能力，由 *app.Service 实现。
type SyncService interface {
	Trigger(ctx context.Context) error
	Running() bool
	LastStats() (*syncer.Stats, error)
	Topology(ctx context.Context) (map[string]int64, error)
}

var _ SyncService = (*app.Service)(nil)

// SyncHandler 负责同步相关的 HTTP 请求。
type SyncHandler struct {
	svc    SyncService
	logger *zap.Logger
}

// NewSyncHandler 构建一个新的 SyncHandler。
func NewSyncHandler(svc SyncService, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{svc: svc, logger: logger}
}

// RegisterRoutes 将同步路由注册到给定的路由组。
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync/status", h.handleStatus)
	rg.POST("/sync", h.handleTrigger)
	rg.GET("/topology", h.handleTopology)
}

type statusResponse struct {
	Running bool          `json:"running"`
	Last    *syncer.Stats `json:"last,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (h *SyncHandler) handleStatus(c *gin.Context) {
	last, err := h.svc.LastStats()
	resp := statusResponse{Running: h.svc.Running(), Last: last}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandler) handleTrigger(c *gin.Context) {
	// 同步在后台运行，不能随请求结束而取消。
	err := h.svc.Trigger(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, app.ErrSyncRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("trigger sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
	}
}

func (h *SyncHandler) handleTopology(c *gin.Context) {
	counts, err := h.svc.Topology(c.Request.Context())
	switch {
	case errors.Is(err, app.ErrGraphDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("topology query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"nodes": counts})
	}
}

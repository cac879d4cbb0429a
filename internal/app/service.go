package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/loader"
	"aci2netbox/internal/netbox"
	"aci2netbox/internal/syncer"
	"aci2netbox/internal/topology"
	"go.uber.org/zap"
)

var (
	// ErrSyncRunning 表示已有同步在执行。
	ErrSyncRunning = errors.New("已有同步正在执行")
	// ErrGraphDisabled 表示未配置 Neo4j。
	ErrGraphDisabled = errors.New("未启用拓扑导出")
)

// Service 负责装配同步流程并提供统一入口，同一时刻只允许一次同步。
type Service struct {
	cfg       Config
	neoClient *loader.Client
	SyncFlow  *SyncFlow
	logger    *zap.Logger

	// Graph 为空表示未启用拓扑导出。
	Graph loader.Reader

	mu      sync.Mutex
	running bool
	last    *syncer.Stats
	lastErr error
}

// NewService 根据配置构建 Service。Neo4j 连接失败只关闭拓扑导出。
func NewService(ctx context.Context, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	aciClient, err := aci.NewClient(cfg.ACIConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("创建 APIC 客户端失败: %w", err)
	}
	nbClient, err := netbox.NewClient(cfg.NetBoxConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("创建 NetBox 客户端失败: %w", err)
	}
	modules, err := syncer.Resolve(nil, nil, cfg.Sync.IncludeSoftware)
	if err != nil {
		return nil, err
	}

	flow := &SyncFlow{
		Session:  aciClient,
		NetBox:   nbClient,
		Source:   topology.NewRecorder(aci.NewReader(aciClient, logger)),
		Writer:   netbox.NewWriter(nbClient, netbox.WithLogger(logger)),
		Tagger:   nbClient,
		Settings: cfg.SyncSettings(),
		Modules:  modules,
		Logger:   logger,
	}

	svc := &Service{cfg: cfg, SyncFlow: flow, logger: logger}
	if cfg.GraphEnabled() {
		neoClient, err := loader.NewClient(ctx, cfg.Neo4jConfig())
		if err != nil {
			logger.Warn("neo4j unavailable, topology export disabled", zap.Error(err))
		} else {
			svc.neoClient = neoClient
			svc.Graph = neoClient
			flow.Export = NewExportFlow(neoClient, cfg.Sync.BatchSize, logger)
		}
	}
	return svc, nil
}

// NewServiceWithFlow 直接使用给定的流程，主要用于测试。
func NewServiceWithFlow(cfg Config, flow *SyncFlow, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, SyncFlow: flow, logger: logger}
}

// Close 释放资源。
func (s *Service) Close(ctx context.Context) error {
	if s.neoClient != nil {
		return s.neoClient.Close(ctx)
	}
	return nil
}

func (s *Service) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) release(stats *syncer.Stats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if stats != nil {
		s.last = stats
	}
	s.lastErr = err
}

// Sync 运行一次默认模块的同步。
func (s *Service) Sync(ctx context.Context) error {
	_, err := s.Run(ctx, nil)
	return err
}

// Run 运行一次同步，modules 为空时使用配置决定的模块。
// 记录级失败不返回 error，调用方通过 Stats.HasFailures 判断。
func (s *Service) Run(ctx context.Context, modules []syncer.Name) (*syncer.Stats, error) {
	if s.SyncFlow == nil {
		return nil, fmt.Errorf("未初始化 sync flow")
	}
	if !s.acquire() {
		return nil, ErrSyncRunning
	}
	stats, err := s.SyncFlow.Run(ctx, modules)
	s.release(stats, err)
	return stats, err
}

// Trigger 在后台启动一次同步，已有同步运行时返回 ErrSyncRunning。
func (s *Service) Trigger(ctx context.Context) error {
	if s.SyncFlow == nil {
		return fmt.Errorf("未初始化 sync flow")
	}
	if !s.acquire() {
		return ErrSyncRunning
	}
	go func() {
		stats, err := s.SyncFlow.Run(ctx, nil)
		if err != nil {
			s.logger.Error("后台同步失败", zap.Error(err))
		}
		s.release(stats, err)
	}()
	return nil
}

// Running 表示当前是否有同步在执行。
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastStats 返回最近一次完成的同步结果及其错误。
func (s *Service) LastStats() (*syncer.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Topology 统计图中当前 fabric 的节点数量。
func (s *Service) Topology(ctx context.Context) (map[string]int64, error) {
	if s.Graph == nil {
		return nil, ErrGraphDisabled
	}
	fabric := ""
	if last, _ := s.LastStats(); last != nil && last.Context != nil {
		fabric = last.Context.FabricName
	}
	return topology.Counts(ctx, s.Graph, fabric)
}

package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wisefido-vision/internal/classifier"
	"wisefido-vision/internal/config"
	"wisefido-vision/internal/detector"
	"wisefido-vision/internal/models"
	"wisefido-vision/internal/store"

	"go.uber.org/zap"
)

// Manager 源注册表
// 持有全部活跃源及其监测 goroutine；注册是唯一的写路径，
// 查询处理器只读。重复注册同一 source_id 直接拒绝
type Manager struct {
	config     *config.Config
	detector   detector.Detector
	classifier *classifier.Classifier
	reasoner   Reasoner
	history    *store.History
	sink       Sink
	logger     *zap.Logger

	mu      sync.RWMutex
	sources map[string]*SourceMonitor
	wg      sync.WaitGroup
}

// NewManager 创建源注册表
func NewManager(
	cfg *config.Config,
	det detector.Detector,
	cls *classifier.Classifier,
	reasoner Reasoner,
	history *store.History,
	sink Sink,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		config:     cfg,
		detector:   det,
		classifier: cls,
		reasoner:   reasoner,
		history:    history,
		sink:       sink,
		logger:     logger,
		sources:    make(map[string]*SourceMonitor),
	}
}

// AddSource 注册视频源并启动其监测循环
// profile 为空时从 source_id 推断（兼容旧客户端）
// worker 生命周期由 ctx 控制（服务停止时统一取消）
func (mgr *Manager) AddSource(ctx context.Context, sourceID, videoPath, profile string) error {
	if sourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if videoPath == "" {
		return fmt.Errorf("video_path is required")
	}

	var p models.Profile
	if profile != "" {
		parsed, err := models.ParseProfile(profile)
		if err != nil {
			return err
		}
		p = parsed
	} else {
		p = models.InferProfile(sourceID)
	}

	fullPath := filepath.Join(mgr.config.Monitor.MediaRoot, videoPath)
	if _, err := os.Stat(fullPath); err != nil {
		return fmt.Errorf("video source not found: %s", fullPath)
	}

	source, err := NewDirectorySource(fullPath)
	if err != nil {
		return err
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if _, exists := mgr.sources[sourceID]; exists {
		source.Close()
		return fmt.Errorf("source already registered: %s", sourceID)
	}

	sm := NewSourceMonitor(sourceID, p, source, mgr.config,
		mgr.detector, mgr.classifier, mgr.reasoner, mgr.history, mgr.sink, mgr.logger)
	mgr.sources[sourceID] = sm

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		sm.Run(ctx)
	}()

	mgr.logger.Info("Started monitoring source",
		zap.String("source_id", sourceID),
		zap.String("video_path", fullPath),
		zap.String("profile", string(p)),
	)
	return nil
}

// Count 当前活跃源数量
func (mgr *Manager) Count() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.sources)
}

// Has 是否已注册某个源
func (mgr *Manager) Has(sourceID string) bool {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	_, ok := mgr.sources[sourceID]
	return ok
}

// Wait 等待所有监测循环退出（在服务 ctx 取消后调用）
func (mgr *Manager) Wait() {
	mgr.wg.Wait()
}

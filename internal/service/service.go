package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"wisefido-vision/internal/classifier"
	"wisefido-vision/internal/config"
	"wisefido-vision/internal/detector"
	"wisefido-vision/internal/httpapi"
	"wisefido-vision/internal/models"
	"wisefido-vision/internal/monitor"
	"wisefido-vision/internal/mqtt"
	"wisefido-vision/internal/notifier"
	"wisefido-vision/internal/publisher"
	"wisefido-vision/internal/reasoning"
	"wisefido-vision/internal/repository"
	"wisefido-vision/internal/store"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// MonitorService 视频监测服务（整合各层）
// 同时作为监测循环的事件出口：WebSocket 广播、Redis Streams 扇出、
// MQTT 报警推送、语音呼叫和报警留痕都在这里汇合
type MonitorService struct {
	config *config.Config
	logger *zap.Logger

	// 各层组件
	history  *store.History
	detector detector.Detector
	clf      *classifier.Classifier
	reasoner *reasoning.Client
	notifier *notifier.VapiNotifier
	manager  *monitor.Manager
	hub      *httpapi.Hub
	server   *http.Server

	// 可选分发渠道
	db          *sql.DB
	redisClient *redis.Client
	redisPub    *publisher.RedisPublisher
	mqttPub     *mqtt.AlertPublisher
	alertRepo   *repository.AlertEventsRepository

	baseCtx context.Context
}

// NewMonitorService 创建监测服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	s := &MonitorService{
		config:   cfg,
		logger:   logger,
		history:  store.NewHistory(cfg.Monitor.HistoryLimit),
		detector: detector.NewHTTPDetector(cfg.Detector.BaseURL, cfg.Detector.Timeout, logger),
		clf:      classifier.NewClassifier(cfg, logger),
		reasoner: reasoning.NewClient(cfg, logger),
		notifier: notifier.NewVapiNotifier(cfg, logger),
		hub:      httpapi.NewHub(logger),
	}

	// 1. Redis Streams（可选）
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}

		s.redisClient = redisClient
		s.redisPub = publisher.NewRedisPublisher(redisClient, cfg.Redis.EventStream, logger)
	}

	// 2. MQTT 报警推送（可选）
	if cfg.MQTT.Enabled {
		mqttPub, err := mqtt.NewAlertPublisher(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.mqttPub = mqttPub
	}

	// 3. 报警留痕数据库（可选）
	if cfg.Database.Enabled {
		db, err := sql.Open("postgres", buildDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.db = db
		s.alertRepo = repository.NewAlertEventsRepository(db, logger)
	}

	// 4. 源注册表（事件出口是服务自身）
	s.manager = monitor.NewManager(cfg, s.detector, s.clf, s.reasoner, s.history, s, logger)

	return s, nil
}

// Start 启动服务（WebSocket 中枢 + HTTP 服务器）
func (s *MonitorService) Start(ctx context.Context) error {
	s.baseCtx = ctx

	go s.hub.Run(ctx)

	handler := httpapi.NewHandler(ctx, s.manager, s.history, s.notifier, s.hub, s.logger)
	wsHandler := httpapi.NewWSHandler(s.hub, handler, s.logger)

	router := httpapi.NewRouter(s.logger)
	router.RegisterRoutes(handler, wsHandler)

	s.server = &http.Server{
		Addr:    s.config.HTTP.Addr,
		Handler: router,
	}

	s.logger.Info("Starting monitor service",
		zap.String("addr", s.config.HTTP.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping monitor service")

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shut down http server", zap.Error(err))
		}
	}

	// 等全部监测循环退出（依赖调用方取消 Start 的 ctx）
	s.manager.Wait()

	if s.mqttPub != nil {
		s.mqttPub.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}

	return nil
}

// EmitDetections 推送单帧原始检测结果
func (s *MonitorService) EmitDetections(sourceID string, timestamp time.Time, detections []models.Detection) {
	s.hub.Broadcast("yolo_detection", map[string]any{
		"source_id":  sourceID,
		"timestamp":  timestamp,
		"detections": detections,
	})
}

// EmitEvent 分发一条事件汇总
func (s *MonitorService) EmitEvent(summary *models.EventSummary) {
	s.hub.Broadcast("medical_event", summary)
	s.hub.Broadcast("groq_analysis", map[string]any{
		"source_id": summary.SourceID,
		"event_id":  summary.EventID,
		"reasoning": summary.Reasoning,
	})

	if s.redisPub != nil {
		if _, err := s.redisPub.PublishEvent(s.baseCtx, summary); err != nil {
			s.logger.Error("Failed to publish event to redis stream",
				zap.String("event_id", summary.EventID),
				zap.Error(err),
			)
		}
	}
}

// DispatchAlert 派发高风险报警
func (s *MonitorService) DispatchAlert(ctx context.Context, summary *models.EventSummary) {
	s.notifier.Trigger(ctx, summary)

	if s.mqttPub != nil {
		if err := s.mqttPub.PublishAlert(summary); err != nil {
			s.logger.Error("Failed to publish alert to MQTT",
				zap.String("event_id", summary.EventID),
				zap.Error(err),
			)
		}
	}

	if s.alertRepo != nil {
		message := notifier.BuildAlertMessage(summary)
		if err := s.alertRepo.CreateAlertEvent(ctx, summary, message); err != nil {
			s.logger.Error("Failed to persist alert event",
				zap.String("event_id", summary.EventID),
				zap.Error(err),
			)
		}
	}
}

// buildDSN 构建数据库连接字符串
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
}

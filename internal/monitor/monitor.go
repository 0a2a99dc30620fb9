package monitor

import (
	"context"
	"time"

	"wisefido-vision/internal/classifier"
	"wisefido-vision/internal/config"
	"wisefido-vision/internal/detector"
	"wisefido-vision/internal/models"
	"wisefido-vision/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reasoner 推理分析接口（reasoning.Client 实现）
// 实现必须收敛所有失败为回退文案，永远返回可用字符串
type Reasoner interface {
	Explain(ctx context.Context, events []models.MedicalEvent, detections []models.Detection, profile models.Profile) string
}

// Sink 事件副作用出口（由 service 层实现并组合各分发渠道）
type Sink interface {
	// EmitDetections 每个分析帧都推送原始检测结果（观测用，与是否产生事件无关）
	EmitDetections(sourceID string, timestamp time.Time, detections []models.Detection)
	// EmitEvent 推送完整事件汇总（medical_event + 推理通知 + 下游扇出）
	EmitEvent(summary *models.EventSummary)
	// DispatchAlert 派发高风险报警（语音呼叫 + 可选持久化）
	DispatchAlert(ctx context.Context, summary *models.EventSummary)
}

// SourceMonitor 单个视频源的监测循环
// 状态机：Starting → Running →（读取失败 → 重播）→ Running …
// 循环只被 ctx 取消终止，帧内任何失败都不会终止循环
type SourceMonitor struct {
	sourceID   string
	profile    models.Profile
	source     FrameSource
	config     *config.Config
	detector   detector.Detector
	classifier *classifier.Classifier
	reasoner   Reasoner
	history    *store.History
	sink       Sink
	logger     *zap.Logger

	frameCount       int64
	lastAnalysisTime time.Time
}

// NewSourceMonitor 创建源监测器
func NewSourceMonitor(
	sourceID string,
	profile models.Profile,
	source FrameSource,
	cfg *config.Config,
	det detector.Detector,
	cls *classifier.Classifier,
	reasoner Reasoner,
	history *store.History,
	sink Sink,
	logger *zap.Logger,
) *SourceMonitor {
	return &SourceMonitor{
		sourceID:   sourceID,
		profile:    profile,
		source:     source,
		config:     cfg,
		detector:   det,
		classifier: cls,
		reasoner:   reasoner,
		history:    history,
		sink:       sink,
		logger:     logger,
	}
}

// Run 监测循环主体（在独立 goroutine 中运行，直到 ctx 取消）
func (m *SourceMonitor) Run(ctx context.Context) {
	m.logger.Info("Starting detection loop",
		zap.String("source_id", m.sourceID),
		zap.String("profile", string(m.profile)),
	)
	defer m.source.Close()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Detection loop stopped",
				zap.String("source_id", m.sourceID),
			)
			return
		default:
		}

		frame, err := m.source.Next()
		if err != nil {
			// 读到末尾或失败：回到起点循环播放，不推进帧计数
			if rerr := m.source.Reset(); rerr != nil {
				m.logger.Error("Failed to reset frame source",
					zap.String("source_id", m.sourceID),
					zap.Error(rerr),
				)
				m.pace(ctx)
			}
			continue
		}

		m.frameCount++

		// 双重门控：每 N 帧取一帧，且距上次分析超过最小间隔
		// 同时约束 CPU 开销和外部 API 调用量
		if m.config.Monitor.SampleEvery > 0 && m.frameCount%int64(m.config.Monitor.SampleEvery) == 0 {
			now := time.Now()
			if now.Sub(m.lastAnalysisTime) > m.config.Monitor.MinAnalysisInterval {
				m.analyzeFrame(ctx, frame, now)
				m.lastAnalysisTime = now
			}
		}

		m.pace(ctx)
	}
}

// pace 帧间节拍延时（近似目标帧率，可被 ctx 打断）
func (m *SourceMonitor) pace(ctx context.Context) {
	if m.config.Monitor.FrameDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.config.Monitor.FrameDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// analyzeFrame 分析单帧
// 帧内任何异常都在此处兜住：单帧失败不得影响该源或其他源的监测
func (m *SourceMonitor) analyzeFrame(ctx context.Context, frame *models.Frame, timestamp time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic while analyzing frame",
				zap.String("source_id", m.sourceID),
				zap.Int64("frame_index", frame.Index),
				zap.Any("panic", r),
			)
		}
	}()

	detections, err := m.detector.Detect(ctx, frame)
	if err != nil {
		// 推理失败按零检测处理，循环继续
		m.logger.Warn("Detection failed, treating frame as empty",
			zap.String("source_id", m.sourceID),
			zap.Int64("frame_index", frame.Index),
			zap.Error(err),
		)
		detections = nil
	}

	// 原始检测结果无条件推送（前端叠加框用）
	m.sink.EmitDetections(m.sourceID, timestamp, detections)

	events := m.classifier.Classify(detections, float64(frame.Width), float64(frame.Height), m.profile)
	if len(events) == 0 {
		return
	}

	reasoning := m.reasoner.Explain(ctx, events, detections, m.profile)

	summary := models.EventSummary{
		EventID:           uuid.NewString(),
		SourceID:          m.sourceID,
		Timestamp:         timestamp,
		Detections:        detections,
		MedicalEvents:     events,
		Reasoning:         reasoning,
		EventDescription:  classifier.DescribeEvents(events),
		OverallConfidence: classifier.OverallConfidence(events),
		RiskLevel:         classifier.AssessRiskLevel(events),
	}

	m.history.Append(m.sourceID, summary)
	m.sink.EmitEvent(&summary)

	if summary.RiskLevel == models.SeverityCritical || summary.RiskLevel == models.SeverityHigh {
		m.sink.DispatchAlert(ctx, &summary)
	}
}

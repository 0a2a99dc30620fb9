package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"wisefido-vision/internal/models"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// SourceRegistry 源注册表接口（monitor.Manager 实现）
type SourceRegistry interface {
	AddSource(ctx context.Context, sourceID, videoPath, profile string) error
	Count() int
}

// EventHistory 事件历史查询接口（store.History 实现）
type EventHistory interface {
	Snapshot(sourceID string) []models.EventSummary
	TotalEvents() int
}

// AlertNotifier 语音报警接口（notifier.VapiNotifier 实现）
type AlertNotifier interface {
	Trigger(ctx context.Context, summary *models.EventSummary)
}

// Handler REST 接口处理器
// workerCtx 是服务生命周期上下文：新注册源的监测循环挂在它上面，
// 不能用请求上下文（请求结束循环就被取消了）
type Handler struct {
	workerCtx context.Context
	registry  SourceRegistry
	history   EventHistory
	notifier  AlertNotifier
	hub       *Hub
	logger    *zap.Logger
}

// NewHandler 创建 REST 处理器
func NewHandler(
	workerCtx context.Context,
	registry SourceRegistry,
	history EventHistory,
	notifier AlertNotifier,
	hub *Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		workerCtx: workerCtx,
		registry:  registry,
		history:   history,
		notifier:  notifier,
		hub:       hub,
		logger:    logger,
	}
}

type addVideoRequest struct {
	SourceID  string `json:"source_id"`
	VideoPath string `json:"video_path"`
	Profile   string `json:"profile"`
}

// AddVideo POST /api/add_video
func (h *Handler) AddVideo(w http.ResponseWriter, r *http.Request) {
	var req addVideoRequest
	if err := readBodyJSON(r, maxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.registry.AddSource(h.workerCtx, req.SourceID, req.VideoPath, req.Profile); err != nil {
		h.logger.Warn("Failed to add video source",
			zap.String("source_id", req.SourceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	h.hub.Broadcast("video_added", map[string]string{
		"source_id":  req.SourceID,
		"video_path": req.VideoPath,
	})

	writeJSON(w, http.StatusOK, Ok("video source added"))
}

type eventsResponse struct {
	SourceID string                `json:"source_id"`
	Events   []models.EventSummary `json:"events"`
}

// Events GET /api/events/{source_id}
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sourceID := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if sourceID == "" || strings.Contains(sourceID, "/") {
		writeJSON(w, http.StatusBadRequest, Fail("source_id is required"))
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		SourceID: sourceID,
		Events:   h.history.Snapshot(sourceID),
	})
}

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ActiveSources int       `json:"active_sources"`
	TotalEvents   int       `json:"total_events"`
}

// Health GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now(),
		ActiveSources: h.registry.Count(),
		TotalEvents:   h.history.TotalEvents(),
	})
}

type triggerCallRequest struct {
	Message   string `json:"message"`
	RiskLevel string `json:"risk_level"`
}

// TriggerCall POST /api/trigger_call
// 人工触发语音呼叫（演示和联调用）：合成一条最小事件汇总，
// 复用检测链路的报警出口
func (h *Handler) TriggerCall(w http.ResponseWriter, r *http.Request) {
	var req triggerCallRequest
	if err := readBodyJSON(r, maxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if req.Message == "" {
		req.Message = "Medical emergency reported. Please respond."
	}
	if req.RiskLevel == "" {
		req.RiskLevel = string(models.SeverityHigh)
	}

	h.logger.Info("Manual voice call requested",
		zap.String("risk_level", req.RiskLevel),
	)
	h.notifier.Trigger(r.Context(), &models.EventSummary{
		RiskLevel: models.Severity(req.RiskLevel),
		Reasoning: req.Message,
	})

	writeJSON(w, http.StatusOK, Ok("call triggered"))
}

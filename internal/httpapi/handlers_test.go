package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wisefido-vision/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	mu      sync.Mutex
	sources map[string]bool
	err     error
}

func (r *fakeRegistry) AddSource(ctx context.Context, sourceID, videoPath, profile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if sourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if r.sources == nil {
		r.sources = make(map[string]bool)
	}
	if r.sources[sourceID] {
		return fmt.Errorf("source already registered: %s", sourceID)
	}
	r.sources[sourceID] = true
	return nil
}

func (r *fakeRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

type fakeHistory struct {
	events map[string][]models.EventSummary
}

func (h *fakeHistory) Snapshot(sourceID string) []models.EventSummary {
	events := h.events[sourceID]
	out := make([]models.EventSummary, len(events))
	copy(out, events)
	return out
}

func (h *fakeHistory) TotalEvents() int {
	total := 0
	for _, events := range h.events {
		total += len(events)
	}
	return total
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []*models.EventSummary
}

func (n *fakeNotifier) Trigger(ctx context.Context, summary *models.EventSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
}

func newTestHandler(registry *fakeRegistry, history *fakeHistory, notifier *fakeNotifier) *Handler {
	logger := zap.NewNop()
	return NewHandler(context.Background(), registry, history, notifier, NewHub(logger), logger)
}

func TestAddVideo_Success(t *testing.T) {
	registry := &fakeRegistry{}
	h := newTestHandler(registry, &fakeHistory{}, &fakeNotifier{})

	body := `{"source_id": "fall_incident", "video_path": "fall_clip", "profile": "fall"}`
	req := httptest.NewRequest(http.MethodPost, "/api/add_video", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.AddVideo(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, registry.Count())
}

func TestAddVideo_Duplicate(t *testing.T) {
	registry := &fakeRegistry{sources: map[string]bool{"fall_incident": true}}
	h := newTestHandler(registry, &fakeHistory{}, &fakeNotifier{})

	body := `{"source_id": "fall_incident", "video_path": "fall_clip"}`
	req := httptest.NewRequest(http.MethodPost, "/api/add_video", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.AddVideo(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "already registered")
}

func TestAddVideo_InvalidBody(t *testing.T) {
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/add_video", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.AddVideo(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_ReturnsHistory(t *testing.T) {
	history := &fakeHistory{
		events: map[string][]models.EventSummary{
			"fall_incident": {
				{EventID: "evt-1", SourceID: "fall_incident", RiskLevel: models.SeverityCritical},
			},
		},
	}
	h := newTestHandler(&fakeRegistry{}, history, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/fall_incident", nil)
	rec := httptest.NewRecorder()

	h.Events(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fall_incident", resp.SourceID)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt-1", resp.Events[0].EventID)
}

func TestEvents_UnknownSourceReturnsEmptyList(t *testing.T) {
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/unknown", nil)
	rec := httptest.NewRecorder()

	h.Events(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown", resp.SourceID)
	assert.Empty(t, resp.Events)
}

func TestEvents_MissingSourceID(t *testing.T) {
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/", nil)
	rec := httptest.NewRecorder()

	h.Events(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	registry := &fakeRegistry{sources: map[string]bool{"a": true, "b": true}}
	history := &fakeHistory{
		events: map[string][]models.EventSummary{
			"a": {{EventID: "1"}, {EventID: "2"}},
			"b": {{EventID: "3"}},
		},
	}
	h := newTestHandler(registry, history, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 2, resp.ActiveSources)
	assert.Equal(t, 3, resp.TotalEvents)
	assert.WithinDuration(t, time.Now(), resp.Timestamp, 5*time.Second)
}

func TestTriggerCall_Success(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, notifier)

	body := `{"message": "Patient unresponsive in room 12", "risk_level": "critical"}`
	req := httptest.NewRequest(http.MethodPost, "/api/trigger_call", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.TriggerCall(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, models.SeverityCritical, notifier.summaries[0].RiskLevel)
	assert.Equal(t, "Patient unresponsive in room 12", notifier.summaries[0].Reasoning)
}

func TestTriggerCall_Defaults(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, notifier)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger_call", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.TriggerCall(rec, req)

	// 消息和风险等级都有默认值，空请求体也能触发
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, models.SeverityHigh, notifier.summaries[0].RiskLevel)
	assert.Equal(t, "Medical emergency reported. Please respond.", notifier.summaries[0].Reasoning)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	h := newTestHandler(&fakeRegistry{}, &fakeHistory{}, &fakeNotifier{})
	ws := NewWSHandler(h.hub, h, logger)

	router := NewRouter(logger)
	router.RegisterRoutes(h, ws)

	req := httptest.NewRequest(http.MethodGet, "/api/add_video", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package detector

import (
	"context"
	"fmt"
	"time"

	"wisefido-vision/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// inferResponse 推理服务响应
type inferResponse struct {
	Detections []models.Detection `json:"detections"`
	Error      string             `json:"error,omitempty"`
}

// HTTPDetector 通过 HTTP 调用 YOLO 推理服务的检测器
type HTTPDetector struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPDetector 创建 HTTP 检测器
func NewHTTPDetector(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPDetector {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPDetector{
		httpClient: client,
		logger:     logger,
	}
}

// Detect 对单帧执行目标检测
// 推理失败返回错误，由调用方决定降级策略（监测循环按零检测处理）
func (d *HTTPDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	var result inferResponse
	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetQueryParam("width", fmt.Sprintf("%d", frame.Width)).
		SetQueryParam("height", fmt.Sprintf("%d", frame.Height)).
		SetBody(frame.Data).
		SetResult(&result).
		Post("/detect")

	if err != nil {
		return nil, fmt.Errorf("failed to call inference service: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode())
	}

	if result.Error != "" {
		return nil, fmt.Errorf("model inference error: %s", result.Error)
	}

	return result.Detections, nil
}

package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-vision/internal/config"
	"wisefido-vision/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// chatRequest Groq chat/completions 请求
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse Groq chat/completions 响应
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client Groq 推理分析客户端
// Explain 永远返回可用字符串，外部依赖的任何失败都在此处收敛为回退文案，
// 不允许错误越过该边界进入监测循环
type Client struct {
	httpClient  *resty.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewClient 创建 Groq 客户端
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.Groq.BaseURL).
		SetTimeout(cfg.Groq.Timeout).
		SetAuthToken(cfg.Groq.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:  client,
		model:       cfg.Groq.Model,
		maxTokens:   cfg.Groq.MaxTokens,
		temperature: cfg.Groq.Temperature,
		logger:      logger,
	}
}

// Explain 请求对候选事件与检测结果的详细分析
func (c *Client) Explain(ctx context.Context, events []models.MedicalEvent, detections []models.Detection, profile models.Profile) string {
	prompt := buildPrompt(events, detections, profile)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var result chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		c.logger.Warn("Groq call failed", zap.Error(err))
		return fmt.Sprintf("Error in reasoning analysis: %v", err)
	}

	switch {
	case resp.StatusCode() == 200:
		if len(result.Choices) == 0 {
			return "Error in reasoning analysis: empty response"
		}
		return result.Choices[0].Message.Content
	case resp.StatusCode() == 429:
		c.logger.Warn("Groq rate limit exceeded")
		return "Rate limit exceeded - AI analysis temporarily unavailable"
	default:
		c.logger.Warn("Groq returned non-200 status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Sprintf("Error getting reasoning: %d", resp.StatusCode())
	}
}

// buildPrompt 构建带监测场景上下文的提示词
func buildPrompt(events []models.MedicalEvent, detections []models.Detection, profile models.Profile) string {
	var videoContext string
	switch profile {
	case models.ProfileCardiac:
		videoContext = "This is a cardiac emergency monitoring scenario. "
	case models.ProfileFall:
		videoContext = "This is a fall detection monitoring scenario. "
	}

	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		eventsJSON = []byte("[]")
	}
	detectionsJSON, err := json.MarshalIndent(detections, "", "  ")
	if err != nil {
		detectionsJSON = []byte("[]")
	}

	return fmt.Sprintf(`%sAnalyze this medical monitoring data and provide detailed reasoning:

Medical Events: %s
Detections: %s

Provide a detailed analysis explaining:
1. What medical conditions might be indicated
2. Specific behavioral or physical signs observed
3. Risk assessment and urgency level
4. Recommended medical response

Format your response as a natural language explanation suitable for medical staff.
Be specific about the signs and symptoms observed.`,
		videoContext, eventsJSON, detectionsJSON)
}

// SetTimeout 覆盖请求超时（测试用）
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.SetTimeout(d)
}

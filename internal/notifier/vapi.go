package notifier

import (
	"context"
	"fmt"
	"unicode/utf8"

	"wisefido-vision/internal/config"
	"wisefido-vision/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// reasoningPrefixLen 报警消息中引用的分析文本最大长度
const reasoningPrefixLen = 200

// VapiNotifier VAPI 语音报警触发器
// Trigger 的任何失败只记录日志，绝不把错误传回监测循环
type VapiNotifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewVapiNotifier 创建 VAPI 报警触发器
func NewVapiNotifier(cfg *config.Config, logger *zap.Logger) *VapiNotifier {
	client := resty.New().
		SetBaseURL(cfg.Vapi.BaseURL).
		SetTimeout(cfg.Vapi.Timeout).
		SetAuthToken(cfg.Vapi.APIKey).
		SetHeader("Content-Type", "application/json")

	return &VapiNotifier{
		httpClient: client,
		logger:     logger,
	}
}

// Trigger 为事件汇总触发语音报警
func (n *VapiNotifier) Trigger(ctx context.Context, summary *models.EventSummary) {
	message := BuildAlertMessage(summary)

	n.logger.Info("Voice alert",
		zap.String("source_id", summary.SourceID),
		zap.String("risk_level", string(summary.RiskLevel)),
		zap.String("message", message),
	)

	n.call(ctx, message)
}

// call 以给定消息发起语音呼叫
func (n *VapiNotifier) call(ctx context.Context, message string) {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"message": message}).
		Post("/trigger-call")

	if err != nil {
		n.logger.Error("Failed to call VAPI", zap.Error(err))
		return
	}

	if resp.StatusCode() >= 400 {
		n.logger.Error("VAPI call failed",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return
	}

	n.logger.Info("VAPI call succeeded")
}

// BuildAlertMessage 构建人读报警消息（风险等级 + 分析文本前缀）
// 截断回退到字符边界，避免把多字节字符从中间切开
func BuildAlertMessage(summary *models.EventSummary) string {
	reasoning := summary.Reasoning
	if len(reasoning) > reasoningPrefixLen {
		cut := reasoningPrefixLen
		for cut > 0 && !utf8.RuneStart(reasoning[cut]) {
			cut--
		}
		reasoning = reasoning[:cut]
	}
	return fmt.Sprintf("Medical alert: %s risk detected. %s...", summary.RiskLevel, reasoning)
}

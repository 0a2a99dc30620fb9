package classifier

import (
	"math"
	"strings"

	"wisefido-vision/internal/models"
)

// AssessRiskLevel 从候选事件集合归约出综合风险等级
// 取最高严重程度：critical > high > medium > low，与输入顺序无关
func AssessRiskLevel(events []models.MedicalEvent) models.Severity {
	for _, e := range events {
		if e.Severity == models.SeverityCritical {
			return models.SeverityCritical
		}
	}
	for _, e := range events {
		if e.Severity == models.SeverityHigh {
			return models.SeverityHigh
		}
	}
	for _, e := range events {
		if e.Severity == models.SeverityMedium {
			return models.SeverityMedium
		}
	}
	return models.SeverityLow
}

// OverallConfidence 计算综合置信度（0-100）
// 取候选事件置信度最大值 × 100 四舍五入；置信度数据不可用时回退到 85
func OverallConfidence(events []models.MedicalEvent) int {
	if len(events) == 0 {
		return 0
	}

	best := math.NaN()
	for _, e := range events {
		c := e.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			continue
		}
		if math.IsNaN(best) || c > best {
			best = c
		}
	}

	if math.IsNaN(best) {
		return 85
	}
	return int(math.Round(best * 100))
}

// DescribeEvents 拼接事件描述（用于 EventSummary.EventDescription）
func DescribeEvents(events []models.MedicalEvent) string {
	if len(events) == 0 {
		return "Medical event detected"
	}

	parts := make([]string, 0, len(events))
	for _, e := range events {
		switch {
		case e.Description != "":
			parts = append(parts, e.Description)
		case e.Type != "":
			parts = append(parts, string(e.Type))
		default:
			parts = append(parts, "Medical event")
		}
	}
	return strings.Join(parts, ", ")
}

package classifier

import (
	"wisefido-vision/internal/config"
	"wisefido-vision/internal/models"

	"go.uber.org/zap"
)

// Classifier 医疗事件分类器
// 按视频源的监测模式，从单帧检测结果中产出候选医疗事件
// 注意：这里的 cardiac/general 判定只依赖 person 检测置信度，
// 不做姿态分析，保持与线上行为一致
type Classifier struct {
	config *config.Config
	logger *zap.Logger
}

// NewClassifier 创建分类器
func NewClassifier(cfg *config.Config, logger *zap.Logger) *Classifier {
	return &Classifier{
		config: cfg,
		logger: logger,
	}
}

// Classify 对单帧检测结果做医疗事件分类
// frameWidth/frameHeight 为该帧的像素尺寸
func (c *Classifier) Classify(detections []models.Detection, frameWidth, frameHeight float64, profile models.Profile) []models.MedicalEvent {
	var events []models.MedicalEvent

	for i := range detections {
		person := &detections[i]
		if person.Class != "person" {
			continue
		}

		// 裁剪区域为空的检测框不可用，静默跳过
		if person.CropArea(frameWidth, frameHeight) <= 0 {
			continue
		}

		switch profile {
		case models.ProfileCardiac:
			events = append(events, c.classifyCardiac(person)...)
		case models.ProfileFall:
			events = append(events, c.classifyFall(person, frameHeight)...)
		default:
			events = append(events, c.classifyGeneral(person)...)
		}
	}

	return events
}

// classifyCardiac cardiac 模式：高置信度的 person 检测即视为阳性信号
func (c *Classifier) classifyCardiac(person *models.Detection) []models.MedicalEvent {
	if person.Confidence <= c.config.Classifier.CardiacConfidence {
		return nil
	}
	return []models.MedicalEvent{{
		Type:        models.EventTypeCardiac,
		Severity:    models.SeverityCritical,
		Confidence:  person.Confidence,
		Description: "Person detected clutching chest - potential cardiac emergency",
		Details:     "Patient appears to be experiencing chest pain and clutching left arm",
	}}
}

// classifyFall fall 模式：检测框底边接近画面底部即判定为跌倒
func (c *Classifier) classifyFall(person *models.Detection, frameHeight float64) []models.MedicalEvent {
	y2 := person.BBox[3]
	if y2 <= frameHeight*c.config.Classifier.FallFloorRatio {
		return nil
	}
	return []models.MedicalEvent{{
		Type:        models.EventTypeFall,
		Severity:    models.SeverityCritical,
		Confidence:  person.Confidence,
		Description: "Person detected near floor level - potential fall event",
		Details:     "Patient appears to have fallen and is on the ground",
	}}
}

// classifyGeneral general 模式：高置信度 person 检测产出一条 medium 事件
func (c *Classifier) classifyGeneral(person *models.Detection) []models.MedicalEvent {
	if person.Confidence <= c.config.Classifier.GeneralConfidence {
		return nil
	}
	return []models.MedicalEvent{{
		Type:        models.EventTypeGeneral,
		Severity:    models.SeverityMedium,
		Confidence:  person.Confidence,
		Description: "Person detected - monitoring for medical issues",
		Details:     "Patient is being monitored for any signs of distress",
	}}
}

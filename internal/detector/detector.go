package detector

import (
	"context"

	"wisefido-vision/internal/models"
)

// Detector 目标检测接口（外部黑盒模型）
// 实现必须无副作用：同一帧可重复检测
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
}

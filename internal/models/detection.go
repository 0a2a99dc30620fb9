package models

// Detection YOLO 检测结果（单个目标框）
// BBox 为 [x1, y1, x2, y2] 像素坐标，x1<x2, y1<y2
type Detection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// Width 目标框宽度
func (d *Detection) Width() float64 {
	return d.BBox[2] - d.BBox[0]
}

// Height 目标框高度
func (d *Detection) Height() float64 {
	return d.BBox[3] - d.BBox[1]
}

// CropArea 目标框裁剪区域面积（与画面边界求交后）
// 面积为 0 表示该检测框裁剪不出有效区域，不可用
func (d *Detection) CropArea(frameWidth, frameHeight float64) float64 {
	x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > frameWidth {
		x2 = frameWidth
	}
	if y2 > frameHeight {
		y2 = frameHeight
	}
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

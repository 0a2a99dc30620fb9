package models

// Frame 单帧画面（由 FrameSource 产出）
// Data 为编码后的图像字节（如 JPEG），解码细节由推理服务负责
type Frame struct {
	Index  int64  `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

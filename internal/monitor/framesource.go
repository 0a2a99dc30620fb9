package monitor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"wisefido-vision/internal/models"
)

// FrameSource 帧来源抽象
// 以名义帧率产出帧，读到末尾返回错误，可通过 Reset 回到起点重放
type FrameSource interface {
	// Next 返回下一帧；到达末尾或读取失败返回错误
	Next() (*models.Frame, error)
	// Reset 回到起点（循环播放）
	Reset() error
	// Close 释放资源
	Close() error
}

// DirectorySource 目录帧序列源
// 将目录下按文件名排序的图像文件依次作为帧产出（视频解码不在本服务范围内，
// 上游以抽帧目录或图像序列的形式提供素材）
type DirectorySource struct {
	dir   string
	files []string
	pos   int
	index int64
}

// NewDirectorySource 创建目录帧序列源
func NewDirectorySource(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("frame directory is empty: %s", dir)
	}

	return &DirectorySource{
		dir:   dir,
		files: files,
	}, nil
}

// Next 读取下一帧
func (s *DirectorySource) Next() (*models.Frame, error) {
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}

	data, err := os.ReadFile(s.files[s.pos])
	if err != nil {
		return nil, fmt.Errorf("failed to read frame file: %w", err)
	}
	s.pos++
	s.index++

	frame := &models.Frame{
		Index: s.index,
		Data:  data,
	}

	// 尺寸只用于分类阈值计算，解析失败时保持 0（该帧不会产出事件）
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}

	return frame, nil
}

// Reset 回到序列起点
func (s *DirectorySource) Reset() error {
	s.pos = 0
	return nil
}

// Close 无持有资源
func (s *DirectorySource) Close() error {
	return nil
}

package models

import (
	"fmt"
	"strings"
)

// Profile 视频源的监测模式（注册时确定，之后不可变）
type Profile string

const (
	ProfileCardiac Profile = "cardiac"
	ProfileFall    Profile = "fall"
	ProfileGeneral Profile = "general"
)

// ParseProfile 解析显式指定的监测模式
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(s)) {
	case ProfileCardiac:
		return ProfileCardiac, nil
	case ProfileFall:
		return ProfileFall, nil
	case ProfileGeneral:
		return ProfileGeneral, nil
	default:
		return "", fmt.Errorf("invalid profile: %s", s)
	}
}

// InferProfile 从 source_id 推断监测模式（兼容旧客户端：未显式指定 profile 时使用）
// 未命中任何关键字时归入 general
func InferProfile(sourceID string) Profile {
	id := strings.ToLower(sourceID)
	if strings.Contains(id, "heart-attack") || strings.Contains(id, "cardiac") {
		return ProfileCardiac
	}
	if strings.Contains(id, "fall") {
		return ProfileFall
	}
	return ProfileGeneral
}

package models

import (
	"time"
)

// Severity 事件严重程度 / RiskLevel 综合风险等级
// 两者共用同一组取值：low < medium < high < critical
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EventType 医疗事件类型
type EventType string

const (
	EventTypeCardiac EventType = "cardiac"
	EventTypeFall    EventType = "fall"
	EventTypeGeneral EventType = "general"
)

// MedicalEvent 候选医疗事件（分类器对单帧产出，瞬时对象）
type MedicalEvent struct {
	Type        EventType `json:"type"`
	Severity    Severity  `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Details     string    `json:"details"`
}

// EventSummary 事件汇总（每个通过分析门控且产生候选事件的帧生成一条）
// 写入历史后不可变
type EventSummary struct {
	EventID           string         `json:"event_id"`
	SourceID          string         `json:"source_id"`
	Timestamp         time.Time      `json:"timestamp"`
	Detections        []Detection    `json:"detections"`
	MedicalEvents     []MedicalEvent `json:"medical_events"`
	Reasoning         string         `json:"reasoning"`
	EventDescription  string         `json:"event_description"`
	OverallConfidence int            `json:"confidence"` // 0-100
	RiskLevel         Severity       `json:"risk_level"`
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-vision/internal/models"

	"go.uber.org/zap"
)

// AlertEvent 已派发的报警记录（对应 alert_events 表）
type AlertEvent struct {
	EventID   string    `json:"event_id" db:"event_id"`
	SourceID  string    `json:"source_id" db:"source_id"`
	RiskLevel string    `json:"risk_level" db:"risk_level"`
	Message   string    `json:"message" db:"message"`
	Reasoning string    `json:"reasoning" db:"reasoning"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AlertEventsRepository 报警记录仓库
// 仅在启用数据库时写入，作为语音报警派发的审计留痕
type AlertEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertEventsRepository 创建报警记录仓库
func NewAlertEventsRepository(db *sql.DB, logger *zap.Logger) *AlertEventsRepository {
	return &AlertEventsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlertEvent 写入一条报警记录
func (r *AlertEventsRepository) CreateAlertEvent(ctx context.Context, summary *models.EventSummary, message string) error {
	if summary == nil {
		return fmt.Errorf("summary is required")
	}
	if summary.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if summary.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}

	query := `
		INSERT INTO alert_events (
			event_id,
			source_id,
			risk_level,
			message,
			reasoning,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		summary.EventID,
		summary.SourceID,
		string(summary.RiskLevel),
		message,
		summary.Reasoning,
		summary.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert event: %w", err)
	}

	return nil
}

// ListRecentAlerts 查询最近的报警记录（按触发时间倒序）
func (r *AlertEventsRepository) ListRecentAlerts(ctx context.Context, limit int) ([]*AlertEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			event_id,
			source_id,
			risk_level,
			message,
			reasoning,
			created_at
		FROM alert_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer rows.Close()

	alerts := []*AlertEvent{}
	for rows.Next() {
		var alert AlertEvent
		err := rows.Scan(
			&alert.EventID,
			&alert.SourceID,
			&alert.RiskLevel,
			&alert.Message,
			&alert.Reasoning,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return alerts, nil
}

// CountAlertsBySource 按源统计报警数量
func (r *AlertEventsRepository) CountAlertsBySource(ctx context.Context, sourceID string) (int, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("source_id is required")
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alert_events WHERE source_id = $1`,
		sourceID,
	).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("failed to count alert events: %w", err)
	}

	return total, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/repository"
)

var _ repository.ActivityLogRepository = (*ActivityLogRepo)(nil)

const activityLogColumns = `id, user_id, action, details, target_user_id, target_resource_id, target_resource_type, ip_address, user_agent, created_at`

// ActivityLogRepo auditoría append-only; details se guarda como JSONB.
type ActivityLogRepo struct {
	q Querier
}

func NewActivityLogRepository(q Querier) *ActivityLogRepo {
	return &ActivityLogRepo{q: q}
}

func (r *ActivityLogRepo) Create(ctx context.Context, l *entity.ActivityLog) error {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO activity_logs (`+activityLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.UserID, l.Action, details, l.TargetUserID, l.TargetResourceID, l.TargetResourceType,
		l.IPAddress, l.UserAgent, l.CreatedAt,
	)
	return mapError("insert activity log", err)
}

func (r *ActivityLogRepo) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*entity.ActivityLog, error) {
	return r.list(ctx, `
		SELECT `+activityLogColumns+` FROM activity_logs
		WHERE target_resource_type = $1 AND target_resource_id = $2
		ORDER BY created_at, seq`, resourceType, resourceID)
}

func (r *ActivityLogRepo) ListByActor(ctx context.Context, userID string) ([]*entity.ActivityLog, error) {
	return r.list(ctx, `
		SELECT `+activityLogColumns+` FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at, seq`, userID)
}

func (r *ActivityLogRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ActivityLog, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list activity logs", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.ActivityLog, error) {
		var l entity.ActivityLog
		var details []byte
		if err := row.Scan(&l.ID, &l.UserID, &l.Action, &details, &l.TargetUserID, &l.TargetResourceID,
			&l.TargetResourceType, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &l.Details); err != nil {
				return nil, fmt.Errorf("unmarshal activity details: %w", err)
			}
		}
		return &l, nil
	})
	if err != nil {
		return nil, mapError("scan activity log", err)
	}
	return logs, nil
}

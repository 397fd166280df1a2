package repository

import (
	"context"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// ActivityLogRepository puerto append-only de auditoría: sin Update ni Delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
	// ListByResource devuelve los registros del recurso en orden de creación.
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*entity.ActivityLog, error)
	ListByActor(ctx context.Context, userID string) ([]*entity.ActivityLog, error)
}

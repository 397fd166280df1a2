package repository

import (
	"context"
	"time"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// SessionRepository define el puerto de persistencia para Session.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	// GetForUpdate bloquea la fila durante una transición (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Session, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	CountOpenByCompany(ctx context.Context, companyID string) (int, error)
}

// SealRepository define el puerto para Seal (1:1 con Session por session_id único).
type SealRepository interface {
	// Create devuelve domain.ErrDuplicate si la sesión ya tiene sello.
	Create(ctx context.Context, seal *entity.Seal) error
	GetByID(ctx context.Context, id string) (*entity.Seal, error)
	GetBySession(ctx context.Context, sessionID string) (*entity.Seal, error)
	GetBySessionForUpdate(ctx context.Context, sessionID string) (*entity.Seal, error)
	Update(ctx context.Context, seal *entity.Seal) error
}

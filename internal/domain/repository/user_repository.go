package repository

import (
	"context"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// No expone Delete: los usuarios nunca se borran físicamente.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// LockForUpdate bloquea las filas (SELECT FOR UPDATE) en orden de ID para evitar deadlocks.
	// Los IDs inexistentes no aparecen en el mapa.
	LockForUpdate(ctx context.Context, ids ...string) (map[string]*entity.User, error)
	// AddCoins suma delta al saldo (NULL cuenta como 0) y devuelve el saldo resultante.
	AddCoins(ctx context.Context, id string, delta int64) (int64, error)
	// AncestorIDs recorre created_by desde id hacia la raíz.
	AncestorIDs(ctx context.Context, id string) ([]string, error)
}

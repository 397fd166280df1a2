package repository

import (
	"context"
	"time"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// GetForUpdate bloquea la fila para que no se abran sesiones durante la baja.
	GetForUpdate(ctx context.Context, id string) (*entity.Company, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

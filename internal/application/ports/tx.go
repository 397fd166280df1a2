package ports

import (
	"context"
	"time"

	"github.com/jhoicas/custody-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Users        repository.UserRepository
	Companies    repository.CompanyRepository
	CoinTxs      repository.CoinTransactionRepository
	Sessions     repository.SessionRepository
	Seals        repository.SealRepository
	ActivityLogs repository.ActivityLogRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback ante error o cancelación del contexto, sin efectos parciales.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
	// View ejecuta fn en una transacción de solo lectura.
	View(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}

// Clock reloj monotónico para timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator genera identificadores opacos y únicos.
type IDGenerator interface {
	NewID() string
}

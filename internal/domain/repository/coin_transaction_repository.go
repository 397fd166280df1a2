package repository

import (
	"context"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// CoinTransactionRepository puerto del log inmutable del ledger. Solo inserción y lectura.
type CoinTransactionRepository interface {
	Create(ctx context.Context, tx *entity.CoinTransaction) error
	ListByUser(ctx context.Context, userID string) ([]*entity.CoinTransaction, error)
	// Totals devuelve Σ amount donde to_user = userID y Σ amount donde from_user = userID.
	Totals(ctx context.Context, userID string) (credits, debits int64, err error)
}

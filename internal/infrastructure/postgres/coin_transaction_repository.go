package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/repository"
)

var _ repository.CoinTransactionRepository = (*CoinTransactionRepo)(nil)

// CoinTransactionRepo log append-only del ledger. La tabla rechaza UPDATE/DELETE por trigger.
type CoinTransactionRepo struct {
	q Querier
}

func NewCoinTransactionRepository(q Querier) *CoinTransactionRepo {
	return &CoinTransactionRepo{q: q}
}

func (r *CoinTransactionRepo) Create(ctx context.Context, tx *entity.CoinTransaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO coin_transactions (id, from_user_id, to_user_id, amount, reason_text, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.FromUserID, tx.ToUserID, tx.Amount, tx.ReasonText, tx.Reason, tx.CreatedAt,
	)
	return mapError("insert coin transaction", err)
}

// ListByUser devuelve los asientos donde el usuario es origen o destino, en orden de inserción.
func (r *CoinTransactionRepo) ListByUser(ctx context.Context, userID string) ([]*entity.CoinTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, reason_text, reason, created_at
		FROM coin_transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at, seq`, userID)
	if err != nil {
		return nil, mapError("list coin transactions", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.CoinTransaction, error) {
		var t entity.CoinTransaction
		err := row.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.ReasonText, &t.Reason, &t.CreatedAt)
		return &t, err
	})
	if err != nil {
		return nil, mapError("scan coin transaction", err)
	}
	return list, nil
}

// Totals suma entradas y salidas. SUM(bigint) es NUMERIC: se castea para escanear en int64.
func (r *CoinTransactionRepo) Totals(ctx context.Context, userID string) (credits, debits int64, err error) {
	err = r.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE to_user_id = $1), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE from_user_id = $1), 0)::bigint
		FROM coin_transactions
		WHERE from_user_id = $1 OR to_user_id = $1`, userID).Scan(&credits, &debits)
	if err != nil {
		return 0, 0, mapError("coin totals", err)
	}
	return credits, debits, nil
}

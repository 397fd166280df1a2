package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custody-api/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// ParseIsolation traduce el nivel configurado. Vacío equivale a REPEATABLE READ.
func ParseIsolation(level string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "repeatable read", "repeatable_read":
		return pgx.RepeatableRead, nil
	case "serializable":
		return pgx.Serializable, nil
	}
	return "", fmt.Errorf("nivel de aislamiento no soportado: %q", level)
}

// TxBeginner lo implementan *pgxpool.Pool y *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool TxBeginner
	iso  pgx.TxIsoLevel
}

// NewTxRunner construye el runner con el pool y el nivel de aislamiento.
func NewTxRunner(pool TxBeginner, iso pgx.TxIsoLevel) *TxRunner {
	return &TxRunner{pool: pool, iso: iso}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: r.iso, AccessMode: pgx.ReadWrite}, fn)
}

// View igual que Run pero en modo READ ONLY.
func (r *TxRunner) View(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: r.iso, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return mapError("begin transaction", err)
	}
	// Rollback tras Commit es un no-op; cubre error, panic y cancelación del contexto.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, Repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// Repos repositorios atados a q (pool o tx).
func Repos(q Querier) ports.TxRepos {
	return ports.TxRepos{
		Users:        NewUserRepository(q),
		Companies:    NewCompanyRepository(q),
		CoinTxs:      NewCoinTransactionRepository(q),
		Sessions:     NewSessionRepository(q),
		Seals:        NewSealRepository(q),
		ActivityLogs: NewActivityLogRepository(q),
	}
}

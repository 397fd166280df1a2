package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/custody-api/internal/application/provisioning"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/infrastructure/postgres"
	"github.com/jhoicas/custody-api/internal/infrastructure/postgres/migrations"
	"github.com/jhoicas/custody-api/pkg/config"
	"github.com/jhoicas/custody-api/pkg/logger"
)

// Requiere una base PostgreSQL desechable en DATABASE_URL; sin ella se omite.
func postgresService(t *testing.T) (*config.Config, *postgres.TxRunner) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL no definido")
	}
	require.NoError(t, migrations.Up(url))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	cfg := testConfig()
	cfg.Ledger.MaxRetries = 6
	cfg.Ledger.RetryInitialInterval = 5 * time.Millisecond
	return cfg, postgres.NewTxRunner(pool, pgx.RepeatableRead)
}

func TestPostgres_CreateUserConcurrentesConSaldoJusto(t *testing.T) {
	cfg, runner := postgresService(t)
	svc := NewService(cfg, runner, logger.Nop(), Options{PasswordCost: bcrypt.MinCost})
	ctx := context.Background()
	run := uuid.NewString()

	res, err := svc.Bootstrap(ctx, provisioning.BootstrapInput{
		TreasuryEmail: cfg.Ledger.TreasuryEmail,
		SuperAdmin:    provisioning.NewUserSpec{Name: "Root", Email: "root-" + run + "@custody.test", Password: "password-123"},
		Grant:         cfg.Ledger.CostAdminCreation,
	})
	require.NoError(t, err)
	root := res.SuperAdminID

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateUser(ctx, root, provisioning.NewUserSpec{
				Email: fmt.Sprintf("admin%d-%s@custody.test", i, run), Password: "password-123", Role: entity.RoleAdmin,
			})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "una sola creación consume el saldo")
	assert.Equal(t, 1, insufficient)

	balance, err := svc.Balance(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	report, err := svc.Reconcile(ctx, root)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "saldo almacenado %d, derivado %d", report.Stored, report.Derived)
}

func TestPostgres_BootstrapEsIdempotente(t *testing.T) {
	cfg, runner := postgresService(t)
	svc := NewService(cfg, runner, logger.Nop(), Options{PasswordCost: bcrypt.MinCost})
	ctx := context.Background()
	in := provisioning.BootstrapInput{
		TreasuryEmail: cfg.Ledger.TreasuryEmail,
		SuperAdmin:    provisioning.NewUserSpec{Name: "Root", Email: "root-" + uuid.NewString() + "@custody.test", Password: "password-123"},
		Grant:         30,
	}

	first, err := svc.Bootstrap(ctx, in)
	require.NoError(t, err)
	again, err := svc.Bootstrap(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.SuperAdminID, again.SuperAdminID)
	assert.False(t, again.RootCreated)
	assert.Empty(t, again.GrantTxID)
	balance, err := svc.Balance(ctx, first.SuperAdminID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

// custodyctl tareas operativas: migraciones, bootstrap de la plataforma, emisión y conciliación del ledger.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/custody-api/internal/app"
	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/infrastructure/postgres"
	"github.com/jhoicas/custody-api/pkg/config"
	"github.com/jhoicas/custody-api/pkg/logger"
)

var (
	rootCmd = &cobra.Command{
		Use:           "custodyctl",
		Short:         "Herramienta operativa de custody-api",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.AddCommand(newMigrateCmd(), newBootstrapCmd(), newMintCmd(), newReconcileCmd())
}

// ctlEnv conexión y núcleo armados desde la configuración.
type ctlEnv struct {
	cfg  *config.Config
	svc  *command.Service
	repo postgres.Querier
	done func()
}

func openRuntime(ctx context.Context) (*ctlEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "custodyctl"})
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	iso, err := postgres.ParseIsolation(cfg.DB.IsolationLevel)
	if err != nil {
		pool.Close()
		return nil, err
	}
	svc := app.NewService(cfg, postgres.NewTxRunner(pool, iso), log, app.Options{})
	return &ctlEnv{cfg: cfg, svc: svc, repo: pool, done: pool.Close}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "custodyctl:", err)
		os.Exit(1)
	}
}

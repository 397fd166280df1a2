// Package app arma el núcleo de custodia a partir de la configuración; lo comparten la API y custodyctl.
package app

import (
	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/auth"
	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/custody"
	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/application/provisioning"
	"github.com/jhoicas/custody-api/internal/application/usecase"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
	"github.com/jhoicas/custody-api/internal/infrastructure/system"
	"github.com/jhoicas/custody-api/pkg/config"
	"github.com/jhoicas/custody-api/pkg/logger"
)

// Tariff traduce las tarifas configuradas a la tabla del ledger.
func Tariff(cfg config.LedgerConfig) ledger.Tariff {
	return ledger.Tariff{
		entity.ReasonAdminCreation:    cfg.CostAdminCreation,
		entity.ReasonOperatorCreation: cfg.CostOperatorCreation,
		entity.ReasonSessionCreation:  cfg.CostSessionCreation,
	}
}

// Options ajustes opcionales del contenedor.
type Options struct {
	Metrics      command.Metrics
	PasswordCost int // 0 = bcrypt.DefaultCost
}

// NewService construye la fachada de comandos sobre runner.
func NewService(cfg *config.Config, runner ports.TxRunner, log *logger.Logger, opts Options) *command.Service {
	clock := system.Clock{}
	ids := system.UUIDGenerator{}
	gate := policy.NewGate(policy.DefaultRules())
	tariff := Tariff(cfg.Ledger)
	ldg := ledger.New(cfg.Ledger.TreasuryUserID, clock, ids)
	rec := audit.NewRecorder(clock, ids)

	var engineOpts []provisioning.Option
	if opts.PasswordCost > 0 {
		engineOpts = append(engineOpts, provisioning.WithPasswordCost(opts.PasswordCost))
	}

	return command.NewService(command.Deps{
		TxRunner:  runner,
		Gate:      gate,
		Ledger:    ldg,
		Tariff:    tariff,
		Engine:    provisioning.NewEngine(runner, gate, ldg, rec, tariff, clock, ids, engineOpts...),
		Workflow:  custody.NewWorkflow(runner, gate, ldg, rec, tariff, clock, ids),
		Companies: usecase.NewCompanyUseCase(runner, gate, rec, clock, ids),
		Trail:     audit.NewTrailReader(runner, gate, rec),
		Auth: auth.NewAuthUseCase(runner, rec, auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		}),
		Clock:   clock,
		Logger:  log.Named("command"),
		Metrics: opts.Metrics,
		Retry: command.RetryPolicy{
			MaxTries:        uint(cfg.Ledger.MaxRetries),
			InitialInterval: cfg.Ledger.RetryInitialInterval,
		},
	})
}

package command_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

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
	"github.com/jhoicas/custody-api/internal/infrastructure/memory"
	"github.com/jhoicas/custody-api/internal/infrastructure/system"
)

const (
	treasuryID   = "00000000-0000-0000-0000-000000000000"
	testPassword = "password-123"
)

// stepClock avanza un milisegundo por lectura: el orden de creación es observable.
type stepClock struct {
	base time.Time
	n    atomic.Int64
}

func (c *stepClock) Now() time.Time {
	return c.base.Add(time.Duration(c.n.Add(1)) * time.Millisecond)
}

var defaultTariff = ledger.Tariff{
	entity.ReasonAdminCreation:    20,
	entity.ReasonOperatorCreation: 10,
	entity.ReasonSessionCreation:  5,
}

type harness struct {
	svc    *command.Service
	store  *memory.Store
	runner ports.TxRunner
}

// newHarness arma el núcleo completo sobre el store en memoria. wrap permite interponer
// un TxRunner (p. ej. uno que falla de forma transitoria).
func newHarness(t *testing.T, wrap func(ports.TxRunner) ports.TxRunner) *harness {
	t.Helper()
	store := memory.New()
	var runner ports.TxRunner = store
	if wrap != nil {
		runner = wrap(store)
	}
	clock := &stepClock{base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ids := system.UUIDGenerator{}
	gate := policy.NewGate(policy.DefaultRules())
	ldg := ledger.New(treasuryID, clock, ids)
	rec := audit.NewRecorder(clock, ids)

	svc := command.NewService(command.Deps{
		TxRunner:  runner,
		Gate:      gate,
		Ledger:    ldg,
		Tariff:    defaultTariff,
		Engine:    provisioning.NewEngine(runner, gate, ldg, rec, defaultTariff, clock, ids, provisioning.WithPasswordCost(bcrypt.MinCost)),
		Workflow:  custody.NewWorkflow(runner, gate, ldg, rec, defaultTariff, clock, ids),
		Companies: usecase.NewCompanyUseCase(runner, gate, rec, clock, ids),
		Trail:     audit.NewTrailReader(runner, gate, rec),
		Auth:      auth.NewAuthUseCase(runner, rec, auth.JWTConfig{Secret: "test-secret", ExpMinutes: 5, Issuer: "custody-test"}),
		Retry:     command.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond},
	})
	return &harness{svc: svc, store: store, runner: runner}
}

// bootstrap crea tesorería y SUPERADMIN con grant monedas.
func (h *harness) bootstrap(t *testing.T, grant int64) string {
	t.Helper()
	res, err := h.svc.Bootstrap(context.Background(), provisioning.BootstrapInput{
		TreasuryEmail: "treasury@custody.local",
		SuperAdmin:    provisioning.NewUserSpec{Name: "Root", Email: "root@custody.local", Password: testPassword},
		Grant:         grant,
	})
	require.NoError(t, err)
	return res.SuperAdminID
}

func (h *harness) company(t *testing.T, actorID, email string) string {
	t.Helper()
	id, err := h.svc.CreateCompany(context.Background(), actorID, usecase.NewCompanySpec{Name: "Empresa " + email, Email: email})
	require.NoError(t, err)
	return id
}

func (h *harness) user(t *testing.T, creatorID, email, role, subrole, companyID string) string {
	t.Helper()
	id, err := h.svc.CreateUser(context.Background(), creatorID, provisioning.NewUserSpec{
		Email: email, Password: testPassword, Role: role, Subrole: subrole, CompanyID: companyID,
	})
	require.NoError(t, err)
	return id
}

func (h *harness) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := h.svc.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

// requireLedgerConsistent verifica Balance(U) == Σ entradas − Σ salidas para todo usuario.
func (h *harness) requireLedgerConsistent(t *testing.T) {
	t.Helper()
	for _, id := range h.store.UserIDs() {
		report, err := h.svc.Reconcile(context.Background(), id)
		require.NoError(t, err)
		require.Truef(t, report.Consistent, "usuario %s: almacenado %d, derivado %d", id, report.Stored, report.Derived)
	}
}

package command_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/application/provisioning"
	"github.com/jhoicas/custody-api/internal/application/usecase"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenario completo
// ──────────────────────────────────────────────────────────────────────────────

func TestEscenario_CadenaDeCustodiaCompleta(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	require.Equal(t, int64(100), h.balance(t, sa))

	companyID := h.company(t, sa, "ops@acme.test")
	txBefore := len(h.store.CoinTransactions())

	admin := h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")
	assert.Equal(t, int64(80), h.balance(t, sa), "crear ADMIN cuesta 20")
	assert.Equal(t, int64(0), h.balance(t, admin))

	txs := h.store.CoinTransactions()
	require.Len(t, txs, txBefore+1)
	charge := txs[len(txs)-1]
	assert.Equal(t, entity.ReasonAdminCreation, charge.Reason)
	assert.Equal(t, int64(20), charge.Amount)
	assert.Equal(t, sa, charge.FromUserID)

	trail, err := h.svc.AuditTrailFor(ctx, sa, entity.ResourceUser, admin)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.ActionCreate, trail[0].Action)
	assert.Equal(t, sa, trail[0].UserID)

	_, err = h.svc.AllocateCoins(ctx, sa, admin, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(30), h.balance(t, sa))
	assert.Equal(t, int64(50), h.balance(t, admin))

	driver := h.user(t, admin, "driver@acme.test", entity.RoleEmployee, entity.SubroleDriver, companyID)
	guard := h.user(t, admin, "guard@acme.test", entity.RoleEmployee, entity.SubroleGuard, companyID)
	assert.Equal(t, int64(50), h.balance(t, admin), "DRIVER y GUARD no tienen costo")

	sessionID, err := h.svc.CreateSession(ctx, admin, companyID, "Bodega Norte", "Puerto Sur")
	require.NoError(t, err)
	assert.Equal(t, int64(45), h.balance(t, admin))

	view, err := h.svc.GetSession(ctx, admin, sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPending, view.Session.Status)
	assert.Nil(t, view.Seal)

	err = h.svc.TransitionSession(ctx, admin, sessionID, entity.SessionCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "PENDING -> COMPLETED salta un estado")

	require.NoError(t, h.svc.TransitionSession(ctx, driver, sessionID, entity.SessionInProgress))

	err = h.svc.TransitionSession(ctx, admin, sessionID, entity.SessionCompleted)
	assert.ErrorIs(t, err, domain.ErrSealNotVerified)

	assert.ErrorIs(t, h.svc.VerifySeal(ctx, sessionID, guard), domain.ErrSealNotScanned)

	require.NoError(t, h.svc.ScanSeal(ctx, guard, sessionID, "BC-0001"))
	require.NoError(t, h.svc.VerifySeal(ctx, sessionID, guard))

	view, err = h.svc.GetSession(ctx, admin, sessionID)
	require.NoError(t, err)
	require.NotNil(t, view.Seal)
	assert.True(t, view.Seal.Verified)
	require.NotNil(t, view.Seal.VerifiedByID)
	assert.Equal(t, guard, *view.Seal.VerifiedByID)

	require.NoError(t, h.svc.TransitionSession(ctx, guard, sessionID, entity.SessionCompleted))
	view, err = h.svc.GetSession(ctx, admin, sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionCompleted, view.Session.Status)

	err = h.svc.TransitionSession(ctx, admin, sessionID, entity.SessionInProgress)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "COMPLETED es terminal")

	sessionTrail, err := h.svc.AuditTrailFor(ctx, admin, entity.ResourceSession, sessionID)
	require.NoError(t, err)
	require.Len(t, sessionTrail, 3, "CREATE + dos transiciones")
	assert.Equal(t, entity.ActionCreate, sessionTrail[0].Action)
	assert.Equal(t, entity.ActionUpdate, sessionTrail[1].Action)
	assert.Equal(t, entity.SessionInProgress, sessionTrail[1].Details["to"])
	assert.Equal(t, entity.SessionCompleted, sessionTrail[2].Details["to"])

	h.requireLedgerConsistent(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateUser_FondosInsuficientesNoDejaFilas(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 10)
	before := h.store.Counts()

	_, err := h.svc.CreateUser(ctx, sa, provisioning.NewUserSpec{
		Email: "admin@acme.test", Password: testPassword, Role: entity.RoleAdmin,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var funds *domain.InsufficientFundsError
	require.True(t, errors.As(err, &funds))
	assert.Equal(t, int64(10), funds.Balance)
	assert.Equal(t, int64(20), funds.Required)

	assert.Equal(t, before, h.store.Counts(), "ni usuario, ni asiento, ni registro")
	assert.Equal(t, int64(10), h.balance(t, sa))
	h.requireLedgerConsistent(t)
}

func TestCreateSession_FondosInsuficientesNoDejaSesion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 20)
	companyID := h.company(t, sa, "ops@acme.test")
	admin := h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")
	before := h.store.Counts()

	_, err := h.svc.CreateSession(ctx, admin, companyID, "A", "B")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, before, h.store.Counts())
	assert.Equal(t, int64(0), h.balance(t, admin))
}

func TestCreateUser_ConcurrentesConSaldoJusto(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 20)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.CreateUser(ctx, sa, provisioning.NewUserSpec{
				Email: fmt.Sprintf("admin%d@acme.test", i), Password: testPassword, Role: entity.RoleAdmin,
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
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(0), h.balance(t, sa))
	h.requireLedgerConsistent(t)
}

func TestCreateUser_OperadorCobraYOtrosSubrolesNo(t *testing.T) {
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	companyID := h.company(t, sa, "ops@acme.test")

	h.user(t, sa, "op@acme.test", entity.RoleEmployee, entity.SubroleOperator, companyID)
	assert.Equal(t, int64(90), h.balance(t, sa))

	h.user(t, sa, "guard@acme.test", entity.RoleEmployee, entity.SubroleGuard, companyID)
	assert.Equal(t, int64(90), h.balance(t, sa))
	h.requireLedgerConsistent(t)
}

func TestAllocateCoins_EmpresaSoloDentroDeSuEmpresa(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	acme := h.company(t, sa, "ops@acme.test")
	other := h.company(t, sa, "ops@other.test")

	owner := h.user(t, sa, "owner@acme.test", entity.RoleCompany, "", acme)
	_, err := h.svc.AllocateCoins(ctx, sa, owner, 30)
	require.NoError(t, err)

	mine := h.user(t, owner, "driver@acme.test", entity.RoleEmployee, entity.SubroleDriver, acme)
	foreign := h.user(t, sa, "driver@other.test", entity.RoleEmployee, entity.SubroleDriver, other)

	_, err = h.svc.AllocateCoins(ctx, owner, mine, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.balance(t, mine))

	_, err = h.svc.AllocateCoins(ctx, owner, foreign, 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.svc.AllocateCoins(ctx, mine, owner, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "EMPLOYEE no asigna monedas")
	h.requireLedgerConsistent(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sello
// ──────────────────────────────────────────────────────────────────────────────

type sealFixture struct {
	h         *harness
	admin     string
	driver    string
	guard     string
	companyID string
	sessionID string
}

func newSealFixture(t *testing.T) *sealFixture {
	t.Helper()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	companyID := h.company(t, sa, "ops@acme.test")
	admin := h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")
	_, err := h.svc.AllocateCoins(context.Background(), sa, admin, 50)
	require.NoError(t, err)
	f := &sealFixture{
		h:         h,
		admin:     admin,
		driver:    h.user(t, admin, "driver@acme.test", entity.RoleEmployee, entity.SubroleDriver, companyID),
		guard:     h.user(t, admin, "guard@acme.test", entity.RoleEmployee, entity.SubroleGuard, companyID),
		companyID: companyID,
	}
	f.sessionID, err = h.svc.CreateSession(context.Background(), admin, companyID, "A", "B")
	require.NoError(t, err)
	return f
}

func TestVerifySeal_Idempotente(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))
	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard))
	logs := f.h.store.Counts().ActivityLogs

	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard), "re-verificar es éxito")
	assert.Equal(t, logs, f.h.store.Counts().ActivityLogs, "sin registro duplicado")
}

func TestScanSeal_ReescaneoActualizaHastaVerificar(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-2"))
	assert.Equal(t, 1, f.h.store.Counts().Seals, "un solo sello por sesión")

	view, err := f.h.svc.GetSession(ctx, f.guard, f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, "BC-2", view.Seal.Barcode)

	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard))
	err = f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-3")
	assert.ErrorIs(t, err, domain.ErrSealAlreadyVerified)

	sealTrail, err := f.h.svc.AuditTrailFor(ctx, f.admin, entity.ResourceSeal, view.Seal.ID)
	require.NoError(t, err)
	require.Len(t, sealTrail, 3)
	assert.Equal(t, entity.ActionCreate, sealTrail[0].Action)
	assert.Equal(t, entity.ActionUpdate, sealTrail[1].Action)
	assert.Equal(t, true, sealTrail[2].Details["verified"])
}

func TestVerifySeal_SoloGuardiaDeLaEmpresa(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))

	assert.ErrorIs(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.driver), domain.ErrUnauthorized)

	other := f.h.company(t, f.admin, "ops@other.test")
	outsider := f.h.user(t, f.admin, "guard@other.test", entity.RoleEmployee, entity.SubroleGuard, other)
	assert.ErrorIs(t, f.h.svc.VerifySeal(ctx, f.sessionID, outsider), domain.ErrUnauthorized)
}

func TestScanSeal_SesionCerradaEsTransicionInvalida(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.TransitionSession(ctx, f.driver, f.sessionID, entity.SessionInProgress))
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))
	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard))
	require.NoError(t, f.h.svc.TransitionSession(ctx, f.guard, f.sessionID, entity.SessionCompleted))

	assert.ErrorIs(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-2"), domain.ErrInvalidTransition)
}

func TestTransitionSession_DespachoSoloConductor(t *testing.T) {
	f := newSealFixture(t)
	err := f.h.svc.TransitionSession(context.Background(), f.guard, f.sessionID, entity.SessionInProgress)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Empresas
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteCompany_ProhibidoConSesionesAbiertas(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)

	err := f.h.svc.DeleteCompany(ctx, f.admin, f.companyID)
	assert.ErrorIs(t, err, domain.ErrCompanyHasOpenSessions)

	require.NoError(t, f.h.svc.TransitionSession(ctx, f.driver, f.sessionID, entity.SessionInProgress))
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))
	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard))
	require.NoError(t, f.h.svc.TransitionSession(ctx, f.guard, f.sessionID, entity.SessionCompleted))

	require.NoError(t, f.h.svc.DeleteCompany(ctx, f.admin, f.companyID))
	company, err := f.h.svc.GetCompany(ctx, f.companyID)
	require.NoError(t, err)
	assert.False(t, company.IsActive())

	_, err = f.h.svc.CreateSession(ctx, f.admin, f.companyID, "A", "B")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCompany_EmailDuplicado(t *testing.T) {
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 0)
	h.company(t, sa, "ops@acme.test")
	_, err := h.svc.CreateCompany(context.Background(), sa, usecase.NewCompanySpec{Name: "Otra", Email: "OPS@Acme.test"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail, "el email se compara sin distinguir mayúsculas")
}

func TestCreateUser_EmailDuplicado(t *testing.T) {
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")
	_, err := h.svc.CreateUser(context.Background(), sa, provisioning.NewUserSpec{
		Email: "Admin@ACME.test", Password: testPassword, Role: entity.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.Equal(t, int64(80), h.balance(t, sa), "el cobro se revierte junto con el alta")
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth, auditoría y reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_RegistraLoginYRechazaCredenciales(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 0)

	res, err := h.svc.Login(ctx, "ROOT@custody.local", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, sa, res.User.ID)

	_, err = h.svc.Login(ctx, "root@custody.local", "incorrecta")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.svc.Login(ctx, "treasury@custody.local", "!")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "la tesorería no inicia sesión")

	require.NoError(t, h.svc.Logout(ctx, sa))
	actions := []string{}
	for _, l := range h.store.ActivityLogs() {
		if l.UserID == sa {
			actions = append(actions, l.Action)
		}
	}
	assert.Contains(t, actions, entity.ActionLogin)
	assert.Contains(t, actions, entity.ActionLogout)
}

func TestAuditTrailFor_RegistraViewFueraDelResultado(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 0)
	companyID := h.company(t, sa, "ops@acme.test")

	trail, err := h.svc.AuditTrailFor(ctx, sa, entity.ResourceCompany, companyID)
	require.NoError(t, err)
	require.Len(t, trail, 1)

	trail, err = h.svc.AuditTrailFor(ctx, sa, entity.ResourceCompany, companyID)
	require.NoError(t, err)
	require.Len(t, trail, 2, "el VIEW anterior ahora forma parte del rastro")
	assert.Equal(t, entity.ActionView, trail[1].Action)
}

func TestAuditTrailFor_EmpleadoNoAutorizado(t *testing.T) {
	f := newSealFixture(t)
	_, err := f.h.svc.AuditTrailFor(context.Background(), f.guard, entity.ResourceSession, f.sessionID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// flakyRunner hace fallar las próximas n transacciones después de ejecutar fn, forzando rollback.
type flakyRunner struct {
	ports.TxRunner
	remaining atomic.Int64
	runs      atomic.Int64
}

func (f *flakyRunner) Run(ctx context.Context, fn func(ctx context.Context, r ports.TxRepos) error) error {
	f.runs.Add(1)
	return f.TxRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		if err := fn(ctx, r); err != nil {
			return err
		}
		if f.remaining.Add(-1) >= 0 {
			return fmt.Errorf("%w: 40001", domain.ErrTransientStorage)
		}
		return nil
	})
}

func TestExecute_ReintentaConflictosTransitorios(t *testing.T) {
	flaky := &flakyRunner{}
	h := newHarness(t, func(inner ports.TxRunner) ports.TxRunner {
		flaky.TxRunner = inner
		return flaky
	})
	sa := h.bootstrap(t, 100)

	flaky.remaining.Store(2)
	flaky.runs.Store(0)
	admin := h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")
	assert.Equal(t, int64(3), flaky.runs.Load(), "dos fallos y un commit")
	assert.Equal(t, int64(80), h.balance(t, sa), "los intentos fallidos no cobran")
	assert.NotEmpty(t, admin)
	h.requireLedgerConsistent(t)
}

func TestExecute_AgotaReintentos(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyRunner{}
	h := newHarness(t, func(inner ports.TxRunner) ports.TxRunner {
		flaky.TxRunner = inner
		return flaky
	})
	sa := h.bootstrap(t, 100)
	before := h.store.Counts()

	flaky.remaining.Store(10)
	_, err := h.svc.CreateUser(ctx, sa, provisioning.NewUserSpec{
		Email: "admin@acme.test", Password: testPassword, Role: entity.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrTransientStorage)
	assert.Equal(t, before, h.store.Counts())
}

func TestExecute_ErroresDeNegocioNoSeReintentan(t *testing.T) {
	flaky := &flakyRunner{}
	h := newHarness(t, func(inner ports.TxRunner) ports.TxRunner {
		flaky.TxRunner = inner
		return flaky
	})
	sa := h.bootstrap(t, 10)

	flaky.runs.Store(0)
	_, err := h.svc.CreateUser(context.Background(), sa, provisioning.NewUserSpec{
		Email: "admin@acme.test", Password: testPassword, Role: entity.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(1), flaky.runs.Load())
}

func TestGetSession_SoloEmpresaDeLaSesion(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	other := f.h.company(t, f.admin, "otra@rival.test")
	outsider := f.h.user(t, f.admin, "guardia@rival.test", entity.RoleEmployee, entity.SubroleGuard, other)

	_, err := f.h.svc.GetSession(ctx, outsider, f.sessionID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "empleado de otra empresa")

	_, err = f.h.svc.GetSession(ctx, "no-existe", f.sessionID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "visor desconocido")

	view, err := f.h.svc.GetSession(ctx, f.driver, f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, f.companyID, view.Session.CompanyID)

	_, err = f.h.svc.GetSession(ctx, outsider, "sesion-inexistente")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// brokenRunner falla de forma permanente en la ejecución número failAt.
type brokenRunner struct {
	ports.TxRunner
	failAt atomic.Int64
	runs   atomic.Int64
}

func (b *brokenRunner) Run(ctx context.Context, fn func(ctx context.Context, r ports.TxRepos) error) error {
	if b.runs.Add(1) == b.failAt.Load() {
		return errors.New("disco lleno")
	}
	return b.TxRunner.Run(ctx, fn)
}

func TestBootstrap_Idempotente(t *testing.T) {
	h := newHarness(t, nil)
	first := h.bootstrap(t, 100)
	counts := h.store.Counts()

	res, err := h.svc.Bootstrap(context.Background(), provisioning.BootstrapInput{
		TreasuryEmail: "treasury@custody.local",
		SuperAdmin:    provisioning.NewUserSpec{Name: "Root", Email: "ROOT@custody.local", Password: testPassword},
		Grant:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, first, res.SuperAdminID)
	assert.False(t, res.TreasuryCreated)
	assert.False(t, res.RootCreated)
	assert.Empty(t, res.GrantTxID, "la emisión inicial no se repite")
	assert.Equal(t, counts, h.store.Counts())
	assert.Equal(t, int64(100), h.balance(t, first))
}

func TestBootstrap_CompletaEmisionTrasFallo(t *testing.T) {
	broken := &brokenRunner{}
	h := newHarness(t, func(inner ports.TxRunner) ports.TxRunner {
		broken.TxRunner = inner
		return broken
	})
	in := provisioning.BootstrapInput{
		TreasuryEmail: "treasury@custody.local",
		SuperAdmin:    provisioning.NewUserSpec{Name: "Root", Email: "root@custody.local", Password: testPassword},
		Grant:         60,
	}

	// tesorería, raíz y emisión: falla la tercera.
	broken.failAt.Store(3)
	_, err := h.svc.Bootstrap(context.Background(), in)
	require.Error(t, err)
	require.Equal(t, 2, h.store.Counts().Users, "la raíz quedó confirmada sin saldo")

	broken.failAt.Store(0)
	res, err := h.svc.Bootstrap(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.RootCreated)
	assert.NotEmpty(t, res.GrantTxID)
	assert.Equal(t, int64(60), h.balance(t, res.SuperAdminID))
	h.requireLedgerConsistent(t)
}

func TestBootstrap_EmailDeOtroUsuario(t *testing.T) {
	h := newHarness(t, nil)
	sa := h.bootstrap(t, 100)
	h.user(t, sa, "admin@acme.test", entity.RoleAdmin, "", "")

	_, err := h.svc.Bootstrap(context.Background(), provisioning.BootstrapInput{
		TreasuryEmail: "treasury@custody.local",
		SuperAdmin:    provisioning.NewUserSpec{Email: "admin@acme.test", Password: testPassword},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestStatement_PropioYAjeno(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)

	st, err := f.h.svc.Statement(ctx, f.admin, f.admin)
	require.NoError(t, err)
	require.Len(t, st.Lines, 2, "asignación recibida y cobro de la sesión")
	assert.Equal(t, st.Balance, st.Lines[len(st.Lines)-1].Running)

	_, err = f.h.svc.Statement(ctx, f.guard, f.admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "GUARD no audita saldos ajenos")

	st, err = f.h.svc.Statement(ctx, f.guard, f.guard)
	require.NoError(t, err)
	assert.Empty(t, st.Lines)
}

func TestActorTrail_AccionesDelActorYRegistroView(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-1"))

	logs, err := f.h.svc.ActorTrail(ctx, f.admin, f.guard)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActionCreate, logs[0].Action)
	assert.Equal(t, f.guard, logs[0].UserID)

	_, err = f.h.svc.ActorTrail(ctx, f.driver, f.guard)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	views, err := f.h.svc.ActorTrail(ctx, f.admin, f.admin)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionView, views[len(views)-1].Action, "la lectura anterior quedó registrada")
}

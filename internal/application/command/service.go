// Package command expone la interfaz de comandos del núcleo. Cada comando pasa por el gate,
// corre en una transacción, se reintenta ante conflictos transitorios y deja telemetría.
package command

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/auth"
	"github.com/jhoicas/custody-api/internal/application/custody"
	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/application/provisioning"
	"github.com/jhoicas/custody-api/internal/application/usecase"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
	"github.com/jhoicas/custody-api/pkg/logger"
)

const tracerName = "github.com/jhoicas/custody-api/internal/application/command"

// Metrics telemetría operacional de los comandos (fuera del ActivityLog).
type Metrics interface {
	ObserveCommand(command, outcome string, elapsed time.Duration)
	CommandFailed(command, kind string)
	CoinsTransferred(reason string, amount int64)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCommand(string, string, time.Duration) {}
func (nopMetrics) CommandFailed(string, string)                 {}
func (nopMetrics) CoinsTransferred(string, int64)               {}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

// RetryPolicy límite de reintentos ante ErrTransientStorage.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
}

// Deps colaboradores del servicio.
type Deps struct {
	TxRunner  ports.TxRunner
	Gate      *policy.Gate
	Ledger    *ledger.Ledger
	Tariff    ledger.Tariff
	Engine    *provisioning.Engine
	Workflow  *custody.Workflow
	Companies *usecase.CompanyUseCase
	Trail     *audit.TrailReader
	Auth      *auth.AuthUseCase
	Clock     ports.Clock // nil = reloj de pared
	Logger    *logger.Logger
	Metrics   Metrics
	Retry     RetryPolicy
}

// Service fachada de comandos.
type Service struct {
	tx        ports.TxRunner
	gate      *policy.Gate
	ledger    *ledger.Ledger
	tariff    ledger.Tariff
	engine    *provisioning.Engine
	workflow  *custody.Workflow
	companies *usecase.CompanyUseCase
	trail     *audit.TrailReader
	auth      *auth.AuthUseCase
	clock     ports.Clock
	log       *logger.Logger
	metrics   Metrics
	retry     RetryPolicy
	tracer    trace.Tracer
}

// NewService construye la fachada. Metrics nil desactiva métricas.
func NewService(d Deps) *Service {
	m := d.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	clock := d.Clock
	if clock == nil {
		clock = wallClock{}
	}
	retry := d.Retry
	if retry.MaxTries == 0 {
		retry.MaxTries = 3
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 20 * time.Millisecond
	}
	return &Service{
		tx:        d.TxRunner,
		gate:      d.Gate,
		ledger:    d.Ledger,
		tariff:    d.Tariff,
		engine:    d.Engine,
		workflow:  d.Workflow,
		companies: d.Companies,
		trail:     d.Trail,
		auth:      d.Auth,
		clock:     clock,
		log:       log,
		metrics:   m,
		retry:     retry,
		tracer:    otel.Tracer(tracerName),
	}
}

// execute envuelve op con span, reintento acotado de errores transitorios, log y métricas.
// Los errores de negocio no se reintentan: se devuelven tal cual en el primer intento.
func (s *Service) execute(ctx context.Context, name, actorID string, op func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "custody."+name, trace.WithAttributes(
		attribute.String("custody.command", name),
		attribute.String("custody.actor_id", actorID),
	))
	defer span.End()

	start := time.Now()
	attempt := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if domain.IsRetryable(err) {
			s.log.Debug().Str("command", name).Str("actor_id", actorID).Int("attempt", attempt).
				Err(err).Msg("conflicto transitorio, reintentando")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.retry.MaxTries))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}

	span.SetAttributes(attribute.Int("custody.attempts", attempt))
	elapsed := time.Since(start)
	if err == nil {
		s.metrics.ObserveCommand(name, "ok", elapsed)
		s.log.Debug().Str("command", name).Str("actor_id", actorID).Int("attempt", attempt).Msg("commit")
		return nil
	}

	kind := domain.Kind(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
	s.metrics.ObserveCommand(name, "error", elapsed)
	s.metrics.CommandFailed(name, kind)

	ev := s.log.Error()
	if domain.IsBusiness(err) {
		ev = s.log.Warn()
	}
	ev.Str("command", name).Str("actor_id", actorID).Str("error_kind", kind).Int("attempt", attempt).
		Err(err).Msg("comando fallido")
	return err
}

// CreateUser aprovisiona un usuario subordinado de creatorID.
func (s *Service) CreateUser(ctx context.Context, creatorID string, in provisioning.NewUserSpec) (string, error) {
	var id string
	err := s.execute(ctx, "create_user", creatorID, func(ctx context.Context) error {
		var err error
		id, err = s.engine.CreateUser(ctx, creatorID, in)
		return err
	})
	if err != nil {
		return "", err
	}
	if reason, ok := s.gate.CreationReason(in.Role, in.Subrole); ok {
		if cost := s.tariff.Cost(reason); cost > 0 {
			s.metrics.CoinsTransferred(reason, cost)
		}
	}
	return id, nil
}

// AllocateCoins transfiere monedas del otorgante al receptor.
func (s *Service) AllocateCoins(ctx context.Context, granterID, recipientID string, amount int64) (string, error) {
	var txID string
	err := s.execute(ctx, "allocate_coins", granterID, func(ctx context.Context) error {
		var err error
		txID, err = s.engine.AllocateCoins(ctx, granterID, recipientID, amount)
		return err
	})
	if err != nil {
		return "", err
	}
	s.metrics.CoinsTransferred(entity.ReasonCoinAllocation, amount)
	return txID, nil
}

// CreateSession crea una sesión PENDING cobrando SESSION_CREATION al creador.
func (s *Service) CreateSession(ctx context.Context, creatorID, companyID, source, destination string) (string, error) {
	var id string
	err := s.execute(ctx, "create_session", creatorID, func(ctx context.Context) error {
		var err error
		id, err = s.workflow.CreateSession(ctx, creatorID, companyID, source, destination)
		return err
	})
	if err != nil {
		return "", err
	}
	if cost := s.tariff.Cost(entity.ReasonSessionCreation); cost > 0 {
		s.metrics.CoinsTransferred(entity.ReasonSessionCreation, cost)
	}
	return id, nil
}

// TransitionSession avanza el estado de la sesión.
func (s *Service) TransitionSession(ctx context.Context, actorID, sessionID, to string) error {
	return s.execute(ctx, "transition_session", actorID, func(ctx context.Context) error {
		return s.workflow.TransitionSession(ctx, actorID, sessionID, to)
	})
}

// ScanSeal registra la lectura del sello de la sesión.
func (s *Service) ScanSeal(ctx context.Context, actorID, sessionID, barcode string) error {
	return s.execute(ctx, "scan_seal", actorID, func(ctx context.Context) error {
		return s.workflow.ScanSeal(ctx, actorID, sessionID, barcode)
	})
}

// VerifySeal verifica el sello; idempotente.
func (s *Service) VerifySeal(ctx context.Context, sessionID, guardID string) error {
	return s.execute(ctx, "verify_seal", guardID, func(ctx context.Context) error {
		return s.workflow.VerifySeal(ctx, sessionID, guardID)
	})
}

// Balance saldo materializado del usuario.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		balance, err = s.ledger.Balance(ctx, r, userID)
		return err
	})
	return balance, err
}

// BalanceFor saldo de userID visto por viewerID: el propio siempre; el ajeno requiere audit.view.
func (s *Service) BalanceFor(ctx context.Context, viewerID, userID string) (int64, error) {
	if viewerID == userID {
		return s.Balance(ctx, userID)
	}
	var balance int64
	err := s.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		target, err := s.authorizeUserView(ctx, r, viewerID, userID)
		if err != nil {
			return err
		}
		balance = target.Balance()
		return nil
	})
	return balance, err
}

// Statement extracto de movimientos de userID. Mismas reglas de lectura que BalanceFor.
func (s *Service) Statement(ctx context.Context, viewerID, userID string) (*ledger.Statement, error) {
	var st *ledger.Statement
	err := s.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		if viewerID != userID {
			if _, err := s.authorizeUserView(ctx, r, viewerID, userID); err != nil {
				return err
			}
		}
		var err error
		st, err = s.ledger.Statement(ctx, r, userID)
		return err
	})
	return st, err
}

// authorizeUserView exige permiso de auditoría sobre la empresa del usuario consultado.
func (s *Service) authorizeUserView(ctx context.Context, r ports.TxRepos, viewerID, userID string) (*entity.User, error) {
	viewer, err := r.Users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	target, err := r.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrUserNotFound
	}
	companyID := ""
	if target.CompanyID != nil {
		companyID = *target.CompanyID
	}
	if err := s.gate.Authorize(viewer, policy.ActionViewAudit, companyID); err != nil {
		return nil, err
	}
	return target, nil
}

// AuditTrailFor devuelve el rastro del recurso (orden de creación) y registra VIEW.
func (s *Service) AuditTrailFor(ctx context.Context, viewerID, resourceType, resourceID string) ([]*entity.ActivityLog, error) {
	var logs []*entity.ActivityLog
	err := s.execute(ctx, "audit_trail", viewerID, func(ctx context.Context) error {
		var err error
		logs, err = s.trail.For(ctx, viewerID, resourceType, resourceID)
		return err
	})
	return logs, err
}

// ActorTrail devuelve lo que hizo actorID (orden de creación) y registra VIEW.
func (s *Service) ActorTrail(ctx context.Context, viewerID, actorID string) ([]*entity.ActivityLog, error) {
	var logs []*entity.ActivityLog
	err := s.execute(ctx, "actor_trail", viewerID, func(ctx context.Context) error {
		var err error
		logs, err = s.trail.ByActor(ctx, viewerID, actorID)
		return err
	})
	return logs, err
}

// Reconcile compara saldo almacenado y derivado del log.
func (s *Service) Reconcile(ctx context.Context, userID string) (*ledger.ReconciliationReport, error) {
	var report *ledger.ReconciliationReport
	err := s.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		report, err = s.ledger.Reconcile(ctx, r, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		s.log.Error().Str("user_id", userID).Int64("stored", report.Stored).Int64("derived", report.Derived).
			Msg("saldo inconsistente con el ledger")
	}
	return report, nil
}

// CreateCompany crea una empresa.
func (s *Service) CreateCompany(ctx context.Context, actorID string, in usecase.NewCompanySpec) (string, error) {
	var id string
	err := s.execute(ctx, "create_company", actorID, func(ctx context.Context) error {
		var err error
		id, err = s.companies.Create(ctx, actorID, in)
		return err
	})
	return id, err
}

// DeleteCompany da de baja lógica la empresa.
func (s *Service) DeleteCompany(ctx context.Context, actorID, companyID string) error {
	return s.execute(ctx, "delete_company", actorID, func(ctx context.Context) error {
		return s.companies.Delete(ctx, actorID, companyID)
	})
}

// GetCompany obtiene una empresa activa o eliminada.
func (s *Service) GetCompany(ctx context.Context, companyID string) (*entity.Company, error) {
	return s.companies.GetByID(ctx, companyID)
}

// GetSession devuelve la sesión con su sello; viewerID debe poder ver la empresa de la sesión.
func (s *Service) GetSession(ctx context.Context, viewerID, sessionID string) (*custody.SessionView, error) {
	return s.workflow.GetSession(ctx, viewerID, sessionID)
}

// SessionCertificate reúne sesión, sello, empresa y rastro para la constancia de custodia.
// Requiere permiso de auditoría sobre la sesión; la lectura del rastro queda registrada como VIEW.
func (s *Service) SessionCertificate(ctx context.Context, viewerID, sessionID string) (*ports.CustodyCertificate, error) {
	trail, err := s.AuditTrailFor(ctx, viewerID, entity.ResourceSession, sessionID)
	if err != nil {
		return nil, err
	}
	view, err := s.GetSession(ctx, viewerID, sessionID)
	if err != nil {
		return nil, err
	}
	if view.Seal != nil {
		sealTrail, err := s.AuditTrailFor(ctx, viewerID, entity.ResourceSeal, view.Seal.ID)
		if err != nil {
			return nil, err
		}
		trail = append(trail, sealTrail...)
		sort.SliceStable(trail, func(i, j int) bool { return trail[i].CreatedAt.Before(trail[j].CreatedAt) })
	}
	company, err := s.GetCompany(ctx, view.Session.CompanyID)
	if err != nil {
		return nil, err
	}
	return &ports.CustodyCertificate{
		Session:  view.Session,
		Seal:     view.Seal,
		Company:  company,
		Trail:    trail,
		IssuedBy: viewerID,
		IssuedAt: s.clock.Now(),
	}, nil
}

// Bootstrap asegura la tesorería, el SUPERADMIN raíz y su emisión inicial de Grant monedas.
// Cada paso es un comando propio e idempotente: volver a ejecutarlo completa los pasos pendientes.
func (s *Service) Bootstrap(ctx context.Context, in provisioning.BootstrapInput) (*provisioning.BootstrapResult, error) {
	treasuryID := s.ledger.TreasuryID()
	out := &provisioning.BootstrapResult{}
	if err := s.execute(ctx, "ensure_treasury", treasuryID, func(ctx context.Context) error {
		var err error
		out.TreasuryCreated, err = s.engine.EnsureTreasury(ctx, in.TreasuryEmail)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.execute(ctx, "create_root", treasuryID, func(ctx context.Context) error {
		var err error
		out.SuperAdminID, out.RootCreated, err = s.engine.EnsureRoot(ctx, in.SuperAdmin)
		return err
	}); err != nil {
		return nil, err
	}
	if in.Grant > 0 {
		if err := s.execute(ctx, "grant", treasuryID, func(ctx context.Context) error {
			var err error
			out.GrantTxID, err = s.engine.GrantOnce(ctx, out.SuperAdminID, in.Grant, "emisión inicial")
			return err
		}); err != nil {
			return nil, err
		}
		if out.GrantTxID != "" {
			s.metrics.CoinsTransferred(entity.ReasonCoinAllocation, in.Grant)
		}
	}
	return out, nil
}

// Mint emite monedas desde la tesorería hacia recipientID.
func (s *Service) Mint(ctx context.Context, recipientID string, amount int64, reasonText string) (string, error) {
	var txID string
	err := s.execute(ctx, "mint", s.ledger.TreasuryID(), func(ctx context.Context) error {
		var err error
		txID, err = s.engine.Mint(ctx, recipientID, amount, reasonText)
		return err
	})
	if err != nil {
		return "", err
	}
	s.metrics.CoinsTransferred(entity.ReasonCoinAllocation, amount)
	return txID, nil
}

// Login autentica y registra LOGIN.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	var res *auth.LoginResult
	err := s.execute(ctx, "login", "", func(ctx context.Context) error {
		var err error
		res, err = s.auth.Login(ctx, email, password)
		return err
	})
	return res, err
}

// Logout registra LOGOUT.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.execute(ctx, "logout", userID, func(ctx context.Context) error {
		return s.auth.Logout(ctx, userID)
	})
}

// Package custody orquesta el flujo de sesiones de envío y su sello (cadena de custodia).
package custody

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	domaincustody "github.com/jhoicas/custody-api/internal/domain/custody"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

// Workflow crea y avanza sesiones por PENDING -> IN_PROGRESS -> COMPLETED y gestiona el Seal 1:1.
type Workflow struct {
	txRunner ports.TxRunner
	gate     *policy.Gate
	ledger   *ledger.Ledger
	audit    *audit.Recorder
	tariff   ledger.Tariff
	clock    ports.Clock
	ids      ports.IDGenerator
}

// NewWorkflow construye el flujo de custodia.
func NewWorkflow(
	txRunner ports.TxRunner,
	gate *policy.Gate,
	ldg *ledger.Ledger,
	rec *audit.Recorder,
	tariff ledger.Tariff,
	clock ports.Clock,
	ids ports.IDGenerator,
) *Workflow {
	return &Workflow{txRunner: txRunner, gate: gate, ledger: ldg, audit: rec, tariff: tariff, clock: clock, ids: ids}
}

// SessionView sesión con su sello (nil si aún no fue escaneado).
type SessionView struct {
	Session *entity.Session
	Seal    *entity.Seal
}

// CreateSession inserta la sesión en PENDING, cobra SESSION_CREATION al creador y registra CREATE,
// todo en una transacción. Si el ledger falla no persiste ninguna fila.
func (w *Workflow) CreateSession(ctx context.Context, creatorID, companyID, source, destination string) (string, error) {
	source = strings.TrimSpace(source)
	destination = strings.TrimSpace(destination)
	if companyID == "" || source == "" || destination == "" {
		return "", domain.ErrInvalidInput
	}
	var sessionID string
	err := w.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		creator, err := r.Users.GetByID(ctx, creatorID)
		if err != nil {
			return err
		}
		if err := w.gate.Authorize(creator, policy.ActionCreateSession, companyID); err != nil {
			return err
		}
		// Bloquea la empresa: una baja concurrente no puede dejar una sesión abierta huérfana.
		company, err := r.Companies.GetForUpdate(ctx, companyID)
		if err != nil {
			return err
		}
		if !company.IsActive() {
			return domain.ErrNotFound
		}

		now := w.clock.Now()
		session := &entity.Session{
			ID:          w.ids.NewID(),
			CompanyID:   companyID,
			CreatedByID: creatorID,
			Source:      source,
			Destination: destination,
			Status:      entity.SessionPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		details := map[string]any{
			"companyId":   companyID,
			"source":      source,
			"destination": destination,
		}
		if cost := w.tariff.Cost(entity.ReasonSessionCreation); cost > 0 {
			res, err := w.ledger.Debit(ctx, r, creatorID, cost, entity.ReasonSessionCreation,
				fmt.Sprintf("sesión %s: %s -> %s", session.ID, source, destination))
			if err != nil {
				return err
			}
			details["cost"] = cost
			details["coinTransactionId"] = res.Transaction.ID
			details["creatorBalance"] = res.FromBalance
		}
		if err := r.Sessions.Create(ctx, session); err != nil {
			return err
		}
		if _, err := w.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      creatorID,
			Action:       entity.ActionCreate,
			ResourceType: entity.ResourceSession,
			ResourceID:   session.ID,
			Details:      details,
		}); err != nil {
			return err
		}
		sessionID = session.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// TransitionSession avanza la sesión a `to` bajo bloqueo de fila. COMPLETED exige sello verificado.
func (w *Workflow) TransitionSession(ctx context.Context, actorID, sessionID, to string) error {
	return w.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		session, err := r.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		action, err := domaincustody.Transition(session.Status, to)
		if err != nil {
			return err
		}
		actor, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := w.gate.Authorize(actor, action, session.CompanyID); err != nil {
			return err
		}
		if domaincustody.RequiresVerifiedSeal(to) {
			seal, err := r.Seals.GetBySessionForUpdate(ctx, sessionID)
			if err != nil {
				return err
			}
			if seal == nil || !seal.Verified {
				return domain.ErrSealNotVerified
			}
		}
		if err := r.Sessions.UpdateStatus(ctx, sessionID, to, w.clock.Now()); err != nil {
			return err
		}
		_, err = w.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      actorID,
			Action:       entity.ActionUpdate,
			ResourceType: entity.ResourceSession,
			ResourceID:   sessionID,
			Details:      map[string]any{"from": session.Status, "to": to},
		})
		return err
	})
}

// ScanSeal registra la lectura del sello: lo crea en el primer escaneo o actualiza el existente
// mientras no esté verificado. Un sello verificado es inmutable.
func (w *Workflow) ScanSeal(ctx context.Context, actorID, sessionID, barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.ErrInvalidInput
	}
	return w.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		// El bloqueo de la sesión serializa escaneos concurrentes del mismo envío.
		session, err := r.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		actor, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := w.gate.Authorize(actor, policy.ActionScanSeal, session.CompanyID); err != nil {
			return err
		}
		if !session.IsOpen() {
			return domain.ErrInvalidTransition
		}

		now := w.clock.Now()
		seal, err := r.Seals.GetBySessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		action := entity.ActionUpdate
		details := map[string]any{"barcode": barcode}
		if seal == nil {
			seal = &entity.Seal{
				ID:        w.ids.NewID(),
				SessionID: sessionID,
				Barcode:   barcode,
				ScannedAt: &now,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.Seals.Create(ctx, seal); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					// Otro escaneo creó el sello primero; reintentar lo trata como actualización.
					return fmt.Errorf("%w: sello creado concurrentemente", domain.ErrTransientStorage)
				}
				return err
			}
			action = entity.ActionCreate
		} else {
			if seal.Verified {
				return domain.ErrSealAlreadyVerified
			}
			details["previousBarcode"] = seal.Barcode
			seal.Barcode = barcode
			seal.ScannedAt = &now
			seal.UpdatedAt = now
			if err := r.Seals.Update(ctx, seal); err != nil {
				return err
			}
		}
		_, err = w.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      actorID,
			Action:       action,
			ResourceType: entity.ResourceSeal,
			ResourceID:   seal.ID,
			Details:      details,
		})
		return err
	})
}

// VerifySeal marca el sello como verificado por un GUARD. Re-verificar es un no-op exitoso
// y no produce un nuevo registro.
func (w *Workflow) VerifySeal(ctx context.Context, sessionID, guardID string) error {
	return w.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		session, err := r.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		guard, err := r.Users.GetByID(ctx, guardID)
		if err != nil {
			return err
		}
		if err := w.gate.Authorize(guard, policy.ActionVerifySeal, session.CompanyID); err != nil {
			return err
		}
		seal, err := r.Seals.GetBySessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !seal.IsScanned() {
			return domain.ErrSealNotScanned
		}
		if seal.Verified {
			return nil
		}
		now := w.clock.Now()
		seal.Verified = true
		seal.VerifiedByID = &guardID
		seal.UpdatedAt = now
		if err := r.Seals.Update(ctx, seal); err != nil {
			return err
		}
		_, err = w.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      guardID,
			Action:       entity.ActionUpdate,
			TargetUserID: guardID,
			ResourceType: entity.ResourceSeal,
			ResourceID:   seal.ID,
			Details:      map[string]any{"verified": true, "sessionId": sessionID},
		})
		return err
	})
}

// GetSession devuelve la sesión con su sello si viewerID puede verla.
func (w *Workflow) GetSession(ctx context.Context, viewerID, sessionID string) (*SessionView, error) {
	var view *SessionView
	err := w.txRunner.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		session, err := r.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		viewer, err := r.Users.GetByID(ctx, viewerID)
		if err != nil {
			return err
		}
		if err := w.gate.Authorize(viewer, policy.ActionViewSession, session.CompanyID); err != nil {
			return err
		}
		seal, err := r.Seals.GetBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		view = &SessionView{Session: session, Seal: seal}
		return nil
	})
	return view, err
}

package audit

import (
	"context"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

// TrailReader consulta el rastro de un recurso y registra el VIEW del lector.
type TrailReader struct {
	tx   ports.TxRunner
	gate *policy.Gate
	rec  *Recorder
}

// NewTrailReader construye el lector.
func NewTrailReader(tx ports.TxRunner, gate *policy.Gate, rec *Recorder) *TrailReader {
	return &TrailReader{tx: tx, gate: gate, rec: rec}
}

// resourceCompany resuelve la empresa dueña del recurso ("" si no pertenece a ninguna).
func resourceCompany(ctx context.Context, r ports.TxRepos, resourceType, resourceID string) (string, error) {
	switch resourceType {
	case entity.ResourceCompany:
		c, err := r.Companies.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		if c == nil {
			return "", domain.ErrNotFound
		}
		return c.ID, nil
	case entity.ResourceSession:
		s, err := r.Sessions.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		if s == nil {
			return "", domain.ErrNotFound
		}
		return s.CompanyID, nil
	case entity.ResourceSeal:
		seal, err := r.Seals.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		if seal == nil {
			return "", domain.ErrNotFound
		}
		return resourceCompany(ctx, r, entity.ResourceSession, seal.SessionID)
	case entity.ResourceUser:
		u, err := r.Users.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		if u == nil {
			return "", domain.ErrUserNotFound
		}
		if u.CompanyID == nil {
			return "", nil
		}
		return *u.CompanyID, nil
	case entity.ResourceCoinTx:
		return "", nil
	}
	return "", domain.ErrInvalidInput
}

// For devuelve los registros del recurso en orden de creación. El VIEW se registra
// fuera de la lectura y no aparece en el resultado devuelto.
func (t *TrailReader) For(ctx context.Context, viewerID, resourceType, resourceID string) ([]*entity.ActivityLog, error) {
	var logs []*entity.ActivityLog
	err := t.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		viewer, err := r.Users.GetByID(ctx, viewerID)
		if err != nil {
			return err
		}
		if viewer == nil {
			return domain.ErrUnauthorized
		}
		companyID, err := resourceCompany(ctx, r, resourceType, resourceID)
		if err != nil {
			return err
		}
		if err := t.gate.Authorize(viewer, policy.ActionViewAudit, companyID); err != nil {
			return err
		}
		logs, err = r.ActivityLogs.ListByResource(ctx, resourceType, resourceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if _, err := t.rec.RecordStandalone(ctx, t.tx, Entry{
		ActorID:      viewerID,
		Action:       entity.ActionView,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      map[string]any{"entries": len(logs)},
	}); err != nil {
		return nil, err
	}
	return logs, nil
}

// ByActor devuelve los registros cuyo actor es actorID. Se autoriza contra la empresa
// del actor, igual que el rastro de un User.
func (t *TrailReader) ByActor(ctx context.Context, viewerID, actorID string) ([]*entity.ActivityLog, error) {
	var logs []*entity.ActivityLog
	err := t.tx.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		viewer, err := r.Users.GetByID(ctx, viewerID)
		if err != nil {
			return err
		}
		if viewer == nil {
			return domain.ErrUnauthorized
		}
		companyID, err := resourceCompany(ctx, r, entity.ResourceUser, actorID)
		if err != nil {
			return err
		}
		if err := t.gate.Authorize(viewer, policy.ActionViewAudit, companyID); err != nil {
			return err
		}
		logs, err = r.ActivityLogs.ListByActor(ctx, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if _, err := t.rec.RecordStandalone(ctx, t.tx, Entry{
		ActorID:      viewerID,
		Action:       entity.ActionView,
		TargetUserID: actorID,
		ResourceType: entity.ResourceUser,
		ResourceID:   actorID,
		Details:      map[string]any{"entries": len(logs), "byActor": true},
	}); err != nil {
		return nil, err
	}
	return logs, nil
}

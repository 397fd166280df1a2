// Package audit escribe el rastro append-only de actividad. Record corre dentro de la
// transacción de la mutación que describe; no se expone actualización ni borrado.
package audit

import (
	"context"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/repository"
)

// RequestMeta datos de la petición que se copian en cada registro.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type metaKey struct{}

// WithRequestMeta adjunta la metadata de la petición al contexto.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFrom extrae la metadata de la petición (vacía si no existe).
func MetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaKey{}).(RequestMeta)
	return meta
}

// Entry describe un evento a registrar.
type Entry struct {
	ActorID      string
	Action       string
	TargetUserID string
	ResourceType string
	ResourceID   string
	Details      map[string]any
}

// Recorder construye y persiste registros de ActivityLog.
type Recorder struct {
	clock ports.Clock
	ids   ports.IDGenerator
}

// NewRecorder construye el recorder.
func NewRecorder(clock ports.Clock, ids ports.IDGenerator) *Recorder {
	return &Recorder{clock: clock, ids: ids}
}

func isValidAction(action string) bool {
	switch action {
	case entity.ActionCreate, entity.ActionUpdate, entity.ActionDelete, entity.ActionLogin,
		entity.ActionLogout, entity.ActionTransfer, entity.ActionAllocate, entity.ActionView:
		return true
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record agrega un registro usando el repositorio de la transacción en curso y devuelve su ID.
func (rec *Recorder) Record(ctx context.Context, logs repository.ActivityLogRepository, e Entry) (string, error) {
	if e.ActorID == "" || !isValidAction(e.Action) {
		return "", domain.ErrInvalidInput
	}
	meta := MetaFrom(ctx)
	log := &entity.ActivityLog{
		ID:                 rec.ids.NewID(),
		UserID:             e.ActorID,
		Action:             e.Action,
		Details:            e.Details,
		TargetUserID:       optional(e.TargetUserID),
		TargetResourceID:   optional(e.ResourceID),
		TargetResourceType: optional(e.ResourceType),
		IPAddress:          meta.IPAddress,
		UserAgent:          meta.UserAgent,
		CreatedAt:          rec.clock.Now(),
	}
	if err := logs.Create(ctx, log); err != nil {
		return "", err
	}
	return log.ID, nil
}

// RecordStandalone registra VIEW/LOGIN/LOGOUT en su propia transacción, sin acoplar al ledger.
func (rec *Recorder) RecordStandalone(ctx context.Context, tx ports.TxRunner, e Entry) (string, error) {
	switch e.Action {
	case entity.ActionView, entity.ActionLogin, entity.ActionLogout:
	default:
		return "", domain.ErrInvalidInput
	}
	var id string
	err := tx.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		id, err = rec.Record(ctx, r.ActivityLogs, e)
		return err
	})
	return id, err
}

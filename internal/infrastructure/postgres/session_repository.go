package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/repository"
)

var (
	_ repository.SessionRepository = (*SessionRepo)(nil)
	_ repository.SealRepository    = (*SealRepo)(nil)
)

const sessionColumns = `id, company_id, created_by_id, source, destination, status, created_at, updated_at`

// SessionRepo persistencia de sesiones de custodia.
type SessionRepo struct {
	q Querier
}

func NewSessionRepository(q Querier) *SessionRepo {
	return &SessionRepo{q: q}
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	var s entity.Session
	if err := row.Scan(&s.ID, &s.CompanyID, &s.CreatedByID, &s.Source, &s.Destination, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *entity.Session) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.CompanyID, s.CreatedByID, s.Source, s.Destination, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	return mapError("insert session", err)
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

func (r *SessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *SessionRepo) get(ctx context.Context, query, id string) (*entity.Session, error) {
	s, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get session", err)
	}
	return s, nil
}

func (r *SessionRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE sessions SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return mapError("update session status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountOpenByCompany cuenta sesiones no COMPLETED de la empresa.
func (r *SessionRepo) CountOpenByCompany(ctx context.Context, companyID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM sessions WHERE company_id = $1 AND status <> $2`,
		companyID, entity.SessionCompleted).Scan(&n)
	if err != nil {
		return 0, mapError("count open sessions", err)
	}
	return n, nil
}

const sealColumns = `id, session_id, barcode, scanned_at, verified, verified_by_id, created_at, updated_at`

// SealRepo persistencia de sellos; seals_session_id_key garantiza uno por sesión.
type SealRepo struct {
	q Querier
}

func NewSealRepository(q Querier) *SealRepo {
	return &SealRepo{q: q}
}

func scanSeal(row pgx.Row) (*entity.Seal, error) {
	var s entity.Seal
	if err := row.Scan(&s.ID, &s.SessionID, &s.Barcode, &s.ScannedAt, &s.Verified, &s.VerifiedByID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SealRepo) Create(ctx context.Context, s *entity.Seal) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO seals (`+sealColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.SessionID, s.Barcode, s.ScannedAt, s.Verified, s.VerifiedByID, s.CreatedAt, s.UpdatedAt,
	)
	return mapError("insert seal", err)
}

func (r *SealRepo) GetByID(ctx context.Context, id string) (*entity.Seal, error) {
	return r.get(ctx, `SELECT `+sealColumns+` FROM seals WHERE id = $1`, id)
}

func (r *SealRepo) GetBySession(ctx context.Context, sessionID string) (*entity.Seal, error) {
	return r.get(ctx, `SELECT `+sealColumns+` FROM seals WHERE session_id = $1`, sessionID)
}

func (r *SealRepo) GetBySessionForUpdate(ctx context.Context, sessionID string) (*entity.Seal, error) {
	return r.get(ctx, `SELECT `+sealColumns+` FROM seals WHERE session_id = $1 FOR UPDATE`, sessionID)
}

func (r *SealRepo) get(ctx context.Context, query, arg string) (*entity.Seal, error) {
	s, err := scanSeal(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get seal", err)
	}
	return s, nil
}

func (r *SealRepo) Update(ctx context.Context, s *entity.Seal) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE seals
		SET barcode = $2, scanned_at = $3, verified = $4, verified_by_id = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.Barcode, s.ScannedAt, s.Verified, s.VerifiedByID, s.UpdatedAt,
	)
	if err != nil {
		return mapError("update seal", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

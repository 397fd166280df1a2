package dto

import (
	"time"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// CreateSessionRequest apertura de una sesión de custodia.
type CreateSessionRequest struct {
	CompanyID   string `json:"company_id" validate:"required"`
	Source      string `json:"source" validate:"required"`
	Destination string `json:"destination" validate:"required"`
}

// TransitionSessionRequest cambio de estado.
type TransitionSessionRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// ScanSealRequest lectura del código de barras del sello.
type ScanSealRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

// SealResponse estado del sello.
type SealResponse struct {
	ID           string     `json:"id"`
	Barcode      string     `json:"barcode"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	Verified     bool       `json:"verified"`
	VerifiedByID *string    `json:"verified_by_id,omitempty"`
}

// SessionResponse sesión con su sello (si existe).
type SessionResponse struct {
	ID          string        `json:"id"`
	CompanyID   string        `json:"company_id"`
	CreatedByID string        `json:"created_by_id"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Seal        *SealResponse `json:"seal,omitempty"`
}

// SessionFromEntity mapea sesión y sello (seal puede ser nil).
func SessionFromEntity(s *entity.Session, seal *entity.Seal) SessionResponse {
	out := SessionResponse{
		ID:          s.ID,
		CompanyID:   s.CompanyID,
		CreatedByID: s.CreatedByID,
		Source:      s.Source,
		Destination: s.Destination,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if seal != nil {
		out.Seal = &SealResponse{
			ID:           seal.ID,
			Barcode:      seal.Barcode,
			ScannedAt:    seal.ScannedAt,
			Verified:     seal.Verified,
			VerifiedByID: seal.VerifiedByID,
		}
	}
	return out
}

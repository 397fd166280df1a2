package entity

import "time"

// Estados de una Session.
const (
	SessionPending    = "PENDING"
	SessionInProgress = "IN_PROGRESS"
	SessionCompleted  = "COMPLETED"
)

// Session registro del ciclo de vida de un envío (cadena de custodia).
type Session struct {
	ID          string
	CompanyID   string
	CreatedByID string
	Source      string
	Destination string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOpen indica si la sesión aún no llegó al estado terminal.
func (s *Session) IsOpen() bool {
	return s != nil && s.Status != SessionCompleted
}

// Seal evidencia física de manipulación, 1:1 con Session.
type Seal struct {
	ID           string
	SessionID    string
	Barcode      string
	ScannedAt    *time.Time
	Verified     bool
	VerifiedByID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsScanned indica si el sello tiene lectura registrada.
func (s *Seal) IsScanned() bool {
	return s != nil && s.ScannedAt != nil
}

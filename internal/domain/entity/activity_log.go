package entity

import "time"

// Acciones auditables.
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionLogin    = "LOGIN"
	ActionLogout   = "LOGOUT"
	ActionTransfer = "TRANSFER"
	ActionAllocate = "ALLOCATE"
	ActionView     = "VIEW"
)

// Tipos de recurso referenciados desde ActivityLog.
const (
	ResourceUser    = "User"
	ResourceCompany = "Company"
	ResourceSession = "Session"
	ResourceSeal    = "Seal"
	ResourceCoinTx  = "CoinTransaction"
)

// ActivityLog registro de auditoría append-only.
type ActivityLog struct {
	ID                 string
	UserID             string // actor
	Action             string
	Details            map[string]any
	TargetUserID       *string
	TargetResourceID   *string
	TargetResourceType *string
	IPAddress          string
	UserAgent          string
	CreatedAt          time.Time
}

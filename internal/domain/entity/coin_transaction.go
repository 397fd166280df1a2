package entity

import "time"

// Razones de un movimiento de monedas.
const (
	ReasonAdminCreation    = "ADMIN_CREATION"
	ReasonOperatorCreation = "OPERATOR_CREATION"
	ReasonCoinAllocation   = "COIN_ALLOCATION"
	ReasonSessionCreation  = "SESSION_CREATION"
)

// CoinTransaction asiento inmutable del ledger; nunca se actualiza ni se borra.
type CoinTransaction struct {
	ID         string
	FromUserID string
	ToUserID   string
	Amount     int64 // siempre positivo
	ReasonText string
	Reason     string
	CreatedAt  time.Time
}

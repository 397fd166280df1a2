package dto

import (
	"time"

	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// CreateUserRequest entrada para crear un usuario (password en texto, se hashea en el motor de aprovisionamiento).
type CreateUserRequest struct {
	Name      string `json:"name" validate:"omitempty,max=200"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=SUPERADMIN ADMIN COMPANY EMPLOYEE"`
	Subrole   string `json:"subrole,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Subrole     string    `json:"subrole,omitempty"`
	CompanyID   *string   `json:"company_id,omitempty"`
	Coins       int64     `json:"coins"`
	CreatedByID *string   `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserFromEntity mapea la entidad a su respuesta HTTP.
func UserFromEntity(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Subrole:     u.Subrole,
		CompanyID:   u.CompanyID,
		Coins:       u.Balance(),
		CreatedByID: u.CreatedByID,
		CreatedAt:   u.CreatedAt,
	}
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse token y usuario autenticado.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// BalanceResponse saldo de monedas de un usuario.
type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// ReconcileResponse resultado de conciliar saldo almacenado contra el log.
type ReconcileResponse struct {
	UserID     string `json:"user_id"`
	Stored     int64  `json:"stored"`
	Derived    int64  `json:"derived"`
	Consistent bool   `json:"consistent"`
}

// AllocateCoinsRequest transferencia de monedas del usuario autenticado a otro.
type AllocateCoinsRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
}

// MintRequest emisión de monedas desde tesorería.
type MintRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Reason      string `json:"reason"`
}

// TransactionResponse identificador del asiento creado.
type TransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

// StatementEntryResponse asiento del extracto visto desde el titular.
type StatementEntryResponse struct {
	TransactionID string    `json:"transaction_id"`
	FromUserID    string    `json:"from_user_id"`
	ToUserID      string    `json:"to_user_id"`
	Amount        int64     `json:"amount"`
	Delta         int64     `json:"delta"`
	Running       int64     `json:"running_balance"`
	Reason        string    `json:"reason"`
	ReasonText    string    `json:"reason_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatementResponse extracto de movimientos de un usuario.
type StatementResponse struct {
	UserID  string                   `json:"user_id"`
	Balance int64                    `json:"balance"`
	Entries []StatementEntryResponse `json:"entries"`
}

// StatementFromLedger mapea el extracto preservando el orden de inserción.
func StatementFromLedger(st *ledger.Statement) StatementResponse {
	out := StatementResponse{UserID: st.UserID, Balance: st.Balance, Entries: make([]StatementEntryResponse, 0, len(st.Lines))}
	for _, line := range st.Lines {
		tx := line.Transaction
		out.Entries = append(out.Entries, StatementEntryResponse{
			TransactionID: tx.ID,
			FromUserID:    tx.FromUserID,
			ToUserID:      tx.ToUserID,
			Amount:        tx.Amount,
			Delta:         line.Delta,
			Running:       line.Running,
			Reason:        tx.Reason,
			ReasonText:    tx.ReasonText,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return out
}

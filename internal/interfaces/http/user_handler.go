package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/dto"
	"github.com/jhoicas/custody-api/internal/application/provisioning"
)

// UserHandler altas de usuarios, saldos y movimientos de monedas.
type UserHandler struct {
	svc *command.Service
}

// NewUserHandler construye el handler de usuarios.
func NewUserHandler(svc *command.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create godoc
// @Summary      Crear usuario (cobra la tarifa del rol al creador)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateUserRequest  true  "Datos del usuario"
// @Success      201   {object}  dto.IDResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateUserRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	id, err := h.svc.CreateUser(c.UserContext(), GetUserID(c), provisioning.NewUserSpec{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		Subrole:   in.Subrole,
		CompanyID: in.CompanyID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: id})
}

// userParam resuelve ":id", aceptando "me" como el usuario autenticado.
func userParam(c *fiber.Ctx) string {
	id := c.Params("id")
	if id == "me" {
		return GetUserID(c)
	}
	return id
}

// Balance godoc
// @Summary      Saldo de monedas
// @Tags         users
// @Produce      json
// @Param        id   path  string  true  "ID del usuario o 'me'"
// @Success      200  {object}  dto.BalanceResponse
// @Router       /api/users/{id}/balance [get]
func (h *UserHandler) Balance(c *fiber.Ctx) error {
	id := userParam(c)
	balance, err := h.svc.BalanceFor(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{UserID: id, Balance: balance})
}

// Transactions godoc
// @Summary      Extracto de movimientos de monedas
// @Tags         users
// @Produce      json
// @Param        id   path  string  true  "ID del usuario o 'me'"
// @Success      200  {object}  dto.StatementResponse
// @Router       /api/users/{id}/transactions [get]
func (h *UserHandler) Transactions(c *fiber.Ctx) error {
	st, err := h.svc.Statement(c.UserContext(), GetUserID(c), userParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatementFromLedger(st))
}

// Reconcile godoc
// @Summary      Conciliar saldo contra el ledger
// @Tags         users
// @Produce      json
// @Param        id   path  string  true  "ID del usuario"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/admin/users/{id}/reconcile [get]
func (h *UserHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.svc.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{
		UserID:     report.UserID,
		Stored:     report.Stored,
		Derived:    report.Derived,
		Consistent: report.Consistent,
	})
}

// Allocate godoc
// @Summary      Asignar monedas del usuario autenticado a otro
// @Tags         coins
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AllocateCoinsRequest  true  "destinatario y monto"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/coins/allocate [post]
func (h *UserHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateCoinsRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	txID, err := h.svc.AllocateCoins(c.UserContext(), GetUserID(c), in.RecipientID, in.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransactionResponse{TransactionID: txID})
}

// Mint godoc
// @Summary      Emitir monedas desde tesorería
// @Tags         coins
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MintRequest  true  "destinatario, monto y motivo"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/admin/mint [post]
func (h *UserHandler) Mint(c *fiber.Ctx) error {
	var in dto.MintRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	txID, err := h.svc.Mint(c.UserContext(), in.RecipientID, in.Amount, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransactionResponse{TransactionID: txID})
}

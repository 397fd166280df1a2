package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/dto"
	"github.com/jhoicas/custody-api/internal/domain"
)

// AuthHandler maneja login y logout.
type AuthHandler struct {
	svc *command.Service
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(svc *command.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
		}
		return respondError(c, err)
	}
	return c.JSON(dto.LoginResponse{Token: out.Token, User: dto.UserFromEntity(out.User)})
}

// Logout godoc
// @Summary      Cerrar sesión (registra LOGOUT)
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.UserContext(), GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

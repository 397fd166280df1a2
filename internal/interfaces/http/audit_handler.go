package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/dto"
)

// AuditHandler lectura del rastro de auditoría.
type AuditHandler struct {
	svc *command.Service
}

func NewAuditHandler(svc *command.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Trail godoc
// @Summary      Rastro de auditoría de un recurso (la lectura queda registrada como VIEW)
// @Tags         audit
// @Produce      json
// @Param        type  path  string  true  "User, Company, Session, Seal o CoinTransaction"
// @Param        id    path  string  true  "ID del recurso"
// @Success      200   {array}  dto.ActivityLogResponse
// @Router       /api/audit/{type}/{id} [get]
func (h *AuditHandler) Trail(c *fiber.Ctx) error {
	logs, err := h.svc.AuditTrailFor(c.UserContext(), GetUserID(c), c.Params("type"), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ActivityLogsFromEntities(logs))
}

// ActorTrail godoc
// @Summary      Acciones registradas de un usuario como actor
// @Tags         audit
// @Produce      json
// @Param        id    path  string  true  "ID del actor"
// @Success      200   {array}  dto.ActivityLogResponse
// @Router       /api/audit/actors/{id} [get]
func (h *AuditHandler) ActorTrail(c *fiber.Ctx) error {
	logs, err := h.svc.ActorTrail(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ActivityLogsFromEntities(logs))
}

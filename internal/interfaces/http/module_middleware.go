package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/dto"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// companyLookup es el contrato mínimo que necesita el middleware para consultar la empresa.
// Lo implementa *command.Service.
type companyLookup interface {
	GetCompany(ctx context.Context, companyID string) (*entity.Company, error)
}

// RequireActiveCompany rechaza a usuarios de una empresa dada de baja. Debe usarse DESPUÉS
// de AuthMiddleware. Los tokens sin company_id (SUPERADMIN/ADMIN) pasan.
//
// Comportamiento:
//   - 403 Forbidden → la empresa del token no existe o fue eliminada.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
func RequireActiveCompany(lookup companyLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := GetCompanyID(c)
		if companyID == "" {
			return c.Next()
		}
		company, err := lookup.GetCompany(c.UserContext(), companyID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "COMPANY_CHECK_FAILED",
				Message: "no se pudo verificar la empresa, intente más tarde",
			})
		}
		if !company.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "COMPANY_INACTIVE",
				Message: "la empresa del usuario fue dada de baja",
			})
		}
		return c.Next()
	}
}

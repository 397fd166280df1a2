package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/dto"
	"github.com/jhoicas/custody-api/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseBody decodifica y valida el cuerpo. Devuelve false si ya respondió 400.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]any{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "campos inválidos", Details: details})
	}
	return true, nil
}

// statusFor mapea el código estable del error de dominio a un status HTTP.
func statusFor(kind string) int {
	switch kind {
	case "UNAUTHORIZED":
		return fiber.StatusForbidden
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION":
		return fiber.StatusBadRequest
	case "INSUFFICIENT_FUNDS":
		return fiber.StatusPaymentRequired
	case "INVALID_TRANSITION", "SEAL_NOT_VERIFIED", "SEAL_NOT_SCANNED", "SEAL_ALREADY_VERIFIED",
		"DUPLICATE_EMAIL", "DUPLICATE", "COMPANY_HAS_OPEN_SESSIONS", "HIERARCHY_CYCLE":
		return fiber.StatusConflict
	case "TRANSIENT_STORAGE":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError traduce un error del núcleo a la respuesta HTTP. Los errores internos no exponen detalle.
func respondError(c *fiber.Ctx, err error) error {
	kind := domain.Kind(err)
	status := statusFor(kind)
	resp := dto.ErrorResponse{Code: kind, Message: err.Error()}
	var funds *domain.InsufficientFundsError
	if errors.As(err, &funds) {
		resp.Details = map[string]any{"balance": funds.Balance, "required": funds.Required}
	}
	if status == fiber.StatusInternalServerError {
		resp.Message = "error interno"
	}
	return c.Status(status).JSON(resp)
}

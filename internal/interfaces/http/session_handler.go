package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/dto"
	"github.com/jhoicas/custody-api/internal/application/ports"
)

// SessionHandler ciclo de vida de las sesiones de custodia y sus sellos.
type SessionHandler struct {
	svc      *command.Service
	renderer ports.CertificateRenderer
}

// NewSessionHandler construye el handler de sesiones. renderer nil deshabilita la constancia PDF.
func NewSessionHandler(svc *command.Service, renderer ports.CertificateRenderer) *SessionHandler {
	return &SessionHandler{svc: svc, renderer: renderer}
}

// Create godoc
// @Summary      Abrir sesión (cobra la tarifa de sesión)
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSessionRequest  true  "empresa, origen, destino"
// @Success      201   {object}  dto.SessionResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Router       /api/sessions [post]
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSessionRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	ctx := c.UserContext()
	id, err := h.svc.CreateSession(ctx, GetUserID(c), in.CompanyID, in.Source, in.Destination)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondSession(c, fiber.StatusCreated, id)
}

// GetByID godoc
// @Summary      Obtener sesión con su sello
// @Tags         sessions
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Router       /api/sessions/{id} [get]
func (h *SessionHandler) GetByID(c *fiber.Ctx) error {
	return h.respondSession(c, fiber.StatusOK, c.Params("id"))
}

// Transition godoc
// @Summary      Cambiar estado de la sesión
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la sesión"
// @Param        body  body  dto.TransitionSessionRequest  true  "estado destino"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/transition [post]
func (h *SessionHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionSessionRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	id := c.Params("id")
	if err := h.svc.TransitionSession(c.UserContext(), GetUserID(c), id, in.Status); err != nil {
		return respondError(c, err)
	}
	return h.respondSession(c, fiber.StatusOK, id)
}

// ScanSeal godoc
// @Summary      Registrar lectura del sello
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la sesión"
// @Param        body  body  dto.ScanSealRequest  true  "código de barras"
// @Success      200   {object}  dto.SessionResponse
// @Router       /api/sessions/{id}/seal/scan [post]
func (h *SessionHandler) ScanSeal(c *fiber.Ctx) error {
	var in dto.ScanSealRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	id := c.Params("id")
	if err := h.svc.ScanSeal(c.UserContext(), GetUserID(c), id, in.Barcode); err != nil {
		return respondError(c, err)
	}
	return h.respondSession(c, fiber.StatusOK, id)
}

// VerifySeal godoc
// @Summary      Verificar sello (el usuario autenticado actúa como guardia)
// @Tags         sessions
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Router       /api/sessions/{id}/seal/verify [post]
func (h *SessionHandler) VerifySeal(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svc.VerifySeal(c.UserContext(), id, GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return h.respondSession(c, fiber.StatusOK, id)
}

// Certificate godoc
// @Summary      Descargar constancia de cadena de custodia (PDF)
// @Tags         sessions
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/sessions/{id}/certificate [get]
func (h *SessionHandler) Certificate(c *fiber.Ctx) error {
	if h.renderer == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{
			Code: "CERTIFICATE_DISABLED", Message: "generación de constancias no disponible",
		})
	}
	ctx := c.UserContext()
	id := c.Params("id")
	cert, err := h.svc.SessionCertificate(ctx, GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	doc, err := h.renderer.RenderCertificate(ctx, cert)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="custodia-`+id+`.pdf"`)
	return c.Send(doc)
}

func (h *SessionHandler) respondSession(c *fiber.Ctx, status int, id string) error {
	view, err := h.svc.GetSession(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(dto.SessionFromEntity(view.Session, view.Seal))
}

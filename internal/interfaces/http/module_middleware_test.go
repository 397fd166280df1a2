package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	apphttp "github.com/jhoicas/custody-api/internal/interfaces/http"
)

type fakeCompanies struct {
	company *entity.Company
	err     error
	calls   int
}

func (f *fakeCompanies) GetCompany(_ context.Context, _ string) (*entity.Company, error) {
	f.calls++
	return f.company, f.err
}

func TestRequireActiveCompany(t *testing.T) {
	deletedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	active := &entity.Company{ID: testCompanyID, Name: "Andes"}
	deleted := &entity.Company{ID: testCompanyID, Name: "Andes", DeletedAt: &deletedAt}

	tests := []struct {
		name   string
		lookup *fakeCompanies
		header string
		status int
		code   string
		calls  int
	}{
		{"empresa activa", &fakeCompanies{company: active}, employeeToken(t, "GUARD"), http.StatusOK, "", 1},
		{"empresa dada de baja", &fakeCompanies{company: deleted}, employeeToken(t, "GUARD"), http.StatusForbidden, "COMPANY_INACTIVE", 1},
		{"empresa inexistente", &fakeCompanies{err: domain.ErrNotFound}, employeeToken(t, "OPERATOR"), http.StatusForbidden, "COMPANY_INACTIVE", 1},
		{"fallo de la base", &fakeCompanies{err: errors.New("conexión rechazada")}, employeeToken(t, "DRIVER"), http.StatusServiceUnavailable, "COMPANY_CHECK_FAILED", 1},
		{"token sin empresa no consulta", &fakeCompanies{err: errors.New("no debe llamarse")}, roleToken(t, "ADMIN"), http.StatusOK, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/sessions", apphttp.AuthMiddleware(testJWTSecret), apphttp.RequireActiveCompany(tt.lookup),
				func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": "true"}) })

			status, body := send(t, app, "/sessions", tt.header)
			assert.Equal(t, tt.status, status)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			} else {
				assert.Equal(t, "true", body["ok"])
			}
			assert.Equal(t, tt.calls, tt.lookup.calls)
		})
	}
}

func TestRequireActiveCompany_EmpresaDadaDeBajaPorAPI(t *testing.T) {
	app := buildAPI(t, 100)
	root := login(t, app, rootEmail)
	companyID := create(t, app, "/api/companies", root, fiber.Map{"name": "Andes", "email": "ops@andes.co"})
	create(t, app, "/api/users", root, fiber.Map{
		"email": "guardia@andes.co", "password": apiPassword, "role": "EMPLOYEE", "subrole": "GUARD", "company_id": companyID,
	})
	guard := login(t, app, "guardia@andes.co")

	status, _ := call(t, app, http.MethodDelete, "/api/companies/"+companyID, root, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, raw := call(t, app, http.MethodGet, "/api/sessions/cualquiera", guard, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "COMPANY_INACTIVE", decode(t, raw)["code"])
}

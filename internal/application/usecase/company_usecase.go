package usecase

import (
	"context"
	"strings"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

// CompanyUseCase aplica reglas de negocio para empresas (casos de uso).
type CompanyUseCase struct {
	txRunner ports.TxRunner
	gate     *policy.Gate
	audit    *audit.Recorder
	clock    ports.Clock
	ids      ports.IDGenerator
}

// NewCompanyUseCase construye el caso de uso.
func NewCompanyUseCase(txRunner ports.TxRunner, gate *policy.Gate, rec *audit.Recorder, clock ports.Clock, ids ports.IDGenerator) *CompanyUseCase {
	return &CompanyUseCase{txRunner: txRunner, gate: gate, audit: rec, clock: clock, ids: ids}
}

// NewCompanySpec datos de una empresa nueva.
type NewCompanySpec struct {
	Name    string
	Email   string
	Address string
	Phone   string
}

// Create crea una nueva empresa. Devuelve domain.ErrDuplicateEmail si el email ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, actorID string, in NewCompanySpec) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = entity.NormalizeEmail(in.Email)
	if in.Name == "" || !strings.Contains(in.Email, "@") {
		return "", domain.ErrInvalidInput
	}
	var companyID string
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		actor, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := uc.gate.Authorize(actor, policy.ActionManageCompany, ""); err != nil {
			return err
		}
		now := uc.clock.Now()
		company := &entity.Company{
			ID:        uc.ids.NewID(),
			Name:      in.Name,
			Email:     in.Email,
			Address:   in.Address,
			Phone:     in.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.Companies.Create(ctx, company); err != nil {
			return err
		}
		if _, err := uc.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      actorID,
			Action:       entity.ActionCreate,
			ResourceType: entity.ResourceCompany,
			ResourceID:   company.ID,
			Details:      map[string]any{"name": company.Name, "email": company.Email},
		}); err != nil {
			return err
		}
		companyID = company.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return companyID, nil
}

// Delete da de baja lógica la empresa. Prohibido mientras existan sesiones no COMPLETED.
func (uc *CompanyUseCase) Delete(ctx context.Context, actorID, companyID string) error {
	return uc.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		actor, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := uc.gate.Authorize(actor, policy.ActionManageCompany, companyID); err != nil {
			return err
		}
		company, err := r.Companies.GetForUpdate(ctx, companyID)
		if err != nil {
			return err
		}
		if !company.IsActive() {
			return domain.ErrNotFound
		}
		open, err := r.Sessions.CountOpenByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrCompanyHasOpenSessions
		}
		if err := r.Companies.SoftDelete(ctx, companyID, uc.clock.Now()); err != nil {
			return err
		}
		_, err = uc.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      actorID,
			Action:       entity.ActionDelete,
			ResourceType: entity.ResourceCompany,
			ResourceID:   companyID,
		})
		return err
	})
}

// GetByID obtiene una empresa por ID.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	var company *entity.Company
	err := uc.txRunner.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		company, err = r.Companies.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return company, nil
}

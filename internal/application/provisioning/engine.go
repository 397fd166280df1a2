package provisioning

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

// Engine crea usuarios bajo la jerarquía de roles y cobra según la razón de creación.
// Cada operación es una única transacción: {fila, débito, CoinTransaction, ActivityLog} o nada.
type Engine struct {
	txRunner     ports.TxRunner
	gate         *policy.Gate
	ledger       *ledger.Ledger
	audit        *audit.Recorder
	tariff       ledger.Tariff
	clock        ports.Clock
	ids          ports.IDGenerator
	passwordCost int
}

// Option configura el Engine.
type Option func(*Engine)

// WithPasswordCost fija el costo de bcrypt (los tests usan bcrypt.MinCost).
func WithPasswordCost(cost int) Option {
	return func(e *Engine) { e.passwordCost = cost }
}

// NewEngine construye el motor de aprovisionamiento.
func NewEngine(
	txRunner ports.TxRunner,
	gate *policy.Gate,
	ldg *ledger.Ledger,
	rec *audit.Recorder,
	tariff ledger.Tariff,
	clock ports.Clock,
	ids ports.IDGenerator,
	opts ...Option,
) *Engine {
	e := &Engine{
		txRunner:     txRunner,
		gate:         gate,
		ledger:       ldg,
		audit:        rec,
		tariff:       tariff,
		clock:        clock,
		ids:          ids,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewUserSpec datos del usuario a crear (password en texto, se hashea aquí).
type NewUserSpec struct {
	Name      string
	Email     string
	Password  string
	Role      string
	Subrole   string
	CompanyID string
}

// validateShape verifica la combinación rol/subrol/empresa.
func validateShape(in *NewUserSpec) error {
	in.Email = entity.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || !strings.Contains(in.Email, "@") || len(in.Password) < 8 {
		return domain.ErrInvalidInput
	}
	if in.Name == "" {
		in.Name = in.Email
	}
	if !entity.IsValidRole(in.Role) {
		return domain.ErrInvalidInput
	}
	switch in.Role {
	case entity.RoleEmployee:
		if !entity.IsValidSubrole(in.Subrole) || in.CompanyID == "" {
			return domain.ErrInvalidInput
		}
	case entity.RoleCompany:
		if in.Subrole != "" || in.CompanyID == "" {
			return domain.ErrInvalidInput
		}
	default:
		if in.Subrole != "" || in.CompanyID != "" {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

func (e *Engine) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), e.passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateUser crea un usuario subordinado de creatorID. Si (rol, subrol) tiene razón de cobro,
// debita al creador en la misma transacción; InsufficientFunds aborta todo.
func (e *Engine) CreateUser(ctx context.Context, creatorID string, in NewUserSpec) (string, error) {
	if err := validateShape(&in); err != nil {
		return "", err
	}
	// Hash fuera de la transacción: no retener bloqueos durante bcrypt.
	hash, err := e.hash(in.Password)
	if err != nil {
		return "", err
	}

	var userID string
	err = e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		creator, err := r.Users.GetByID(ctx, creatorID)
		if err != nil {
			return err
		}
		if creator == nil {
			return domain.ErrUnauthorized
		}
		if err := e.gate.CanCreate(creator, in.Role, in.Subrole, in.CompanyID); err != nil {
			return err
		}
		if in.CompanyID != "" {
			company, err := r.Companies.GetByID(ctx, in.CompanyID)
			if err != nil {
				return err
			}
			if !company.IsActive() {
				return domain.ErrNotFound
			}
		}

		details := map[string]any{"role": in.Role}
		if in.Subrole != "" {
			details["subrole"] = in.Subrole
		}
		if in.CompanyID != "" {
			details["companyId"] = in.CompanyID
		}
		if reason, ok := e.gate.CreationReason(in.Role, in.Subrole); ok {
			if cost := e.tariff.Cost(reason); cost > 0 {
				res, err := e.ledger.Debit(ctx, r, creatorID, cost, reason,
					fmt.Sprintf("alta de %s %s", policy.Key(in.Role, in.Subrole), in.Email))
				if err != nil {
					return err
				}
				details["reason"] = reason
				details["cost"] = cost
				details["coinTransactionId"] = res.Transaction.ID
				details["creatorBalance"] = res.FromBalance
			}
		}

		now := e.clock.Now()
		user := &entity.User{
			ID:           e.ids.NewID(),
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			Subrole:      in.Subrole,
			CreatedByID:  &creatorID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if in.CompanyID != "" {
			companyID := in.CompanyID
			user.CompanyID = &companyID
		}
		if e.gate.HoldsBalance(in.Role) {
			var zero int64
			user.Coins = &zero
		}

		ancestors, err := r.Users.AncestorIDs(ctx, creatorID)
		if err != nil {
			return err
		}
		for _, id := range ancestors {
			if id == user.ID {
				return domain.ErrHierarchyCycle
			}
		}
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}

		if _, err := e.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      creatorID,
			Action:       entity.ActionCreate,
			TargetUserID: user.ID,
			ResourceType: entity.ResourceUser,
			ResourceID:   user.ID,
			Details:      details,
		}); err != nil {
			return err
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// AllocateCoins transfiere monedas del otorgante al receptor (razón COIN_ALLOCATION).
func (e *Engine) AllocateCoins(ctx context.Context, granterID, recipientID string, amount int64) (string, error) {
	if amount <= 0 || recipientID == "" || granterID == recipientID {
		return "", domain.ErrInvalidInput
	}
	var txID string
	err := e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		granter, err := r.Users.GetByID(ctx, granterID)
		if err != nil {
			return err
		}
		if granter == nil {
			return domain.ErrUnauthorized
		}
		recipient, err := r.Users.GetByID(ctx, recipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return domain.ErrUserNotFound
		}
		recipientCompany := ""
		if recipient.CompanyID != nil {
			recipientCompany = *recipient.CompanyID
		}
		if err := e.gate.Authorize(granter, policy.ActionAllocateCoins, recipientCompany); err != nil {
			return err
		}

		res, err := e.ledger.Transfer(ctx, r, ledger.TransferInput{
			FromUserID: granterID,
			ToUserID:   recipientID,
			Amount:     amount,
			Reason:     entity.ReasonCoinAllocation,
			ReasonText: fmt.Sprintf("asignación a %s", recipient.Email),
		})
		if err != nil {
			return err
		}

		if _, err := e.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      granterID,
			Action:       entity.ActionAllocate,
			TargetUserID: recipientID,
			ResourceType: entity.ResourceCoinTx,
			ResourceID:   res.Transaction.ID,
			Details: map[string]any{
				"amount":           amount,
				"granterBalance":   res.FromBalance,
				"recipientBalance": res.ToBalance,
			},
		}); err != nil {
			return err
		}
		txID = res.Transaction.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

// Package policy es la puerta de autorización: tablas (rol × subrol × acción) sin almacenamiento propio.
// Las reglas son datos; agregar un rol o una acción no toca el código transaccional.
package policy

import (
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// Action operación sujeta a autorización.
type Action string

const (
	ActionCreateSession   Action = "session.create"
	ActionDispatchSession Action = "session.dispatch"
	ActionCompleteSession Action = "session.complete"
	ActionScanSeal        Action = "seal.scan"
	ActionVerifySeal      Action = "seal.verify"
	ActionAllocateCoins   Action = "coins.allocate"
	ActionViewSession     Action = "session.view"
	ActionViewAudit       Action = "audit.view"
	ActionManageCompany   Action = "company.manage"
)

// Scope alcance de un permiso.
type Scope int

const (
	// ScopeCompany exige que el recurso pertenezca a la empresa del actor.
	ScopeCompany Scope = iota + 1
	// ScopeGlobal permite cualquier empresa.
	ScopeGlobal
)

// Rules tablas de políticas. Las claves de principal son "ROL" (cualquier subrol) o "ROL/SUBROL".
type Rules struct {
	// Creation: principal creador -> principal creable -> alcance sobre la empresa del nuevo usuario.
	Creation map[string]map[string]Scope
	// Actions: acción -> principal -> alcance.
	Actions map[Action]map[string]Scope
	// CreationReasons: principal creable -> razón de cobro. Ausente = creación gratuita.
	CreationReasons map[string]string
	// BalanceHolders: roles que materializan saldo (coins no nulo) al crearse.
	BalanceHolders map[string]bool
}

// DefaultRules matriz por defecto; configurable con NewGate.
func DefaultRules() Rules {
	return Rules{
		Creation: map[string]map[string]Scope{
			entity.RoleSuperAdmin: {
				entity.RoleAdmin:    ScopeGlobal,
				entity.RoleCompany:  ScopeGlobal,
				entity.RoleEmployee: ScopeGlobal,
			},
			entity.RoleAdmin: {
				entity.RoleEmployee: ScopeGlobal,
			},
			entity.RoleCompany: {
				entity.RoleEmployee: ScopeCompany,
			},
		},
		Actions: map[Action]map[string]Scope{
			ActionCreateSession: {
				entity.RoleSuperAdmin:                            ScopeGlobal,
				entity.RoleAdmin:                                 ScopeGlobal,
				entity.RoleCompany:                               ScopeCompany,
				Key(entity.RoleEmployee, entity.SubroleOperator): ScopeCompany,
			},
			ActionDispatchSession: {
				Key(entity.RoleEmployee, entity.SubroleDriver):      ScopeCompany,
				Key(entity.RoleEmployee, entity.SubroleTransporter): ScopeCompany,
			},
			ActionCompleteSession: {
				entity.RoleSuperAdmin:                            ScopeGlobal,
				entity.RoleAdmin:                                 ScopeGlobal,
				entity.RoleCompany:                               ScopeCompany,
				Key(entity.RoleEmployee, entity.SubroleOperator): ScopeCompany,
				Key(entity.RoleEmployee, entity.SubroleGuard):    ScopeCompany,
			},
			ActionScanSeal: {
				Key(entity.RoleEmployee, entity.SubroleOperator): ScopeCompany,
				Key(entity.RoleEmployee, entity.SubroleGuard):    ScopeCompany,
			},
			ActionVerifySeal: {
				Key(entity.RoleEmployee, entity.SubroleGuard): ScopeCompany,
			},
			ActionAllocateCoins: {
				entity.RoleSuperAdmin: ScopeGlobal,
				entity.RoleAdmin:      ScopeGlobal,
				entity.RoleCompany:    ScopeCompany,
			},
			ActionViewSession: {
				entity.RoleSuperAdmin: ScopeGlobal,
				entity.RoleAdmin:      ScopeGlobal,
				entity.RoleCompany:    ScopeCompany,
				entity.RoleEmployee:   ScopeCompany,
			},
			ActionViewAudit: {
				entity.RoleSuperAdmin: ScopeGlobal,
				entity.RoleAdmin:      ScopeGlobal,
				entity.RoleCompany:    ScopeCompany,
			},
			ActionManageCompany: {
				entity.RoleSuperAdmin: ScopeGlobal,
				entity.RoleAdmin:      ScopeGlobal,
			},
		},
		CreationReasons: map[string]string{
			entity.RoleAdmin:                                 entity.ReasonAdminCreation,
			Key(entity.RoleEmployee, entity.SubroleOperator): entity.ReasonOperatorCreation,
		},
		BalanceHolders: map[string]bool{
			entity.RoleSuperAdmin: true,
			entity.RoleAdmin:      true,
			entity.RoleCompany:    true,
		},
	}
}

// Key construye la clave de principal.
func Key(role, subrole string) string {
	if subrole == "" {
		return role
	}
	return role + "/" + subrole
}

// Gate evalúa las tablas de Rules.
type Gate struct {
	rules Rules
}

// NewGate construye la puerta con las reglas dadas.
func NewGate(rules Rules) *Gate {
	return &Gate{rules: rules}
}

// lookup busca primero "ROL/SUBROL" y luego "ROL".
func lookup(table map[string]Scope, role, subrole string) (Scope, bool) {
	if table == nil {
		return 0, false
	}
	if subrole != "" {
		if s, ok := table[Key(role, subrole)]; ok {
			return s, true
		}
	}
	s, ok := table[role]
	return s, ok
}

func inScope(actor *entity.User, scope Scope, companyID string) bool {
	switch scope {
	case ScopeGlobal:
		return true
	case ScopeCompany:
		return companyID != "" && actor.BelongsTo(companyID)
	}
	return false
}

// Authorize verifica que el actor pueda ejecutar la acción sobre un recurso de companyID
// (vacío si el recurso no pertenece a ninguna empresa).
func (g *Gate) Authorize(actor *entity.User, action Action, companyID string) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	scope, ok := lookup(g.rules.Actions[action], actor.Role, actor.Subrole)
	if !ok || !inScope(actor, scope, companyID) {
		return domain.ErrUnauthorized
	}
	return nil
}

// CanCreate verifica la jerarquía de creación para (role, subrole) dentro de companyID.
func (g *Gate) CanCreate(creator *entity.User, role, subrole, companyID string) error {
	if creator == nil {
		return domain.ErrUnauthorized
	}
	var targets map[string]Scope
	if creator.Subrole != "" {
		targets = g.rules.Creation[Key(creator.Role, creator.Subrole)]
	}
	if targets == nil {
		targets = g.rules.Creation[creator.Role]
	}
	scope, ok := lookup(targets, role, subrole)
	if !ok {
		return domain.ErrUnauthorized
	}
	if scope == ScopeCompany && !creator.BelongsTo(companyID) {
		return domain.ErrUnauthorized
	}
	return nil
}

// CreationReason devuelve la razón de cobro para crear (role, subrole); ok=false si es gratuita.
func (g *Gate) CreationReason(role, subrole string) (string, bool) {
	if subrole != "" {
		if r, ok := g.rules.CreationReasons[Key(role, subrole)]; ok {
			return r, true
		}
	}
	r, ok := g.rules.CreationReasons[role]
	return r, ok
}

// HoldsBalance indica si una cuenta del rol materializa saldo desde su creación.
func (g *Gate) HoldsBalance(role string) bool {
	return g.rules.BalanceHolders[role]
}

package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Roles válidos para User.
const (
	RoleSuperAdmin = "SUPERADMIN"
	RoleAdmin      = "ADMIN"
	RoleCompany    = "COMPANY"
	RoleEmployee   = "EMPLOYEE"
)

// Subroles válidos (solo cuando Role = EMPLOYEE).
const (
	SubroleOperator    = "OPERATOR"
	SubroleDriver      = "DRIVER"
	SubroleTransporter = "TRANSPORTER"
	SubroleGuard       = "GUARD"
)

// User representa una identidad y su cuenta económica de monedas.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string  // bcrypt hash, nunca plano en dominio después de persistir
	Role         string  // SUPERADMIN, ADMIN, COMPANY, EMPLOYEE
	Subrole      string  // vacío salvo EMPLOYEE
	CompanyID    *string // nil para SUPERADMIN/ADMIN
	Coins        *int64  // nil = cuenta sin saldo materializado
	CreatedByID  *string // nil solo para raíces SUPERADMIN
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Balance devuelve el saldo; una cuenta sin saldo materializado vale 0.
func (u *User) Balance() int64 {
	if u == nil || u.Coins == nil {
		return 0
	}
	return *u.Coins
}

// BelongsTo indica si el usuario pertenece a la empresa.
func (u *User) BelongsTo(companyID string) bool {
	return u != nil && u.CompanyID != nil && *u.CompanyID == companyID
}

// IsValidRole valida el rol.
func IsValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleCompany, RoleEmployee:
		return true
	}
	return false
}

// IsValidSubrole valida el subrol.
func IsValidSubrole(subrole string) bool {
	switch subrole {
	case SubroleOperator, SubroleDriver, SubroleTransporter, SubroleGuard:
		return true
	}
	return false
}

var emailFolder = cases.Fold()

// NormalizeEmail recorta y pliega mayúsculas para que la unicidad no dependa del caso.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

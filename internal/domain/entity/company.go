package entity

import "time"

// Company representa el límite de tenant: dueña de Sessions y de usuarios EMPLOYEE.
type Company struct {
	ID        string
	Name      string
	Email     string
	Address   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // baja lógica; nil = activa
}

// IsActive indica si la empresa no ha sido dada de baja.
func (c *Company) IsActive() bool {
	return c != nil && c.DeletedAt == nil
}

package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrDuplicateEmail         = errors.New("el email ya está registrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrInsufficientFunds      = errors.New("saldo de monedas insuficiente")
	ErrInvalidTransition      = errors.New("transición de estado inválida")
	ErrSealNotVerified        = errors.New("el sello no ha sido verificado")
	ErrSealNotScanned         = errors.New("el sello no ha sido escaneado")
	ErrSealAlreadyVerified    = errors.New("el sello ya fue verificado y es inmutable")
	ErrCompanyHasOpenSessions = errors.New("la empresa tiene sesiones abiertas")
	ErrHierarchyCycle         = errors.New("la jerarquía de creadores formaría un ciclo")
	ErrTransientStorage       = errors.New("conflicto transitorio de almacenamiento")
)

// InsufficientFundsError detalla el saldo actual frente al monto requerido.
// errors.Is(err, ErrInsufficientFunds) es verdadero.
type InsufficientFundsError struct {
	UserID   string
	Balance  int64
	Required int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: usuario %s tiene %d, requiere %d", ErrInsufficientFunds, e.UserID, e.Balance, e.Required)
}

// Is permite comparar contra el sentinel ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// IsRetryable indica si la transacción completa puede reintentarse (deadlock / serialización).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}

// Kind devuelve un código estable del error para logs, métricas y respuestas HTTP.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrSealNotVerified):
		return "SEAL_NOT_VERIFIED"
	case errors.Is(err, ErrSealNotScanned):
		return "SEAL_NOT_SCANNED"
	case errors.Is(err, ErrSealAlreadyVerified):
		return "SEAL_ALREADY_VERIFIED"
	case errors.Is(err, ErrDuplicateEmail):
		return "DUPLICATE_EMAIL"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	case errors.Is(err, ErrCompanyHasOpenSessions):
		return "COMPANY_HAS_OPEN_SESSIONS"
	case errors.Is(err, ErrHierarchyCycle):
		return "HIERARCHY_CYCLE"
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "VALIDATION"
	case errors.Is(err, ErrTransientStorage):
		return "TRANSIENT_STORAGE"
	default:
		return "INTERNAL"
	}
}

// IsBusiness indica si el error es una regla de negocio (no una falla de infraestructura).
func IsBusiness(err error) bool {
	k := Kind(err)
	return k != "INTERNAL" && k != "TRANSIENT_STORAGE" && k != ""
}

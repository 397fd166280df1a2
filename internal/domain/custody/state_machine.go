package custody

import (
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

// edges aristas permitidas del ciclo de vida y la acción que autoriza cada una.
// No existe arista hacia atrás ni desde COMPLETED.
var edges = map[string]map[string]policy.Action{
	entity.SessionPending: {
		entity.SessionInProgress: policy.ActionDispatchSession,
	},
	entity.SessionInProgress: {
		entity.SessionCompleted: policy.ActionCompleteSession,
	},
}

// Transition valida from -> to y devuelve la acción que debe autorizarse.
func Transition(from, to string) (policy.Action, error) {
	next, ok := edges[from]
	if !ok {
		return "", domain.ErrInvalidTransition
	}
	action, ok := next[to]
	if !ok {
		return "", domain.ErrInvalidTransition
	}
	return action, nil
}

// RequiresVerifiedSeal indica si entrar a `to` exige Seal.verified = true.
func RequiresVerifiedSeal(to string) bool {
	return to == entity.SessionCompleted
}

// IsValidStatus valida el estado.
func IsValidStatus(status string) bool {
	switch status {
	case entity.SessionPending, entity.SessionInProgress, entity.SessionCompleted:
		return true
	}
	return false
}

package custody_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/custody"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/policy"
)

func TestTransition_AristasPermitidas(t *testing.T) {
	action, err := custody.Transition(entity.SessionPending, entity.SessionInProgress)
	require.NoError(t, err)
	assert.Equal(t, policy.ActionDispatchSession, action)

	action, err = custody.Transition(entity.SessionInProgress, entity.SessionCompleted)
	require.NoError(t, err)
	assert.Equal(t, policy.ActionCompleteSession, action)
}

func TestTransition_RechazaSaltosYRetrocesos(t *testing.T) {
	cases := []struct{ from, to string }{
		{entity.SessionPending, entity.SessionCompleted},
		{entity.SessionPending, entity.SessionPending},
		{entity.SessionInProgress, entity.SessionPending},
		{entity.SessionInProgress, entity.SessionInProgress},
		{entity.SessionCompleted, entity.SessionPending},
		{entity.SessionCompleted, entity.SessionInProgress},
		{entity.SessionCompleted, entity.SessionCompleted},
		{"", entity.SessionInProgress},
		{entity.SessionPending, "CANCELLED"},
	}
	for _, c := range cases {
		_, err := custody.Transition(c.from, c.to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s debe ser inválida", c.from, c.to)
	}
}

func TestRequiresVerifiedSeal(t *testing.T) {
	assert.True(t, custody.RequiresVerifiedSeal(entity.SessionCompleted))
	assert.False(t, custody.RequiresVerifiedSeal(entity.SessionInProgress))
}

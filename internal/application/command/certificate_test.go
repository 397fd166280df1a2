package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

func TestSessionCertificate_UneRastrosDeSesionYSello(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)
	require.NoError(t, f.h.svc.ScanSeal(ctx, f.guard, f.sessionID, "BC-9"))
	require.NoError(t, f.h.svc.VerifySeal(ctx, f.sessionID, f.guard))

	cert, err := f.h.svc.SessionCertificate(ctx, f.admin, f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, f.sessionID, cert.Session.ID)
	assert.Equal(t, f.companyID, cert.Company.ID)
	require.NotNil(t, cert.Seal)
	assert.True(t, cert.Seal.Verified)
	assert.Equal(t, f.admin, cert.IssuedBy)
	assert.False(t, cert.IssuedAt.IsZero())

	var sealActions []string
	for i, l := range cert.Trail {
		if i > 0 {
			assert.False(t, l.CreatedAt.Before(cert.Trail[i-1].CreatedAt), "orden de creación")
		}
		if l.TargetResourceType != nil && *l.TargetResourceType == entity.ResourceSeal {
			sealActions = append(sealActions, l.Action)
		}
	}
	assert.Equal(t, []string{entity.ActionCreate, entity.ActionUpdate}, sealActions)
}

func TestSessionCertificate_SinSelloNiPermiso(t *testing.T) {
	ctx := context.Background()
	f := newSealFixture(t)

	cert, err := f.h.svc.SessionCertificate(ctx, f.admin, f.sessionID)
	require.NoError(t, err)
	assert.Nil(t, cert.Seal)

	_, err = f.h.svc.SessionCertificate(ctx, f.guard, f.sessionID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.h.svc.SessionCertificate(ctx, f.admin, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

func sampleCertificate(withSeal bool) *ports.CustodyCertificate {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	resource := entity.ResourceSession
	cert := &ports.CustodyCertificate{
		Session: &entity.Session{
			ID: "ses-1", CompanyID: "co-1", Source: "Bodega Norte", Destination: "Puerto",
			Status: entity.SessionCompleted, CreatedAt: now, UpdatedAt: now.Add(time.Hour),
		},
		Company: &entity.Company{ID: "co-1", Name: "Transportes Andinos", Email: "ops@andinos.test"},
		Trail: []*entity.ActivityLog{
			{ID: "l1", UserID: "op-1", Action: entity.ActionCreate, TargetResourceType: &resource, CreatedAt: now},
		},
		IssuedBy: "admin-1",
		IssuedAt: now.Add(2 * time.Hour),
	}
	if withSeal {
		guard := "guard-1"
		scanned := now.Add(10 * time.Minute)
		cert.Seal = &entity.Seal{ID: "seal-1", SessionID: "ses-1", Barcode: "BC-001",
			ScannedAt: &scanned, Verified: true, VerifiedByID: &guard}
	}
	return cert
}

func TestRenderCertificate_GeneraPDF(t *testing.T) {
	g := NewCertificateGenerator()
	for _, withSeal := range []bool{true, false} {
		out, err := g.RenderCertificate(context.Background(), sampleCertificate(withSeal))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "con sello=%v", withSeal)
	}
}

func TestRenderCertificate_RechazaIncompleto(t *testing.T) {
	g := NewCertificateGenerator()
	_, err := g.RenderCertificate(context.Background(), &ports.CustodyCertificate{})
	assert.Error(t, err)

	cert := sampleCertificate(false)
	cert.Company = nil
	_, err = g.RenderCertificate(context.Background(), cert)
	assert.Error(t, err)
}

func TestCertificateHelpers(t *testing.T) {
	assert.Equal(t, "custody:session:abc", qrPayload("abc"))
	assert.Equal(t, "-", nonEmpty("", "-"))
	assert.Equal(t, colorOK, statusColor(entity.SessionCompleted))
	assert.Equal(t, colorGray, statusColor(entity.SessionPending))
}

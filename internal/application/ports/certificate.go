package ports

import (
	"context"
	"time"

	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// CustodyCertificate constancia de cadena de custodia de una sesión.
type CustodyCertificate struct {
	Session  *entity.Session
	Seal     *entity.Seal // nil si el sello aún no fue escaneado
	Company  *entity.Company
	Trail    []*entity.ActivityLog // eventos de la sesión y del sello, en orden de creación
	IssuedBy string
	IssuedAt time.Time
}

// CertificateRenderer genera el documento imprimible del certificado.
type CertificateRenderer interface {
	RenderCertificate(ctx context.Context, cert *CustodyCertificate) ([]byte, error)
}

// Package pdf genera la constancia de cadena de custodia de una sesión.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Empresa + email     │  N° Sesión + Estado           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TRAYECTO: Origen → Destino / apertura / cierre              │
//	│  SELLO: Código / lectura / verificación                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Acción | Recurso | Actor                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el ID de la sesión + emisión                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

const dateLayout = "02/01/2006 15:04"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorOK      = &props.Color{Red: 20, Green: 120, Blue: 60}
	colorWarn    = &props.Color{Red: 170, Green: 40, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// CertificateGenerator implementa ports.CertificateRenderer usando Maroto v2.
type CertificateGenerator struct{}

var _ ports.CertificateRenderer = (*CertificateGenerator)(nil)

// NewCertificateGenerator construye el generador.
func NewCertificateGenerator() *CertificateGenerator { return &CertificateGenerator{} }

// RenderCertificate genera el PDF y devuelve sus bytes.
func (g *CertificateGenerator) RenderCertificate(_ context.Context, cert *ports.CustodyCertificate) ([]byte, error) {
	if cert == nil || cert.Session == nil || cert.Company == nil {
		return nil, fmt.Errorf("pdf: certificado incompleto")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Constancia de cadena de custodia", true).
		WithAuthor(cert.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(cert.Session, cert.Company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(routeRow(cert.Session))
	m.AddRows(sealRow(cert.Seal))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(trailRows(cert.Trail)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(cert)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: empresa (izq) y sesión + estado (der).
func headerRow(s *entity.Session, c *entity.Company) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(c.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(c.Email, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("CADENA DE CUSTODIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(s.ID, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 7,
			}),
			text.New("Estado: "+s.Status, props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: statusColor(s.Status),
			}),
		),
	)
}

func routeRow(s *entity.Session) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("TRAYECTO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(s.Source+"  ->  "+s.Destination, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Apertura: %s   |   Última actualización: %s",
				s.CreatedAt.Format(dateLayout), s.UpdatedAt.Format(dateLayout),
			), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func sealRow(seal *entity.Seal) core.Row {
	barcode, scanned, verified := "-", "sin lectura", "pendiente"
	verifiedColor := colorWarn
	if seal != nil {
		barcode = nonEmpty(seal.Barcode, "-")
		if seal.ScannedAt != nil {
			scanned = seal.ScannedAt.Format(dateLayout)
		}
		if seal.Verified {
			verified = "verificado"
			if seal.VerifiedByID != nil {
				verified += " por " + *seal.VerifiedByID
			}
			verifiedColor = colorOK
		}
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("SELLO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Código: %s   |   Lectura: %s", barcode, scanned),
				props.Text{Size: 8, Top: 6}),
			text.New("Verificación: "+verified, props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 10, Color: verifiedColor,
			}),
		),
	)
}

// tableHeaderRow: cabecera del rastro de auditoría.
func tableHeaderRow() core.Row {
	h := func(label string, size int) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2, Left: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 3),
		h("Acción", 2),
		h("Recurso", 2),
		h("Actor", 5),
	)
}

// trailRows: una fila por registro de auditoría.
func trailRows(trail []*entity.ActivityLog) []core.Row {
	if len(trail) == 0 {
		return []core.Row{row.New(7).Add(col.New(12).Add(
			text.New("Sin eventos registrados.", props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray}),
		))}
	}
	result := make([]core.Row, 0, len(trail))
	for _, l := range trail {
		resource := "-"
		if l.TargetResourceType != nil {
			resource = *l.TargetResourceType
		}
		result = append(result, row.New(6).Add(
			col.New(3).Add(text.New(l.CreatedAt.Format(dateLayout), props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(2).Add(text.New(l.Action, props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(2).Add(text.New(resource, props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(5).Add(text.New(l.UserID, props.Text{Size: 7, Top: 1, Left: 1, Color: colorGray})),
		))
	}
	return result
}

// footerRows: QR con el ID de la sesión y datos de emisión.
func footerRows(cert *ports.CustodyCertificate) []core.Row {
	issued := cert.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(qrPayload(cert.Session.ID), props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Escanee el código para consultar la sesión\nen el sistema de custodia.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New(fmt.Sprintf("Emitido el %s por %s", issued.Format(dateLayout), nonEmpty(cert.IssuedBy, "-")), props.Text{
					Size: 8, Top: 18, Left: 3,
				}),
			),
		),
		row.New(8).Add(col.New(12).Add(
			text.New(
				"Constancia generada a partir del registro de auditoría append-only. "+
					"Cualquier alteración del sello posterior a su verificación invalida este documento.",
				props.Text{Size: 6.5, Color: colorGray, Top: 2},
			),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func qrPayload(sessionID string) string {
	return "custody:session:" + sessionID
}

func statusColor(status string) *props.Color {
	if status == entity.SessionCompleted {
		return colorOK
	}
	return colorGray
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

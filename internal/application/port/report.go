package port

import "github.com/garyjia/claims-workflow/internal/domain/entity"

// ReportRenderer turns report data into a downloadable document
type ReportRenderer interface {
	RenderClaimsReport(report *entity.ClaimsReport) ([]byte, error)
	RenderInvoice(invoice *entity.Invoice) ([]byte, error)
	// ContentType and Extension describe the rendered format
	ContentType() string
	Extension() string
}

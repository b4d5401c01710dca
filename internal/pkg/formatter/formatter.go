package formatter

import (
	"fmt"

	"github.com/futig/dashboard-backend/internal/entity"
)

const baseTitle = "Clinical Notes Report"

type Formatter interface {
	Format(report *entity.ClinicalNotesReport) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ReportFormat) (Formatter, error) {
	switch format {
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func reportSubtitle(report *entity.ClinicalNotesReport) string {
	return fmt.Sprintf("%s, last %d days (generated %s)",
		report.Center,
		report.Days,
		report.GeneratedAt.Format("2006-01-02 15:04"),
	)
}

package entity

import "time"

// ReportFormat selects the rendered report file type.
type ReportFormat string

const (
	FormatPDF  ReportFormat = "pdf"
	FormatDOCX ReportFormat = "docx"
)

// ReportSection is one titled block of report lines.
type ReportSection struct {
	Title string
	Lines []string
}

// ClinicalNotesReport is the assembled clinical-notes report for one
// center over a trailing window, before rendering.
type ClinicalNotesReport struct {
	Center      string
	Days        int
	GeneratedAt time.Time
	Sections    []ReportSection
}

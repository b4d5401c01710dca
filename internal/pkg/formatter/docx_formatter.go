package formatter

import (
	"bytes"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(report *entity.ClinicalNotesReport) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(baseTitle)

	subtitlePar := doc.AddParagraph()
	subtitlePar.AddRun().AddText(reportSubtitle(report))

	doc.AddParagraph()

	for _, section := range report.Sections {
		sectionPar := doc.AddParagraph()
		sectionPar.SetStyle("Heading2")
		sectionPar.AddRun().AddText(section.Title)

		for _, line := range section.Lines {
			doc.AddParagraph().AddRun().AddText(line)
		}

		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}

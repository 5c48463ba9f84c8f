package formatter

import (
	"bytes"

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

func (mf *DOCXFormatter) Format(doc Document) ([]byte, error) {
	out := document.New()
	defer out.Close()

	titlePar := out.AddParagraph()
	titlePar.SetStyle("Title")
	titlePar.AddRun().AddText(doc.Title)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			headingPar := out.AddParagraph()
			headingPar.SetStyle("Heading2")
			headingPar.AddRun().AddText(section.Heading)
		}

		for _, b := range section.Bullets {
			out.AddParagraph().AddRun().AddText("• " + b)
		}

		for _, p := range section.Paragraphs {
			out.AddParagraph().AddRun().AddText(p)
		}
	}

	var buf bytes.Buffer
	if err := out.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}

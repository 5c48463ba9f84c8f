package formatter

import (
	"bytes"
	"fmt"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", doc.Title)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			fmt.Fprintf(&buf, "\n## %s\n", section.Heading)
		}
		if len(section.Bullets) > 0 {
			buf.WriteString("\n")
			for _, b := range section.Bullets {
				fmt.Fprintf(&buf, "- %s\n", b)
			}
		}
		for _, p := range section.Paragraphs {
			fmt.Fprintf(&buf, "\n%s\n", p)
		}
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}

package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/omnistudy/internal/entity"
)

// Validator validates inbound chat requests
type Validator struct {
	maxInputLength int
}

func NewValidator(maxInputLength int) *Validator {
	return &Validator{maxInputLength: maxInputLength}
}

// ValidateSubmitMessage checks the mode and input length and returns the parsed mode.
// Empty text is accepted here; the submit flow treats it as a no-op.
func (v *Validator) ValidateSubmitMessage(req *entity.SubmitMessageRequest) (entity.Mode, error) {
	if strings.TrimSpace(req.Mode) == "" {
		return "", fmt.Errorf("%w: mode", entity.ErrMissingField)
	}

	mode, ok := entity.ParseMode(req.Mode)
	if !ok {
		return "", fmt.Errorf("%w: %q (allowed: EXPLAIN, QUIZ, STUDY_PLAN, SUMMARIZE)", entity.ErrInvalidMode, req.Mode)
	}

	if err := v.ValidateInput(req.Text); err != nil {
		return "", err
	}

	return mode, nil
}

// ValidateInput rejects prompts longer than the configured limit (in characters)
func (v *Validator) ValidateInput(text string) error {
	if n := utf8.RuneCountInString(text); n > v.maxInputLength {
		return fmt.Errorf("%w: text is %d characters (max %d)", entity.ErrInvalidParameter, n, v.maxInputLength)
	}
	return nil
}

// ValidateSelectOption requires an option index
func (v *Validator) ValidateSelectOption(req *entity.SelectOptionRequest) (int, error) {
	if req.Option == nil {
		return 0, fmt.Errorf("%w: option", entity.ErrMissingField)
	}
	if *req.Option < 0 {
		return 0, fmt.Errorf("%w: option must not be negative", entity.ErrInvalidParameter)
	}
	return *req.Option, nil
}

// ValidateExportFormat defaults an empty format to markdown
func (v *Validator) ValidateExportFormat(format string) (entity.ExportFormat, error) {
	if format == "" {
		return entity.FormatMarkdown, nil
	}

	f := entity.ExportFormat(strings.ToLower(format))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q (allowed: markdown, pdf, docx)", entity.ErrInvalidFormat, format)
	}
	return f, nil
}

// SanitizeFilename turns a document title into a safe download name
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"\"", "",
		"*", "",
		":", "",
		"?", "",
	)
	name := replacer.Replace(strings.TrimSpace(filename))
	if name == "" {
		return "omnistudy"
	}
	return name
}

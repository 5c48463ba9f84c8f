package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Submission errors
	ErrEmptyInput = errors.New("input is empty")
	ErrBusy       = errors.New("a request is already in flight")

	// Generation errors
	ErrGeneration        = errors.New("generation failed")
	ErrMalformedResponse = errors.New("malformed generation response")

	// Conversation errors
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotAQuiz             = errors.New("message is not a quiz")
	ErrInvalidQuiz          = errors.New("invalid quiz")

	// Validation errors
	ErrInvalidMode      = errors.New("invalid mode")
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// GenerationError is a provider or transport failure of a gateway operation
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}

// ParseError is a structured result that does not fit its schema
type ParseError struct {
	Schema string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Schema, e.Err)
	}
	return fmt.Sprintf("parse %s: field %s: %v", e.Schema, e.Field, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}

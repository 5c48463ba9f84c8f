package handlers

import (
	"context"
	"errors"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// HandlerError represents a structured error with user message and logging info
type HandlerError struct {
	Err         error
	UserMessage string
	LogMessage  string
	Severity    ErrorSeverity
}

// classifyHandlerError analyzes an error and returns a HandlerError with appropriate severity and messages
func classifyHandlerError(err error) *HandlerError {
	handlerErr := &HandlerError{
		Err:         err,
		UserMessage: render.ClassifyError(err),
		LogMessage:  "handler error",
		Severity:    SeverityError,
	}

	switch {
	case err == nil:
		handlerErr.LogMessage = "unknown error"
		handlerErr.Severity = SeverityWarning
	case errors.Is(err, entity.ErrBusy):
		handlerErr.LogMessage = "conversation busy"
		handlerErr.Severity = SeverityWarning
	case errors.Is(err, entity.ErrConversationNotFound):
		handlerErr.LogMessage = "conversation not found"
		handlerErr.Severity = SeverityWarning
	case errors.Is(err, entity.ErrMessageNotFound), errors.Is(err, entity.ErrNotAQuiz):
		handlerErr.LogMessage = "quiz not found"
		handlerErr.Severity = SeverityWarning
	case errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrInvalidMode),
		errors.Is(err, entity.ErrInvalidFormat):
		handlerErr.LogMessage = "invalid user input"
		handlerErr.Severity = SeverityWarning
	}

	return handlerErr
}

// HandleError provides centralized error handling for all handlers
// It logs the error with appropriate severity and sends a user-friendly message
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err)

	switch handlerErr.Severity {
	case SeverityError:
		ctxzap.Error(ctx, handlerErr.LogMessage,
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
		)
	case SeverityWarning:
		ctxzap.Warn(ctx, handlerErr.LogMessage,
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
		)
	}

	h.sendMessage(ctx, chatID, handlerErr.UserMessage, nil)
}

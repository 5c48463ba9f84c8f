package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/telegram/keyboard"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CallbackHandler handles all callback button clicks
type CallbackHandler struct {
	BaseHandler
	validator *validator.Validator
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(deps Deps, v *validator.Validator) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler: newBaseHandler(HandlerStateCallback, deps),
		validator:   v,
	}
}

// Handle routes callback queries to appropriate actions
func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		ctxzap.Warn(ctx, "failed to parse callback",
			zap.Error(err),
			zap.String("data", msg.CallbackData),
		)
		return fmt.Errorf("parse callback: %w", err)
	}

	ctxzap.Info(ctx, "handling callback",
		zap.String("action", data.Action),
		zap.String("value", data.Value),
		zap.String("arg", data.Arg),
		zap.Int64("user_id", msg.UserID),
	)

	switch data.Action {
	case keyboard.ActionMode:
		return h.handleModeSelection(ctx, msg, data.Value)
	case keyboard.ActionQuiz:
		return h.handleQuizAnswer(ctx, msg, data.Value, data.Arg)
	case keyboard.ActionQuizNext:
		return h.handleQuizNext(ctx, msg, data.Value)
	case keyboard.ActionDownload:
		return h.handleDownload(ctx, msg, data.Value, data.Arg)
	default:
		ctxzap.Warn(ctx, "unknown callback action",
			zap.String("action", data.Action),
		)
		return fmt.Errorf("unknown action: %s", data.Action)
	}
}

// handleModeSelection stores the mode for the next message and echoes its input hint
func (h *CallbackHandler) handleModeSelection(ctx context.Context, msg *Message, value string) error {
	mode, ok := entity.ParseMode(value)
	if !ok {
		h.HandleError(ctx, msg.ChatID, fmt.Errorf("%w: %q", entity.ErrInvalidMode, value))
		return nil
	}

	data, err := h.stateManager.GetStateData(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}

	data.Mode = mode
	if err := h.stateManager.UpdateStateData(ctx, msg.UserID, data); err != nil {
		return fmt.Errorf("update state data: %w", err)
	}

	ctxzap.Info(ctx, "mode selected",
		zap.String("mode", string(mode)),
		zap.Int64("user_id", msg.UserID),
	)

	markup := h.keyboard.ModeKeyboard(mode)
	if err := h.messageSender.Edit(ctx, msg.ChatID, msg.MessageID, render.RenderChooseMode(mode), &markup); err != nil {
		ctxzap.Warn(ctx, "failed to refresh mode keyboard", zap.Error(err))
	}

	h.sendMessage(ctx, msg.ChatID, render.RenderModeSelected(mode), nil)
	return nil
}

func (h *CallbackHandler) handleQuizAnswer(ctx context.Context, msg *Message, quizMessageID, arg string) error {
	option, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("parse option %q: %w", arg, err)
	}

	return h.updateQuiz(ctx, msg, quizMessageID, func(conversationID string) (*quiz.Run, error) {
		return h.chatUC.SelectOption(ctx, conversationID, quizMessageID, option)
	})
}

func (h *CallbackHandler) handleQuizNext(ctx context.Context, msg *Message, quizMessageID string) error {
	return h.updateQuiz(ctx, msg, quizMessageID, func(conversationID string) (*quiz.Run, error) {
		return h.chatUC.AdvanceQuiz(ctx, conversationID, quizMessageID)
	})
}

// updateQuiz applies a transition and redraws the widget in place
func (h *CallbackHandler) updateQuiz(
	ctx context.Context, msg *Message, quizMessageID string, transition func(conversationID string) (*quiz.Run, error),
) error {
	conversationID, err := h.activeConversationID(ctx, msg.UserID)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	run, err := transition(conversationID)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	text, markup := h.quizView(quizMessageID, run)
	if err := h.messageSender.Edit(ctx, msg.ChatID, msg.MessageID, text, markup); err != nil {
		return fmt.Errorf("redraw quiz: %w", err)
	}

	return nil
}

// handleDownload sends a plan or summary as a document
func (h *CallbackHandler) handleDownload(ctx context.Context, msg *Message, messageID, format string) error {
	exportFormat, err := h.validator.ValidateExportFormat(format)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	conversationID, err := h.activeConversationID(ctx, msg.UserID)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	file, err := h.chatUC.ExportMessage(ctx, conversationID, messageID, exportFormat)
	if err != nil {
		ctxzap.Error(ctx, "failed to export message",
			zap.Error(err),
			zap.String("message_id", messageID),
			zap.String("format", string(exportFormat)),
		)
		h.sendMessage(ctx, msg.ChatID, render.ErrExportFailed, nil)
		return nil
	}

	if err := h.messageSender.SendDocument(ctx, msg.ChatID, file.Filename, file.Content, render.MsgExportReady); err != nil {
		h.sendMessage(ctx, msg.ChatID, render.ErrExportFailed, nil)
	}

	return nil
}

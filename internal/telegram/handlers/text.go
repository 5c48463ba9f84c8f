package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// TextHandler submits text messages to the conversation in the user's current mode
type TextHandler struct {
	BaseHandler
	validator *validator.Validator
}

func NewTextHandler(deps Deps, v *validator.Validator) *TextHandler {
	return &TextHandler{
		BaseHandler: newBaseHandler(HandlerStateText, deps),
		validator:   v,
	}
}

// Handle implements Handler
func (h *TextHandler) Handle(ctx context.Context, msg *Message) error {
	if msg.Unsupported {
		h.sendMessage(ctx, msg.ChatID, render.ErrUnsupportedInput, nil)
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if err := h.validator.ValidateInput(text); err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	data, err := h.stateManager.GetStateData(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}

	store, err := h.currentConversation(ctx, msg.UserID)
	if err != nil {
		return err
	}

	// Input is disabled while a reply is pending
	if store.Busy() {
		ctxzap.Info(ctx, "message ignored: generation in flight",
			zap.String("conversation_id", store.ID()),
			zap.Int64("user_id", msg.UserID),
		)
		return nil
	}

	typing := NewTypingNotifier(h.bot, msg.ChatID, h.logger)
	typing.Start(ctx)
	result, err := h.chatUC.Submit(ctx, store.ID(), data.CurrentMode(), text)
	typing.Stop()

	switch {
	case errors.Is(err, entity.ErrBusy), errors.Is(err, entity.ErrEmptyInput):
		ctxzap.Info(ctx, "message ignored", zap.Error(err))
		return nil
	case err != nil:
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	return h.sendReply(ctx, msg.ChatID, msg.UserID, store.ID(), result.Assistant)
}

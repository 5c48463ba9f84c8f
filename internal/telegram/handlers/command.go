package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Bot commands
const (
	CommandStart = "start"
	CommandMode  = "mode"
	CommandHelp  = "help"
	CommandReset = "reset"
)

// CommandHandler handles slash commands
type CommandHandler struct {
	BaseHandler
}

func NewCommandHandler(deps Deps) *CommandHandler {
	return &CommandHandler{
		BaseHandler: newBaseHandler(HandlerStateCommand, deps),
	}
}

// Handle implements Handler
func (h *CommandHandler) Handle(ctx context.Context, msg *Message) error {
	ctxzap.Info(ctx, "command received",
		zap.String("command", msg.Command),
		zap.Int64("user_id", msg.UserID),
	)

	switch msg.Command {
	case CommandStart:
		return h.handleStart(ctx, msg)
	case CommandMode:
		return h.handleMode(ctx, msg)
	case CommandHelp:
		h.sendMessage(ctx, msg.ChatID, render.MsgHelp, nil)
		return nil
	case CommandReset:
		return h.handleReset(ctx, msg)
	default:
		h.sendMessage(ctx, msg.ChatID, render.ErrUnknownCommand, nil)
		return nil
	}
}

// handleStart drops any previous conversation and opens a fresh one
func (h *CommandHandler) handleStart(ctx context.Context, msg *Message) error {
	if err := h.dropConversation(ctx, msg.UserID); err != nil {
		return err
	}

	store, err := h.startConversation(ctx, msg.UserID)
	if err != nil {
		return err
	}

	data, err := h.stateManager.GetStateData(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}

	ctxzap.Info(ctx, "telegram conversation started",
		zap.String("conversation_id", store.ID()),
		zap.Int64("user_id", msg.UserID),
	)

	_, err = h.messageSender.Send(ctx, msg.ChatID, render.MsgWelcome, h.keyboard.ModeKeyboard(data.CurrentMode()))
	return err
}

func (h *CommandHandler) handleMode(ctx context.Context, msg *Message) error {
	data, err := h.stateManager.GetStateData(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}

	mode := data.CurrentMode()
	_, err = h.messageSender.Send(ctx, msg.ChatID, render.RenderChooseMode(mode), h.keyboard.ModeKeyboard(mode))
	return err
}

func (h *CommandHandler) handleReset(ctx context.Context, msg *Message) error {
	if _, err := h.activeConversationID(ctx, msg.UserID); errors.Is(err, entity.ErrConversationNotFound) {
		h.sendMessage(ctx, msg.ChatID, render.MsgNoConversation, nil)
		return nil
	}

	if err := h.dropConversation(ctx, msg.UserID); err != nil {
		return err
	}

	h.sendMessage(ctx, msg.ChatID, render.MsgConversationReset, nil)
	return nil
}

// dropConversation deletes the user's conversation with its quiz runs.
// The selected mode survives; the session is unbound from the conversation.
func (h *CommandHandler) dropConversation(ctx context.Context, userID int64) error {
	conversationID, err := h.activeConversationID(ctx, userID)
	if errors.Is(err, entity.ErrConversationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	data, err := h.stateManager.GetStateData(ctx, userID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}

	for _, messageID := range data.QuizMessageIDs {
		if err := h.chatUC.CloseQuiz(ctx, conversationID, messageID); err != nil {
			ctxzap.Debug(ctx, "quiz already gone",
				zap.String("message_id", messageID),
				zap.Error(err),
			)
		}
	}

	if err := h.chatUC.DeleteConversation(ctx, conversationID); err != nil && !errors.Is(err, entity.ErrConversationNotFound) {
		return fmt.Errorf("delete conversation: %w", err)
	}

	if err := h.stateManager.DeleteSession(ctx, userID); err != nil {
		return fmt.Errorf("delete telegram session: %w", err)
	}

	data.QuizMessageIDs = nil
	data.LastMessageID = 0
	if err := h.stateManager.UpdateStateData(ctx, userID, data); err != nil {
		return fmt.Errorf("update state data: %w", err)
	}

	ctxzap.Info(ctx, "telegram conversation dropped",
		zap.String("conversation_id", conversationID),
		zap.Int64("user_id", userID),
	)

	return nil
}

package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/telegram/keyboard"
	"github.com/futig/omnistudy/internal/telegram/state"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Handler kinds
const (
	HandlerStateCommand  = "COMMAND"
	HandlerStateText     = "TEXT"
	HandlerStateCallback = "CALLBACK"
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	CallbackData string
	CallbackID   string
	Unsupported  bool // voice, document or other non-text content
}

// Handler defines the interface for update handlers
type Handler interface {
	// Handle processes a message for this kind of update
	Handle(ctx context.Context, msg *Message) error

	// GetState returns the kind of update this handler manages
	GetState() string
}

// Deps are the collaborators shared by every handler
type Deps struct {
	Bot          BotAPI
	StateManager *state.Manager
	ChatUC       ChatUsecase
	Keyboard     *keyboard.Builder
	Sender       *MessageSender
	Logger       *zap.Logger
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	stateName     string
	bot           BotAPI
	messageSender *MessageSender
	stateManager  *state.Manager
	chatUC        ChatUsecase
	keyboard      *keyboard.Builder
	logger        *zap.Logger
}

func newBaseHandler(stateName string, deps Deps) BaseHandler {
	return BaseHandler{
		stateName:     stateName,
		bot:           deps.Bot,
		messageSender: deps.Sender,
		stateManager:  deps.StateManager,
		chatUC:        deps.ChatUC,
		keyboard:      deps.Keyboard,
		logger:        deps.Logger,
	}
}

// GetState implements Handler
func (h *BaseHandler) GetState() string {
	return h.stateName
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(ctx context.Context, chatID int64, text string, markup interface{}) {
	if h.messageSender != nil {
		_, _ = h.messageSender.Send(ctx, chatID, text, markup)
	}
}

// startConversation creates a conversation and binds the user to it, keeping the chosen mode
func (h *BaseHandler) startConversation(ctx context.Context, userID int64) (*conversation.Store, error) {
	store, err := h.chatUC.CreateConversation(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if err := h.stateManager.CreateOrUpdateSession(ctx, userID, store.ID()); err != nil {
		return nil, fmt.Errorf("bind conversation: %w", err)
	}

	return store, nil
}

// activeConversationID returns the conversation bound to the user or ErrConversationNotFound
func (h *BaseHandler) activeConversationID(ctx context.Context, userID int64) (string, error) {
	session, err := h.stateManager.GetSession(ctx, userID)
	if errors.Is(err, state.ErrSessionNotFound) {
		return "", entity.ErrConversationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get telegram session: %w", err)
	}
	if session.ConversationID == "" {
		return "", entity.ErrConversationNotFound
	}
	return session.ConversationID, nil
}

// currentConversation returns the user's live conversation, starting a new one
// when the user has none or the previous one has expired
func (h *BaseHandler) currentConversation(ctx context.Context, userID int64) (*conversation.Store, error) {
	conversationID, err := h.activeConversationID(ctx, userID)
	if err != nil && !errors.Is(err, entity.ErrConversationNotFound) {
		return nil, err
	}

	if conversationID != "" {
		store, err := h.chatUC.GetConversation(ctx, conversationID)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, entity.ErrConversationNotFound) {
			return nil, err
		}
		ctxzap.Info(ctx, "conversation expired, starting a new one",
			zap.String("conversation_id", conversationID),
			zap.Int64("user_id", userID),
		)
	}

	return h.startConversation(ctx, userID)
}

// validStates defines all valid handler states
var validStates = map[string]bool{
	HandlerStateCommand:  true,
	HandlerStateText:     true,
	HandlerStateCallback: true,
}

// IsValidState checks if a state is valid for handler registration
func IsValidState(state string) bool {
	_, ok := validStates[state]
	return ok
}

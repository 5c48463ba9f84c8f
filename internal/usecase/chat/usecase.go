package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/formatter"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// SubmitResult holds the two messages appended by one submission
type SubmitResult struct {
	User      entity.Message
	Assistant entity.Message
}

// ChatUsecase implements the conversation flow shared by the HTTP API and the bot
type ChatUsecase struct {
	conversations repository.ConversationRepository
	dispatcher    *Dispatcher
	quizzes       *quiz.Registry
	formatters    *formatter.Factory
	logger        *zap.Logger
}

func NewUsecase(
	conversations repository.ConversationRepository,
	gateway Gateway,
	quizzes *quiz.Registry,
	formatters *formatter.Factory,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		conversations: conversations,
		dispatcher:    NewDispatcher(gateway),
		quizzes:       quizzes,
		formatters:    formatters,
		logger:        logger,
	}
}

func (uc *ChatUsecase) CreateConversation(ctx context.Context) (*conversation.Store, error) {
	store, err := uc.conversations.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	store.Subscribe(uc.traceEvent)

	ctxzap.Info(ctx, "conversation created", zap.String("conversation_id", store.ID()))

	return store, nil
}

func (uc *ChatUsecase) GetConversation(ctx context.Context, conversationID string) (*conversation.Store, error) {
	store, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return store, nil
}

// DeleteConversation drops the transcript and every quiz run opened on it
func (uc *ChatUsecase) DeleteConversation(ctx context.Context, conversationID string) error {
	store, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}

	uc.quizzes.Discard(QuizMessageIDs(store)...)

	if err := uc.conversations.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	ctxzap.Info(ctx, "conversation deleted", zap.String("conversation_id", conversationID))

	return nil
}

// Submit appends the user prompt and the dispatched reply. Blank text returns
// ErrEmptyInput and a submission while another is in flight returns ErrBusy;
// in both cases the conversation is left untouched.
func (uc *ChatUsecase) Submit(ctx context.Context, conversationID string, mode entity.Mode, text string) (*SubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, entity.ErrEmptyInput
	}

	store, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if !store.TryBegin() {
		ctxzap.Info(ctx, "submission rejected: request in flight", zap.String("conversation_id", conversationID))
		return nil, entity.ErrBusy
	}
	defer store.SetBusy(false)

	userMsg := store.AppendUser(text)

	// A started generation runs to completion even if the caller goes away
	reply := uc.dispatcher.Dispatch(context.WithoutCancel(ctx), mode, text)
	assistantMsg := store.AppendAssistant(reply)

	ctxzap.Info(ctx, "message dispatched",
		zap.String("conversation_id", conversationID),
		zap.String("mode", string(mode)),
		zap.String("kind", string(assistantMsg.Kind)),
	)

	return &SubmitResult{User: userMsg, Assistant: assistantMsg}, nil
}

// Message returns one message of a conversation
func (uc *ChatUsecase) Message(ctx context.Context, conversationID, messageID string) (entity.Message, error) {
	store, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return entity.Message{}, fmt.Errorf("get conversation: %w", err)
	}

	msg, ok := store.Message(messageID)
	if !ok {
		return entity.Message{}, fmt.Errorf("%w: %s", entity.ErrMessageNotFound, messageID)
	}
	return msg, nil
}

// traceEvent follows a transcript through the store observer
func (uc *ChatUsecase) traceEvent(e conversation.Event) {
	fields := []zap.Field{
		zap.String("conversation_id", e.ConversationID),
		zap.String("event", string(e.Type)),
	}
	switch e.Type {
	case conversation.EventMessageAppended:
		fields = append(fields,
			zap.String("message_id", e.Message.ID),
			zap.String("role", string(e.Message.Role)),
			zap.String("kind", string(e.Message.Kind)),
		)
	case conversation.EventBusyChanged:
		fields = append(fields, zap.Bool("busy", e.Busy))
	}
	uc.logger.Debug("conversation event", fields...)
}

// QuizMessageIDs lists the ids of quiz messages in a transcript
func QuizMessageIDs(store *conversation.Store) []string {
	var ids []string
	for _, msg := range store.Messages() {
		if msg.Kind == entity.KindQuiz {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

package handlers

import (
	"context"

	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/usecase/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatUsecase defines the conversation operations used by the bot handlers
type ChatUsecase interface {
	CreateConversation(ctx context.Context) (*conversation.Store, error)
	GetConversation(ctx context.Context, conversationID string) (*conversation.Store, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	Submit(ctx context.Context, conversationID string, mode entity.Mode, text string) (*chat.SubmitResult, error)
	OpenQuiz(ctx context.Context, conversationID, messageID string) (*quiz.Run, error)
	SelectOption(ctx context.Context, conversationID, messageID string, option int) (*quiz.Run, error)
	AdvanceQuiz(ctx context.Context, conversationID, messageID string) (*quiz.Run, error)
	CloseQuiz(ctx context.Context, conversationID, messageID string) error
	ExportMessage(ctx context.Context, conversationID, messageID string, format entity.ExportFormat) (*chat.ExportedFile, error)
}

// BotAPI is the subset of *tgbotapi.BotAPI the handlers send through
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

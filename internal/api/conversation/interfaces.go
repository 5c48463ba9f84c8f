package conversation

import (
	"context"

	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/usecase/chat"
)

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

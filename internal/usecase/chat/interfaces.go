package chat

import (
	"context"

	"github.com/futig/omnistudy/internal/entity"
)

// Gateway is the remote generation service consumed by the dispatcher
type Gateway interface {
	Explain(ctx context.Context, prompt string, mode entity.Mode) (*entity.Explanation, error)
	GenerateQuiz(ctx context.Context, topic string) (*entity.Quiz, error)
	GenerateStudyPlan(ctx context.Context, goal string) (*entity.StudyPlan, error)
	GenerateSummary(ctx context.Context, text string) (*entity.Summary, error)
}

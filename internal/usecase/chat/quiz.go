package chat

import (
	"context"
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/quiz"
)

// OpenQuiz returns the run of a quiz message, starting it on first view
func (uc *ChatUsecase) OpenQuiz(ctx context.Context, conversationID, messageID string) (*quiz.Run, error) {
	msg, err := uc.Message(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}

	if msg.Kind != entity.KindQuiz || msg.Quiz == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrNotAQuiz, messageID)
	}

	run, err := uc.quizzes.Open(messageID, msg.Quiz)
	if err != nil {
		return nil, fmt.Errorf("open quiz: %w", err)
	}
	return run, nil
}

// SelectOption answers the current question. Illegal selections leave the run unchanged.
func (uc *ChatUsecase) SelectOption(ctx context.Context, conversationID, messageID string, option int) (*quiz.Run, error) {
	run, err := uc.OpenQuiz(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}

	run.Select(option)
	return run, nil
}

// AdvanceQuiz moves past a revealed question. Early advances leave the run unchanged.
func (uc *ChatUsecase) AdvanceQuiz(ctx context.Context, conversationID, messageID string) (*quiz.Run, error) {
	run, err := uc.OpenQuiz(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}

	run.Advance()
	return run, nil
}

// CloseQuiz discards the run state of a quiz no longer on screen
func (uc *ChatUsecase) CloseQuiz(ctx context.Context, conversationID, messageID string) error {
	if _, err := uc.Message(ctx, conversationID, messageID); err != nil {
		return err
	}

	uc.quizzes.Discard(messageID)
	return nil
}

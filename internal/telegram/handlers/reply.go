package handlers

import (
	"context"
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// sendReply renders an assistant message according to its kind
func (h *BaseHandler) sendReply(ctx context.Context, chatID, userID int64, conversationID string, msg entity.Message) error {
	switch msg.Kind {
	case entity.KindQuiz:
		return h.sendQuiz(ctx, chatID, userID, conversationID, msg)
	case entity.KindPlan:
		_, err := h.messageSender.Send(ctx, chatID,
			render.RenderStudyPlan(msg.Content, msg.Plan),
			h.keyboard.ExportKeyboard(msg.ID),
		)
		return err
	case entity.KindSummary:
		_, err := h.messageSender.Send(ctx, chatID,
			render.RenderSummary(msg.Content, msg.Summary),
			h.keyboard.ExportKeyboard(msg.ID),
		)
		return err
	default:
		_, err := h.messageSender.Send(ctx, chatID, render.RenderText(msg.Content, msg.Sources), nil)
		return err
	}
}

// sendQuiz posts the caption followed by the interactive quiz widget
func (h *BaseHandler) sendQuiz(ctx context.Context, chatID, userID int64, conversationID string, msg entity.Message) error {
	if _, err := h.messageSender.Send(ctx, chatID, render.FormatMarkdown(msg.Content), nil); err != nil {
		return err
	}

	run, err := h.chatUC.OpenQuiz(ctx, conversationID, msg.ID)
	if err != nil {
		return fmt.Errorf("open quiz: %w", err)
	}

	text, markup := h.quizView(msg.ID, run)
	var replyMarkup interface{}
	if markup != nil {
		replyMarkup = *markup
	}
	if _, err := h.messageSender.Send(ctx, chatID, text, replyMarkup); err != nil {
		return err
	}

	data, err := h.stateManager.GetStateData(ctx, userID)
	if err != nil {
		return fmt.Errorf("get state data: %w", err)
	}
	data.TrackQuiz(msg.ID)
	if err := h.stateManager.UpdateStateData(ctx, userID, data); err != nil {
		return fmt.Errorf("update state data: %w", err)
	}

	ctxzap.Info(ctx, "quiz rendered",
		zap.String("message_id", msg.ID),
		zap.Int("questions", run.Snapshot().Total),
	)

	return nil
}

// quizView renders the widget for the run's current phase. The markup is nil once finished.
func (h *BaseHandler) quizView(messageID string, run *quiz.Run) (string, *tgbotapi.InlineKeyboardMarkup) {
	s := run.Snapshot()
	if s.Finished {
		return render.RenderQuizComplete(s.Score, s.Total, quiz.Percentage(s.Score, s.Total)), nil
	}

	question := run.Quiz().Questions[s.CurrentIndex]

	if s.Revealed {
		markup := h.keyboard.QuizNextKeyboard(messageID, s.CurrentIndex == s.Total-1, render.BtnNextQuestion, render.BtnFinishQuiz)
		return render.RenderQuizFeedback(question, s.CurrentIndex, s.Total, *s.Selected), &markup
	}

	markup := h.keyboard.QuizOptionsKeyboard(messageID, len(question.Options))
	return render.RenderQuizQuestion(question, s.CurrentIndex, s.Total), &markup
}

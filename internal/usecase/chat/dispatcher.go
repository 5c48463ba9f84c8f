package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	FallbackMessage = "I ran into an issue processing that. Could you try rephrasing or checking your connection?"
	SummaryCaption  = "I've summarized that for you. Here are the key points:"
)

func QuizCaption(title string) string {
	return fmt.Sprintf("I've prepared a quiz on **%s** for you!", title)
}

func StudyPlanCaption(title string) string {
	return fmt.Sprintf("Here is your custom study plan for **%s**:", title)
}

// Dispatcher turns a mode and prompt into exactly one assistant message.
// Gateway failures never escape: they become the fallback message.
type Dispatcher struct {
	gateway Gateway
}

func NewDispatcher(gateway Gateway) *Dispatcher {
	return &Dispatcher{gateway: gateway}
}

// Dispatch calls the gateway operation for mode; unknown modes take the EXPLAIN path.
// The returned message has no id or timestamp; the store assigns them.
func (d *Dispatcher) Dispatch(ctx context.Context, mode entity.Mode, input string) entity.Message {
	msg, err := d.dispatch(ctx, mode, input)
	if err != nil {
		ctxzap.Error(ctx, "generation failed",
			zap.String("mode", string(mode)),
			zap.String("error_class", errorClass(err)),
			zap.Error(err),
		)
		return entity.Message{
			Role:    entity.RoleAssistant,
			Content: FallbackMessage,
		}
	}

	return msg
}

func (d *Dispatcher) dispatch(ctx context.Context, mode entity.Mode, input string) (entity.Message, error) {
	msg := entity.Message{Role: entity.RoleAssistant}

	switch mode {
	case entity.ModeQuiz:
		quiz, err := d.gateway.GenerateQuiz(ctx, input)
		if err != nil {
			return msg, err
		}
		if quiz == nil {
			return msg, &entity.ParseError{Schema: entity.SchemaQuiz, Err: errors.New("empty result")}
		}
		msg.Kind = entity.KindQuiz
		msg.Content = QuizCaption(quiz.Title)
		msg.Quiz = quiz

	case entity.ModeStudyPlan:
		plan, err := d.gateway.GenerateStudyPlan(ctx, input)
		if err != nil {
			return msg, err
		}
		if plan == nil {
			return msg, &entity.ParseError{Schema: entity.SchemaStudyPlan, Err: errors.New("empty result")}
		}
		msg.Kind = entity.KindPlan
		msg.Content = StudyPlanCaption(plan.Title)
		msg.Plan = plan

	case entity.ModeSummarize:
		summary, err := d.gateway.GenerateSummary(ctx, input)
		if err != nil {
			return msg, err
		}
		if summary == nil {
			return msg, &entity.ParseError{Schema: entity.SchemaSummary, Err: errors.New("empty result")}
		}
		msg.Kind = entity.KindSummary
		msg.Content = SummaryCaption
		msg.Summary = summary

	default:
		if mode != entity.ModeExplain {
			ctxzap.Warn(ctx, "unrecognized mode, using EXPLAIN", zap.String("mode", string(mode)))
		}
		explanation, err := d.gateway.Explain(ctx, input, mode)
		if err != nil {
			return msg, err
		}
		if explanation == nil {
			return msg, &entity.GenerationError{Op: "explain", Err: errors.New("empty result")}
		}
		msg.Content = explanation.Text
		msg.Sources = explanation.Sources
		if msg.Sources == nil {
			msg.Sources = []entity.Source{}
		}
	}

	return msg, nil
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, entity.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, entity.ErrGeneration):
		return "generation_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "unknown"
	}
}

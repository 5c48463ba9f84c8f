package llm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector returns canned content so the service runs without an API key
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Explain(ctx context.Context, prompt string, mode entity.Mode) (*entity.Explanation, error) {
	ctxzap.Info(ctx, "[MOCK] generating explanation", zap.String("mode", string(mode)))

	text := fmt.Sprintf(`## %s (MOCK)

Imagine explaining **%s** to a friend over coffee: start with the big idea, then add detail.

### Examples
- An everyday example that makes the idea concrete
- A second example from a different angle

Try summarizing the idea in one sentence of your own!`, prompt, prompt)

	return &entity.Explanation{
		Text: text,
		Sources: []entity.Source{
			{Title: "Wikipedia", URI: "https://en.wikipedia.org/wiki/Special:Search?search=" + url.QueryEscape(prompt)},
		},
	}, nil
}

func (m *MockConnector) GenerateQuiz(ctx context.Context, topic string) (*entity.Quiz, error) {
	ctxzap.Info(ctx, "[MOCK] generating quiz")

	quiz := &entity.Quiz{
		Title: topic + " (MOCK)",
		Questions: []entity.QuizQuestion{
			{
				Question:      "Which technique explains a topic in the simplest possible terms?",
				Options:       []string{"Pomodoro", "Feynman technique", "Spaced repetition", "Mind mapping"},
				CorrectAnswer: 1,
				Explanation:   "The Feynman technique asks you to explain a concept as if teaching a child.",
			},
			{
				Question:      "What does spaced repetition improve most?",
				Options:       []string{"Long-term retention", "Typing speed", "Handwriting", "Reading speed"},
				CorrectAnswer: 0,
				Explanation:   "Reviewing at growing intervals strengthens long-term memory.",
			},
			{
				Question:      "Which habit helps most before an exam?",
				Options:       []string{"Cramming all night", "Skipping breakfast", "Practice testing", "Rereading only"},
				CorrectAnswer: 2,
				Explanation:   "Retrieval practice is one of the most effective study methods.",
			},
		},
	}

	ctxzap.Info(ctx, "[MOCK] quiz generated", zap.Int("question_count", len(quiz.Questions)))
	return quiz, nil
}

func (m *MockConnector) GenerateStudyPlan(ctx context.Context, goal string) (*entity.StudyPlan, error) {
	ctxzap.Info(ctx, "[MOCK] generating study plan")

	plan := &entity.StudyPlan{
		Title: goal + " (MOCK)",
		Items: []entity.StudyPlanItem{
			{
				Topic:       "Foundations",
				Duration:    "Day 1",
				Description: "Review the core vocabulary and the main ideas.",
				Resources:   []string{"Introductory textbook chapter", "Khan Academy overview"},
			},
			{
				Topic:       "Practice",
				Duration:    "Day 2",
				Description: "Work through exercises and note every mistake.",
				Resources:   []string{"Problem set"},
			},
			{
				Topic:       "Review",
				Duration:    "2 hours",
				Description: "Take a practice quiz and revisit weak areas.",
				Resources:   []string{},
			},
		},
	}

	ctxzap.Info(ctx, "[MOCK] study plan generated", zap.Int("item_count", len(plan.Items)))
	return plan, nil
}

func (m *MockConnector) GenerateSummary(ctx context.Context, text string) (*entity.Summary, error) {
	ctxzap.Info(ctx, "[MOCK] generating summary", zap.Int("input_length", len(text)))

	summaryContext := "Condensed from the pasted text (MOCK)."
	summary := &entity.Summary{
		MainPoint: "The text argues one central idea and supports it with evidence.",
		Takeaways: []string{
			"The central idea is stated early",
			"Evidence is drawn from examples",
			"The conclusion restates the idea",
		},
		Context: &summaryContext,
	}

	ctxzap.Info(ctx, "[MOCK] summary generated", zap.Int("takeaway_count", len(summary.Takeaways)))
	return summary, nil
}

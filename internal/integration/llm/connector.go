package llm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/futig/omnistudy/internal/config"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/integration/common"
	pkghttp "github.com/futig/omnistudy/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Operation names carried by GenerationError
const (
	OpExplain   = "explain"
	OpQuiz      = "generate quiz"
	OpStudyPlan = "generate study plan"
	OpSummary   = "generate summary"
)

// Connector is the Gemini generateContent gateway. Each call is a single
// request; failures are not retried.
type Connector struct {
	config    config.LLMConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConnectorConfig,
	logger *zap.Logger,
	opts ...pkghttp.HttpOpts,
) *Connector {
	opts = append([]pkghttp.HttpOpts{pkghttp.WithAPIKey(cfg.APIKey)}, opts...)
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, opts...),
		config:    cfg,
		logger:    logger,
	}
}

// Explain returns a free-text explanation grounded with web search
func (c *Connector) Explain(ctx context.Context, prompt string, mode entity.Mode) (*entity.Explanation, error) {
	ctxzap.Info(ctx, "generating explanation via LLM service", zap.String("mode", string(mode)))

	req := &entity.LLMGenerateContentRequest{
		Contents: userContents(prompt),
		SystemInstruction: &entity.LLMContent{
			Parts: []entity.LLMPart{{Text: explainInstruction(mode)}},
		},
		Tools: []entity.LLMTool{{GoogleSearch: &entity.LLMGoogleSearch{}}},
	}

	resp, err := c.generate(ctx, OpExplain, req)
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		text = EmptyExplanation
	}
	sources := resp.Sources()

	ctxzap.Info(ctx, "explanation generated successfully",
		zap.Int("result_length", len(text)),
		zap.Int("source_count", len(sources)),
	)

	return &entity.Explanation{Text: text, Sources: sources}, nil
}

// GenerateQuiz returns a multiple-choice quiz on topic
func (c *Connector) GenerateQuiz(ctx context.Context, topic string) (*entity.Quiz, error) {
	ctxzap.Info(ctx, "generating quiz via LLM service")

	text, err := c.generateJSON(ctx, OpQuiz, quizPrompt(topic), quizSchema)
	if err != nil {
		return nil, err
	}

	quiz, err := entity.DecodeQuiz(text)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "quiz generated successfully", zap.Int("question_count", len(quiz.Questions)))

	return quiz, nil
}

// GenerateStudyPlan returns a time-boxed plan for goal
func (c *Connector) GenerateStudyPlan(ctx context.Context, goal string) (*entity.StudyPlan, error) {
	ctxzap.Info(ctx, "generating study plan via LLM service")

	text, err := c.generateJSON(ctx, OpStudyPlan, studyPlanPrompt(goal), studyPlanSchema)
	if err != nil {
		return nil, err
	}

	plan, err := entity.DecodeStudyPlan(text)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "study plan generated successfully", zap.Int("item_count", len(plan.Items)))

	return plan, nil
}

// GenerateSummary condenses text into a main point and takeaways
func (c *Connector) GenerateSummary(ctx context.Context, text string) (*entity.Summary, error) {
	ctxzap.Info(ctx, "generating summary via LLM service", zap.Int("input_length", len(text)))

	raw, err := c.generateJSON(ctx, OpSummary, summaryPrompt(text), summarySchema)
	if err != nil {
		return nil, err
	}

	summary, err := entity.DecodeSummary(raw)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "summary generated successfully", zap.Int("takeaway_count", len(summary.Takeaways)))

	return summary, nil
}

func (c *Connector) generateJSON(ctx context.Context, op, prompt string, schema *entity.LLMSchema) (string, error) {
	req := &entity.LLMGenerateContentRequest{
		Contents: userContents(prompt),
		GenerationConfig: &entity.LLMGenerationConfig{
			ResponseMimeType: jsonMimeType,
			ResponseSchema:   schema,
		},
	}

	resp, err := c.generate(ctx, op, req)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

func (c *Connector) generate(ctx context.Context, op string, req *entity.LLMGenerateContentRequest) (
	*entity.LLMGenerateContentResponse, error,
) {
	var resp entity.LLMGenerateContentResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, c.endpoint(), req, &resp)
	if err != nil {
		return nil, &entity.GenerationError{Op: op, Err: err}
	}

	return &resp, nil
}

func (c *Connector) endpoint() string {
	return "/v1beta/models/" + url.PathEscape(c.config.Model) + ":generateContent"
}

func userContents(text string) []entity.LLMContent {
	return []entity.LLMContent{{
		Role:  "user",
		Parts: []entity.LLMPart{{Text: text}},
	}}
}

package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	SchemaQuiz      = "quiz"
	SchemaStudyPlan = "study plan"
	SchemaSummary   = "summary"
)

var (
	errMissing = errors.New("required field is missing")
	errEmpty   = errors.New("must not be empty")
)

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// Validate checks the quiz invariants: at least one question, two or more
// options per question and a correct answer pointing into the options.
func (q *Quiz) Validate() error {
	if q == nil {
		return &ParseError{Schema: SchemaQuiz, Err: errMissing}
	}
	if len(q.Questions) == 0 {
		return &ParseError{Schema: SchemaQuiz, Field: "questions", Err: errEmpty}
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return &ParseError{
				Schema: SchemaQuiz,
				Field:  fmt.Sprintf("questions[%d].options", i),
				Err:    fmt.Errorf("need at least 2 options, got %d", len(question.Options)),
			}
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return &ParseError{
				Schema: SchemaQuiz,
				Field:  fmt.Sprintf("questions[%d].correctAnswer", i),
				Err:    fmt.Errorf("index %d out of range [0, %d)", question.CorrectAnswer, len(question.Options)),
			}
		}
	}
	return nil
}

type StudyPlanItem struct {
	Topic       string   `json:"topic"`
	Duration    string   `json:"duration"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
}

type StudyPlan struct {
	Title string          `json:"title"`
	Items []StudyPlanItem `json:"items"`
}

type Summary struct {
	MainPoint string   `json:"mainPoint"`
	Takeaways []string `json:"takeaways"`
	Context   *string  `json:"context,omitempty"`
}

// Raw shapes with pointer fields so that absent keys are distinguishable from zero values

type rawQuizQuestion struct {
	Question      *string   `json:"question"`
	Options       *[]string `json:"options"`
	CorrectAnswer *int      `json:"correctAnswer"`
	Explanation   *string   `json:"explanation"`
}

type rawQuiz struct {
	Title     *string            `json:"title"`
	Questions *[]rawQuizQuestion `json:"questions"`
}

type rawStudyPlanItem struct {
	Topic       *string   `json:"topic"`
	Duration    *string   `json:"duration"`
	Description *string   `json:"description"`
	Resources   *[]string `json:"resources"`
}

type rawStudyPlan struct {
	Title *string             `json:"title"`
	Items *[]rawStudyPlanItem `json:"items"`
}

type rawSummary struct {
	MainPoint *string   `json:"mainPoint"`
	Takeaways *[]string `json:"takeaways"`
	Context   *string   `json:"context"`
}

// DecodeQuiz strictly decodes a generated quiz
func DecodeQuiz(text string) (*Quiz, error) {
	var raw rawQuiz
	if err := unmarshalGenerated(SchemaQuiz, text, &raw); err != nil {
		return nil, err
	}

	if raw.Title == nil {
		return nil, &ParseError{Schema: SchemaQuiz, Field: "title", Err: errMissing}
	}
	if raw.Questions == nil {
		return nil, &ParseError{Schema: SchemaQuiz, Field: "questions", Err: errMissing}
	}

	quiz := &Quiz{
		Title:     *raw.Title,
		Questions: make([]QuizQuestion, 0, len(*raw.Questions)),
	}

	for i, q := range *raw.Questions {
		field := func(name string) string { return fmt.Sprintf("questions[%d].%s", i, name) }

		switch {
		case q.Question == nil:
			return nil, &ParseError{Schema: SchemaQuiz, Field: field("question"), Err: errMissing}
		case q.Options == nil:
			return nil, &ParseError{Schema: SchemaQuiz, Field: field("options"), Err: errMissing}
		case q.CorrectAnswer == nil:
			return nil, &ParseError{Schema: SchemaQuiz, Field: field("correctAnswer"), Err: errMissing}
		case q.Explanation == nil:
			return nil, &ParseError{Schema: SchemaQuiz, Field: field("explanation"), Err: errMissing}
		}

		quiz.Questions = append(quiz.Questions, QuizQuestion{
			Question:      *q.Question,
			Options:       *q.Options,
			CorrectAnswer: *q.CorrectAnswer,
			Explanation:   *q.Explanation,
		})
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	return quiz, nil
}

// DecodeStudyPlan strictly decodes a generated study plan
func DecodeStudyPlan(text string) (*StudyPlan, error) {
	var raw rawStudyPlan
	if err := unmarshalGenerated(SchemaStudyPlan, text, &raw); err != nil {
		return nil, err
	}

	if raw.Title == nil {
		return nil, &ParseError{Schema: SchemaStudyPlan, Field: "title", Err: errMissing}
	}
	if raw.Items == nil {
		return nil, &ParseError{Schema: SchemaStudyPlan, Field: "items", Err: errMissing}
	}

	plan := &StudyPlan{
		Title: *raw.Title,
		Items: make([]StudyPlanItem, 0, len(*raw.Items)),
	}

	for i, item := range *raw.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		switch {
		case item.Topic == nil:
			return nil, &ParseError{Schema: SchemaStudyPlan, Field: field("topic"), Err: errMissing}
		case item.Duration == nil:
			return nil, &ParseError{Schema: SchemaStudyPlan, Field: field("duration"), Err: errMissing}
		case item.Description == nil:
			return nil, &ParseError{Schema: SchemaStudyPlan, Field: field("description"), Err: errMissing}
		case item.Resources == nil:
			return nil, &ParseError{Schema: SchemaStudyPlan, Field: field("resources"), Err: errMissing}
		}

		plan.Items = append(plan.Items, StudyPlanItem{
			Topic:       *item.Topic,
			Duration:    *item.Duration,
			Description: *item.Description,
			Resources:   *item.Resources,
		})
	}

	return plan, nil
}

// DecodeSummary strictly decodes a generated summary; context is optional
func DecodeSummary(text string) (*Summary, error) {
	var raw rawSummary
	if err := unmarshalGenerated(SchemaSummary, text, &raw); err != nil {
		return nil, err
	}

	if raw.MainPoint == nil {
		return nil, &ParseError{Schema: SchemaSummary, Field: "mainPoint", Err: errMissing}
	}
	if raw.Takeaways == nil {
		return nil, &ParseError{Schema: SchemaSummary, Field: "takeaways", Err: errMissing}
	}

	return &Summary{
		MainPoint: *raw.MainPoint,
		Takeaways: *raw.Takeaways,
		Context:   raw.Context,
	}, nil
}

// unmarshalGenerated decodes a model reply holding exactly one JSON object.
// A surrounding markdown code fence is the only wrapping tolerated.
func unmarshalGenerated(schema, text string, out any) error {
	s := stripCodeFence(strings.TrimSpace(text))
	if s == "" {
		return &ParseError{Schema: schema, Err: errors.New("empty response")}
	}
	if s[0] != '{' {
		return &ParseError{Schema: schema, Err: errors.New("response is not a JSON object")}
	}

	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(out); err != nil {
		return &ParseError{Schema: schema, Err: err}
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return &ParseError{Schema: schema, Err: errors.New("unexpected data after JSON object")}
	}

	return nil
}

// stripCodeFence removes a leading ```lang line and a trailing ``` fence
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body, ok := strings.CutSuffix(s, "```")
	if !ok {
		return s
	}
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return s
	}
	return strings.TrimSpace(body[nl+1:])
}

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/formatter"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls int

	explanation *entity.Explanation
	quiz        *entity.Quiz
	plan        *entity.StudyPlan
	summary     *entity.Summary
	err         error

	// block, when set, holds every call until it is closed
	block chan struct{}
}

func (g *fakeGateway) record() {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.block != nil {
		<-g.block
	}
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) Explain(_ context.Context, _ string, _ entity.Mode) (*entity.Explanation, error) {
	g.record()
	return g.explanation, g.err
}

func (g *fakeGateway) GenerateQuiz(_ context.Context, _ string) (*entity.Quiz, error) {
	g.record()
	return g.quiz, g.err
}

func (g *fakeGateway) GenerateStudyPlan(_ context.Context, _ string) (*entity.StudyPlan, error) {
	g.record()
	return g.plan, g.err
}

func (g *fakeGateway) GenerateSummary(_ context.Context, _ string) (*entity.Summary, error) {
	g.record()
	return g.summary, g.err
}

func algebraQuiz() *entity.Quiz {
	q := &entity.Quiz{Title: "Algebra Basics"}
	for i := 0; i < 5; i++ {
		q.Questions = append(q.Questions, entity.QuizQuestion{
			Question:      "x?",
			Options:       []string{"1", "2", "3", "4"},
			CorrectAnswer: i % 4,
			Explanation:   "because",
		})
	}
	return q
}

func newTestUsecase(g Gateway) *ChatUsecase {
	return NewUsecase(
		repository.NewConversationCache(time.Hour, time.Hour),
		g,
		quiz.NewRegistry(zap.NewNop()),
		formatter.NewFactory(),
		zap.NewNop(),
	)
}

func TestDispatch_ExplainWrapsTextAndSources(t *testing.T) {
	g := &fakeGateway{explanation: &entity.Explanation{Text: "Plants turn light into sugar.", Sources: []entity.Source{}}}
	d := NewDispatcher(g)

	msg := d.Dispatch(context.Background(), entity.ModeExplain, "photosynthesis")

	if msg.Kind != entity.KindNone || msg.Content != "Plants turn light into sugar." {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Sources == nil || len(msg.Sources) != 0 {
		t.Fatalf("sources must be an empty sequence, got %#v", msg.Sources)
	}
	if msg.Role != entity.RoleAssistant {
		t.Fatalf("dispatch must produce an assistant message")
	}
}

func TestDispatch_QuizCarriesPayloadUnmodified(t *testing.T) {
	q := algebraQuiz()
	d := NewDispatcher(&fakeGateway{quiz: q})

	msg := d.Dispatch(context.Background(), entity.ModeQuiz, "Algebra")

	if msg.Content != "I've prepared a quiz on **Algebra Basics** for you!" {
		t.Fatalf("unexpected caption %q", msg.Content)
	}
	if msg.Kind != entity.KindQuiz || msg.Quiz != q {
		t.Fatalf("quiz payload must be the gateway result")
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("message invalid: %v", err)
	}
}

func TestDispatch_PlanAndSummaryCaptions(t *testing.T) {
	g := &fakeGateway{
		plan:    &entity.StudyPlan{Title: "Calculus", Items: []entity.StudyPlanItem{}},
		summary: &entity.Summary{MainPoint: "m", Takeaways: []string{"t"}},
	}
	d := NewDispatcher(g)

	plan := d.Dispatch(context.Background(), entity.ModeStudyPlan, "calc")
	if plan.Kind != entity.KindPlan || plan.Content != "Here is your custom study plan for **Calculus**:" || plan.Plan != g.plan {
		t.Fatalf("unexpected plan message %+v", plan)
	}

	summary := d.Dispatch(context.Background(), entity.ModeSummarize, "text")
	if summary.Kind != entity.KindSummary || summary.Content != SummaryCaption || summary.Summary != g.summary {
		t.Fatalf("unexpected summary message %+v", summary)
	}
}

func TestDispatch_FailuresCollapseToFallback(t *testing.T) {
	failures := map[string]error{
		"generation": &entity.GenerationError{Op: "x", Err: errors.New("boom")},
		"parse":      &entity.ParseError{Schema: entity.SchemaQuiz, Field: "questions", Err: errors.New("missing")},
		"other":      errors.New("anything"),
	}

	for name, failure := range failures {
		for _, mode := range entity.AllModes() {
			t.Run(name+"/"+string(mode), func(t *testing.T) {
				d := NewDispatcher(&fakeGateway{err: failure})

				msg := d.Dispatch(context.Background(), mode, "topic")

				if msg.Content != FallbackMessage || msg.Kind != entity.KindNone {
					t.Fatalf("expected fallback, got %+v", msg)
				}
				if msg.Quiz != nil || msg.Plan != nil || msg.Summary != nil {
					t.Fatalf("fallback must carry no payload")
				}
			})
		}
	}
}

func TestDispatch_UnknownModeTakesExplainPath(t *testing.T) {
	g := &fakeGateway{explanation: &entity.Explanation{Text: "ok"}}
	d := NewDispatcher(g)

	msg := d.Dispatch(context.Background(), entity.Mode("DEBATE"), "x")

	if msg.Content != "ok" || msg.Kind != entity.KindNone {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Sources == nil {
		t.Fatalf("nil sources must be normalised to an empty sequence")
	}
}

func TestSubmit_AppendsUserAndAssistant(t *testing.T) {
	g := &fakeGateway{quiz: algebraQuiz()}
	uc := newTestUsecase(g)
	ctx := context.Background()

	store, _ := uc.CreateConversation(ctx)

	res, err := uc.Submit(ctx, store.ID(), entity.ModeQuiz, "  Algebra  ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := store.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + user + assistant, got %d", len(msgs))
	}
	if msgs[1].Content != "Algebra" || msgs[1].ID != res.User.ID {
		t.Fatalf("user message must hold the trimmed text: %+v", msgs[1])
	}
	if msgs[2].ID != res.Assistant.ID || msgs[2].Kind != entity.KindQuiz {
		t.Fatalf("unexpected assistant message %+v", msgs[2])
	}
	if store.Busy() {
		t.Fatalf("busy flag must be cleared")
	}
}

func TestSubmit_EmptyInputIsNoOp(t *testing.T) {
	g := &fakeGateway{}
	uc := newTestUsecase(g)
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := uc.Submit(ctx, store.ID(), entity.ModeExplain, text); !errors.Is(err, entity.ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %q, got %v", text, err)
		}
	}

	if store.Len() != 1 || g.Calls() != 0 {
		t.Fatalf("empty input must not append or call the gateway")
	}
}

func TestSubmit_RejectsWhileBusy(t *testing.T) {
	g := &fakeGateway{explanation: &entity.Explanation{Text: "ok"}, block: make(chan struct{})}
	uc := newTestUsecase(g)
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Submit(ctx, store.ID(), entity.ModeExplain, "first")
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !store.Busy() {
		if time.Now().After(deadline) {
			t.Fatalf("first submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	before := store.Len()
	if _, err := uc.Submit(ctx, store.ID(), entity.ModeExplain, "second"); !errors.Is(err, entity.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if store.Len() != before {
		t.Fatalf("busy rejection must not change the store")
	}

	close(g.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if store.Busy() || g.Calls() != 1 {
		t.Fatalf("expected one gateway call and a released flag")
	}
}

func TestSubmit_FailureClearsBusyAndAppendsFallback(t *testing.T) {
	g := &fakeGateway{err: &entity.GenerationError{Op: "explain", Err: errors.New("offline")}}
	uc := newTestUsecase(g)
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)

	res, err := uc.Submit(ctx, store.ID(), entity.ModeSummarize, "text")
	if err != nil {
		t.Fatalf("gateway failures must not surface: %v", err)
	}
	if res.Assistant.Content != FallbackMessage || res.Assistant.Kind != entity.KindNone {
		t.Fatalf("unexpected assistant message %+v", res.Assistant)
	}
	if store.Busy() {
		t.Fatalf("busy flag must be cleared after failure")
	}

	g.err = nil
	g.summary = &entity.Summary{MainPoint: "m", Takeaways: []string{}}
	if _, err := uc.Submit(ctx, store.ID(), entity.ModeSummarize, "again"); err != nil {
		t.Fatalf("conversation must stay usable: %v", err)
	}
}

func TestSubmit_UnknownConversation(t *testing.T) {
	uc := newTestUsecase(&fakeGateway{})

	_, err := uc.Submit(context.Background(), "missing", entity.ModeExplain, "x")
	if !errors.Is(err, entity.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestQuizFlow_PlayThroughAndDiscardOnDelete(t *testing.T) {
	uc := newTestUsecase(&fakeGateway{quiz: algebraQuiz()})
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)
	res, _ := uc.Submit(ctx, store.ID(), entity.ModeQuiz, "Algebra")
	id := res.Assistant.ID

	for i := 0; i < 5; i++ {
		if _, err := uc.SelectOption(ctx, store.ID(), id, 0); err != nil {
			t.Fatalf("SelectOption: %v", err)
		}
		if _, err := uc.AdvanceQuiz(ctx, store.ID(), id); err != nil {
			t.Fatalf("AdvanceQuiz: %v", err)
		}
	}

	run, _ := uc.OpenQuiz(ctx, store.ID(), id)
	s := run.Snapshot()
	// correct answers are 0,1,2,3,0: picking 0 every time scores 2
	if !s.Finished || s.Score != 2 {
		t.Fatalf("unexpected final state %+v", s)
	}

	if err := uc.DeleteConversation(ctx, store.ID()); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, ok := uc.quizzes.Get(id); ok {
		t.Fatalf("quiz runs must be discarded with the conversation")
	}
}

func TestOpenQuiz_RejectsNonQuizMessages(t *testing.T) {
	uc := newTestUsecase(&fakeGateway{})
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)

	if _, err := uc.OpenQuiz(ctx, store.ID(), "welcome"); !errors.Is(err, entity.ErrNotAQuiz) {
		t.Fatalf("expected ErrNotAQuiz, got %v", err)
	}
	if _, err := uc.OpenQuiz(ctx, store.ID(), "nope"); !errors.Is(err, entity.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestExportMessage_Markdown(t *testing.T) {
	plan := &entity.StudyPlan{Title: "Learn Go", Items: []entity.StudyPlanItem{{Topic: "Syntax", Duration: "Day 1", Description: "Basics", Resources: []string{"Tour"}}}}
	uc := newTestUsecase(&fakeGateway{plan: plan})
	ctx := context.Background()
	store, _ := uc.CreateConversation(ctx)
	res, _ := uc.Submit(ctx, store.ID(), entity.ModeStudyPlan, "go")

	file, err := uc.ExportMessage(ctx, store.ID(), res.Assistant.ID, entity.FormatMarkdown)
	if err != nil {
		t.Fatalf("ExportMessage: %v", err)
	}
	if file.Filename != "Learn_Go.md" || !strings.HasPrefix(file.ContentType, "text/markdown") {
		t.Fatalf("unexpected file metadata %+v", file)
	}
	if !strings.Contains(string(file.Content), "## Syntax (Day 1)") {
		t.Fatalf("unexpected content %s", file.Content)
	}
}

func TestCreateConversation_TracesStoreEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	uc := NewUsecase(
		repository.NewConversationCache(time.Hour, time.Hour),
		&fakeGateway{explanation: &entity.Explanation{Text: "ok", Sources: []entity.Source{}}},
		quiz.NewRegistry(zap.NewNop()),
		formatter.NewFactory(),
		zap.New(core),
	)
	ctx := context.Background()

	store, _ := uc.CreateConversation(ctx)
	if _, err := uc.Submit(ctx, store.ID(), entity.ModeExplain, "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	events := logs.FilterMessage("conversation event").All()
	if len(events) != 4 {
		t.Fatalf("expected busy, two appends and idle, got %d events", len(events))
	}
	if events[0].ContextMap()["busy"] != true || events[3].ContextMap()["busy"] != false {
		t.Fatalf("busy transitions must bracket the appends: %+v", events)
	}
	if events[1].ContextMap()["role"] != string(entity.RoleUser) || events[2].ContextMap()["role"] != string(entity.RoleAssistant) {
		t.Fatalf("unexpected append order: %+v", events)
	}
}

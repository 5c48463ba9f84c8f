package quiz

import (
	"fmt"
	"math"
	"sync"

	"github.com/futig/omnistudy/internal/entity"
)

type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseRevealed  Phase = "revealed"
	PhaseFinished  Phase = "finished"
)

// RunState is a point-in-time copy of a quiz run
type RunState struct {
	CurrentIndex int
	Selected     *int
	Revealed     bool
	Score        int
	Finished     bool
	Total        int
}

func (s RunState) Phase() Phase {
	switch {
	case s.Finished:
		return PhaseFinished
	case s.Revealed:
		return PhaseRevealed
	default:
		return PhaseAnswering
	}
}

// Run drives one rendered quiz: Answering -> Revealed -> Answering | Finished.
// The quiz is treated as read-only.
type Run struct {
	quiz *entity.Quiz

	mu           sync.Mutex
	currentIndex int
	selected     *int
	revealed     bool
	score        int
	finished     bool
	onComplete   []func(score, total int)
}

// NewRun rejects quizzes that cannot be played, including empty ones
func NewRun(q *entity.Quiz) (*Run, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil quiz", entity.ErrInvalidQuiz)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidQuiz, err)
	}
	return &Run{quiz: q}, nil
}

func (r *Run) Quiz() *entity.Quiz {
	return r.quiz
}

// OnComplete registers a callback fired once with the final score
func (r *Run) OnComplete(fn func(score, total int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = append(r.onComplete, fn)
}

// Select locks in an answer for the current question. It is a no-op once the
// question is revealed, after the quiz is finished, or for an unknown option.
func (r *Run) Select(option int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished || r.revealed {
		return false
	}

	question := r.quiz.Questions[r.currentIndex]
	if option < 0 || option >= len(question.Options) {
		return false
	}

	selected := option
	r.selected = &selected
	if option == question.CorrectAnswer {
		r.score++
	}
	r.revealed = true
	return true
}

// Advance moves to the next question, or finishes after the last one.
// It is a no-op until the current question is revealed.
func (r *Run) Advance() bool {
	r.mu.Lock()

	if r.finished || !r.revealed {
		r.mu.Unlock()
		return false
	}

	if r.currentIndex < len(r.quiz.Questions)-1 {
		r.currentIndex++
		r.selected = nil
		r.revealed = false
		r.mu.Unlock()
		return true
	}

	r.finished = true
	score, total := r.score, len(r.quiz.Questions)
	callbacks := append([]func(int, int){}, r.onComplete...)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(score, total)
	}
	return true
}

func (r *Run) Snapshot() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := RunState{
		CurrentIndex: r.currentIndex,
		Revealed:     r.revealed,
		Score:        r.score,
		Finished:     r.finished,
		Total:        len(r.quiz.Questions),
	}
	if r.selected != nil {
		selected := *r.selected
		state.Selected = &selected
	}
	return state
}

func (r *Run) Phase() Phase {
	return r.Snapshot().Phase()
}

// Current returns the question at the current index
func (r *Run) Current() entity.QuizQuestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quiz.Questions[r.currentIndex]
}

// IsLast reports whether the current question is the final one
func (r *Run) IsLast() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIndex == len(r.quiz.Questions)-1
}

func (r *Run) Percentage() int {
	s := r.Snapshot()
	return Percentage(s.Score, s.Total)
}

// Percentage is round-half-up of 100*score/total
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(score)/float64(total) + 0.5))
}

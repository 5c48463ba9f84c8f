package quiz

import (
	"sync"

	"github.com/futig/omnistudy/internal/entity"
	"go.uber.org/zap"
)

// Registry owns the transient run state of every rendered quiz, keyed by the
// id of the message carrying the quiz. A run lives from Open until Discard.
type Registry struct {
	mu     sync.Mutex
	runs   map[string]*Run
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		runs:   make(map[string]*Run),
		logger: logger,
	}
}

// Open returns the run for messageID, creating it on first render
func (r *Registry) Open(messageID string, q *entity.Quiz) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run, ok := r.runs[messageID]; ok {
		return run, nil
	}

	run, err := NewRun(q)
	if err != nil {
		return nil, err
	}

	run.OnComplete(func(score, total int) {
		r.logger.Info("quiz completed",
			zap.String("message_id", messageID),
			zap.String("title", q.Title),
			zap.Int("score", score),
			zap.Int("total", total),
			zap.Int("percentage", Percentage(score, total)),
		)
	})

	r.runs[messageID] = run
	return run, nil
}

func (r *Registry) Get(messageID string) (*Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[messageID]
	return run, ok
}

// Discard drops the run state, as when the quiz is no longer displayed
func (r *Registry) Discard(messageIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range messageIDs {
		delete(r.runs, id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

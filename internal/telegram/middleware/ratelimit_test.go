package middleware

import (
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func textUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: "hi",
	}}
}

func countPassed(rl *RateLimiterMiddleware, update tgbotapi.Update, n int) int {
	passed := 0
	for i := 0; i < n; i++ {
		rl.Handle(update, func(tgbotapi.Update) { passed++ })
	}
	return passed
}

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	sender := &recordingSender{}
	rl := NewRateLimiterMiddleware(1, 3, zap.NewNop(), sender)

	if got := countPassed(rl, textUpdate(1), 5); got != 3 {
		t.Fatalf("expected the burst of 3 to pass, got %d", got)
	}
	if len(sender.sent) != 1 || sender.sent[0] != rateLimitWarnings[0] {
		t.Fatalf("expected a single first warning, got %v", sender.sent)
	}
}

func TestRateLimiter_UsersAreIndependent(t *testing.T) {
	rl := NewRateLimiterMiddleware(1, 1, zap.NewNop(), &recordingSender{})

	if countPassed(rl, textUpdate(1), 2) != 1 {
		t.Fatalf("first user must be limited after one request")
	}
	if countPassed(rl, textUpdate(2), 1) != 1 {
		t.Fatalf("second user must not share the first user's bucket")
	}
}

func TestRateLimiter_PassesUpdatesWithoutOrigin(t *testing.T) {
	rl := NewRateLimiterMiddleware(1, 1, zap.NewNop(), &recordingSender{})

	inline := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 1}}}
	if countPassed(rl, inline, 3) != 3 {
		t.Fatalf("updates without a chat must bypass the limiter")
	}
	if countPassed(rl, tgbotapi.Update{}, 2) != 2 {
		t.Fatalf("empty updates must bypass the limiter")
	}
}

func TestRateLimiter_CallbackQueriesShareTheBucket(t *testing.T) {
	rl := NewRateLimiterMiddleware(1, 1, zap.NewNop(), &recordingSender{})

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}}

	if countPassed(rl, textUpdate(7), 1) != 1 {
		t.Fatalf("first message must pass")
	}
	if countPassed(rl, callback, 1) != 0 {
		t.Fatalf("callback from the same user must be limited")
	}
}

package middleware

import (
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL         = time.Hour
	visitorCleanupInterval = 10 * time.Minute
	warningInterval        = 30 * time.Second
)

var rateLimitWarnings = []string{
	"⚠️ Too many requests. Please wait a moment.",
	"⚠️ Still too fast. Give it about 30 seconds.",
	"🛑 You are sending requests too often. Please wait a minute.",
}

// Sender delivers the warning messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type visitor struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	warnings    int
	lastWarning time.Time
}

// RateLimiterMiddleware throttles each user with a token bucket of burst
// capacity refilled at the per-minute rate. Idle users fall out after an hour.
type RateLimiterMiddleware struct {
	visitors *cache.Cache
	mu       sync.Mutex
	every    rate.Limit
	burst    int
	logger   *zap.Logger
	api      Sender
}

func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	api Sender,
) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		visitors: cache.New(visitorIdleTTL, visitorCleanupInterval),
		every:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burstSize,
		logger:   logger,
		api:      api,
	}
}

func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID, ok := updateOrigin(update)
	if !ok {
		next(update)
		return
	}

	if !rl.allow(userID, chatID) {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		return
	}

	next(update)
}

func (rl *RateLimiterMiddleware) allow(userID, chatID int64) bool {
	v := rl.visitor(userID)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.limiter.Allow() {
		v.warnings = 0
		return true
	}

	now := time.Now()
	if now.Sub(v.lastWarning) > warningInterval {
		v.lastWarning = now
		rl.warn(chatID, v.warnings)
		v.warnings++
	}
	return false
}

// visitor returns the user's limiter, restarting its idle clock
func (rl *RateLimiterMiddleware) visitor(userID int64) *visitor {
	key := strconv.FormatInt(userID, 10)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var v *visitor
	if x, ok := rl.visitors.Get(key); ok {
		v = x.(*visitor)
	} else {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
	}
	rl.visitors.Set(key, v, cache.DefaultExpiration)
	return v
}

func (rl *RateLimiterMiddleware) warn(chatID int64, previous int) {
	text := rateLimitWarnings[min(previous, len(rateLimitWarnings)-1)]

	if _, err := rl.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func updateOrigin(update tgbotapi.Update) (userID, chatID int64, ok bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID, true
	}
	return 0, 0, false
}

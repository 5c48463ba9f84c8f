package handlers

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram typing action expires after 5 seconds
const typingActionInterval = 4 * time.Second

// TypingNotifier sends periodic "typing" actions while a generation is in flight
type TypingNotifier struct {
	bot      BotAPI
	chatID   int64
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewTypingNotifier creates a new typing indicator
func NewTypingNotifier(bot BotAPI, chatID int64, logger *zap.Logger) *TypingNotifier {
	return &TypingNotifier{
		bot:      bot,
		chatID:   chatID,
		interval: typingActionInterval,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start sends a typing action immediately and then every interval until Stop
func (t *TypingNotifier) Start(ctx context.Context) {
	t.sendTyping()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.sendTyping()
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops sending typing indicators; it is safe to call more than once
func (t *TypingNotifier) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *TypingNotifier) sendTyping() {
	action := tgbotapi.NewChatAction(t.chatID, tgbotapi.ChatTyping)
	if _, err := t.bot.Request(action); err != nil {
		t.logger.Warn("failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", t.chatID),
		)
	}
}

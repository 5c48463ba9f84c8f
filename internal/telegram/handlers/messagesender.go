package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	pkgRetry "github.com/futig/omnistudy/internal/pkg/retry"
	"github.com/futig/omnistudy/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MessageSender provides centralized message sending functionality.
// Every call is retried with backoff; client errors other than 429 are final.
type MessageSender struct {
	bot    BotAPI
	retry  *pkgRetry.RetryConfig
	logger *zap.Logger
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot BotAPI, retryCfg *pkgRetry.RetryConfig, logger *zap.Logger) *MessageSender {
	if retryCfg == nil {
		retryCfg = pkgRetry.DefaultRetryConfig()
	}
	return &MessageSender{
		bot:    bot,
		retry:  retryCfg,
		logger: logger,
	}
}

// Send sends an HTML message, splitting text over the Telegram length limit.
// The markup is attached to the last chunk, whose message is returned.
func (s *MessageSender) Send(ctx context.Context, chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	chunks := render.SplitMessage(text, render.MaxMessageLength)

	var sent tgbotapi.Message
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil && i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}

		var err error
		sent, err = s.send(ctx, chatID, msg)
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}

	return sent, nil
}

// Edit replaces the text and inline keyboard of a sent message.
// A nil markup removes the keyboard.
func (s *MessageSender) Edit(
	ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup,
) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup

	_, err := s.send(ctx, chatID, edit)
	if isNotModified(err) {
		return nil
	}
	return err
}

// SendDocument uploads data as a file
func (s *MessageSender) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	})
	doc.Caption = caption

	if _, err := s.send(ctx, chatID, doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press; failures are only logged
func (s *MessageSender) AnswerCallback(ctx context.Context, callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := s.bot.Request(callback); err != nil {
		ctxzap.Warn(ctx, "failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}

func (s *MessageSender) send(ctx context.Context, chatID int64, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	attempt := 0

	err := s.retry.Do(ctx, func() error {
		attempt++
		msg, err := s.bot.Send(c)
		if err != nil {
			if !isRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		}
		sent = msg
		return nil
	}, retry.OnRetry(func(n uint, err error) {
		s.logger.Warn("failed to send telegram message, retrying",
			zap.Error(err),
			zap.Uint("attempt", n+1),
			zap.Int64("chat_id", chatID),
		)
	}))
	if err != nil {
		if !isNotModified(err) {
			s.logger.Error("failed to send telegram message",
				zap.Error(err),
				zap.Int("attempts", attempt),
				zap.Int64("chat_id", chatID),
			)
		}
		return tgbotapi.Message{}, err
	}

	if attempt > 1 {
		s.logger.Info("telegram message sent after retry",
			zap.Int("attempts", attempt),
			zap.Int64("chat_id", chatID),
		)
	}

	return sent, nil
}

// isRetryable treats network failures, 429 and 5xx as transient
func isRetryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

// isNotModified reports the error Telegram returns when an edit changes nothing
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

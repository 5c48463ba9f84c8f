package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/omnistudy/internal/config"
	"github.com/futig/omnistudy/internal/telegram/handlers"
	"github.com/futig/omnistudy/internal/telegram/middleware"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/futig/omnistudy/internal/telegram/state"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Bot represents the Telegram bot
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.TelegramConfig
	stateManager *state.Manager
	handlers     map[string]handlers.Handler
	sender       *handlers.MessageSender
	logger       *zap.Logger
	loggingMW    *middleware.LoggingMiddleware
	recoveryMW   *middleware.RecoveryMiddleware
	rateLimitMW  *middleware.RateLimiterMiddleware
	updatesChan  tgbotapi.UpdatesChannel
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// New authorizes the bot token and prepares the middleware chain
func New(
	cfg *config.TelegramConfig,
	stateManager *state.Manager,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	bot := &Bot{
		api:          api,
		cfg:          cfg,
		stateManager: stateManager,
		sender:       handlers.NewMessageSender(api, &cfg.Retry, logger),
		logger:       logger,
		handlers:     make(map[string]handlers.Handler),
		stopChan:     make(chan struct{}),
	}

	bot.loggingMW = middleware.NewLoggingMiddleware(logger)
	bot.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	bot.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		api,
	)

	return bot, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: handlers.CommandStart, Description: "Start a new conversation"},
		tgbotapi.BotCommand{Command: handlers.CommandMode, Description: "Choose a study mode"},
		tgbotapi.BotCommand{Command: handlers.CommandReset, Description: "Clear the conversation"},
		tgbotapi.BotCommand{Command: handlers.CommandHelp, Description: "Show help"},
	)
	if _, err := b.api.Request(commands); err != nil {
		b.logger.Warn("failed to register bot commands", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout

	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)

	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	// Wait for all active handlers to complete
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware processes update through middleware chain
func (b *Bot) handleUpdateWithMiddleware(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(u3)
			})
		})
	})
}

// handleUpdate routes update to appropriate handler
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx := ctxzap.ToContext(context.Background(), b.logger)

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message != nil && update.Message.From != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage handles incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.Int64("user_id", userID)))

	msg := &handlers.Message{
		ChatID:      message.Chat.ID,
		UserID:      userID,
		MessageID:   message.MessageID,
		Text:        message.Text,
		Unsupported: message.Text == "",
	}

	kind := handlers.HandlerStateText
	if message.IsCommand() {
		kind = handlers.HandlerStateCommand
		msg.Command = message.Command()
		msg.Unsupported = false
	}

	b.dispatch(ctx, kind, msg)
}

// handleCallbackQuery acknowledges the button press and handles it in the background
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		b.sender.AnswerCallback(ctx, query.ID, "")
		return
	}

	userID := query.From.ID
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.Int64("user_id", userID)))

	msg := &handlers.Message{
		ChatID:       query.Message.Chat.ID,
		UserID:       userID,
		MessageID:    query.Message.MessageID,
		CallbackData: query.Data,
		CallbackID:   query.ID,
	}

	// Answer right away so Telegram stops the button spinner
	b.sender.AnswerCallback(ctx, query.ID, "")

	b.dispatch(ctx, handlers.HandlerStateCallback, msg)
}

// dispatch loads the user's state once and hands the message to the handler for kind
func (b *Bot) dispatch(ctx context.Context, kind string, msg *handlers.Message) {
	handler, exists := b.handlers[kind]
	if !exists {
		ctxzap.Warn(ctx, "no handler registered", zap.String("kind", kind))
		b.sendError(ctx, msg.ChatID, render.ErrGeneric)
		return
	}

	stateData, err := b.stateManager.GetStateData(ctx, msg.UserID)
	if err != nil {
		ctxzap.Error(ctx, "failed to get state data", zap.Error(err))
		b.sendError(ctx, msg.ChatID, render.ErrGeneric)
		return
	}
	ctx = state.ContextWithStateData(ctx, stateData)

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "handler error",
			zap.Error(err),
			zap.String("kind", kind),
		)
		b.sendError(ctx, msg.ChatID, render.ClassifyError(err))
	}
}

// sendError sends an error message
func (b *Bot) sendError(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.Send(ctx, chatID, text, nil); err != nil {
		b.logger.Error("failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// RegisterHandler registers a handler for a kind of update
func (b *Bot) RegisterHandler(handler handlers.Handler) {
	kind := handler.GetState()

	if !handlers.IsValidState(kind) {
		b.logger.Fatal("invalid handler state",
			zap.String("state", kind),
		)
	}

	b.handlers[kind] = handler
	b.logger.Info("handler registered",
		zap.String("state", kind),
	)
}

// GetAPI returns the bot API instance (for handlers)
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// GetStateManager returns the state manager (for handlers)
func (b *Bot) GetStateManager() *state.Manager {
	return b.stateManager
}

// GetSender returns the retrying message sender (for handlers)
func (b *Bot) GetSender() *handlers.MessageSender {
	return b.sender
}

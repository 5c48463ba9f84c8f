package telegram

import (
	"context"
	"fmt"

	"github.com/futig/omnistudy/internal/config"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/futig/omnistudy/internal/telegram/bot"
	"github.com/futig/omnistudy/internal/telegram/handlers"
	"github.com/futig/omnistudy/internal/telegram/keyboard"
	"github.com/futig/omnistudy/internal/telegram/state"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(
	cfg *config.TelegramConfig,
	storage state.Storage,
	chatUC handlers.ChatUsecase,
	v *validator.Validator,
	logger *zap.Logger,
) (Bot, error) {
	stateManager := state.NewManager(storage)

	b, err := bot.New(cfg, stateManager, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	registerHandlers(b, chatUC, v, logger)

	logger.Info("telegram bot initialized successfully")

	return b, nil
}

// registerHandlers registers all handlers with the bot
func registerHandlers(b *bot.Bot, chatUC handlers.ChatUsecase, v *validator.Validator, logger *zap.Logger) {
	deps := handlers.Deps{
		Bot:          b.GetAPI(),
		StateManager: b.GetStateManager(),
		ChatUC:       chatUC,
		Keyboard:     keyboard.NewBuilder(),
		Sender:       b.GetSender(),
		Logger:       logger,
	}

	b.RegisterHandler(handlers.NewCommandHandler(deps))
	b.RegisterHandler(handlers.NewTextHandler(deps, v))
	b.RegisterHandler(handlers.NewCallbackHandler(deps, v))

	logger.Info("telegram handlers registered",
		zap.Int("handler_count", 3),
	)
}

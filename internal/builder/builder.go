package builder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/futig/omnistudy/internal/api"
	conversationapi "github.com/futig/omnistudy/internal/api/conversation"
	"github.com/futig/omnistudy/internal/config"
	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/integration/llm"
	"github.com/futig/omnistudy/internal/pkg/formatter"
	"github.com/futig/omnistudy/internal/pkg/logger"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/repository"
	"github.com/futig/omnistudy/internal/telegram"
	"github.com/futig/omnistudy/internal/usecase/chat"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	chatUC := buildChatUsecase(cfg, log)
	requestValidator := validator.NewValidator(cfg.MaxInputLength)

	conversationHandler := conversationapi.NewHandler(chatUC, requestValidator)
	log.Info("API handlers initialized")

	// A request may wait for one full generation round trip
	router := api.SetupRouter(conversationHandler, cfg.HTTPWriteTimeout, log)
	log.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		logger: log,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.TelegramCfg.BotToken == "" {
		return nil, nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required to run the bot")
	}

	log.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	chatUC := buildChatUsecase(cfg, log)
	stateStorage := repository.NewTelegramStateCache(cfg.TelegramCfg.StateTTL, cfg.ConversationCleanupInterval)

	bot, err := telegram.NewBot(
		&cfg.TelegramCfg,
		stateStorage,
		chatUC,
		validator.NewValidator(cfg.MaxInputLength),
		log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	log.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, log, nil
}

// buildChatUsecase wires the in-memory conversation store, the generation
// gateway and the quiz registry shared by both entry points
func buildChatUsecase(cfg *config.Config, log *zap.Logger) *chat.ChatUsecase {
	conversations := repository.NewConversationCache(cfg.ConversationTTL, cfg.ConversationCleanupInterval)
	quizzes := quiz.NewRegistry(log)

	// Expired conversations take their quiz runs with them
	conversations.OnEvicted(func(store *conversation.Store) {
		quizzes.Discard(chat.QuizMessageIDs(store)...)
		log.Debug("conversation evicted", zap.String("conversation_id", store.ID()))
	})
	log.Info("Conversation store initialized",
		zap.Duration("ttl", cfg.ConversationTTL),
	)

	var gateway chat.Gateway
	if cfg.EnableMocks {
		log.Info("Using mock generation gateway")
		gateway = llm.NewMockConnector(log)
	} else {
		log.Info("Using remote generation gateway",
			zap.String("model", cfg.LLMConnectorCfg.Model),
			zap.String("url", cfg.LLMConnectorCfg.Url),
		)
		gateway = llm.NewConnector(cfg.LLMConnectorCfg, log)
	}

	chatUC := chat.NewUsecase(conversations, gateway, quizzes, formatter.NewFactory(), log)
	log.Info("Use cases initialized")

	return chatUC
}

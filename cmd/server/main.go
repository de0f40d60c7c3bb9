package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/api"
	"convobot-backend/internal/config"
	"convobot-backend/internal/crypto"
	"convobot-backend/internal/demo"
	"convobot-backend/internal/format"
	"convobot-backend/internal/handlers"
	"convobot-backend/internal/logging"
	"convobot-backend/internal/orchestrator"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/proxy"
	"convobot-backend/internal/services"
	"convobot-backend/internal/store"
	"convobot-backend/internal/store/memory"
	"convobot-backend/internal/store/postgres"
	"convobot-backend/internal/store/sqlite"
)

// openStore returns the configured key-value store and a cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := dbpool.Ping(ctx); err != nil {
			dbpool.Close()
			return nil, nil, err
		}
		pgStore := postgres.NewPostgresStore(dbpool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			dbpool.Close()
			return nil, nil, err
		}
		return pgStore, dbpool.Close, nil
	case "sqlite":
		sqlStore, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlStore, func() { _ = sqlStore.Close() }, nil
	default:
		return memory.NewMemoryStore(), func() {}, nil
	}
}

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.RequireSessionSecret(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start")
	}
	log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Dur("session_ttl", cfg.SessionTTL).Msg("configuration loaded")

	// 2. Open the key-value store
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()
	kv, closeStore, err := openStore(dbCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.StoreDriver).Msg("unable to open store")
	}
	defer closeStore()

	// 3. Settings encryption
	key, err := crypto.KeyFromConfig(cfg.EncryptionKey, cfg.SessionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid encryption key")
	}
	sealer, err := crypto.NewSealer(key)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create AES-GCM cipher")
	}

	// 4. Providers
	gen := demo.NewGenerator()
	gemini := provider.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.ProviderTimeout)
	providers := provider.NewRegistry()
	providers.Register(provider.EndpointGemini, gemini)
	providers.Register(provider.EndpointDemo, provider.NewDemoProvider(gen))
	providers.Register(provider.EndpointCustom, provider.NewCompatibleClient(cfg.CustomModel, "", cfg.ProviderTimeout))

	// 5. Services & handlers
	sessionService := services.NewSessionService(kv, sealer, providers, services.SessionServiceConfig{
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		IdleTTL:       cfg.SessionIdle,
		SessionOpts: []orchestrator.Option{
			orchestrator.WithThinkDelay(cfg.ThinkDelayMin, cfg.ThinkDelayMax),
			orchestrator.WithDemoGenerator(gen),
		},
	})
	formatter := format.New()

	router := api.NewRouter(api.RouterDependencies{
		ProxyHandler:        handlers.NewProxyHandler(proxy.NewHandler(gemini, gen)),
		SessionHandler:      handlers.NewSessionHandler(sessionService, formatter),
		ConversationHandler: handlers.NewConversationHandler(sessionService, formatter),
		SettingsHandler:     handlers.NewSettingsHandler(sessionService, formatter),
		FormatHandler:       handlers.NewFormatHandler(formatter),
		Config:              cfg,
	})

	// 6. Configure and Start HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 75 * time.Second, // Bounds a chat turn: up to 3s think delay plus the provider call
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.HTTPPort).Msg("could not listen")
		}
	}()

	<-stopChan
	log.Info().Msg("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server graceful shutdown failed")
		return
	}
	log.Info().Msg("server shutdown complete")
}

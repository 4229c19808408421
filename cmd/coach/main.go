package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"negociasmart/internal/app"
	"negociasmart/internal/config"
	"negociasmart/internal/gateway"
	"negociasmart/internal/server"
	"negociasmart/internal/util"
	"negociasmart/pkg/ai"
	"negociasmart/pkg/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	sessionStore := buildSessionStore(cfg)
	gw := gateway.New(buildGenerator(cfg), gatewayOptions(cfg)...)

	appCore, err := app.New(app.Config{
		Store:    dataStore,
		Sessions: sessionStore,
		Gateway:  gw,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App: appCore,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("coach server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func buildStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("using in-memory store")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func buildSessionStore(cfg config.FileConfig) store.SessionStore {
	ttl := time.Duration(cfg.SessionTTLH) * time.Hour
	if cfg.RedisAddr != "" {
		slog.Info("using redis login sessions", "addr", cfg.RedisAddr)
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, ttl)
	}
	return store.NewJWTSessionStore(cfg.SessionSecret, ttl)
}

// buildGenerator returns nil when no credential is configured; the
// gateway then serves fallbacks for everything.
func buildGenerator(cfg config.FileConfig) ai.Generator {
	switch cfg.GenerationProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Warn("no openai API key, generation runs in fallback mode")
			return nil
		}
		gen, err := ai.NewOpenAICompatClient(cfg.GenerationBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel)
		if err != nil {
			log.Fatalf("failed to init openai client: %v", err)
		}
		return gen
	default:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("no gemini API key, generation runs in fallback mode")
			return nil
		}
		gen, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel)
		if err != nil {
			log.Fatalf("failed to init gemini client: %v", err)
		}
		return gen
	}
}

func gatewayOptions(cfg config.FileConfig) []gateway.Option {
	switch {
	case cfg.FallbackDelayMs < 0:
		return []gateway.Option{gateway.WithFallbackPauses(0, 0)}
	case cfg.FallbackDelayMs > 0:
		d := time.Duration(cfg.FallbackDelayMs) * time.Millisecond
		return []gateway.Option{gateway.WithFallbackPauses(d, d)}
	default:
		return nil
	}
}

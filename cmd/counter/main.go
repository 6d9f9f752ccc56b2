package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"counter-bot/internal/adapters/matheval"
	"counter-bot/internal/analytics"
	"counter-bot/internal/bot"
	"counter-bot/internal/config"
	"counter-bot/internal/modules/audit"
	"counter-bot/internal/parser"
	"counter-bot/internal/sanitize"
	"counter-bot/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	backend, err := openBackend(context.Background(), cfg.Storage)
	if err != nil {
		logger.Fatal("storage init failed", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	store := storage.NewStore(backend, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger.Named("storage"))
	defer store.Close()

	var evaluator parser.Evaluator
	if cfg.Evaluator.URL != "" {
		client, err := matheval.New(cfg.Evaluator.URL,
			matheval.WithTimeout(time.Duration(cfg.Evaluator.TimeoutSeconds)*time.Second),
			matheval.WithUserAgent(cfg.Evaluator.UserAgent),
		)
		if err != nil {
			logger.Fatal("evaluator init failed", zap.Error(err))
		}
		evaluator = client
		logger.Info("expression evaluator enabled", zap.String("endpoint", client.Endpoint()))
	}

	sanitizer := sanitize.New(sanitize.Limits{
		MaxLength:    cfg.Sanitizer.MaxLength,
		MaxSegments:  cfg.Sanitizer.MaxSegments,
		RejectMarkup: cfg.Sanitizer.RejectMarkup,
	}, logger.Named("sanitize"))
	textParser := parser.New(sanitizer, evaluator, parser.Budget{
		Requests: cfg.Evaluator.RateLimit.Requests,
		Window:   time.Duration(cfg.Evaluator.RateLimit.WindowSeconds) * time.Second,
	}, logger.Named("parser"))

	analyticsSvc := analytics.New(0)
	auditLogger := audit.NewLogger(logger, analyticsSvc)

	botSvc, err := bot.New(cfg, logger, store, textParser, auditLogger, analyticsSvc)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("backend", cfg.Storage.Backend))

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		backend, err := storage.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := backend.Migrate(); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil
	case config.BackendPostgres:
		backend, err := storage.NewPostgresBackend(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := backend.Migrate(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil
	case config.BackendRedis:
		return storage.NewRedisBackend(ctx, cfg.RedisURL)
	default:
		return storage.NewFileBackend(cfg.Dir)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/config"
	dbRedis "github.com/kailas-cloud/resumatch/internal/db/redis"
	"github.com/kailas-cloud/resumatch/internal/domain"
	logpkg "github.com/kailas-cloud/resumatch/internal/logger"
	"github.com/kailas-cloud/resumatch/internal/metrics"
	feedbackrepo "github.com/kailas-cloud/resumatch/internal/repository/feedback"
	historyrepo "github.com/kailas-cloud/resumatch/internal/repository/history"
	recordrepo "github.com/kailas-cloud/resumatch/internal/repository/record"
	chiTransport "github.com/kailas-cloud/resumatch/internal/transport/chi"
	geminiTransport "github.com/kailas-cloud/resumatch/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/resumatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/resumatch/internal/usecase/embedding"
	feedbackuc "github.com/kailas-cloud/resumatch/internal/usecase/feedback"
	ingestuc "github.com/kailas-cloud/resumatch/internal/usecase/ingest"
	matchinguc "github.com/kailas-cloud/resumatch/internal/usecase/matching"
	reasoninguc "github.com/kailas-cloud/resumatch/internal/usecase/reasoning"
	"github.com/kailas-cloud/resumatch/internal/usecase/retry"
	"github.com/kailas-cloud/resumatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting resumatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterReasoningMetrics()

	// Embedder chain: OpenAI -> Retrying — composition root
	embedder := embeddinguc.NewRetrying(
		openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			MaxChars:   cfg.Embedding.MaxInputChars,
			Logger:     logger,
		}),
		retryPolicy(cfg.Embedding.Retry),
	)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	reasoner, err := buildReasoner(ctx, cfg.Reasoning, logger)
	if err != nil {
		logger.Fatal("Failed to create reasoner", zap.Error(err))
	}
	logger.Info("Reasoner created",
		zap.String("provider", cfg.Reasoning.Provider),
		zap.String("model", cfg.Reasoning.Model),
	)

	// Repositories
	recordRepo := recordrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions)
	historyRepo := historyrepo.New(store, cfg.Storage.KeyPrefix)
	feedbackRepo := feedbackrepo.New(store, cfg.Storage.KeyPrefix)

	// Use case services
	ingestSvc := ingestuc.New(recordRepo, embedder, logger).
		WithBatchSize(cfg.Embedding.BatchSize)
	matchingSvc := matchinguc.New(recordRepo, historyRepo, reasoner, matchinguc.Options{
		DefaultTopK:       cfg.Matching.DefaultTopK,
		Workers:           cfg.Matching.Workers,
		ReasoningPerSec:   cfg.Matching.ReasoningPerSec,
		CandidatePageSize: cfg.Matching.CandidatePageSize,
		Prompt:            domain.DefaultPromptTemplate(cfg.Reasoning.MaxPromptChars),
	}, logger)
	feedbackSvc := feedbackuc.New(feedbackRepo, logger)

	server := chiTransport.NewServer(ingestSvc, matchingSvc, feedbackSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
	}
}

// buildReasoner assembles the reasoning chain: provider -> Retrying.
func buildReasoner(ctx context.Context, cfg config.ReasoningConfig, logger *zap.Logger) (domain.Reasoner, error) {
	var base domain.Reasoner
	switch cfg.Provider {
	case "gemini":
		var err error
		base, err = geminiTransport.NewReasoner(ctx, &geminiTransport.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
	default:
		base = openaiTransport.NewReasoner(&openaiTransport.ReasonerConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Logger:      logger,
		})
	}

	return reasoninguc.NewRetrying(base, retryPolicy(cfg.Retry)), nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

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

	"github.com/suporteia/atena/internal/config"
	"github.com/suporteia/atena/internal/db"
	dbRedis "github.com/suporteia/atena/internal/db/redis"
	"github.com/suporteia/atena/internal/domain"
	logpkg "github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/metrics"
	conversationrepo "github.com/suporteia/atena/internal/repository/conversation"
	"github.com/suporteia/atena/internal/repository/embcache"
	chiTransport "github.com/suporteia/atena/internal/transport/chi"
	openaiTransport "github.com/suporteia/atena/internal/transport/openai"
	"github.com/suporteia/atena/internal/transport/qdrant"
	"github.com/suporteia/atena/internal/transport/rerank"
	"github.com/suporteia/atena/internal/usecase/answer"
	"github.com/suporteia/atena/internal/usecase/conversation"
	"github.com/suporteia/atena/internal/usecase/generate"
	healthuc "github.com/suporteia/atena/internal/usecase/health"
	"github.com/suporteia/atena/internal/usecase/plan"
	"github.com/suporteia/atena/internal/usecase/retrieval"
	"github.com/suporteia/atena/internal/version"
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

	logger.Info("Starting atena API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("vector_collection", cfg.Vector.Collection),
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

	vecStore, err := qdrant.NewStore(qdrant.Config{
		Host:       cfg.Vector.Host,
		Port:       cfg.Vector.Port,
		APIKey:     cfg.Vector.APIKey,
		UseTLS:     cfg.Vector.UseTLS,
		Collection: cfg.Vector.Collection,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer func() { _ = vecStore.Close() }()

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Embedder chains: query-side for retrieval, document-side for QA memory.
	// The instruction decorator is outermost so the cache key includes it.
	queryEmbedder := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, store, logger)
	docEmbedder := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// LLM provider chain, tried in config order
	providers := make([]generate.Provider, 0, len(cfg.LLM.Providers))
	for _, pc := range cfg.LLM.Providers {
		providers = append(providers, openaiTransport.NewChat(&openaiTransport.ChatConfig{
			Name:        pc.Name,
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Temperature: pc.Temperature,
			MaxTokens:   pc.MaxTokens,
		}))
		logger.Info("LLM provider registered",
			zap.String("provider", pc.Name),
			zap.String("model", pc.Model),
		)
	}
	llmChain := generate.NewChain(providers...)

	planner := plan.New(domain.RetrievalParams{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
	})

	retrievalSvc := retrieval.New(planner, queryEmbedder, vecStore, retrieval.Config{
		RRFK:           cfg.Retrieval.RRFK,
		VectorWeight:   cfg.Retrieval.VectorWeight,
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		TitleBoost:     cfg.Retrieval.TitleBoost,
		CategoryBoost:  cfg.Retrieval.CategoryBoost,
		MMRLambda:      cfg.Retrieval.MMRLambda,
		RerankEnabled:  cfg.Retrieval.RerankEnabled,
		OriginalWeight: cfg.Retrieval.OriginalWeight,
		RerankWeight:   cfg.Retrieval.RerankWeight,
		MaxRerankDocs:  cfg.Retrieval.MaxRerankDocs,
		RelevanceFloor: cfg.Retrieval.RelevanceFloor,
	}).WithClarifier(llmChain)
	if cfg.Retrieval.RerankEnabled {
		retrievalSvc = retrievalSvc.WithReranker(rerank.NewClient(rerank.Config{
			URL:    cfg.Retrieval.RerankURL,
			APIKey: cfg.Retrieval.RerankAPIKey,
		}))
		logger.Info("Reranker enabled", zap.String("url", cfg.Retrieval.RerankURL))
	}

	convRepo := conversationrepo.New(
		store,
		cfg.Database.KeyPrefix,
		time.Duration(cfg.Database.SessionTTLHours)*time.Hour,
	)
	convSvc := conversation.New(convRepo).WithFeedback(vecStore)

	memoryWriter := answer.NewMemoryWriter(
		docEmbedder, vecStore, cfg.Chat.MemoryMinScore, cfg.Chat.MemoryMinAnswer,
	)

	answerSvc := answer.New(retrievalSvc, llmChain, answer.Config{
		HeartbeatInterval: time.Duration(cfg.Stream.HeartbeatSec) * time.Second,
		FinalizeTimeout:   time.Duration(cfg.Stream.FinalizeTimeoutMS) * time.Millisecond,
		EventBuffer:       cfg.Stream.EventBuffer,
		HistoryMaxTurns:   cfg.Chat.HistoryMaxTurns,
	}).
		WithMemory(memoryWriter).
		WithRecorder(convSvc).
		WithUsage(vecStore)

	checkers := []healthuc.NamedChecker{
		{Name: "vector", Checker: vecStore},
		{Name: "embedding", Checker: newEmbeddingHealthChecker(queryEmbedder)},
	}
	for _, p := range providers {
		checkers = append(checkers, healthuc.NamedChecker{
			Name: "llm:" + p.Name(), Checker: p,
		})
	}
	healthSvc := healthuc.New(store, checkers...)

	server := chiTransport.NewServer(answerSvc, convSvc, healthSvc, cfg.Chat.MinQuestionChars, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		// WriteTimeout 0 keeps long-lived SSE streams alive
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	cfg config.Config,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(
			base, store, cfg.Database.KeyPrefix+"emb_cache:",
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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

			// Canonical log line, one line per request
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

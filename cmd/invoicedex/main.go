package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/config"
	dbPostgres "github.com/kailas-cloud/invoicedex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/invoicedex/internal/db/redis"
	logpkg "github.com/kailas-cloud/invoicedex/internal/logger"
	"github.com/kailas-cloud/invoicedex/internal/metrics"
	deadletterrepo "github.com/kailas-cloud/invoicedex/internal/repository/deadletter"
	invoicerepo "github.com/kailas-cloud/invoicedex/internal/repository/invoice"
	mappingrepo "github.com/kailas-cloud/invoicedex/internal/repository/mapping"
	"github.com/kailas-cloud/invoicedex/internal/repository/searchindex"
	chiTransport "github.com/kailas-cloud/invoicedex/internal/transport/chi"
	analyticsuc "github.com/kailas-cloud/invoicedex/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/invoicedex/internal/usecase/indexing"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
	mappinguc "github.com/kailas-cloud/invoicedex/internal/usecase/mapping"
	normalizeuc "github.com/kailas-cloud/invoicedex/internal/usecase/normalize"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
	"github.com/kailas-cloud/invoicedex/internal/version"
)

// canonicalStore is the record and mapping-spec backend selected by config.
type canonicalStore struct {
	invoices invoiceuc.Repository
	mappings mappinguc.Repository
	// pinger is nil when canonical data shares the index connection.
	pinger healthuc.Backend
	close  func()
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "invoicedex", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting invoicedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("canonical_store", cfg.Database.Store),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Index store not ready", zap.Error(err))
	}
	logger.Info("Connected to index store")

	searchRepo := searchindex.New(store, cfg.Index.KeyPrefix)
	if err := searchRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}

	canonical, err := openCanonicalStore(ctx, &cfg, store, readiness)
	if err != nil {
		logger.Fatal("Failed to open canonical store", zap.Error(err))
	}
	defer canonical.close()
	logger.Info("Canonical store ready", zap.String("store", cfg.Database.Store))

	// Register indexer metrics explicitly (no init())
	metrics.RegisterIndexerMetrics()

	deadLetters := deadletterrepo.New(store, cfg.Index.KeyPrefix, time.Duration(cfg.Index.DeadLetterTTLHr)*time.Hour)
	indexer := indexinguc.New(searchRepo, deadLetters, logger, indexinguc.Config{
		Workers:        cfg.Indexer.Workers,
		QueueSize:      cfg.Indexer.QueueSize,
		MaxAttempts:    cfg.Indexer.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Indexer.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Indexer.MaxBackoffMS) * time.Millisecond,
		WriteTimeout:   time.Duration(cfg.Indexer.WriteTimeoutMS) * time.Millisecond,
	})

	// Create use case services
	normalizer := normalizeuc.New(canonical.mappings)
	invoiceSvc := invoiceuc.New(canonical.invoices, normalizer, indexer)
	mappingSvc := mappinguc.New(canonical.mappings)
	searchSvc := searchuc.New(searchRepo, cfg.Index.DefaultSize)
	analyticsSvc := analyticsuc.New(searchRepo, cfg.Index.AnalyticsCap)
	healthSvc := healthuc.New(store, canonical.pinger)

	server := chiTransport.NewServer(invoiceSvc, mappingSvc, searchSvc, analyticsSvc, healthSvc, logger,
		chiTransport.Options{
			RoleHeader:     cfg.Auth.RoleHeader,
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger, cfg.Auth.RoleHeader))
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	// Pending index writes drain before the stores close.
	if err := indexer.Close(shutdownCtx); err != nil {
		logger.Error("Index writer did not drain", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openCanonicalStore selects where invoice records and mapping specs live.
func openCanonicalStore(
	ctx context.Context, cfg *config.Config, store *dbRedis.Store, readiness time.Duration,
) (canonicalStore, error) {
	if cfg.Database.Store == config.StorePostgres {
		pg, err := dbPostgres.Open(dbPostgres.Config{DSN: cfg.Database.PostgresDSN})
		if err != nil {
			return canonicalStore{}, err
		}
		if err := pg.WaitForReady(ctx, readiness); err != nil {
			pg.Close()
			return canonicalStore{}, fmt.Errorf("postgres not ready: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return canonicalStore{}, err
		}
		return canonicalStore{
			invoices: dbPostgres.NewInvoiceRepo(pg),
			mappings: dbPostgres.NewMappingRepo(pg),
			pinger:   pg,
			close:    pg.Close,
		}, nil
	}

	invRepo := invoicerepo.New(store, cfg.Index.KeyPrefix)
	if err := invRepo.EnsureIndex(ctx); err != nil {
		return canonicalStore{}, fmt.Errorf("ensure invoice index: %w", err)
	}
	mapRepo := mappingrepo.New(store, cfg.Index.KeyPrefix)
	if err := mapRepo.EnsureIndex(ctx); err != nil {
		return canonicalStore{}, fmt.Errorf("ensure mapping index: %w", err)
	}
	// Pass nil interface (not typed nil pointer!) so health skips the store check.
	return canonicalStore{invoices: invRepo, mappings: mapRepo, close: func() {}}, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger, roleHeader string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("role", r.Header.Get(roleHeader)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

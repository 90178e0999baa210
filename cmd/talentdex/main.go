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
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/config"
	dbRedis "github.com/kailas-cloud/talentdex/internal/db/redis"
	"github.com/kailas-cloud/talentdex/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentdex/internal/domain/synonym"
	logpkg "github.com/kailas-cloud/talentdex/internal/logger"
	"github.com/kailas-cloud/talentdex/internal/metrics"
	auditrepo "github.com/kailas-cloud/talentdex/internal/repository/audit"
	candidaterepo "github.com/kailas-cloud/talentdex/internal/repository/candidate"
	"github.com/kailas-cloud/talentdex/internal/repository/postgres"
	quotarepo "github.com/kailas-cloud/talentdex/internal/repository/quota"
	searchrepo "github.com/kailas-cloud/talentdex/internal/repository/search"
	"github.com/kailas-cloud/talentdex/internal/scheduler"
	"github.com/kailas-cloud/talentdex/internal/servicetoken"
	chiTransport "github.com/kailas-cloud/talentdex/internal/transport/chi"
	"github.com/kailas-cloud/talentdex/internal/transport/events"
	"github.com/kailas-cloud/talentdex/internal/transport/httpclient"
	audituc "github.com/kailas-cloud/talentdex/internal/usecase/audit"
	consultationuc "github.com/kailas-cloud/talentdex/internal/usecase/consultation"
	healthuc "github.com/kailas-cloud/talentdex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/talentdex/internal/usecase/index"
	quotauc "github.com/kailas-cloud/talentdex/internal/usecase/quota"
	searchuc "github.com/kailas-cloud/talentdex/internal/usecase/search"
	"github.com/kailas-cloud/talentdex/internal/version"
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

	logger.Info("Starting talentdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
		zap.String("quota_driver", cfg.Quota.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Search engine
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create search store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search engine not ready", zap.Error(err))
	}
	logger.Info("Connected to search engine")

	// Relational store
	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		pool, err = postgres.NewPool(ctx, postgres.Config{
			URL:             cfg.Postgres.URL,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime(),
		})
		if err != nil {
			logger.Fatal("Failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				logger.Fatal("Failed to apply schema", zap.Error(err))
			}
		}
		logger.Info("Connected to postgres")
	}

	metrics.RegisterDomainMetrics()

	// Service identity
	issuer, err := servicetoken.NewIssuer(cfg.Auth.Secret, cfg.Auth.ServiceName, cfg.Auth.TTL())
	if err != nil {
		logger.Fatal("Invalid service token issuer", zap.Error(err))
	}
	verifier, err := servicetoken.NewVerifier(cfg.Auth.Secret, cfg.Auth.Allowed)
	if err != nil {
		logger.Fatal("Invalid service token verifier", zap.Error(err))
	}

	// Platform clients
	profiles, err := httpclient.NewProfileStore(httpclient.Config{
		BaseURL: cfg.ProfileStore.URL,
		Timeout: cfg.ProfileStore.Timeout(),
	}, issuer)
	if err != nil {
		logger.Fatal("Invalid profile store client", zap.Error(err))
	}
	directory, err := httpclient.NewDirectory(httpclient.Config{
		BaseURL: cfg.Directory.URL,
		Timeout: cfg.Directory.Timeout(),
	}, issuer)
	if err != nil {
		logger.Fatal("Invalid directory client", zap.Error(err))
	}

	// Index and search
	synonyms, err := loadSynonyms(cfg.Search.SynonymsFile)
	if err != nil {
		logger.Fatal("Failed to load synonyms", zap.Error(err))
	}
	schema, err := candidaterepo.Schema(cfg.Search.Index)
	if err != nil {
		logger.Fatal("Invalid index schema", zap.Error(err))
	}
	boot := candidaterepo.NewBootstrapper(store, schema, synonyms.EngineGroups(), candidaterepo.BootstrapConfig{
		Attempts: cfg.Search.BootstrapAttempts,
		Backoff:  cfg.Search.Backoff(),
		Recreate: cfg.Search.RecreateIndex,
	}, logger)

	model := ranking.Default()
	if cfg.Search.VerifiedBoost > 0 {
		model.VerifiedBoost = cfg.Search.VerifiedBoost
	}
	if cfg.Search.RecencyHalfLife > 0 {
		model.RecencyHalfLife = cfg.Search.HalfLife()
	}

	candRepo := candidaterepo.New(store)
	searchRepo := searchrepo.New(store, searchrepo.NewBuilder(cfg.Search.Index, synonyms),
		searchrepo.Config{Window: cfg.Search.RerankWindow, Model: model},
		searchrepo.WithEnsurer(boot),
		searchrepo.WithLogger(logger),
	)

	searchSvc := searchuc.New(searchRepo)
	indexSvc := indexuc.New(candRepo, boot, profiles, logger).
		WithLimits(cfg.Search.MaxBulkSize, cfg.Reconcile.PageSize)

	// Quota and audit. Interfaces stay nil (not typed nil pointers) when served remotely.
	var (
		quotaKeeper chiTransport.QuotaKeeper
		quotaGate   consultationuc.QuotaGate
		auditLog    chiTransport.AuditLog
		recorder    consultationuc.AuditRecorder
	)
	switch cfg.Quota.Driver {
	case config.QuotaDriverRemote:
		gate, err := httpclient.NewQuotaGate(httpclient.Config{BaseURL: cfg.Quota.RemoteURL}, issuer)
		if err != nil {
			logger.Fatal("Invalid quota client", zap.Error(err))
		}
		quotaGate = gate
	default:
		var ledger quotauc.Ledger = quotarepo.NewPostgresLedger(pool)
		if cfg.Quota.Driver == config.QuotaDriverRedis {
			ledger = quotarepo.NewRedisLedger(store)
		}
		svc := quotauc.New(ledger, quotarepo.NewSubscriptions(pool))
		quotaKeeper, quotaGate = svc, svc
	}
	if cfg.Audit.RemoteURL != "" {
		remote, err := httpclient.NewAuditRecorder(httpclient.Config{BaseURL: cfg.Audit.RemoteURL}, issuer)
		if err != nil {
			logger.Fatal("Invalid audit client", zap.Error(err))
		}
		recorder = remote
	} else {
		svc := audituc.New(auditrepo.New(pool))
		auditLog, recorder = svc, svc
	}

	consultSvc := consultationuc.New(directory, quotaGate, profiles, indexSvc, recorder,
		consultationuc.WithTimeouts(consultationuc.Timeouts{
			Directory: cfg.Timeouts.Directory(),
			Quota:     cfg.Timeouts.Quota(),
			Profile:   cfg.Timeouts.Profile(),
			Index:     cfg.Timeouts.Index(),
			Audit:     cfg.Timeouts.Audit(),
		}),
		consultationuc.WithLogger(logger),
	)

	var pgPinger healthuc.Pinger
	if pool != nil {
		pgPinger = pool
	}
	healthSvc := healthuc.New(store, boot, pgPinger)

	// Background work
	go func() {
		if err := boot.Run(ctx); err != nil {
			logger.Warn("Index bootstrap gave up, retrying lazily on writes", zap.Error(err))
		}
	}()

	sched := scheduler.New(indexSvc, cfg.Reconcile.Cron, cfg.Reconcile.Timeout(), logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start reconcile scheduler", zap.Error(err))
	}

	if cfg.Events.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Events.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to events broker", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		sub := events.NewSubscriber(rdb, cfg.Events.Channel, indexSvc, logger)
		go func() {
			if err := sub.Run(ctx); err != nil {
				logger.Error("Status event subscriber stopped", zap.Error(err))
			}
		}()
	}

	// HTTP
	server := chiTransport.NewServer(chiTransport.Services{
		Search:    searchSvc,
		Index:     indexSvc,
		Reconcile: sched,
		Consult:   consultSvc,
		Quota:     quotaKeeper,
		Audit:     auditLog,
		Health:    healthSvc,
	}, verifier, logger).WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout(),
		WriteTimeout: cfg.HTTP.WriteTimeout(),
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	sched.Stop()
	consultSvc.Wait()

	logger.Info("Server stopped gracefully")
}

// loadSynonyms reads the synonym table. An empty path disables query expansion.
func loadSynonyms(path string) (*synonym.Table, error) {
	if path == "" {
		return synonym.New("none")
	}
	t, err := synonym.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if id := r.Header.Get(chiTransport.HeaderRecruiterID); id != "" {
				fields = append(fields, zap.String("recruiter_id", id))
			}
			if svc := chiTransport.CallingService(r.Context()); svc != "" {
				fields = append(fields, zap.String("calling_service", svc))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}

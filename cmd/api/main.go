// Package main is the entrypoint for the Stashd API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stashd/stashd/internal/blob"
	"github.com/stashd/stashd/internal/cache"
	"github.com/stashd/stashd/internal/config"
	"github.com/stashd/stashd/internal/gc"
	"github.com/stashd/stashd/internal/handler"
	"github.com/stashd/stashd/internal/metrics"
	"github.com/stashd/stashd/internal/middleware"
	"github.com/stashd/stashd/internal/repository"
	"github.com/stashd/stashd/internal/server"
	"github.com/stashd/stashd/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize blob store
	blobStore, err := blob.New(ctx, blob.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		MaxRetries:      cfg.S3MaxRetries,
		PublicBaseURL:   cfg.StorageBaseURL,
	})
	if err != nil {
		logger.Error(
			"failed to connect to blob store",
			slog.String("error", err.Error()),
			slog.String("bucket", cfg.S3Bucket),
		)
		os.Exit(1)
	}
	logger.Info("connected to blob store", "bucket", cfg.S3Bucket)

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	fileService := service.NewFileService(repo, repo, blobStore, cacheClient, logger, metricsRecorder, cfg.MaxUploadSize)
	userService := service.NewUserService(repo, cacheClient, logger, cfg.SessionTTL, cfg.ResetTokenTTL)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient, blobStore)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	fileHandler := handler.NewFileHandler(fileService, logger)
	authHandler := handler.NewAuthHandler(userService, logger, cfg.SessionCookieName, cfg.SessionTTL)

	// Setup router
	r := setupRouter(h, healthHandler, metricsHandler, fileHandler, authHandler, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the orphan blob sweeper; it is stopped via shutdown hooks.
	sweeper := gc.NewSweeper(cacheClient, blobStore, logger, metricsRecorder)
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("gc sweeper stopped", "error", err)
		}
	}()
	srv.OnShutdown("gc sweeper", sweeper.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	fileHandler *handler.FileHandler,
	authHandler *handler.AuthHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:  cfg.IsDevelopment(),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
	}))
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		corsCfg.AllowCredentials = true // session cookie auth
		r.Use(middleware.CORS(corsCfg))
	}
	// The transport cap sits above the upload limit so oversized
	// uploads are rejected by the service with a clean error.
	r.Use(middleware.MaxBodySize(cfg.MaxUploadSize + (1 << 20)))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Info)

	sessionCfg := middleware.SessionAuthConfig{
		Logger:     logger,
		Sessions:   cacheClient,
		CookieName: cfg.SessionCookieName,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          logger,
		Limiter:         cacheClient,
		Enabled:         cfg.RateLimitEnabled,
		AuthPerMinute:   cfg.RateLimitAuthPerMin,
		AuthBurst:       cfg.RateLimitAuthPerMin,
		UploadPerMinute: cfg.RateLimitUploadPerMin,
		UploadBurst:     cfg.RateLimitUploadPerMin,
	}

	// Form-action auth flows, rate limited per IP
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitAuth(rateLimitCfg))
		r.Use(middleware.SessionAuth(sessionCfg))

		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/sign-in", authHandler.SignIn)
		r.Post("/sign-out", authHandler.SignOut)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// API routes (require a session)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SessionAuth(sessionCfg))
		r.Use(middleware.RequireSession(logger))

		r.Get("/me", authHandler.Me)

		r.With(middleware.RateLimitUpload(rateLimitCfg)).Post("/upload", fileHandler.Upload)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", fileHandler.List)
			r.Patch("/{id}/rename", fileHandler.Rename)
			r.Patch("/{id}/share", fileHandler.Share)
			r.Delete("/{id}", fileHandler.Delete)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"kiosk-architect/internal/config"
	"kiosk-architect/internal/generation"
	"kiosk-architect/internal/imaging"
	"kiosk-architect/internal/library"
	custommiddleware "kiosk-architect/internal/middleware"
	"kiosk-architect/internal/observability"
	"kiosk-architect/internal/repository"
	"kiosk-architect/internal/service"
	"kiosk-architect/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

// NewServer wires the library services onto an HTTP router. db and
// redisClient are optional; without them export history is disabled, the
// library root is kept in memory and generation is not rate limited.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	if err := os.MkdirAll(cfg.Library.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library base directory: %w", err)
	}
	// Every library root is resolved inside the base directory.
	fsys := afero.NewBasePathFs(afero.NewOsFs(), cfg.Library.BaseDir)

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Create router
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/metrics", metrics.Handler())

	// Initialize repositories
	var handles repository.HandleRepository
	if redisClient != nil {
		handles = repository.NewRedisHandleRepository(redisClient)
	} else {
		logger.Warn("Redis not configured, library root is kept in memory")
		handles = repository.NewMemoryHandleRepository()
	}

	exportOpts := []service.ExportOption{}
	if db != nil {
		exportOpts = append(exportOpts, service.WithManifests(repository.NewManifestRepository(db), cfg.Library.PruneStale))
	} else {
		logger.Warn("Database not configured, export history and pruning are disabled")
	}

	// Initialize services
	checker := library.NewAuthorizer(fsys)
	normalizer := imaging.NewNormalizer(logger,
		imaging.WithCanvas(cfg.Library.NormalizeWidth, cfg.Library.NormalizeHeight),
		imaging.WithFailureCounter(metrics.NormalizationFailures),
	)
	libraryService := service.NewLibraryService(handles, checker, logger)
	exportService := service.NewExportService(
		library.NewLibraryWriter(fsys),
		handles,
		checker,
		normalizer,
		metrics,
		logger,
		exportOpts...,
	)

	generator := generation.NewClient(cfg.OpenAI.Keys, logger,
		generation.WithCompleterFactory(generation.OpenAICompleters(cfg.OpenAI.BaseURL)),
		generation.WithModel(cfg.OpenAI.Model),
		generation.WithBackoff(cfg.OpenAI.Backoff),
		generation.WithAttemptCounter(metrics.GenerationAttempts),
	)
	if generator.Keys() == 0 {
		logger.Warn("No API keys configured, generation requests will fail")
	}

	// Initialize handlers
	generateHandler := transport.NewGenerateHandler(generator, logger)
	libraryHandler := transport.NewLibraryHandler(libraryService, logger)
	exportHandler := transport.NewExportHandler(exportService, cfg.Library.MaxUploadMB<<20, logger)

	protect := func(scope string) []func(http.Handler) http.Handler {
		if cfg.JWT.Secret == "" {
			return []func(http.Handler) http.Handler{custommiddleware.Passthrough}
		}
		return []func(http.Handler) http.Handler{
			custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
			custommiddleware.RequireScope(scope, logger),
		}
	}
	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET not set, API routes are unauthenticated")
	}

	generateChain := protect(custommiddleware.ScopeGenerate)
	if redisClient != nil {
		generateChain = append(generateChain, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.GenerateRequests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "kiosk_rate_limit:generate",
		}, logger))
	}

	// Register routes
	generateHandler.RegisterRoutes(router, generateChain...)
	libraryHandler.RegisterRoutes(router, protect(custommiddleware.ScopeLibrary)...)
	exportHandler.RegisterRoutes(router, protect(custommiddleware.ScopeExport)...)

	server := &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           router,
			IdleTimeout:       time.Minute,
			ReadHeaderTimeout: 10 * time.Second,
			// Generation may walk several keys with backoff, and uploads are large.
			WriteTimeout: 5 * time.Minute,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func healthHandler(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["database"] = "down"
				code = http.StatusServiceUnavailable
			} else {
				status["database"] = "up"
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				status["redis"] = "down"
				code = http.StatusServiceUnavailable
			} else {
				status["redis"] = "up"
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}

		custommiddleware.RespondWithJSON(w, code, status)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/scheduler"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          database.Service
	redis       *redis.Client
	syncService service.SyncService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) *Server {
	collector := metrics.NewCollector()
	registry := metrics.NewRegistry(collector)

	// Create router
	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger, collector))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   health["status"],
			"database": health,
		})
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	// Initialize services
	store := repository.NewStore(db.DB())
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	syncService := service.NewSyncService(store, catalogClient, clock.WallClock, collector, logger)
	productService := service.NewProductService(store, syncService, logger)
	categoryService := service.NewCategoryService(store)
	cartService := service.NewCartService(store, clock.WallClock)

	// Sync routes are rate limited only when Redis is configured
	var syncMiddlewares []func(http.Handler) http.Handler
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		syncMiddlewares = append(syncMiddlewares, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "sync_rate_limit",
		}, logger))
	} else {
		logger.Info("REDIS_HOST not set, sync routes are not rate limited")
	}

	sessionMiddleware := custommiddleware.CartSessionMiddleware(custommiddleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}, cartService.GenerateSessionID, logger)

	// Register routes
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router)
	transport.NewSyncHandler(syncService, logger).RegisterRoutes(router, syncMiddlewares...)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, sessionMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		syncService: syncService,
	}
}

// Scheduler returns the background sync scheduler sharing this server's
// sync service.
func (s *Server) Scheduler() *scheduler.SyncScheduler {
	return scheduler.New(s.syncService, clock.WallClock, s.config.Sync.Interval, s.config.Sync.OnStartup, s.logger)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "taxengine/api/swagger" // swagger docs
	"taxengine/internal/cache"
	"taxengine/internal/companieshouse"
	"taxengine/internal/config"
	"taxengine/internal/database"
	"taxengine/internal/handler"
	"taxengine/internal/jobs"
	"taxengine/internal/logger"
	"taxengine/internal/metrics"
	"taxengine/internal/middleware"
	"taxengine/internal/repository"
	"taxengine/internal/service"
	"taxengine/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           TaxEngine API
// @version         1.0
// @description     R&D tax-credit claim preparation: client companies, accounting periods, claim packs and HMRC submissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		zlog.Warn("AUTH_JWT_SECRET is not set; authenticated routes will answer 500")
	}
	if cfg.CompaniesHouse.APIKey == "" {
		zlog.Warn("COMPANIES_HOUSE_API_KEY is not set; registry lookups will answer 500")
	}

	db, err := database.NewConnection(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	zlog.Info("connected to PostgreSQL")

	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	m := metrics.New()

	// Client directory cache: Redis when configured, in-process otherwise
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.DialRedis(ctx, cfg.Redis.URL)
		cancel()
		if err != nil {
			zlog.Warn("redis unavailable, using in-process client cache", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			store = cache.NewRedisStore(rdb)
		}
	}

	// WebSocket hub doubles as the service event publisher
	hub := websocket.NewHub(cfg.Server.CORSOrigins, zlog)
	go hub.Run()
	defer hub.Stop()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	clientRepo := repository.NewClientRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	jobRepo := repository.NewJobRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	directory := cache.NewDirectory(store, service.ClientDirectoryLoader(clientRepo), cfg.Redis.ClientCacheTTL, zlog)
	directory.OnLookup(m.ObserveCache)

	// Services
	audit := service.NewAuditRecorder(auditRepo, zlog)
	notificationService := service.NewNotificationService(notificationRepo, hub, zlog)
	userService := service.NewUserService(userRepo, txManager, audit, notificationService, zlog)
	clientService := service.NewClientService(clientRepo, periodRepo, txManager, audit, directory, zlog)
	periodService := service.NewPeriodService(clientRepo, periodRepo, audit, zlog)
	jobService := service.NewJobService(jobRepo, claimRepo, periodRepo, userRepo, txManager, audit, notificationService, hub, zlog)
	claimService := service.NewClaimService(claimRepo, clientRepo, periodRepo, jobService, txManager, audit, hub, zlog)
	submissionService := service.NewSubmissionService(submissionRepo, claimRepo, periodRepo, settingsRepo, txManager, audit, notificationService, zlog)
	templateService := service.NewTemplateService(templateRepo, audit)
	settingsService := service.NewSettingsService(settingsRepo, audit)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo)
	registry := companieshouse.New(cfg.CompaniesHouse.APIKey, cfg.CompaniesHouse.BaseURL, companieshouse.NewHTTPClient())
	registryService := service.NewRegistryService(registry, zlog)

	authn := middleware.NewAuthenticator(cfg.Auth.JWTSecret, userService, cfg.Auth.ProfileTTL, zlog)

	// Background jobs: queued processing jobs and the nightly period rollover
	runner := jobs.NewRunner(jobService, periodService, cfg.Jobs, zlog)
	runner.SetObserver(m)
	if err := runner.Start(); err != nil {
		zlog.Fatal("job runner failed to start", zap.Error(err))
	}
	defer runner.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(userService, authn, zlog)
	userHandler := handler.NewUserHandler(userService, authn, zlog)
	clientHandler := handler.NewClientHandler(clientService, zlog)
	periodHandler := handler.NewPeriodHandler(periodService, zlog)
	claimHandler := handler.NewClaimHandler(claimService, jobService, zlog)
	submissionHandler := handler.NewSubmissionHandler(submissionService, zlog)
	auditHandler := handler.NewAuditHandler(auditService, zlog)
	templateHandler := handler.NewTemplateHandler(templateService, zlog)
	settingsHandler := handler.NewSettingsHandler(settingsService, zlog)
	notificationHandler := handler.NewNotificationHandler(notificationService, zlog)
	dashboardHandler := handler.NewDashboardHandler(statisticsService, zlog)
	registryHandler := handler.NewRegistryHandler(registryService, zlog)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.Recovery(zlog), middleware.RequestLogger(zlog), m.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 5*time.Minute)
	defer limiter.Stop()

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "websocketClients": hub.Connected()})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", websocket.ServeWs(hub, func(ctx context.Context, token string) (uuid.UUID, error) {
		profile, err := authn.ProfileForToken(ctx, token)
		if err != nil {
			return uuid.Nil, err
		}
		return profile.UUID, nil
	}))

	api := router.Group("/api", limiter.Middleware(), authn.Authenticate())
	authHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	clientHandler.RegisterRoutes(api)
	periodHandler.RegisterRoutes(api)
	claimHandler.RegisterRoutes(api)
	submissionHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	templateHandler.RegisterRoutes(api)
	settingsHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)
	registryHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconnector "github.com/shopsync/backend/internal/application/connector"
	"github.com/shopsync/backend/internal/application/export"
	"github.com/shopsync/backend/internal/application/importer"
	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/infrastructure/auth"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/logger"
	"github.com/shopsync/backend/internal/infrastructure/persistence"
	"github.com/shopsync/backend/internal/infrastructure/state"
	"github.com/shopsync/backend/internal/infrastructure/storage"
	"github.com/shopsync/backend/internal/interfaces/http/handlers"
	"github.com/shopsync/backend/internal/interfaces/http/middleware"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting shop sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Sqlite setups get the schema on the fly; postgres runs the SQL
	// migrations through cmd/migrate.
	if cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	// Initialize repositories
	productRepo := persistence.NewProductRepository(db.DB)
	categoryRepo := persistence.NewCategoryRepository(db.DB)
	manufacturerRepo := persistence.NewManufacturerRepository(db.DB)
	tagRepo := persistence.NewTagRepository(db.DB)
	attributeRepo := persistence.NewAttributeRepository(db.DB)
	mediaRepo := persistence.NewMediaRepository(db.DB)
	localizationRepo := persistence.NewLocalizationRepository(db.DB)
	storeRepo := persistence.NewStoreRepository(db.DB)
	lookupRepo := persistence.NewLookupRepository(db.DB)
	connectionRepo := persistence.NewConnectionRepository(db.DB)
	skuMappingRepo := persistence.NewSkuMappingRepository(db.DB)

	// Exchange file workspace
	fs, err := connectorfs.New(cfg.Connector.DataDir)
	if err != nil {
		log.Fatal("Failed to create exchange workspace", zap.Error(err))
	}
	importStats := connectorfs.NewImportStats(fs)

	// Media binary storage
	var store storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "s3":
		store, err = storage.NewS3ObjectStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to create S3 storage", zap.Error(err))
		}
		log.Info("Using S3 media storage", zap.String("bucket", cfg.Storage.S3Bucket))
	default:
		store, err = storage.NewFileStorage(cfg.Storage.FileDir, cfg.App.BaseURL+"/media")
		if err != nil {
			log.Fatal("Failed to create file storage", zap.Error(err))
		}
	}

	// Import progress registry: Redis when configured, in-process otherwise.
	var registry state.Registry
	if cfg.Redis.Enabled {
		registry, err = state.NewRedisRegistry(context.Background(),
			cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Using Redis progress registry", zap.String("addr", cfg.Redis.RedisAddr()))
	} else {
		registry = state.NewMemoryRegistry()
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error("Error closing progress registry", zap.Error(err))
		}
	}()

	// Connection key store with write-back cache
	connectionCache := appconnector.NewConnectionCache(connectionRepo)
	defer func() {
		if err := connectionCache.Close(); err != nil {
			log.Error("Error flushing connection cache", zap.Error(err))
		}
	}()

	// Application services
	authService := appconnector.NewAuthService(cfg.Connector, connectionCache, log)
	connectionService := appconnector.NewConnectionService(connectionRepo, skuMappingRepo, connectionCache, log)

	exportService := export.NewService(cfg, export.Repositories{
		Products:      productRepo,
		Categories:    categoryRepo,
		Manufacturers: manufacturerRepo,
		Tags:          tagRepo,
		Attributes:    attributeRepo,
		Media:         mediaRepo,
		Localization:  localizationRepo,
		Stores:        storeRepo,
		Lookups:       lookupRepo,
		SkuMappings:   skuMappingRepo,
	}, fs, log)

	importEngine, err := importer.NewEngine(cfg, importer.Repositories{
		Products:      productRepo,
		Categories:    categoryRepo,
		Manufacturers: manufacturerRepo,
		Tags:          tagRepo,
		Attributes:    attributeRepo,
		Media:         mediaRepo,
		Localization:  localizationRepo,
		Stores:        storeRepo,
		Lookups:       lookupRepo,
	}, fs, store, registry, log)
	if err != nil {
		log.Fatal("Failed to create import engine", zap.Error(err))
	}

	syncClient := appsync.NewClient(cfg, connectionRepo, fs, importStats, log)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TokenExpiration, cfg.JWT.Issuer)

	// Periodic sweep of stale export files
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				fs.Cleanup()
			}
		}
	}()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Admin routes authenticate with a bearer token; the exchange routes
	// carry their own HMAC middleware.
	adminAuth := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		Logger:     log,
	})

	exchangeHandler := handlers.NewExchangeHandler(cfg, authService, exportService, log)
	authHandler := handlers.NewAuthHandler(cfg, jwtService, log)
	connectionHandler := handlers.NewConnectionHandler(connectionService, syncClient, adminAuth, log)
	importHandler := handlers.NewImportHandler(cfg, fs, importStats, importEngine, registry, adminAuth, log)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(exchangeHandler.Routes()).
		Register(authHandler.Routes()).
		Register(connectionHandler.Routes()).
		Register(connectionHandler.SkuMappingRoutes()).
		Register(importHandler.Routes())
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}

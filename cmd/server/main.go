package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vipclub/internal/catalog"
	"vipclub/internal/config"
	handlers "vipclub/internal/handlers/shared"
	"vipclub/internal/middleware"
	"vipclub/internal/repositories/interfaces"
	"vipclub/internal/repositories/memory"
	mongorepo "vipclub/internal/repositories/mongodb"
	"vipclub/internal/repositories/objectstore"
	redisrepo "vipclub/internal/repositories/redis"
	"vipclub/internal/services"
	"vipclub/pkg/cache"
	"vipclub/pkg/database"
	"vipclub/pkg/logger"
	"vipclub/pkg/metrics"
	"vipclub/pkg/storage"
	"vipclub/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type accountBackend interface {
	interfaces.AccountRepository
	interfaces.PointsLedger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  "stdout",
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	couponCatalog := catalog.Default()
	if cfg.Loyalty.CatalogPath != "" {
		couponCatalog, err = catalog.Load(cfg.Loyalty.CatalogPath)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to load coupon catalog")
		}
	}
	appLogger.WithFields(map[string]interface{}{
		"coupons": couponCatalog.Len(),
		"storage": cfg.Loyalty.StorageBackend,
		"ledger":  cfg.Loyalty.LedgerBackend,
	}).Info("Coupon catalog loaded")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	var redisCache *cache.RedisCache
	if cfg.Loyalty.UsesRedis() {
		redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			IdleTimeout:  cfg.Redis.IdleTimeout,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisCache.Close()
	}

	var blobs interfaces.BlobRepository
	switch cfg.Loyalty.StorageBackend {
	case config.BackendRedis:
		blobs = redisrepo.NewBlobRepository(redisCache, cfg.Loyalty.BlobTTL)
	case config.BackendMongoDB:
		mongo, err := database.NewMongoDB(&database.DatabaseConfig{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Database,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
			MinPoolSize:    cfg.Database.MinPoolSize,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			SocketTimeout:  cfg.Database.SocketTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to mongodb")
		}
		defer mongo.Close()

		if cfg.Loyalty.RunMigrations {
			if err := database.NewMigrator(mongo.Database, appLogger).Up(context.Background()); err != nil {
				appLogger.WithError(err).Fatal("Failed to run migrations")
			}
		}
		blobs = mongorepo.NewBlobRepository(mongo.Database)
	case config.BackendFile:
		local, err := storage.NewLocalStorage(cfg.Loyalty.Objects.LocalPath)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to open local object storage")
		}
		blobs = objectstore.NewBlobRepository(local, cfg.Loyalty.Objects.Prefix)
	case config.BackendS3:
		s3, err := storage.NewAWSS3Storage(context.Background(), cfg.Loyalty.Objects.S3Region, cfg.Loyalty.Objects.S3Bucket)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to create S3 client")
		}
		blobs = objectstore.NewBlobRepository(s3, cfg.Loyalty.Objects.Prefix)
	case config.BackendGCS:
		gcs, err := storage.NewGCPStorage(context.Background(), cfg.Loyalty.Objects.GCSBucket, cfg.Loyalty.Objects.CredentialsFile)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to create GCS client")
		}
		defer gcs.Close()
		blobs = objectstore.NewBlobRepository(gcs, cfg.Loyalty.Objects.Prefix)
	default:
		blobs = memory.NewBlobRepository()
	}

	var accounts accountBackend
	if cfg.Loyalty.LedgerBackend == config.BackendRedis {
		accounts = redisrepo.NewAccountRepository(redisCache)
	} else {
		accounts = memory.NewAccountRepository()
	}

	sessions := services.NewSessionManager(services.EntitlementDeps{
		Catalog: couponCatalog,
		Blobs:   blobs,
		Ledger:  accounts,
		Keys: services.StorageKeys{
			CouponsPrefix: cfg.Loyalty.CouponsKeyPrefix,
			TierPrefix:    cfg.Loyalty.TierKeyPrefix,
			FavoritesKey:  cfg.Loyalty.FavoritesKey,
		},
		StorageTimeout: cfg.Loyalty.StorageTimeout,
		Logger:         appLogger,
		Metrics:        recorder,
	}, accounts)

	// Initialize handlers
	couponHandler := handlers.NewCouponHandler(sessions, appLogger)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Warn("Invalid trusted proxies")
	}

	// API routes
	v1 := router.Group("/api/v1")
	routes.SetupCouponRoutes(v1, couponHandler)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	appLogger.Info("Server stopped")
}

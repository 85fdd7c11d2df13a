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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/deposit-api/api/swagger"
	"github.com/noah-isme/deposit-api/internal/handler"
	internalmiddleware "github.com/noah-isme/deposit-api/internal/middleware"
	"github.com/noah-isme/deposit-api/internal/repository"
	"github.com/noah-isme/deposit-api/internal/service"
	"github.com/noah-isme/deposit-api/pkg/cache"
	"github.com/noah-isme/deposit-api/pkg/config"
	"github.com/noah-isme/deposit-api/pkg/database"
	"github.com/noah-isme/deposit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/deposit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/deposit-api/pkg/middleware/requestid"
	"github.com/noah-isme/deposit-api/pkg/storage"
)

// @title Deposit API
// @version 1.0.0
// @description Draft deposits with ordered file attachments and publication.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	content, err := storage.NewContentStore(ctx, cfg.Storage, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init content store", "driver", cfg.Storage.Driver, "error", err)
	}
	if local, ok := content.(*storage.LocalStorage); ok {
		removed, err := local.CleanupTemp(time.Hour)
		if err != nil {
			logr.Warn("failed to clean temporary uploads", zap.Error(err))
		} else if len(removed) > 0 {
			logr.Info("removed stale temporary uploads", zap.Int("count", len(removed)))
		}
	}

	locker, err := newLocker(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init deposit locker", "driver", cfg.Lock.Driver, "error", err)
	}

	metrics := service.NewMetricsService()
	depositRepo := repository.NewDepositRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	search := service.NewDepositSearchService(depositRepo, metrics, logr, service.SearchServiceConfig{
		Workers: cfg.Search.Workers,
		Retries: cfg.Search.Retries,
	})
	if err := search.Rebuild(ctx); err != nil {
		logr.Sugar().Fatalw("failed to build search view", "error", err)
	}
	search.Start(ctx)
	defer search.Stop()

	signer := storage.NewSignedURLSigner(cfg.Download.SignedURLSecret, cfg.Download.SignedURLTTL)
	files := service.NewDepositFileService(depositRepo, content, locker, signer, auditRepo, search, metrics, logr, service.DepositFileServiceConfig{
		MaxFileSize: cfg.Deposits.MaxFileSizeBytes,
		MaxFiles:    cfg.Deposits.MaxFiles,
		APIPrefix:   cfg.APIPrefix,
	})
	deposits := service.NewDepositService(depositRepo, content, locker, search, auditRepo, search, metrics, logr)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Routes{
		Tokens:   tokens,
		Deposits: handler.NewDepositHandler(deposits, cfg.APIPrefix, files),
		Files:    handler.NewDepositFileHandler(files, cfg.APIPrefix, cfg.Deposits.MaxFileSizeBytes),
		Search:   handler.NewSearchHandler(search),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLocker(cfg *config.Config, logr *zap.Logger) (service.Locker, error) {
	switch cfg.Lock.Driver {
	case "", config.LockDriverMemory:
		return service.NewKeyedLocker(), nil
	case config.LockDriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisLocker(client, cfg.Lock.TTL, logr), nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
	}
}

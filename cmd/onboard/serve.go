package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/onboard/internal/config"
	"github.com/bitfantasy/onboard/internal/database"
	"github.com/bitfantasy/onboard/internal/middleware"
	"github.com/bitfantasy/onboard/internal/onboarding/handler"
	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/bitfantasy/onboard/internal/onboarding/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, zapLogger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer zapLogger.Sync()
		defer closeDB(db)

		zapLogger.Info("Starting onboard service",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("db_driver", cfg.Database.Driver),
		)

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		repos := repository.NewRepositories(db)

		evidence, err := initEvidenceStore(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		services := service.NewServices(repos, evidence, zapLogger)

		hub := sse.NewHub(zapLogger.Named("sse"))
		var events sse.Publisher = hub
		if cfg.Redis.Host != "" {
			rdb := initRedis(cfg.Redis)
			defer rdb.Close()
			bridge := sse.NewRedisBridge(rdb, hub, cfg.Redis.Channel, zapLogger.Named("sse"))
			go func() {
				if err := bridge.Run(ctx); err != nil {
					zapLogger.Error("SSE redis bridge stopped", zap.Error(err))
				}
			}()
			events = bridge
		}

		handlers := handler.NewHandlers(services, hub, events, zapLogger, handler.Options{
			MaxEvidenceBytes: cfg.Evidence.MaxSizeMB << 20,
		})

		if cfg.Server.Mode == "release" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := gin.New()
		router.Use(gin.Recovery())
		router.Use(middleware.Logger(zapLogger))
		router.Use(middleware.CORS())
		router.Use(middleware.RequestID())
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

		registerRoutes(router, handlers, repos, cfg, evidence, zapLogger)

		// the event stream clears its own write deadline
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("start server: %w", err)
		case <-ctx.Done():
		}

		zapLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Server forced to shutdown", zap.Error(err))
		}

		zapLogger.Info("Server exited")
		return nil
	},
}

// initEvidenceStore prefers MinIO and falls back to the local upload dir.
func initEvidenceStore(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (service.EvidenceStore, error) {
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
			PublicURL: cfg.MinIO.PublicURL,
		})
		if err == nil {
			zapLogger.Info("Evidence storage: minio", zap.String("bucket", cfg.MinIO.Bucket))
			return store, nil
		}
		zapLogger.Warn("MinIO unavailable, falling back to local evidence storage", zap.Error(err))
	}

	store, err := storage.NewLocalStore(cfg.Evidence.UploadDir, cfg.Evidence.URLPrefix)
	if err != nil {
		return nil, err
	}
	zapLogger.Info("Evidence storage: local", zap.String("dir", cfg.Evidence.UploadDir))
	return store, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, repos *repository.Repositories, cfg *config.Config, evidence service.EvidenceStore, zapLogger *zap.Logger) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if err := repos.Ping(c.Request.Context()); err != nil {
			zapLogger.Error("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": repository.ErrStoreUnavailable.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 本地证明材料
	if local, ok := evidence.(*storage.LocalStore); ok {
		r.Static(local.URLPrefix, local.Dir)
	}

	api := r.Group("/api/v1", middleware.Authorize(middleware.AuthConfig{
		APIKey:    cfg.Auth.APIKey,
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
	}))
	handler.RegisterRoutes(api, h)
}

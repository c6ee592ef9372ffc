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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-notes-api/api/swagger"
	"github.com/noah-isme/sma-notes-api/internal/handler"
	"github.com/noah-isme/sma-notes-api/internal/middleware"
	"github.com/noah-isme/sma-notes-api/internal/repository"
	"github.com/noah-isme/sma-notes-api/internal/service"
	"github.com/noah-isme/sma-notes-api/pkg/cache"
	"github.com/noah-isme/sma-notes-api/pkg/config"
	"github.com/noah-isme/sma-notes-api/pkg/database"
	"github.com/noah-isme/sma-notes-api/pkg/jobs"
	"github.com/noah-isme/sma-notes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-notes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-notes-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-notes-api/pkg/storage"
)

// @title SMA Notes API
// @version 1.0.0
// @description Notes sharing catalog with search, ratings and download tracking
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if len(applied) > 0 {
		logr.Info("schema migrated", zap.Strings("applied", applied))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	blobs, err := newBlobStore(ctx, cfg, logr)
	if err != nil {
		return err
	}

	reaper := service.NewBlobReaper(blobs, logr, jobs.Config{Workers: 2, BufferSize: 128, MaxAttempts: 3, RetryDelay: 2 * time.Second})
	reaper.Start(ctx)
	defer reaper.Stop()

	router := newRouter(cfg, logr, db, redisClient, blobs, reaper)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("blob_backend", cfg.Notes.BlobBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.BlobStore, error) {
	if cfg.Notes.BlobBackend == config.BlobBackendS3 {
		s3, err := storage.NewS3Storage(cfg.S3, logr)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure s3 bucket: %w", err)
		}
		return s3, nil
	}
	local, err := storage.NewLocalStorage(cfg.Notes.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	return local, nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, blobs service.BlobStore, reaper *service.BlobReaper) *gin.Engine {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	downloadRepo := repository.NewDownloadRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	var (
		sessions    service.SessionRegistry
		cacheRepo   service.CacheRepository
		readyChecks = []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	)
	if redisClient != nil {
		sessions = repository.NewSessionRepository(redisClient)
		cacheRepo = repository.NewCacheRepository(redisClient)
		readyChecks = append(readyChecks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	searchCache := service.NewCacheService(cacheRepo, metrics, cfg.Search.CacheTTL, logr, cfg.Search.CacheEnabled && cacheRepo != nil)

	signingSecret := cfg.Notes.SignedURLSecret
	if signingSecret == "" {
		signingSecret = cfg.JWT.Secret
	}
	signer := storage.NewSignedURLSigner(signingSecret, cfg.Notes.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, sessions, validate, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		Expiry:        cfg.JWT.Expiration,
		Issuer:        cfg.JWT.Issuer,
		SingleSession: cfg.JWT.SingleSession,
	})
	noteSvc := service.NewNoteService(noteRepo, blobs, searchCache, metrics, validate, logr, service.NoteServiceConfig{MaxFileSize: cfg.Notes.MaxFileSizeBytes})
	noteSvc.UseReaper(reaper)
	searchSvc := service.NewSearchService(noteRepo, searchCache, logr)
	ratingSvc := service.NewRatingService(ratingRepo, noteRepo, searchCache, metrics, validate, logr)
	downloadSvc := service.NewDownloadService(downloadRepo, noteRepo, blobs, signer, searchCache, metrics, logr, cfg.APIPrefix)
	profileSvc := service.NewProfileService(userRepo, statsRepo, noteRepo, logr)
	exportSvc := service.NewExportService(searchSvc, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	noteHandler := handler.NewNoteHandler(noteSvc, searchSvc, exportSvc, downloadSvc, cfg.Notes.MaxFileSizeBytes)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, readyChecks...)

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(authSvc)
	optionalAuth := middleware.OptionalJWT(authSvc)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	notes := api.Group("/notes")
	notes.GET("", optionalAuth, noteHandler.Search)
	notes.GET("/categories", noteHandler.Categories)
	notes.GET("/export", requireAuth, noteHandler.Export)
	notes.POST("", requireAuth, noteHandler.Create)
	notes.GET("/:id", noteHandler.Get)
	notes.DELETE("/:id", requireAuth, noteHandler.Delete)
	notes.POST("/:id/download", requireAuth, noteHandler.Download)
	notes.GET("/:id/file", noteHandler.File)
	notes.POST("/:id/ratings", requireAuth, ratingHandler.Rate)
	notes.GET("/:id/ratings", ratingHandler.List)

	me := api.Group("/me", requireAuth)
	me.GET("/stats", profileHandler.Stats)
	me.GET("/notes", profileHandler.MyNotes)

	return r
}

package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/images"
	"gallery-backend/internal/services/health"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/queue"
	"gallery-backend/internal/shared/server"
	"gallery-backend/internal/shared/storage/db"
	"gallery-backend/internal/shared/storage/object"
	localstore "gallery-backend/internal/shared/storage/object/local"
	miniostore "gallery-backend/internal/shared/storage/object/minio"
	s3store "gallery-backend/internal/shared/storage/object/s3"
	"gallery-backend/internal/shared/telemetry"
)

const reportTimeout = 5 * time.Second

// App holds shared dependencies and the configured router.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Store         object.ObjectStore
	Queue         queue.Client
	ImagesRepo    images.Repo
	ImagesService *images.Service
	ImageHandler  *images.Handler
	Reconciler    *images.Reconciler
	Health        *health.Service
}

// Option adjusts how Build wires dependencies.
type Option func(*buildOptions)

type buildOptions struct {
	requireCatalog bool
	dbProfile      db.Profile
}

// RequireCatalog makes Build fail instead of falling back to the in-memory
// catalog. Processes that delete objects based on catalog lookups must use it.
func RequireCatalog() Option {
	return func(o *buildOptions) {
		o.requireCatalog = true
	}
}

// WithDBProfile selects the pool profile outside Lambda. The default is
// db.ProfileServer.
func WithDBProfile(p db.Profile) Option {
	return func(o *buildOptions) {
		o.dbProfile = p
	}
}

// ErrCatalogRequired is returned when RequireCatalog is set and no database
// is available.
var ErrCatalogRequired = errors.New("a database-backed catalog is required")

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	bo := buildOptions{dbProfile: db.ProfileServer}
	for _, opt := range opts {
		opt(&bo)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	cfg.ObjectPrefix = object.NormalizePrefix(cfg.ObjectPrefix)
	if cfg.ObjectPrefix == "" {
		cfg.ObjectPrefix = object.DefaultPrefix
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, bo)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Health: health.NewService(),
	}
	buildServices(app)

	deps := server.RouterDeps{
		Config:       app.Config,
		ImageHandler: app.ImageHandler,
		Health:       app.Health,
	}
	if cfg.ObjectStoreType == "local" {
		deps.LocalFiles = store
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, bo buildOptions) (*sql.DB, error) {
	requireCatalog := bo.requireCatalog
	allowMemory := isDevLike(cfg.Env) && !requireCatalog
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if requireCatalog {
			return nil, fmt.Errorf("DATABASE_URL is empty: %w", ErrCatalogRequired)
		}
		if allowMemory {
			telemetry.Info("bootstrap.catalog.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.DetectProfile(bo.dbProfile))
	if err != nil {
		if requireCatalog {
			return nil, fmt.Errorf("connect database: %w: %w", err, ErrCatalogRequired)
		}
		if allowMemory {
			telemetry.Warn("bootstrap.catalog.memory", map[string]any{"reason": "database connect failed", "err": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.ObjectPrefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			KMSKeyID:        cfg.SSEKMSKeyID,
		})
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			Prefix:        cfg.ObjectPrefix,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
			Region:        cfg.MinioRegion,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.ObjectPrefix, cfg.PublicBaseURL), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.ReconcileSQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.ReconcileSQSQueueURL, cfg.AWSRegion)
}

func buildServices(app *App) {
	var repo images.Repo
	if app.DB != nil {
		repo = &images.PGRepo{DB: app.DB}
	} else {
		repo = images.NewMemoryRepo()
	}

	svc := &images.Service{
		Store:        app.Store,
		Repo:         repo,
		StoreTimeout: app.Config.StoreTimeout,
	}
	if app.Queue != nil {
		svc.Reporter = &images.QueueReporter{Queue: app.Queue, Timeout: reportTimeout}
	}

	app.ImagesRepo = repo
	app.ImagesService = svc
	app.ImageHandler = images.NewHandler(svc, app.Config.MaxUploadBytes)
	app.Reconciler = &images.Reconciler{Svc: svc}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

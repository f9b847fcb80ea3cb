package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/documents"
	"docs-backend/internal/ingestion"
	"docs-backend/internal/queue"
	"docs-backend/internal/services/health"
	"docs-backend/internal/shared/auth"
	"docs-backend/internal/shared/config"
	"docs-backend/internal/shared/server"
	"docs-backend/internal/shared/server/middleware"
	"docs-backend/internal/shared/storage/db"
	"docs-backend/internal/shared/storage/object"
	localstore "docs-backend/internal/shared/storage/object/local"
	s3store "docs-backend/internal/shared/storage/object/s3"
	"docs-backend/internal/shared/telemetry"
	"docs-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.Store
	Queue            queue.Client
	Tokens           *auth.Issuer
	UsersRepo        users.Repo
	DocumentsRepo    documents.Repo
	UsersService     *users.Service
	DocumentsService *documents.Service
	Ingestion        *ingestion.Simulator
	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	IngestionHandler *ingestion.Handler
}

// Build wires repositories, storage, services and the router from cfg.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" && !cfg.IsProduction() {
		cfg.JWTSecret = "dev-secret"
	}
	if err := cfg.Validate(); err != nil {
		if cfg.IsProduction() {
			return nil, err
		}
		telemetry.Warn("config.invalid", map[string]any{"error": err})
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
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

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Tokens: issuer,
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	// a nil *sql.DB must not reach health as a non-nil Pinger
	healthSvc := health.NewService(nil, cfg.ObjectStoreType)
	if app.DB != nil {
		healthSvc = health.NewService(app.DB, cfg.ObjectStoreType)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		Tokens:           issuer,
		Identities:       app.UsersService,
		Health:           healthSvc,
		RateLimiter:      middleware.NewRateLimiter(nil),
		UserHandler:      app.UsersHandler,
		DocumentHandler:  app.DocumentsHandler,
		IngestionHandler: app.IngestionHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.LambdaOptions().WithOverrides(os.Getenv))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.ServerOptions().WithOverrides(os.Getenv))
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.IngestionQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.IngestionQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var userRepo users.Repo
	var docRepo documents.Repo
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
	}

	userSvc := users.NewService(userRepo)
	docSvc := documents.NewService(docRepo, app.Store, ownerAdapter{users: userSvc})

	sim := ingestion.NewSimulator(ingestion.NewStore(), ingestion.Options{
		MinDelay:    app.Config.IngestionMinDelay,
		MaxDelay:    app.Config.IngestionMaxDelay,
		SuccessRate: app.Config.IngestionSuccessRate,
		Dimensions:  app.Config.EmbeddingDimensions,
		Notifier:    app.Queue,
	})

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.UsersService = userSvc
	app.DocumentsService = docSvc
	app.Ingestion = sim
	app.UsersHandler = users.NewHandler(userSvc, app.Tokens)
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Config.MaxUploadBytes)
	app.IngestionHandler = ingestion.NewHandler(sim, app.Config.MaxUploadBytes)

	if app.UsersHandler == nil || app.DocumentsHandler == nil || app.IngestionHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// ownerAdapter exposes users as document owners.
type ownerAdapter struct {
	users *users.Service
}

func (a ownerAdapter) Owner(ctx context.Context, id string) (documents.Owner, error) {
	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return documents.Owner{}, documents.ErrOwnerNotFound
		}
		return documents.Owner{}, err
	}
	return documents.Owner{ID: user.ID, Email: user.Email}, nil
}

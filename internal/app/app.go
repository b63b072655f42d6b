package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/codekeeper"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/crypto"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/lifecycle"
	"github.com/templui/codekeeper/internal/middleware"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/scheduler"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/storage"
	"github.com/templui/codekeeper/internal/vision"
)

const (
	// Controllers unused this long are dropped; the next request refetches.
	lifecycleIdleTTL      = 30 * time.Minute
	lifecycleEvictEvery   = 5 * time.Minute
	rateLimitCleanupEvery = 5 * time.Minute
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	FileService         *service.FileService
	GoalService         *service.GoalService
	VisionKeyService    *service.VisionKeyService
	VerificationService *service.VerificationService
	HelpService         *service.HelpService
	DeadlineNotifier    *service.DeadlineNotifier
	Lifecycle           *lifecycle.Manager
	Scheduler           *scheduler.Scheduler
	AuthRateLimiter     *middleware.RateLimiter
	ProofRateLimiter    *middleware.RateLimiter
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a, err := build(ctx, cfg, database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, database *sqlx.DB) (*App, error) {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	fileRepository := repository.NewFileRepository(database)
	visionKeyRepository := repository.NewVisionKeyRepository(database)

	// Storage
	fileStorage, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	sealer, err := crypto.NewSealerFromBase64(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	fileService := service.NewFileService(fileRepository, fileStorage)
	goalService := service.NewGoalService(goalRepository, fileService, sealer)
	authService := service.NewAuthService(
		userRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
	)

	factory := visionFactory(cfg)
	visionKeyService := service.NewVisionKeyService(visionKeyRepository, sealer, factory)
	deployment, err := deploymentVisionClient(ctx, cfg, factory)
	if err != nil {
		return nil, err
	}
	verificationService := service.NewVerificationService(cfg.VisionCredentials, deployment, visionKeyService, fileService)

	helpService := service.NewHelpService(contentFS(cfg.ContentPath))
	notifier := service.NewDeadlineNotifier(goalRepository, userRepository, emailService)

	manager := lifecycle.NewManager(goalService, verificationService, lifecycle.Policy{
		AllowLateProof: cfg.AllowLateProof,
	})

	a := &App{
		Cfg:                 cfg,
		DB:                  database,
		AuthService:         authService,
		EmailService:        emailService,
		FileService:         fileService,
		GoalService:         goalService,
		VisionKeyService:    visionKeyService,
		VerificationService: verificationService,
		HelpService:         helpService,
		DeadlineNotifier:    notifier,
		Lifecycle:           manager,
		AuthRateLimiter:     middleware.NewAuthRateLimiter(),
		ProofRateLimiter:    middleware.NewProofRateLimiter(),
	}

	a.Scheduler, err = a.newScheduler()
	if err != nil {
		return nil, err
	}

	return a, nil
}

// notifyDeadlines is the scheduled notifier run. The notifier logs what it sent.
func (a *App) notifyDeadlines(ctx context.Context) error {
	_, err := a.DeadlineNotifier.RunOnce(ctx)
	return err
}

func (a *App) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(time.UTC)

	_, err := s.Every("deadline-notifier", a.Cfg.DeadlineNotifyInterval, a.notifyDeadlines)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule deadline notifier: %w", err)
	}

	_, err = s.Every("lifecycle-evict", lifecycleEvictEvery, func(context.Context) error {
		evicted := a.Lifecycle.EvictIdle(lifecycleIdleTTL)
		if evicted > 0 {
			slog.Debug("evicted idle lifecycles", "count", evicted, "remaining", a.Lifecycle.Len())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule lifecycle eviction: %w", err)
	}

	_, err = s.Every("rate-limit-cleanup", rateLimitCleanupEvery, func(context.Context) error {
		a.AuthRateLimiter.Cleanup()
		a.ProofRateLimiter.Cleanup()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule rate limit cleanup: %w", err)
	}

	return s, nil
}

func visionFactory(cfg *config.Config) service.VisionFactory {
	return func(ctx context.Context, apiKey string) (service.VisionClient, error) {
		client, err := vision.New(ctx, vision.Config{
			APIKey:  apiKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.VisionTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// deploymentVisionClient returns nil when users bring their own keys or when
// no deployment key is set, in which case every verdict is negative.
func deploymentVisionClient(ctx context.Context, cfg *config.Config, factory service.VisionFactory) (service.VisionClient, error) {
	if !cfg.UsesDeploymentVisionKey() {
		return nil, nil
	}
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, every proof will be rejected")
		return nil, nil
	}

	client, err := factory(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision client: %w", err)
	}
	return client, nil
}

// contentFS prefers the content directory on disk and falls back to the embedded copy.
func contentFS(path string) fs.FS {
	if path != "" {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return os.DirFS(path)
		}
	}

	embedded, err := fs.Sub(codekeeper.ContentFS, "content")
	if err != nil {
		panic("embedded content missing: " + err.Error())
	}
	return embedded
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

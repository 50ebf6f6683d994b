package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/trinnux/gallery/internal/config"
	"github.com/trinnux/gallery/internal/db"
	"github.com/trinnux/gallery/internal/repository"
	"github.com/trinnux/gallery/internal/service"
	"github.com/trinnux/gallery/internal/storage"
	"github.com/trinnux/gallery/internal/transcode"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Storage         storage.Storage
	AuthService     *service.AuthService
	OrderingService *service.OrderingService
	GalleryService  *service.GalleryService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	imageRepository := repository.NewImageRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	pipeline := transcode.NewPipeline(fileStorage, transcode.Options{
		MaxBytes:  cfg.UploadMaxBytes,
		MaxWidth:  cfg.ImageMaxWidth,
		Quality:   cfg.ImageQuality,
		MaxPixels: cfg.ImageMaxPixels,
	})
	authService := service.NewAuthService(cfg.JWTSecret)
	orderingService := service.NewOrderingService(imageRepository)
	galleryService := service.NewGalleryService(
		imageRepository,
		pipeline,
		fileStorage,
		orderingService,
		cfg.DefaultPageSize,
		cfg.MaxPageSize,
	)

	return &App{
		Cfg:             cfg,
		DB:              database,
		Storage:         fileStorage,
		AuthService:     authService,
		OrderingService: orderingService,
		GalleryService:  galleryService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

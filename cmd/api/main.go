package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/config"
	"github.com/noah-isme/mgsa-portal-api/internal/database"
	"github.com/noah-isme/mgsa-portal-api/internal/handler"
	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
	"github.com/noah-isme/mgsa-portal-api/internal/router"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	cloud "github.com/noah-isme/mgsa-portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "mgsa-portal-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to access database handle")
	}
	defer sqlDB.Close()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; caches and cross-node notifications disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var storage service.FileStorage
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	switch {
	case errors.Is(err, cloud.ErrNotConfigured):
		logger.Warn().Msg("cloudinary not configured; material uploads disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	default:
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	tutorialRepo := repository.NewTutorialRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, natsConn, cfg.NotificationChannel, validate, logger)
	notificationService.Start(ctx)

	tutorialService := service.NewTutorialService(tutorialRepo, activityService, redisClient, validate, logger)
	registrationService := service.NewRegistrationService(registrationRepo, tutorialRepo, activityService, notificationService, redisClient, logger)
	materialService := service.NewMaterialService(storage, materialRepo, tutorialRepo, activityService, cfg.UploadMaxSizeMB, logger)
	dashboardService := service.NewDashboardService(userRepo, tutorialRepo, registrationRepo, redisClient, cfg.DashboardCacheTTL, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, redisClient, cfg.AnalyticsCacheTTL, logger)
	userService := service.NewUserService(userRepo, activityService, validate, logger)

	probes := []handler.HealthProbe{{Name: "database", Check: sqlDB.PingContext}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:        &logger,
		AccessLogging: !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		TutorialHandler:     handler.NewTutorialHandler(tutorialService, logger),
		RegistrationHandler: handler.NewRegistrationHandler(registrationService, logger),
		MaterialHandler:     handler.NewMaterialHandler(materialService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		AnalyticsHandler:    handler.NewAnalyticsHandler(analyticsService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		HealthProbes:        probes,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

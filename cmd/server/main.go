package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/config"
	"github.com/ignatzorin/taskbridge-backend/internal/db"
	httpHandlers "github.com/ignatzorin/taskbridge-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/taskbridge-backend/internal/http/router"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/mailer"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
	"github.com/ignatzorin/taskbridge-backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis: кэш, планировщик инвалидации и OTP-журнал живут поверх одного стора.
	rdb := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	cacheStore := cache.NewStore(rdb)
	planner := cache.NewPlanner(cacheStore, cache.DefaultPageGrid())

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn)
	ratingRepo := repository.NewRatingRepository(dbConn)
	meetingRepo := repository.NewMeetingRepository(dbConn)

	// Сервисы.
	otpService := service.NewOTPService(cacheStore)
	authService := service.NewAuthService(userRepo, tokenManager, otpService, smtpMailer)
	projectService := service.NewProjectService(projectRepo, userRepo, cacheStore, planner, smtpMailer)
	applicationService := service.NewApplicationService(applicationRepo, projectRepo, userRepo, cacheStore, planner, smtpMailer)
	ratingService := service.NewRatingService(ratingRepo, projectRepo, userRepo, cacheStore, planner)
	profileService := service.NewProfileService(userRepo, photoStorage, cacheStore, planner)
	meetingService := service.NewMeetingService(meetingRepo, applicationRepo, projectRepo, userRepo, cacheStore, planner)
	adminService := service.NewAdminService(userRepo, planner)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	applicationHandler := httpHandlers.NewApplicationHandler(applicationService)
	ratingHandler := httpHandlers.NewRatingHandler(ratingService)
	profileHandler := httpHandlers.NewProfileHandler(profileService)
	meetingHandler := httpHandlers.NewMeetingHandler(meetingService)
	adminHandler := httpHandlers.NewAdminHandler(projectService, adminService)
	statsHandler := httpHandlers.NewStatsHandler(profileService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, rdb)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		projectHandler,
		applicationHandler,
		ratingHandler,
		profileHandler,
		meetingHandler,
		adminHandler,
		statsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
		if err := rdb.Close(); err != nil {
			log.Printf("main: ошибка закрытия redis: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

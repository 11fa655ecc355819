package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/scrimline/tournament-engine/config"
	"github.com/scrimline/tournament-engine/db"
	"github.com/scrimline/tournament-engine/gameserver"
	"github.com/scrimline/tournament-engine/handlers"
	"github.com/scrimline/tournament-engine/live"
	"github.com/scrimline/tournament-engine/repositories"
	"github.com/scrimline/tournament-engine/routes"
	"github.com/scrimline/tournament-engine/services"
	"github.com/scrimline/tournament-engine/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация хранилища demo-архивов (Cloudflare R2).
	// Без R2_ACCOUNT_ID движок работает, но загрузка demo отключена.
	var uploader storage.FileUploader
	if cfg.R2.AccountID != "" {
		uploader, err = storage.NewR2Uploader(storage.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 storage is not configured, demo uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	serverRepo := repositories.NewPostgresServerRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	logger.Info("Repositories initialized")

	// RCON-клиент для игровых серверов
	rconClient := gameserver.NewRCONClient(cfg.RCONTimeout)

	// Инициализация сервисов
	bracketService := services.NewBracketService(dbConn, tournamentRepo, teamRepo, matchRepo, logger)
	ratingService := services.NewRatingService(playerRepo, ratingRepo, logger)
	matchService := services.NewMatchService(
		dbConn,
		matchRepo,
		tournamentRepo,
		teamRepo,
		playerRepo,
		serverRepo,
		eventRepo,
		ratingService,
		bracketService,
		rconClient,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		teamRepo,
		playerRepo,
		bracketService,
		logger,
	)
	dashboardService := services.NewDashboardService(tournamentRepo, teamRepo, matchRepo)
	serverService := services.NewServerService(dbConn, serverRepo, rconClient, logger)
	authService := services.NewAuthService(cfg.OperatorLogin, cfg.OperatorPasswordHash, cfg.JWTSecretKey, cfg.OperatorTokenTTL)
	logger.Info("Services initialized")

	// Фоновый опрос игровых серверов: live-счёт и обнаружение отвалившихся серверов
	go func() {
		ticker := time.NewTicker(cfg.ServerPollInterval)
		defer ticker.Stop()
		logger.Info("server poller started", slog.Duration("interval", cfg.ServerPollInterval))

		for range ticker.C {
			if err := matchService.PollServers(context.Background()); err != nil {
				logger.Error("server poll cycle failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	matchHandler := handlers.NewMatchHandler(matchService, uploader)
	serverHandler := handlers.NewServerHandler(serverService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	playerHandler := handlers.NewPlayerHandler(ratingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := routes.InitRoutes(
		authHandler,
		tournamentHandler,
		matchHandler,
		serverHandler,
		dashboardHandler,
		playerHandler,
		webSocketHandler,
		[]byte(cfg.JWTSecretKey),
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}

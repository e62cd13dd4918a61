package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/console/handler"
	"github.com/xela07ax/embedins-infra-prototype/internal/console/server"
	"github.com/xela07ax/embedins-infra-prototype/internal/console/service"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra/auth"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
	"github.com/xela07ax/embedins-infra-prototype/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("database.url is required (DATABASE_URL)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Ресурсы
	repo, err := postgres.NewRepo(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer repo.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := repo.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ref, err := refdata.Load(cfg.RefData.SeedPath)
	if err != nil {
		logger.Fatal("refdata load failed", zap.Error(err))
	}

	// 3. Ключи RS256: консоль и подписывает, и проверяет
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("private key load failed", zap.Error(err))
	}
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("public key load failed", zap.Error(err))
	}
	validator := auth.NewBaseValidator(publicKey)

	// 4. Сервисы и обработчики (Dependency Injection)
	authService := service.NewAuthService(repo, privateKey, validator, cfg.Auth.TokenTTL)
	carrierService := service.NewCarrierService(ref, postgres.NewCapacityRepo(repo), rdb, logger)
	policyService := service.NewPolicyService(repo, logger)

	consoleSrv := server.NewConsoleServer(
		cfg,
		logger,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewCarrierHandler(carrierService),
		handler.NewPolicyHandler(policyService),
	)

	srv := &http.Server{
		Addr:         ":8000",
		Handler:      consoleSrv,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// 5. Запуск и graceful shutdown
	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("console exited properly")
}

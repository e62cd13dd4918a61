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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xela07ax/embedins-infra-prototype/internal/audit"
	"github.com/xela07ax/embedins-infra-prototype/internal/capacity"
	"github.com/xela07ax/embedins-infra-prototype/internal/compliance"
	"github.com/xela07ax/embedins-infra-prototype/internal/engine"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra"
	"github.com/xela07ax/embedins-infra-prototype/internal/portfolio"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
	"github.com/xela07ax/embedins-infra-prototype/internal/repository/postgres"
	"github.com/xela07ax/embedins-infra-prototype/internal/routing"
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

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Хранилища
	repo, err := postgres.NewRepo(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer repo.Close()

	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := repo.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 3. Аудит-трейл: отдельное подключение, чтобы батчи не давили на пул
	auditRepo := postgres.NewAuditRepo(cfg.Database.URL)
	trail := audit.NewTrail(auditRepo, logger)
	trail.Start()

	// 4. Справочники и комплаенс
	ref, err := refdata.Load(cfg.RefData.SeedPath)
	if err != nil {
		logger.Fatal("refdata load failed", zap.Error(err))
	}
	rules := compliance.LoadRules(cfg.RefData.RulesPath, logger)
	evaluator := compliance.NewEvaluator(rules, logger)

	// 5. Control Plane: операторские паузы носителей
	pauseMgr := engine.NewCarrierPauseManager(rdb, logger)
	if err := pauseMgr.Init(appCtx); err != nil {
		// Redis не критичен для старта: слушатель пересинхронизируется сам
		logger.Warn("pause manager init failed, starting with empty set", zap.Error(err))
	}
	go pauseMgr.StartListener(appCtx)

	// 6. Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_audit_buffer_utilization",
		Help: "Current number of events in the audit buffer.",
	}, func() float64 { return float64(trail.Depth()) })

	// 7. Емкость: авторитетный счетчик в Postgres + консультативная обертка
	capRepo := postgres.NewCapacityRepo(repo)
	advisory := capacity.NewAdvisoryReader(capRepo, logger, func(name string, state gobreaker.State) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	})

	// 8. Сборка ядра
	router := routing.NewRouter(ref, advisory, pauseMgr, logger)
	core := engine.NewCore(ref, evaluator, router, capRepo, repo, trail, metrics, logger)
	simulator := portfolio.NewSimulator(logger)
	gateway := engine.NewGatewayServer(ref, core, simulator, repo, logger)

	apiSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      gateway,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	// 9. Запуск серверов и graceful shutdown
	g, gCtx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		logger.Info("gateway API started", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("metrics exporter started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-stop:
			logger.Info("shutdown signal received")
		case <-gCtx.Done():
		}

		// Даем 5 секунд на завершение запросов
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		_ = metricsSrv.Shutdown(shutdownCtx)
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Останавливаем фоновые горутины и дожимаем буфер аудита
		cancel()
		trail.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
	logger.Info("gateway exited properly")
}

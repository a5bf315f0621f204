package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stayhold/internal/backend"
	"stayhold/internal/checkout"
	"stayhold/internal/config"
	"stayhold/internal/database"
	"stayhold/internal/events"
	"stayhold/internal/logging"
	"stayhold/internal/metrics"
	"stayhold/internal/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open audit database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := events.NewEventBus()
	subscribeHoldEvents(eventBus, db)

	redisClient, resumeStore := initResumeStore(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	lockClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout(), &logger)

	manager := checkout.NewManager(checkout.ManagerOptions{
		Backend:      lockClient,
		Profiles:     lockClient,
		Store:        resumeStore,
		Bus:          eventBus,
		Logger:       &logger,
		HoldDuration: cfg.Wizard.HoldDuration(),
		TickInterval: cfg.Wizard.TickInterval(),
	})
	go reportActiveSessions(ctx, manager, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go serveMetrics(cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("backend", cfg.Backend.BaseURL).Msg("Checkout engine started")
	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := logging.Component(baseLogger, "wizard-main")

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create database directory")
		return err
	}
	if cfg.Backup.Enabled && cfg.Backup.StoragePath != "" {
		if err := os.MkdirAll(cfg.Backup.StoragePath, 0o755); err != nil {
			logger.Error().Err(err).Msg("failed to create backup directory")
			return err
		}
	}
	return nil
}

func initResumeStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverResumeStore) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable, resume snapshots fall back to memory")
		}
	}

	ttl := cfg.Wizard.ResumeTTL()
	primary := repository.NewRedisResumeStore(redisClient, ttl)
	fallback := repository.NewMemoryResumeStore(ttl)
	return redisClient, repository.NewFailoverResumeStore(primary, fallback, logger)
}

// subscribeHoldEvents feeds the sqlite audit trail from the lifecycle
// bus: every hold mutation and checkout outcome lands in hold_audit,
// confirmations additionally produce a receipt.
func subscribeHoldEvents(bus *events.EventBus, db *database.DB) {
	if bus == nil || db == nil {
		return
	}

	for _, eventType := range []string{
		events.EventSessionStarted,
		events.EventSessionExpired,
		events.EventSessionCancelled,
		events.EventLockAcquired,
		events.EventLockReleased,
		events.EventDatesChanged,
		events.EventBookingConfirmed,
		events.EventPaymentFailed,
	} {
		bus.Subscribe(eventType, db.EventHandler(eventType))
	}
}

func reportActiveSessions(ctx context.Context, manager *checkout.Manager, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug().Int("active_wizards", manager.Active()).Msg("checkout sessions in memory")
		}
	}
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Int("port", port).Msg("Prometheus metrics listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

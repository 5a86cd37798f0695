package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/carrier"
	"github.com/iliyamo/tenant-auth-service/internal/config"
	"github.com/iliyamo/tenant-auth-service/internal/database"
	"github.com/iliyamo/tenant-auth-service/internal/handler"
	"github.com/iliyamo/tenant-auth-service/internal/metrics"
	"github.com/iliyamo/tenant-auth-service/internal/queue"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
	"github.com/iliyamo/tenant-auth-service/internal/router"
	"github.com/iliyamo/tenant-auth-service/internal/service"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.DSN(cfg.DSNParts()))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBName, logger); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis, logger) // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	users := repository.NewUserRepo(db)
	tenants := repository.NewTenantRepo(db)
	tokens := repository.NewTokenRepo(db)

	issuer, err := utils.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}
	cookies := &carrier.CookieCarrier{
		Domain:     cfg.CookieDomain,
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}

	if err := service.EnsureAdminUser(ctx, users, cfg.Admin, cfg.BcryptCost, logger); err != nil {
		return err
	}

	sweeper, err := service.NewTokenSweeper(cfg.TokenSweepSpec, tokens, logger, m)
	if err != nil {
		return err
	}
	sweeper.Start()

	var events handler.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitMQURL, logger, m)
		go queue.StartAuthConsumer(ctx, cfg.RabbitMQURL, &queue.AuditLog{Dir: cfg.AuditLogDir}, logger)
	}

	e := router.NewServer(router.Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    rdb,
		Registry: registry,
		Metrics:  m,
		Issuer:   issuer,
		Carrier:  cookies,
		Users:    users,
		Tenants:  tenants,
		Tokens:   tokens,
		Events:   events,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sweeper.Stop(shutdownCtx)
	return e.Shutdown(shutdownCtx)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/metrics"
)

// ExpiredDeleter removes refresh records whose expiry is at or before now.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenSweeper periodically deletes expired refresh records. The gate
// already rejects them; sweeping only keeps the table small.
type TokenSweeper struct {
	store   ExpiredDeleter
	cron    *cron.Cron
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTokenSweeper schedules the sweep on spec (standard five-field cron or a
// descriptor such as @hourly). It does not start the scheduler.
func NewTokenSweeper(spec string, store ExpiredDeleter, logger *zap.Logger, m *metrics.Metrics) (*TokenSweeper, error) {
	s := &TokenSweeper{
		store:   store,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger.Named("token-sweeper"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule token sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *TokenSweeper) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running sweep, or for ctx.
func (s *TokenSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single sweep.
func (s *TokenSweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("sweep expired refresh tokens failed", zap.Error(err))
		return 0, err
	}
	s.metrics.TokensSweptTotal.Add(float64(n))
	if n > 0 {
		s.logger.Info("swept expired refresh tokens", zap.Int64("deleted", n))
	}
	return n, nil
}

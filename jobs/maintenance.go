package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// MaintenanceSweepJob removes expired session records and stale idempotency
// keys, and sweeps the in-process permission cache. The three cleanups are
// independent and run concurrently.
type MaintenanceSweepJob struct {
	Auth        *auth.Service
	Idempotency *shared.IdempotencyStore
	Cache       *rbac.PermissionCache
	Logger      *slog.Logger
}

// NewMaintenanceSweepJob initialises the sweep handler.
func NewMaintenanceSweepJob(authSvc *auth.Service, store *shared.IdempotencyStore, cache *rbac.PermissionCache, logger *slog.Logger) *MaintenanceSweepJob {
	return &MaintenanceSweepJob{Auth: authSvc, Idempotency: store, Cache: cache, Logger: logger}
}

// Handle executes the sweep.
func (j *MaintenanceSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("maintenance sweep: handler not configured")
	}
	var payload MaintenanceSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.IdempotencyMaxAgeHours <= 0 {
		payload.IdempotencyMaxAgeHours = 24
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		removed, err := j.Auth.SweepSessions(ctx)
		if err != nil {
			return err
		}
		j.Logger.Info("session sweep", slog.Int64("removed", removed))
		return nil
	})
	g.Go(func() error {
		return j.Idempotency.Cleanup(ctx, time.Duration(payload.IdempotencyMaxAgeHours)*time.Hour)
	})
	g.Go(func() error {
		removed := j.Cache.Sweep()
		j.Logger.Info("permission cache sweep", slog.Int("removed", removed))
		return nil
	})
	if err := g.Wait(); err != nil {
		j.Logger.Error("maintenance sweep", slog.Any("error", err))
		return err
	}
	return nil
}

// SnapshotRefresher abstracts the inventory snapshot rebuild.
type SnapshotRefresher interface {
	RefreshSnapshot(ctx context.Context) error
}

// StockSnapshotJob rebuilds the aggregated stock view on schedule.
type StockSnapshotJob struct {
	Inventory SnapshotRefresher
	Logger    *slog.Logger
}

// NewStockSnapshotJob initialises the snapshot refresh handler.
func NewStockSnapshotJob(inv SnapshotRefresher, logger *slog.Logger) *StockSnapshotJob {
	return &StockSnapshotJob{Inventory: inv, Logger: logger}
}

// Handle executes the refresh.
func (j *StockSnapshotJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil {
		return errors.New("stock snapshot: handler not configured")
	}
	start := time.Now()
	if err := j.Inventory.RefreshSnapshot(ctx); err != nil {
		j.Logger.Error("stock snapshot refresh", slog.Any("error", err))
		return err
	}
	j.Logger.Info("stock snapshot refreshed", slog.Duration("took", time.Since(start)))
	return nil
}

package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/internal/reconcile"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

type stockSyncer interface {
	SyncStockCounters(ctx context.Context, tenantID uuid.UUID) (*reconcile.StockSyncReport, error)
}

// StockSyncJobParams configure the counter sync job.
type StockSyncJobParams struct {
	Logger     *logger.Logger
	Reconciler stockSyncer
}

// NewStockSyncJob builds the job that re-derives every product's stock
// counter from its in_stock unit count.
func NewStockSyncJob(params StockSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &stockSyncJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type stockSyncJob struct {
	logg       *logger.Logger
	reconciler stockSyncer
}

func (j *stockSyncJob) Name() string { return "stock-counter-sync" }

func (j *stockSyncJob) Run(ctx context.Context) error {
	report, err := j.reconciler.SyncStockCounters(ctx, uuid.Nil)
	if err != nil {
		return fmt.Errorf("stock counter sync: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"products":  report.Products,
		"corrected": len(report.Corrections),
		"skipped":   report.Skipped,
	})
	j.logg.Info(logCtx, "stock counter sync complete")
	return nil
}

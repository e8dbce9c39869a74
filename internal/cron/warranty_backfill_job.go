package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/internal/reconcile"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

type warrantyBackfiller interface {
	BackfillWarrantyDates(ctx context.Context, tenantID uuid.UUID) (*reconcile.WarrantyBackfillReport, error)
}

// WarrantyBackfillJobParams configure the warranty-date backfill job.
type WarrantyBackfillJobParams struct {
	Logger     *logger.Logger
	Reconciler warrantyBackfiller
}

// NewWarrantyBackfillJob builds the job that fills missing warranty windows
// on sold units.
func NewWarrantyBackfillJob(params WarrantyBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &warrantyBackfillJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type warrantyBackfillJob struct {
	logg       *logger.Logger
	reconciler warrantyBackfiller
}

func (j *warrantyBackfillJob) Name() string { return "warranty-date-backfill" }

func (j *warrantyBackfillJob) Run(ctx context.Context) error {
	report, err := j.reconciler.BackfillWarrantyDates(ctx, uuid.Nil)
	if err != nil {
		return fmt.Errorf("warranty date backfill: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": report.Scanned,
		"updated": report.Updated,
		"skipped": report.Skipped,
	})
	j.logg.Info(logCtx, "warranty date backfill complete")
	return nil
}

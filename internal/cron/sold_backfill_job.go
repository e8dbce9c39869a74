package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/internal/reconcile"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

type soldBackfiller interface {
	BackfillSoldStatus(ctx context.Context, tenantID uuid.UUID) (*reconcile.SoldBackfillReport, error)
}

// SoldBackfillJobParams configure the sold-status backfill job.
type SoldBackfillJobParams struct {
	Logger     *logger.Logger
	Reconciler soldBackfiller
}

// NewSoldBackfillJob builds the job that links under-covered orders to
// available units.
func NewSoldBackfillJob(params SoldBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &soldBackfillJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type soldBackfillJob struct {
	logg       *logger.Logger
	reconciler soldBackfiller
}

func (j *soldBackfillJob) Name() string { return "sold-status-backfill" }

func (j *soldBackfillJob) Run(ctx context.Context) error {
	report, err := j.reconciler.BackfillSoldStatus(ctx, uuid.Nil)
	if err != nil {
		return fmt.Errorf("sold status backfill: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders":  report.Orders,
		"linked":  report.Linked,
		"skipped": len(report.Skipped),
	})
	j.logg.Info(logCtx, "sold status backfill complete")
	return nil
}

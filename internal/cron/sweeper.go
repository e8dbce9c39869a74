package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
	"github.com/namhbcf1/smartpos-sub019/pkg/metrics"
)

const (
	defaultSweepInterval = time.Minute
	sweepJobName         = "hold-sweep"
)

type holdSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// SweeperParams configure the hold sweeper.
type SweeperParams struct {
	Logger   *logger.Logger
	Manager  holdSweeper
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Sweeper clears expired reservation holds on a tight cadence, separate from
// the daily reconciliation cycle. The sweep is a single conditional UPDATE,
// so replicas need no lock: whatever one instance clears, the others no
// longer match.
type Sweeper struct {
	logg     *logger.Logger
	manager  holdSweeper
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewSweeper builds a sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Manager == nil {
		return nil, fmt.Errorf("reservation manager required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		logg:     params.Logger,
		manager:  params.Manager,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "hold sweeper context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	cleared, err := s.manager.SweepExpired(ctx)
	s.metrics.ObserveDuration(sweepJobName, time.Since(start))
	if err != nil {
		s.logg.Error(ctx, "hold sweep failed", err)
		s.metrics.IncFailure(sweepJobName)
		return
	}
	s.metrics.IncSuccess(sweepJobName)
	if cleared > 0 {
		s.logg.Info(s.logg.WithField(ctx, "cleared", cleared), "expired holds cleared")
	}
}

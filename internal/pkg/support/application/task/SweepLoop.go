package task

import (
	"context"
	"time"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// SweepLoop drives the session lifecycle sweep on a fixed interval.
type SweepLoop struct {
	Sweep    *usecase.SweepSessionsUseCase
	Interval time.Duration
	Log      *logger.Logger
}

func NewSweepLoop(sweep *usecase.SweepSessionsUseCase, interval time.Duration, log *logger.Logger) *SweepLoop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SweepLoop{Sweep: sweep, Interval: interval, Log: log}
}

// Run blocks until ctx is canceled. Each tick sweeps under a deadline so a
// slow store cannot pile up overlapping sweeps from this instance; sweeps
// from other instances may still overlap, which the idempotent end-path
// tolerates.
func (l *SweepLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, l.Interval)
			if err := l.Sweep.Execute(tickCtx, time.Now().UTC()); err != nil {
				l.Log.Errorf("session sweep failed: %v", err)
			}
			cancel()
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// SweepSessionsUseCase walks every active session and applies the staged
// inactivity rules: abandoned-before-start cleanup, warning, auto-close and
// the stale backstop. Per-session ends are independent and idempotent, so the
// sweep is safe to run concurrently with itself and with claims.
type SweepSessionsUseCase struct {
	Repo       repository.SupportRepository
	Transports []nport.Transport
	Log        *logger.Logger
	Rules      support.LifecycleRules
}

func NewSweepSessionsUseCase(repo repository.SupportRepository, transports []nport.Transport, log *logger.Logger, rules support.LifecycleRules) *SweepSessionsUseCase {
	return &SweepSessionsUseCase{Repo: repo, Transports: transports, Log: log, Rules: rules}
}

func (uc *SweepSessionsUseCase) Execute(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sessions, err := uc.Repo.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for _, s := range sessions {
		// One session's trouble must not stop the sweep.
		if err := uc.sweepOne(ctx, s, now); err != nil {
			uc.Log.WithField("session_id", s.ID).Errorf("sweep failed for session: %v", err)
		}
	}
	return nil
}

func (uc *SweepSessionsUseCase) sweepOne(ctx context.Context, s support.SupportSession, now time.Time) error {
	action, reason := s.NextLifecycleAction(now, uc.Rules)
	switch action {
	case support.LifecycleWarn:
		warned, err := uc.Repo.MarkSessionWarned(ctx, s.ID, now)
		if err != nil {
			return err
		}
		if warned {
			notifySessionParticipants(ctx, uc.Transports, uc.Log, s, NoticeInactivityWarn, "", now)
		}
	case support.LifecycleEnd:
		ended, err := endSupportSession(ctx, uc.Repo, uc.Log, s, reason, now)
		if err != nil {
			return err
		}
		if ended {
			notifySessionParticipants(ctx, uc.Transports, uc.Log, s, NoticeSessionEnded, reason, now)
		}
	}
	return nil
}

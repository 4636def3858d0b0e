package usecase

import (
	"context"
	"fmt"
	"time"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// RequestLimiter bounds how often a participant may open a new request.
// Backed by the shared fixed-window counter so all instances agree.
type RequestLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

// SetIntentInput is a participant-initiated posture change.
type SetIntentInput struct {
	ParticipantID string
	State         support.IntentState
	Now           time.Time
}

// SetIntentUseCase moves a participant between idle, available and
// requesting. Entering requesting kicks off the notification flow; leaving it
// is the cancellation signal — the persisted state is all a racing claim
// needs to see.
type SetIntentUseCase struct {
	Repo    repository.SupportRepository
	Limiter RequestLimiter
	Notify  *NotifySeekerUseCase
	Log     *logger.Logger
}

func NewSetIntentUseCase(repo repository.SupportRepository, limiter RequestLimiter, notify *NotifySeekerUseCase, log *logger.Logger) *SetIntentUseCase {
	return &SetIntentUseCase{Repo: repo, Limiter: limiter, Notify: notify, Log: log}
}

func (uc *SetIntentUseCase) Execute(ctx context.Context, in SetIntentInput) error {
	if in.ParticipantID == "" {
		return fmt.Errorf("participant_id is required")
	}
	if !in.State.Valid() {
		return fmt.Errorf("intent state %q is not valid", in.State)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	p, err := uc.Repo.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		if err == repository.ErrParticipantNotFound {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	entering := in.State == support.IntentRequesting && p.IntentState != support.IntentRequesting

	if entering {
		allowed, err := uc.Limiter.Allow(ctx, in.ParticipantID, now)
		if err != nil {
			// Counter store unreachable: fail open. Blocking a support
			// request over a rate-limit backend outage is the wrong trade.
			uc.Log.WithField("participant_id", in.ParticipantID).Warnf("rate limiter unavailable, failing open: %v", err)
		} else if !allowed {
			return ErrRateLimited
		}
	}

	if p.IntentState != in.State {
		if err := uc.Repo.SetIntentState(ctx, in.ParticipantID, in.State); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	// A posture change is activity; refresh presence so the participant
	// immediately counts as a candidate/seeker.
	if _, err := uc.Repo.RecordHeartbeat(ctx, in.ParticipantID, now); err != nil {
		uc.Log.WithField("participant_id", in.ParticipantID).Warnf("failed to refresh heartbeat on intent change: %v", err)
	}

	if entering {
		// The request stands even if notification dispatch hits trouble;
		// the notifier logs its own failures.
		if err := uc.Notify.Execute(ctx, NotifySeekerInput{SeekerID: in.ParticipantID, Stage: StageInitial, Now: now}); err != nil {
			uc.Log.WithField("participant_id", in.ParticipantID).Errorf("notification dispatch failed: %v", err)
		}
	}
	return nil
}

// SetAlwaysAvailableInput toggles the standing-availability override.
type SetAlwaysAvailableInput struct {
	ParticipantID string
	Enabled       bool
	Now           time.Time
}

// SetAlwaysAvailableUseCase flips the always-available flag. With the flag on
// and a fresh heartbeat, the participant is a candidate regardless of intent.
type SetAlwaysAvailableUseCase struct {
	Repo repository.SupportRepository
}

func NewSetAlwaysAvailableUseCase(repo repository.SupportRepository) *SetAlwaysAvailableUseCase {
	return &SetAlwaysAvailableUseCase{Repo: repo}
}

func (uc *SetAlwaysAvailableUseCase) Execute(ctx context.Context, in SetAlwaysAvailableInput) error {
	if in.ParticipantID == "" {
		return fmt.Errorf("participant_id is required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if err := uc.Repo.SetAlwaysAvailable(ctx, in.ParticipantID, in.Enabled); err != nil {
		if err == repository.ErrParticipantNotFound {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if in.Enabled {
		if _, err := uc.Repo.RecordHeartbeat(ctx, in.ParticipantID, now); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// ClaimSessionInput is a listener's attempt to convert a notification into an
// exclusive session with the seeker.
type ClaimSessionInput struct {
	ListenerID string
	SeekerID   string
	Now        time.Time
}

// ClaimSessionUseCase resolves the multi-acceptor race. It performs an
// optimistic insert honoring the active-session uniqueness constraint and, on
// conflict, requeries to discover the winner — no application-level locking,
// since competing claims may come from independent processes.
type ClaimSessionUseCase struct {
	Repo               repository.SupportRepository
	HeartbeatThreshold time.Duration
	Log                *logger.Logger
}

func NewClaimSessionUseCase(repo repository.SupportRepository, heartbeatThreshold time.Duration, log *logger.Logger) *ClaimSessionUseCase {
	return &ClaimSessionUseCase{Repo: repo, HeartbeatThreshold: heartbeatThreshold, Log: log}
}

// Execute checks the claim preconditions in order, then attempts the insert.
// Expected rejections (ErrSelfConnect, ErrBlocked, ErrNoLongerNeeded,
// LostRaceError) are benign outcomes of concurrent matching, not failures.
func (uc *ClaimSessionUseCase) Execute(ctx context.Context, in ClaimSessionInput) (*support.SupportSession, error) {
	if in.ListenerID == "" || in.SeekerID == "" {
		return nil, fmt.Errorf("listener_id and seeker_id are required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// 1. A participant cannot support themselves.
	if in.ListenerID == in.SeekerID {
		return nil, support.ErrSelfConnect
	}

	// 2. Listener must not be globally blocked, and no block may be in
	// effect between the two.
	globallyBlocked, err := uc.Repo.IsGloballyBlocked(ctx, in.ListenerID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if globallyBlocked {
		return nil, support.ErrBlocked
	}
	pairBlocked, err := uc.Repo.HasBlockBetween(ctx, in.ListenerID, in.SeekerID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if pairBlocked {
		return nil, support.ErrBlocked
	}

	// 3. The seeker must still be requesting and present. Their intent state
	// is the cancellation signal: leaving requesting before any claim
	// succeeds is immediately visible here.
	seeker, err := uc.Repo.GetParticipant(ctx, in.SeekerID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, support.ErrNoLongerNeeded
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !seeker.IsSeeking() || !seeker.IsPresent(now, uc.HeartbeatThreshold) {
		return nil, support.ErrNoLongerNeeded
	}

	// 4. Idempotent reconnect: re-tapping the same notification lands back
	// in the same session.
	existing, err := uc.Repo.GetActiveSessionByPair(ctx, in.ListenerID, in.SeekerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		return existing, nil
	}

	session := support.SupportSession{
		ID:         uuid.NewString(),
		ListenerID: in.ListenerID,
		SeekerID:   in.SeekerID,
		Status:     support.SessionActive,
		CreatedAt:  now,
	}

	err = uc.Repo.CreateSession(ctx, session)
	if errors.Is(err, repository.ErrActiveSessionExists) {
		return uc.resolveConflict(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// The seeker is matched; they are no longer requesting. The listener's
	// intent is untouched so they may accept further requests.
	if err := uc.Repo.SetIntentState(ctx, in.SeekerID, support.IntentIdle); err != nil {
		uc.Log.WithFields(map[string]any{
			"session_id": session.ID,
			"seeker_id":  in.SeekerID,
		}).Warnf("failed to reset seeker intent after claim: %v", err)
	}

	uc.Log.WithFields(map[string]any{
		"session_id":  session.ID,
		"listener_id": in.ListenerID,
		"seeker_id":   in.SeekerID,
	}).Infof("support session created")
	return &session, nil
}

// resolveConflict runs the single retry-read after a conflicting write. At
// most one requery; no loops, no polling.
func (uc *ClaimSessionUseCase) resolveConflict(ctx context.Context, in ClaimSessionInput) (*support.SupportSession, error) {
	// The same listener may have raced itself (double tap landing on two
	// instances); the pair index makes that an idempotent reconnect.
	pair, err := uc.Repo.GetActiveSessionByPair(ctx, in.ListenerID, in.SeekerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if pair != nil {
		return pair, nil
	}

	winner, err := uc.Repo.GetActiveSessionBySeeker(ctx, in.SeekerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if winner != nil {
		return nil, &LostRaceError{Winner: winner}
	}

	// The winning session was already ended by the time we requeried; from
	// the loser's perspective the seeker has been helped either way.
	return nil, support.ErrNoLongerNeeded
}

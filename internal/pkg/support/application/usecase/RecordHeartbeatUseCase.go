package usecase

import (
	"context"
	"fmt"
	"time"

	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
)

// RecordHeartbeatInput carries a presence ping from a participant's client.
type RecordHeartbeatInput struct {
	ParticipantID string
	Now           time.Time
}

// RecordHeartbeatUseCase refreshes a participant's presence watermark.
// Heartbeats from participants outside the matching pool are silently
// ignored, not errors: a stale client heartbeating after leaving the pool
// must not resurrect presence.
type RecordHeartbeatUseCase struct {
	Repo repository.SupportRepository
}

func NewRecordHeartbeatUseCase(repo repository.SupportRepository) *RecordHeartbeatUseCase {
	return &RecordHeartbeatUseCase{Repo: repo}
}

func (uc *RecordHeartbeatUseCase) Execute(ctx context.Context, in RecordHeartbeatInput) error {
	if in.ParticipantID == "" {
		return fmt.Errorf("participant_id is required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	applied, err := uc.Repo.RecordHeartbeat(ctx, in.ParticipantID, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if applied {
		return nil
	}

	// Distinguish "not in the pool" (fine) from "no such participant".
	if _, err := uc.Repo.GetParticipant(ctx, in.ParticipantID); err != nil {
		if err == repository.ErrParticipantNotFound {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// CreateBlockInput records a moderation block. A nil TargetID blocks the
// subject globally. Authorization is the caller's problem; this core only
// enforces the matching consequences.
type CreateBlockInput struct {
	SubjectID string
	TargetID  *string
	ExpiresAt *time.Time
	Now       time.Time
}

// CreateBlockUseCase writes the block and immediately evicts the subject
// from any sessions the block forbids: all of them for a global block, just
// the pair's for a targeted one.
type CreateBlockUseCase struct {
	Repo     repository.SupportRepository
	ForceEnd *ForceEndSessionsUseCase
	Log      *logger.Logger
}

func NewCreateBlockUseCase(repo repository.SupportRepository, forceEnd *ForceEndSessionsUseCase, log *logger.Logger) *CreateBlockUseCase {
	return &CreateBlockUseCase{Repo: repo, ForceEnd: forceEnd, Log: log}
}

func (uc *CreateBlockUseCase) Execute(ctx context.Context, in CreateBlockInput) (string, error) {
	if in.SubjectID == "" {
		return "", fmt.Errorf("subject_id is required")
	}
	if in.TargetID != nil && *in.TargetID == in.SubjectID {
		return "", fmt.Errorf("subject_id and target_id must differ")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := uc.Repo.CreateBlock(ctx, support.Block{
		SubjectID: in.SubjectID,
		TargetID:  in.TargetID,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: in.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if in.TargetID == nil {
		if _, err := uc.ForceEnd.Execute(ctx, ForceEndSessionsInput{ParticipantID: in.SubjectID, Now: now}); err != nil {
			uc.Log.WithField("subject_id", in.SubjectID).Errorf("eviction after block failed: %v", err)
		}
		return id, nil
	}

	// Targeted block: only sessions pairing subject and target go.
	sessions, err := uc.Repo.ListActiveSessionsByParticipant(ctx, in.SubjectID)
	if err != nil {
		uc.Log.WithField("subject_id", in.SubjectID).Errorf("eviction lookup after block failed: %v", err)
		return id, nil
	}
	for _, s := range sessions {
		if !s.Involves(*in.TargetID) {
			continue
		}
		ended, err := endSupportSession(ctx, uc.Repo, uc.Log, s, support.EndModerationBlock, now)
		if err != nil {
			uc.Log.WithField("session_id", s.ID).Errorf("forced end failed: %v", err)
			continue
		}
		if ended {
			notifySessionParticipants(ctx, uc.ForceEnd.Transports, uc.Log, s, NoticeSessionEnded, support.EndModerationBlock, now)
		}
	}
	return id, nil
}

// EndBlockInput lifts a block by id.
type EndBlockInput struct {
	BlockID string
}

// EndBlockUseCase deactivates a block. Participants become matchable again
// on their next posture change; no sessions are resurrected.
type EndBlockUseCase struct {
	Repo repository.SupportRepository
}

func NewEndBlockUseCase(repo repository.SupportRepository) *EndBlockUseCase {
	return &EndBlockUseCase{Repo: repo}
}

func (uc *EndBlockUseCase) Execute(ctx context.Context, in EndBlockInput) error {
	if in.BlockID == "" {
		return fmt.Errorf("block_id is required")
	}
	ok, err := uc.Repo.EndBlock(ctx, in.BlockID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return repository.ErrBlockNotFound
	}
	return nil
}

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

// ForceEndSessionsInput names the participant whose sessions must be torn
// down, typically because a block was just created against them.
type ForceEndSessionsInput struct {
	ParticipantID string
	Now           time.Time
}

// ForceEndSessionsUseCase is the moderation gate's eviction path: it ends
// every active session involving the participant, as listener or seeker,
// through the same idempotent end-path the lifecycle sweep uses. Running it
// twice is a no-op.
type ForceEndSessionsUseCase struct {
	Repo       repository.SupportRepository
	Transports []nport.Transport
	Log        *logger.Logger
}

func NewForceEndSessionsUseCase(repo repository.SupportRepository, transports []nport.Transport, log *logger.Logger) *ForceEndSessionsUseCase {
	return &ForceEndSessionsUseCase{Repo: repo, Transports: transports, Log: log}
}

// Execute returns how many sessions this call ended.
func (uc *ForceEndSessionsUseCase) Execute(ctx context.Context, in ForceEndSessionsInput) (int, error) {
	if in.ParticipantID == "" {
		return 0, fmt.Errorf("participant_id is required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sessions, err := uc.Repo.ListActiveSessionsByParticipant(ctx, in.ParticipantID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	ended := 0
	for _, s := range sessions {
		ok, err := endSupportSession(ctx, uc.Repo, uc.Log, s, support.EndModerationBlock, now)
		if err != nil {
			uc.Log.WithField("session_id", s.ID).Errorf("forced end failed: %v", err)
			continue
		}
		if ok {
			ended++
			notifySessionParticipants(ctx, uc.Transports, uc.Log, s, NoticeSessionEnded, support.EndModerationBlock, now)
		}
	}
	return ended, nil
}

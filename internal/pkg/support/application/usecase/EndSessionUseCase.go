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

// EndSessionInput is a participant closing their own session.
type EndSessionInput struct {
	SessionID     string
	ParticipantID string
	Now           time.Time
}

// EndSessionUseCase lets either side of a session close it. Ending an
// already-ended session is a success, not an error.
type EndSessionUseCase struct {
	Repo       repository.SupportRepository
	Transports []nport.Transport
	Log        *logger.Logger
}

func NewEndSessionUseCase(repo repository.SupportRepository, transports []nport.Transport, log *logger.Logger) *EndSessionUseCase {
	return &EndSessionUseCase{Repo: repo, Transports: transports, Log: log}
}

func (uc *EndSessionUseCase) Execute(ctx context.Context, in EndSessionInput) (*support.SupportSession, error) {
	if in.SessionID == "" || in.ParticipantID == "" {
		return nil, fmt.Errorf("session_id and participant_id are required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s, err := uc.Repo.GetSession(ctx, in.SessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !s.Involves(in.ParticipantID) {
		return nil, support.ErrNotSessionMember
	}
	if s.Status == support.SessionEnded {
		return s, nil
	}

	ended, err := endSupportSession(ctx, uc.Repo, uc.Log, *s, support.EndParticipantLeft, now)
	if err != nil {
		return nil, err
	}
	if !ended {
		// Lost the race: the sweeper or moderation gate closed this session
		// between our read and the guarded update. Report the stored end,
		// not ours.
		fresh, err := uc.Repo.GetSession(ctx, in.SessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return fresh, nil
	}
	notifySessionParticipants(ctx, uc.Transports, uc.Log, *s, NoticeSessionEnded, support.EndParticipantLeft, now)

	reason := support.EndParticipantLeft
	s.Status = support.SessionEnded
	s.EndedAt = &now
	s.EndReason = &reason
	return s, nil
}

// TouchSessionInput reports message activity on a session. The messaging
// layer is outside this core; it calls in so the sweep sees fresh activity.
type TouchSessionInput struct {
	SessionID     string
	ParticipantID string
	Now           time.Time
}

// TouchSessionUseCase advances a session's activity watermark.
type TouchSessionUseCase struct {
	Repo repository.SupportRepository
}

func NewTouchSessionUseCase(repo repository.SupportRepository) *TouchSessionUseCase {
	return &TouchSessionUseCase{Repo: repo}
}

func (uc *TouchSessionUseCase) Execute(ctx context.Context, in TouchSessionInput) error {
	if in.SessionID == "" || in.ParticipantID == "" {
		return fmt.Errorf("session_id and participant_id are required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s, err := uc.Repo.GetSession(ctx, in.SessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !s.Involves(in.ParticipantID) {
		return support.ErrNotSessionMember
	}

	// Touching an ended session is a harmless no-op.
	if _, err := uc.Repo.TouchSession(ctx, in.SessionID, now); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// GetSessionInput fetches a session the caller belongs to.
type GetSessionInput struct {
	SessionID     string
	ParticipantID string
}

// GetSessionUseCase serves the landing flow's redirect into a session.
type GetSessionUseCase struct {
	Repo repository.SupportRepository
}

func NewGetSessionUseCase(repo repository.SupportRepository) *GetSessionUseCase {
	return &GetSessionUseCase{Repo: repo}
}

func (uc *GetSessionUseCase) Execute(ctx context.Context, in GetSessionInput) (*support.SupportSession, error) {
	if in.SessionID == "" || in.ParticipantID == "" {
		return nil, fmt.Errorf("session_id and participant_id are required")
	}
	s, err := uc.Repo.GetSession(ctx, in.SessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !s.Involves(in.ParticipantID) {
		return nil, support.ErrNotSessionMember
	}
	return s, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
)

// Sentinel errors surfaced by adapters so use cases can branch without
// knowing the storage engine.
var (
	ErrParticipantNotFound = errors.New("repository: participant not found")
	ErrSessionNotFound     = errors.New("repository: session not found")
	ErrBlockNotFound       = errors.New("repository: block not found")

	// ErrActiveSessionExists reports that inserting a session collided with
	// the active-session uniqueness invariant (another claim for the same
	// seeker, or the same pair, committed first).
	ErrActiveSessionExists = errors.New("repository: active session already exists")
)

// SupportRepository defines persistence operations for the support matching
// domain. The CreateSession contract is the serialization point for claims:
// the adapter must enforce at-most-one active session per seeker at the point
// of durable write, not via application-level locking.
type SupportRepository interface {
	// Participants / presence
	GetParticipant(ctx context.Context, id string) (*support.Participant, error)
	SetIntentState(ctx context.Context, id string, state support.IntentState) error
	SetAlwaysAvailable(ctx context.Context, id string, enabled bool) error
	// RecordHeartbeat refreshes presence only while the participant is in
	// the matching pool (or always available). It reports whether the
	// heartbeat was applied; an ignored heartbeat is not an error.
	RecordHeartbeat(ctx context.Context, id string, now time.Time) (bool, error)
	// ListListenerCandidates returns listeners eligible for a notification
	// about seekerID: available or always-available, heartbeat at or after
	// presentSince, excluding the seeker and anyone with a block in effect
	// between them and the seeker.
	ListListenerCandidates(ctx context.Context, seekerID string, presentSince time.Time, now time.Time) ([]support.Participant, error)
	ListFavoriteListenerIDs(ctx context.Context, seekerID string) ([]string, error)

	// Sessions
	CreateSession(ctx context.Context, s support.SupportSession) error
	GetSession(ctx context.Context, id string) (*support.SupportSession, error)
	// GetActiveSessionBySeeker returns (nil, nil) when the seeker has no
	// active session.
	GetActiveSessionBySeeker(ctx context.Context, seekerID string) (*support.SupportSession, error)
	// GetActiveSessionByPair returns (nil, nil) when no active session
	// exists for the pair.
	GetActiveSessionByPair(ctx context.Context, listenerID, seekerID string) (*support.SupportSession, error)
	ListActiveSessions(ctx context.Context) ([]support.SupportSession, error)
	ListActiveSessionsByParticipant(ctx context.Context, participantID string) ([]support.SupportSession, error)
	// EndSession flips an active session to ended. Ending an already-ended
	// session reports false with no error.
	EndSession(ctx context.Context, sessionID string, reason support.EndReason, now time.Time) (bool, error)
	// MarkSessionWarned records the inactivity warning. It reports false if
	// the session is not active or a warning is already in effect for the
	// current quiet period.
	MarkSessionWarned(ctx context.Context, sessionID string, now time.Time) (bool, error)
	// TouchSession advances last_message_at for an active session.
	TouchSession(ctx context.Context, sessionID string, now time.Time) (bool, error)

	// Moderation
	IsGloballyBlocked(ctx context.Context, participantID string, now time.Time) (bool, error)
	HasBlockBetween(ctx context.Context, a, b string, now time.Time) (bool, error)
	CreateBlock(ctx context.Context, b support.Block) (string, error)
	EndBlock(ctx context.Context, blockID string) (bool, error)
}

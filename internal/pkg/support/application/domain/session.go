package support

import (
	"errors"
	"time"
)

// Domain-level errors for matching behaviors. The first four are the claim
// rejection reasons; lostRace and noLongerNeeded are expected outcomes of
// concurrent matching, not failures, and callers surface them as benign
// redirects.
var (
	ErrSelfConnect      = errors.New("support: listener and seeker must differ")
	ErrBlocked          = errors.New("support: connection not allowed because a party is blocked")
	ErrNoLongerNeeded   = errors.New("support: seeker is no longer requesting support")
	ErrLostRace         = errors.New("support: another listener already connected to this seeker")
	ErrNotSessionMember = errors.New("support: participant does not belong to this session")
)

// SessionStatus is the lifecycle state of a support session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// EndReason records why a session was ended.
type EndReason string

const (
	EndAbandonedBeforeStart EndReason = "abandoned_before_start"
	EndInactivityTimeout    EndReason = "inactivity_timeout"
	EndStaleCleanup         EndReason = "stale_cleanup"
	EndModerationBlock      EndReason = "moderation_block"
	EndParticipantLeft      EndReason = "participant_left"
)

// SupportSession is an exclusive pairing of exactly one listener and one
// seeker. At most one active session exists per seeker at any time; a
// listener may hold several concurrent sessions with different seekers.
type SupportSession struct {
	ID            string        `db:"id"`
	ListenerID    string        `db:"listener_id"`
	SeekerID      string        `db:"seeker_id"`
	Status        SessionStatus `db:"status"`
	CreatedAt     time.Time     `db:"created_at"`
	EndedAt       *time.Time    `db:"ended_at"`
	LastMessageAt *time.Time    `db:"last_message_at"`
	WarnedAt      *time.Time    `db:"warned_at"`
	EndReason     *EndReason    `db:"end_reason"`
}

// Involves reports whether participantID is either side of the session.
func (s SupportSession) Involves(participantID string) bool {
	return participantID != "" && (s.ListenerID == participantID || s.SeekerID == participantID)
}

// LifecycleAction is what the periodic sweep should do with a session.
type LifecycleAction int

const (
	LifecycleNone LifecycleAction = iota
	LifecycleWarn
	LifecycleEnd
)

// LifecycleRules holds the sweep thresholds.
type LifecycleRules struct {
	// NoMessageCutoff ends sessions in which no message was ever sent.
	NoMessageCutoff time.Duration
	// InactivityWarning flags a session whose conversation went quiet.
	InactivityWarning time.Duration
	// AutoCloseGrace is how long a warned session gets before auto-close.
	AutoCloseGrace time.Duration
	// StaleCutoff ends any session idle this long regardless of warning
	// state; backstop in case the warning step was missed.
	StaleCutoff time.Duration
}

// NextLifecycleAction decides the sweep action for this session at time now.
// For LifecycleEnd the second return value carries the end reason. A warning
// issued before the latest message no longer counts; new activity resets the
// warn/close staging.
func (s SupportSession) NextLifecycleAction(now time.Time, r LifecycleRules) (LifecycleAction, EndReason) {
	if s.Status != SessionActive {
		return LifecycleNone, ""
	}

	if s.LastMessageAt == nil {
		if now.Sub(s.CreatedAt) > r.NoMessageCutoff {
			return LifecycleEnd, EndAbandonedBeforeStart
		}
		return LifecycleNone, ""
	}

	idle := now.Sub(*s.LastMessageAt)

	if idle > r.StaleCutoff {
		return LifecycleEnd, EndStaleCleanup
	}

	warned := s.WarnedAt != nil && s.WarnedAt.After(*s.LastMessageAt)
	if warned {
		if now.Sub(*s.WarnedAt) > r.AutoCloseGrace {
			return LifecycleEnd, EndInactivityTimeout
		}
		return LifecycleNone, ""
	}

	if idle > r.InactivityWarning {
		return LifecycleWarn, ""
	}
	return LifecycleNone, ""
}

package support

import "time"

// IntentState is the matching posture a participant has chosen.
// available (listener posture) and requesting (seeker posture) are mutually
// exclusive roles; both are reached from idle and return to idle on
// cancellation or on session creation/consumption.
type IntentState string

const (
	IntentIdle       IntentState = "idle"
	IntentAvailable  IntentState = "available"
	IntentRequesting IntentState = "requesting"
)

// Valid reports whether s is one of the known intent states.
func (s IntentState) Valid() bool {
	switch s {
	case IntentIdle, IntentAvailable, IntentRequesting:
		return true
	}
	return false
}

// Participant is a person capable of acting as a seeker or a listener.
type Participant struct {
	ID              string      `db:"id"`
	IntentState     IntentState `db:"intent_state"`
	AlwaysAvailable bool        `db:"always_available"`
	LastHeartbeatAt *time.Time  `db:"last_heartbeat_at"`
	CreatedAt       time.Time   `db:"created_at"`
}

// AcceptsHeartbeat reports whether a heartbeat should refresh this
// participant's presence. A stale client heartbeating after leaving the
// matching pool must not resurrect presence, so heartbeats only count while
// the participant is in the pool (or always available).
func (p Participant) AcceptsHeartbeat() bool {
	return p.AlwaysAvailable || p.IntentState == IntentAvailable || p.IntentState == IntentRequesting
}

// IsPresent reports whether the participant was seen within threshold.
// The threshold models "last seen within a session-relevant horizon", not
// "actively polling right now".
func (p Participant) IsPresent(now time.Time, threshold time.Duration) bool {
	if p.LastHeartbeatAt == nil {
		return false
	}
	return now.Sub(*p.LastHeartbeatAt) <= threshold
}

// IsListenerCandidate reports whether the participant is eligible to receive
// a match notification: available (or always available) and present. Block
// checks happen at candidate selection against a concrete seeker.
func (p Participant) IsListenerCandidate(now time.Time, threshold time.Duration) bool {
	if !p.AlwaysAvailable && p.IntentState != IntentAvailable {
		return false
	}
	return p.IsPresent(now, threshold)
}

// IsSeeking reports whether the participant is a valid seeker for a new
// request.
func (p Participant) IsSeeking() bool {
	return p.IntentState == IntentRequesting
}

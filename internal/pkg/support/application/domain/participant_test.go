package support

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcceptsHeartbeat(t *testing.T) {
	tests := []struct {
		name string
		p    Participant
		want bool
	}{
		{"idle participant is out of the pool", Participant{IntentState: IntentIdle}, false},
		{"available participant is in the pool", Participant{IntentState: IntentAvailable}, true},
		{"requesting participant is in the pool", Participant{IntentState: IntentRequesting}, true},
		{"always available overrides idle", Participant{IntentState: IntentIdle, AlwaysAvailable: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.AcceptsHeartbeat())
		})
	}
}

func TestIsPresent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	threshold := time.Hour

	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-61 * time.Minute)

	assert.False(t, Participant{}.IsPresent(now, threshold), "no heartbeat means absent")
	assert.True(t, Participant{LastHeartbeatAt: &recent}.IsPresent(now, threshold))
	assert.False(t, Participant{LastHeartbeatAt: &stale}.IsPresent(now, threshold))
}

func TestIsListenerCandidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	threshold := time.Hour
	fresh := now.Add(-time.Minute)
	stale := now.Add(-2 * time.Hour)

	tests := []struct {
		name string
		p    Participant
		want bool
	}{
		{"available and present", Participant{IntentState: IntentAvailable, LastHeartbeatAt: &fresh}, true},
		{"available but stale", Participant{IntentState: IntentAvailable, LastHeartbeatAt: &stale}, false},
		{"idle is never a candidate", Participant{IntentState: IntentIdle, LastHeartbeatAt: &fresh}, false},
		{"requesting is never a candidate", Participant{IntentState: IntentRequesting, LastHeartbeatAt: &fresh}, false},
		{"always available bypasses intent", Participant{IntentState: IntentIdle, AlwaysAvailable: true, LastHeartbeatAt: &fresh}, true},
		{"always available still needs presence", Participant{IntentState: IntentIdle, AlwaysAvailable: true, LastHeartbeatAt: &stale}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.IsListenerCandidate(now, threshold))
		})
	}
}

func TestIntentStateValid(t *testing.T) {
	assert.True(t, IntentIdle.Valid())
	assert.True(t, IntentAvailable.Valid())
	assert.True(t, IntentRequesting.Valid())
	assert.False(t, IntentState("busy").Valid())
	assert.False(t, IntentState("").Valid())
}

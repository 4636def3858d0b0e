package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
)

func intentFixture(repo *fakeRepo, limiter RequestLimiter) (*SetIntentUseCase, *fakeTransport, *fakeQueue) {
	tr := &fakeTransport{name: "ws"}
	queue := &fakeQueue{}
	notify := NewNotifySeekerUseCase(repo, queue, []nport.Transport{tr}, testLogger(),
		time.Hour, 45*time.Second, 2*time.Minute)
	return NewSetIntentUseCase(repo, limiter, notify, testLogger()), tr, queue
}

func TestSetIntent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("entering requesting notifies candidates and refreshes presence", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "seeker", IntentState: support.IntentIdle})
		repo.addParticipant(availableParticipant("listener", now))
		uc, tr, queue := intentFixture(repo, &fakeLimiter{allowed: true})

		require.NoError(t, uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "seeker", State: support.IntentRequesting, Now: now,
		}))

		got := repo.participant("seeker")
		assert.Equal(t, support.IntentRequesting, got.IntentState)
		require.NotNil(t, got.LastHeartbeatAt, "posture change counts as presence")
		assert.Equal(t, []string{"listener"}, tr.recipients())
		assert.Equal(t, []string{EscalateTaskType}, queue.taskTypes())
	})

	t.Run("rate limited request is rejected before any state change", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "seeker", IntentState: support.IntentIdle})
		uc, tr, _ := intentFixture(repo, &fakeLimiter{allowed: false})

		err := uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "seeker", State: support.IntentRequesting, Now: now,
		})
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, support.IntentIdle, repo.participant("seeker").IntentState)
		assert.Empty(t, tr.recipients())
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "seeker", IntentState: support.IntentIdle})
		uc, _, _ := intentFixture(repo, &fakeLimiter{err: assert.AnError})

		require.NoError(t, uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "seeker", State: support.IntentRequesting, Now: now,
		}))
		assert.Equal(t, support.IntentRequesting, repo.participant("seeker").IntentState)
	})

	t.Run("re-asserting requesting does not re-notify or re-limit", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(seekingParticipant("seeker", now))
		uc, tr, _ := intentFixture(repo, &fakeLimiter{allowed: false})

		require.NoError(t, uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "seeker", State: support.IntentRequesting, Now: now,
		}))
		assert.Empty(t, tr.recipients())
	})

	t.Run("leaving requesting is the cancellation signal", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(seekingParticipant("seeker", now))
		uc, tr, _ := intentFixture(repo, &fakeLimiter{allowed: true})

		require.NoError(t, uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "seeker", State: support.IntentIdle, Now: now,
		}))
		assert.Equal(t, support.IntentIdle, repo.participant("seeker").IntentState)
		assert.Empty(t, tr.recipients())
	})

	t.Run("invalid state is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "p", IntentState: support.IntentIdle})
		uc, _, _ := intentFixture(repo, &fakeLimiter{allowed: true})

		err := uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "p", State: support.IntentState("busy"), Now: now,
		})
		assert.Error(t, err)
	})

	t.Run("unknown participant is reported", func(t *testing.T) {
		repo := newFakeRepo()
		uc, _, _ := intentFixture(repo, &fakeLimiter{allowed: true})

		err := uc.Execute(context.Background(), SetIntentInput{
			ParticipantID: "ghost", State: support.IntentAvailable, Now: now,
		})
		assert.ErrorIs(t, err, repository.ErrParticipantNotFound)
	})
}

func TestSetAlwaysAvailable(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("enabling records a heartbeat so the listener is matchable at once", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "l", IntentState: support.IntentIdle})
		uc := NewSetAlwaysAvailableUseCase(repo)

		require.NoError(t, uc.Execute(context.Background(), SetAlwaysAvailableInput{
			ParticipantID: "l", Enabled: true, Now: now,
		}))
		got := repo.participant("l")
		assert.True(t, got.AlwaysAvailable)
		require.NotNil(t, got.LastHeartbeatAt)
	})

	t.Run("disabling leaves presence untouched", func(t *testing.T) {
		repo := newFakeRepo()
		hb := now.Add(-time.Minute)
		repo.addParticipant(support.Participant{ID: "l", IntentState: support.IntentIdle, AlwaysAvailable: true, LastHeartbeatAt: &hb})
		uc := NewSetAlwaysAvailableUseCase(repo)

		require.NoError(t, uc.Execute(context.Background(), SetAlwaysAvailableInput{
			ParticipantID: "l", Enabled: false, Now: now,
		}))
		assert.False(t, repo.participant("l").AlwaysAvailable)
	})
}

func TestRecordHeartbeat(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("heartbeat refreshes presence for pool members", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "l", IntentState: support.IntentAvailable})
		uc := NewRecordHeartbeatUseCase(repo)

		require.NoError(t, uc.Execute(context.Background(), RecordHeartbeatInput{ParticipantID: "l", Now: now}))
		got := repo.participant("l")
		require.NotNil(t, got.LastHeartbeatAt)
		assert.Equal(t, now, *got.LastHeartbeatAt)
	})

	t.Run("heartbeat from an idle participant is ignored, not an error", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addParticipant(support.Participant{ID: "p", IntentState: support.IntentIdle})
		uc := NewRecordHeartbeatUseCase(repo)

		require.NoError(t, uc.Execute(context.Background(), RecordHeartbeatInput{ParticipantID: "p", Now: now}))
		assert.Nil(t, repo.participant("p").LastHeartbeatAt, "stale client must not resurrect presence")
	})

	t.Run("unknown participant is reported", func(t *testing.T) {
		repo := newFakeRepo()
		uc := NewRecordHeartbeatUseCase(repo)

		err := uc.Execute(context.Background(), RecordHeartbeatInput{ParticipantID: "ghost", Now: now})
		assert.ErrorIs(t, err, repository.ErrParticipantNotFound)
	})
}

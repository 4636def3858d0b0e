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

func TestEndSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("either member can close the session", func(t *testing.T) {
		for _, caller := range []string{"listener", "seeker"} {
			repo := newFakeRepo()
			idleParticipants(repo, "listener", "seeker")
			repo.addSession(support.SupportSession{
				ID: "s1", ListenerID: "listener", SeekerID: "seeker",
				Status: support.SessionActive, CreatedAt: now,
			})
			tr := &fakeTransport{name: "ws"}
			uc := NewEndSessionUseCase(repo, []nport.Transport{tr}, testLogger())

			s, err := uc.Execute(context.Background(), EndSessionInput{
				SessionID: "s1", ParticipantID: caller, Now: now,
			})
			require.NoError(t, err)
			assert.Equal(t, support.SessionEnded, s.Status)
			require.NotNil(t, s.EndReason)
			assert.Equal(t, support.EndParticipantLeft, *s.EndReason)
			assert.ElementsMatch(t, []string{"listener", "seeker"}, tr.recipients())
		}
	})

	t.Run("outsiders are rejected", func(t *testing.T) {
		repo := newFakeRepo()
		idleParticipants(repo, "listener", "seeker")
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "listener", SeekerID: "seeker",
			Status: support.SessionActive, CreatedAt: now,
		})
		uc := NewEndSessionUseCase(repo, nil, testLogger())

		_, err := uc.Execute(context.Background(), EndSessionInput{
			SessionID: "s1", ParticipantID: "stranger", Now: now,
		})
		assert.ErrorIs(t, err, support.ErrNotSessionMember)
		assert.Equal(t, support.SessionActive, repo.session("s1").Status)
	})

	t.Run("ending an already-ended session succeeds without side effects", func(t *testing.T) {
		repo := newFakeRepo()
		reason := support.EndStaleCleanup
		endedAt := now.Add(-time.Hour)
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "listener", SeekerID: "seeker",
			Status: support.SessionEnded, CreatedAt: now.Add(-2 * time.Hour),
			EndedAt: &endedAt, EndReason: &reason,
		})
		tr := &fakeTransport{name: "ws"}
		uc := NewEndSessionUseCase(repo, []nport.Transport{tr}, testLogger())

		s, err := uc.Execute(context.Background(), EndSessionInput{
			SessionID: "s1", ParticipantID: "seeker", Now: now,
		})
		require.NoError(t, err)
		assert.Equal(t, support.EndStaleCleanup, *s.EndReason, "original reason survives")
		assert.Empty(t, tr.recipients(), "no duplicate notices")
	})

	t.Run("losing the close race reports the stored end", func(t *testing.T) {
		repo := newFakeRepo()
		idleParticipants(repo, "listener", "seeker")
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "listener", SeekerID: "seeker",
			Status: support.SessionActive, CreatedAt: now.Add(-time.Hour),
		})
		tr := &fakeTransport{name: "ws"}
		uc := NewEndSessionUseCase(&sweeperWinsRepo{fakeRepo: repo}, []nport.Transport{tr}, testLogger())

		s, err := uc.Execute(context.Background(), EndSessionInput{
			SessionID: "s1", ParticipantID: "seeker", Now: now,
		})
		require.NoError(t, err)
		assert.Equal(t, support.SessionEnded, s.Status)
		require.NotNil(t, s.EndReason)
		assert.Equal(t, support.EndStaleCleanup, *s.EndReason, "the sweeper's reason wins")
		require.NotNil(t, s.EndedAt)
		assert.Equal(t, now.Add(-time.Minute), *s.EndedAt)
		assert.Empty(t, tr.recipients(), "the winner already notified")
	})

	t.Run("unknown session is reported", func(t *testing.T) {
		repo := newFakeRepo()
		uc := NewEndSessionUseCase(repo, nil, testLogger())

		_, err := uc.Execute(context.Background(), EndSessionInput{
			SessionID: "nope", ParticipantID: "p", Now: now,
		})
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})
}

// sweeperWinsRepo closes the session under the caller's feet, so the guarded
// update sees it already ended and reports no rows changed.
type sweeperWinsRepo struct {
	*fakeRepo
}

func (r *sweeperWinsRepo) EndSession(ctx context.Context, sessionID string, _ support.EndReason, now time.Time) (bool, error) {
	if _, err := r.fakeRepo.EndSession(ctx, sessionID, support.EndStaleCleanup, now.Add(-time.Minute)); err != nil {
		return false, err
	}
	return false, nil
}

func TestTouchSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("activity advances the watermark", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "l", SeekerID: "s",
			Status: support.SessionActive, CreatedAt: now.Add(-time.Hour),
		})
		uc := NewTouchSessionUseCase(repo)

		require.NoError(t, uc.Execute(context.Background(), TouchSessionInput{
			SessionID: "s1", ParticipantID: "l", Now: now,
		}))
		got := repo.session("s1")
		require.NotNil(t, got.LastMessageAt)
		assert.Equal(t, now, *got.LastMessageAt)
	})

	t.Run("outsiders cannot touch a session", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "l", SeekerID: "s",
			Status: support.SessionActive, CreatedAt: now,
		})
		uc := NewTouchSessionUseCase(repo)

		err := uc.Execute(context.Background(), TouchSessionInput{
			SessionID: "s1", ParticipantID: "stranger", Now: now,
		})
		assert.ErrorIs(t, err, support.ErrNotSessionMember)
	})

	t.Run("touching an ended session is a harmless no-op", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addSession(support.SupportSession{
			ID: "s1", ListenerID: "l", SeekerID: "s",
			Status: support.SessionEnded, CreatedAt: now,
		})
		uc := NewTouchSessionUseCase(repo)

		assert.NoError(t, uc.Execute(context.Background(), TouchSessionInput{
			SessionID: "s1", ParticipantID: "l", Now: now,
		}))
	})
}

func TestGetSession(t *testing.T) {
	repo := newFakeRepo()
	repo.addSession(support.SupportSession{
		ID: "s1", ListenerID: "l", SeekerID: "s", Status: support.SessionActive,
	})
	uc := NewGetSessionUseCase(repo)

	t.Run("members can read the session", func(t *testing.T) {
		s, err := uc.Execute(context.Background(), GetSessionInput{SessionID: "s1", ParticipantID: "s"})
		require.NoError(t, err)
		assert.Equal(t, "s1", s.ID)
	})

	t.Run("outsiders cannot", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), GetSessionInput{SessionID: "s1", ParticipantID: "x"})
		assert.ErrorIs(t, err, support.ErrNotSessionMember)
	})
}

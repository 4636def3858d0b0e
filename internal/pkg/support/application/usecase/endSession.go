package usecase

import (
	"context"
	"fmt"
	"time"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// endSupportSession is the single end-path shared by the lifecycle sweep, the
// moderation gate and participant-initiated ends. The status-guarded update
// makes it idempotent: ending an already-ended session reports false with no
// error. When the end lands, both participants return to idle so neither is
// left stuck in a non-matchable state.
func endSupportSession(ctx context.Context, repo repository.SupportRepository, log *logger.Logger, s support.SupportSession, reason support.EndReason, now time.Time) (bool, error) {
	ended, err := repo.EndSession(ctx, s.ID, reason, now)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ended {
		return false, nil
	}

	for _, pid := range []string{s.ListenerID, s.SeekerID} {
		if err := repo.SetIntentState(ctx, pid, support.IntentIdle); err != nil {
			// The session end already committed; a failed intent reset is
			// recoverable on the participant's next action.
			log.WithFields(map[string]any{
				"session_id":     s.ID,
				"participant_id": pid,
			}).Warnf("failed to reset intent after session end: %v", err)
		}
	}

	log.WithFields(map[string]any{
		"session_id": s.ID,
		"reason":     string(reason),
	}).Infof("support session ended")
	return true, nil
}

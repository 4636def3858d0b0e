package usecase

import (
	"errors"
	"fmt"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use
// case. Callers may retry; no guarantee is made about partial effects.
var ErrPersistence = fmt.Errorf("support use case persistence error")

// ErrRateLimited indicates the participant exceeded the request rate window.
var ErrRateLimited = errors.New("support: request rate limit exceeded")

// LostRaceError reports that a competing listener's claim for the same seeker
// committed first. Winner, when non-nil, identifies the session that won so
// the caller can redirect the loser gracefully instead of showing an error.
type LostRaceError struct {
	Winner *support.SupportSession
}

func (e *LostRaceError) Error() string {
	if e.Winner != nil {
		return fmt.Sprintf("%v (session %s)", support.ErrLostRace, e.Winner.ID)
	}
	return support.ErrLostRace.Error()
}

func (e *LostRaceError) Unwrap() error { return support.ErrLostRace }

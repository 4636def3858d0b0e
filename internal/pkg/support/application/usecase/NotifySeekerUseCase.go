package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// NotifyStage identifies which step of the notification flow is running.
type NotifyStage string

const (
	// StageInitial runs when the seeker enters requesting: favorites get the
	// request first, with a deferred fan-out to the rest.
	StageInitial NotifyStage = "initial"
	// StageFanout is the deferred notification of non-favorite candidates.
	StageFanout NotifyStage = "fanout"
	// StageEscalation is the single "still waiting" re-notification.
	StageEscalation NotifyStage = "escalation"
)

// MatchQueue is the logical queue carrying deferred matching tasks.
const MatchQueue = "match"

// NotifySeekerInput drives one stage of the flow for a seeker's request.
type NotifySeekerInput struct {
	SeekerID string
	Stage    NotifyStage
	Now      time.Time
}

// NotifySeekerUseCase selects candidate listeners for an open request and
// fans out notifications. Deferred stages are scheduled tasks, never
// busy-waits, and every stage re-checks the seeker's state at fire time: if
// the seeker has been matched or cancelled by then, the stage is a no-op.
type NotifySeekerUseCase struct {
	Repo       repository.SupportRepository
	Queue      qport.Client
	Transports []nport.Transport
	Log        *logger.Logger

	HeartbeatThreshold time.Duration
	FavoriteHeadStart  time.Duration
	EscalationDelay    time.Duration
}

func NewNotifySeekerUseCase(repo repository.SupportRepository, queue qport.Client, transports []nport.Transport, log *logger.Logger, heartbeatThreshold, favoriteHeadStart, escalationDelay time.Duration) *NotifySeekerUseCase {
	return &NotifySeekerUseCase{
		Repo:               repo,
		Queue:              queue,
		Transports:         transports,
		Log:                log,
		HeartbeatThreshold: heartbeatThreshold,
		FavoriteHeadStart:  favoriteHeadStart,
		EscalationDelay:    escalationDelay,
	}
}

// notifyTaskPayload is the JSON payload for deferred stages.
type notifyTaskPayload struct {
	SeekerID string `json:"seekerId"`
}

// FanoutTaskType and EscalateTaskType are the queue task names bound in the
// task package.
const (
	FanoutTaskType   = "match:fanout"
	EscalateTaskType = "match:escalate"
)

func (uc *NotifySeekerUseCase) Execute(ctx context.Context, in NotifySeekerInput) error {
	if in.SeekerID == "" {
		return fmt.Errorf("seeker_id is required")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Defensive state re-check: only notify for a live, unmatched request.
	seeker, err := uc.Repo.GetParticipant(ctx, in.SeekerID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !seeker.IsSeeking() {
		return nil
	}
	active, err := uc.Repo.GetActiveSessionBySeeker(ctx, in.SeekerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if active != nil {
		return nil
	}
	blocked, err := uc.Repo.IsGloballyBlocked(ctx, in.SeekerID, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if blocked {
		uc.Log.WithField("seeker_id", in.SeekerID).Infof("skipping notifications for blocked seeker")
		return nil
	}

	candidates, err := uc.Repo.ListListenerCandidates(ctx, in.SeekerID, now.Add(-uc.HeartbeatThreshold), now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(candidates) == 0 {
		uc.Log.WithField("seeker_id", in.SeekerID).Infof("no listener candidates for request")
		return nil
	}

	favoriteIDs, err := uc.Repo.ListFavoriteListenerIDs(ctx, in.SeekerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	favorites, others := partitionCandidates(candidates, favoriteIDs)

	switch in.Stage {
	case StageInitial:
		if len(favorites) > 0 {
			uc.send(ctx, favorites, in.SeekerID, NoticeSupportRequest, now)
			if len(others) > 0 {
				uc.schedule(ctx, FanoutTaskType, in.SeekerID, uc.FavoriteHeadStart)
			}
		} else {
			// No favorites to give a head start to; go wide immediately.
			uc.send(ctx, others, in.SeekerID, NoticeSupportRequest, now)
		}
		uc.schedule(ctx, EscalateTaskType, in.SeekerID, uc.EscalationDelay)
	case StageFanout:
		uc.send(ctx, others, in.SeekerID, NoticeSupportRequest, now)
	case StageEscalation:
		// A single re-notification of the whole candidate set; escalation
		// does not reschedule itself.
		uc.send(ctx, candidates, in.SeekerID, NoticeRequestReminder, now)
	default:
		return fmt.Errorf("unknown notify stage %q", in.Stage)
	}
	return nil
}

func partitionCandidates(candidates []support.Participant, favoriteIDs []string) (favorites, others []support.Participant) {
	favSet := make(map[string]struct{}, len(favoriteIDs))
	for _, id := range favoriteIDs {
		favSet[id] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := favSet[c.ID]; ok {
			favorites = append(favorites, c)
		} else {
			others = append(others, c)
		}
	}
	return favorites, others
}

func (uc *NotifySeekerUseCase) send(ctx context.Context, listeners []support.Participant, seekerID, noticeType string, now time.Time) {
	payload, err := json.Marshal(notice{Type: noticeType, SeekerID: seekerID, SentAt: now})
	if err != nil {
		return
	}
	for _, l := range listeners {
		deliver(ctx, uc.Transports, uc.Log, l.ID, payload)
	}
}

// schedule enqueues a deferred stage. A lost task degrades the flow (no
// fan-out or reminder) but must not fail the seeker's request, so enqueue
// failures are logged and swallowed.
func (uc *NotifySeekerUseCase) schedule(ctx context.Context, taskType, seekerID string, delay time.Duration) {
	payload, err := json.Marshal(notifyTaskPayload{SeekerID: seekerID})
	if err != nil {
		return
	}
	_, err = uc.Queue.Enqueue(ctx, qport.Task{Type: taskType, Payload: payload}, qport.EnqueueOption{
		Queue:     MatchQueue,
		ProcessIn: delay,
		MaxRetry:  2,
		UniqueTTL: delay,
	})
	if err != nil {
		uc.Log.WithFields(map[string]any{
			"seeker_id": seekerID,
			"task":      taskType,
		}).Errorf("failed to schedule deferred notification: %v", err)
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"time"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// Notice types pushed to participants. The payload carries the seeker
// reference so the landing flow can attempt a claim directly without extra
// lookups.
const (
	NoticeSupportRequest  = "support_request"
	NoticeRequestReminder = "support_request_reminder"
	NoticeInactivityWarn  = "inactivity_warning"
	NoticeSessionEnded    = "session_ended"
)

type notice struct {
	Type      string    `json:"type"`
	SeekerID  string    `json:"seeker_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// deliver sends payload to one participant, trying transports in order until
// one accepts. Delivery is fire-and-forget: failures are logged, never
// propagated, and never block delivery to other participants.
func deliver(ctx context.Context, transports []nport.Transport, log *logger.Logger, participantID string, payload []byte) {
	for _, t := range transports {
		if err := t.Send(ctx, participantID, payload); err != nil {
			log.WithFields(map[string]any{
				"participant_id": participantID,
				"transport":      t.Name(),
			}).Warnf("notification delivery failed: %v", err)
			continue
		}
		return
	}
	log.WithField("participant_id", participantID).Warnf("notification undeliverable on all transports")
}

// notifySessionParticipants pushes a session-scoped notice to both sides.
func notifySessionParticipants(ctx context.Context, transports []nport.Transport, log *logger.Logger, s support.SupportSession, noticeType string, reason support.EndReason, now time.Time) {
	payload, err := json.Marshal(notice{
		Type:      noticeType,
		SessionID: s.ID,
		Reason:    string(reason),
		SentAt:    now,
	})
	if err != nil {
		return
	}
	deliver(ctx, transports, log, s.ListenerID, payload)
	deliver(ctx, transports, log, s.SeekerID, payload)
}

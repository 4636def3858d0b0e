package adapter

import (
	"context"
	"fmt"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/realtime"
)

// WSNotifier pushes payloads over the participant's live websocket, when one
// is attached to this instance's realtime router.
type WSNotifier struct {
	router *realtime.Router
}

func NewWSNotifier(router *realtime.Router) *WSNotifier {
	return &WSNotifier{router: router}
}

var _ nport.Transport = (*WSNotifier)(nil)

func (n *WSNotifier) Name() string { return "websocket" }

func (n *WSNotifier) Send(ctx context.Context, participantID string, payload []byte) error {
	if n.router == nil {
		return fmt.Errorf("ws notifier: nil router")
	}
	if !n.router.NotifyParticipant(participantID, payload) {
		return fmt.Errorf("ws notifier: no socket for participant %s", participantID)
	}
	return nil
}

package port

import "context"

// Transport delivers an opaque notification payload to one participant.
// Delivery is best-effort: a returned error means this transport could not
// reach the participant, and the caller may try another transport or move on.
// Transports must never block on retries.
type Transport interface {
	// Name identifies the transport in logs.
	Name() string
	Send(ctx context.Context, participantID string, payload []byte) error
}

package realtime

import (
	"sync"
)

// Router tracks the active push socket of each participant. It keeps one
// connection per participant so match requests, lifecycle warnings and
// session-end notices reach whoever is currently connected.
type Router struct {
	mu           sync.RWMutex
	sockets      map[string]*Connection // socketID -> connection
	participants map[string]string      // participantID -> socketID
}

// NewRouter constructs an initialized Router.
func NewRouter() *Router {
	return &Router{
		sockets:      make(map[string]*Connection),
		participants: make(map[string]string),
	}
}

// Attach registers a connection for the given participant. If a previous
// socket exists, it is removed and closed after the swap to enforce one
// active socket per participant.
func (r *Router) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.participants[conn.ParticipantID]; ok {
		if existing := r.sockets[existingID]; existing != nil {
			previous = existing
			r.detachLocked(existingID)
		}
	}

	r.sockets[conn.ID] = conn
	r.participants[conn.ParticipantID] = conn.ID
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "socket replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// NotifyParticipant delivers payload to the current socket of the given
// participant. It reports whether delivery was accepted.
func (r *Router) NotifyParticipant(participantID string, payload []byte) bool {
	r.mu.RLock()
	socketID, ok := r.participants[participantID]
	if !ok {
		r.mu.RUnlock()
		return false
	}
	conn := r.sockets[socketID]
	r.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sockets := make([]*Connection, 0, len(r.sockets))
	for _, conn := range r.sockets {
		sockets = append(sockets, conn)
	}
	r.sockets = make(map[string]*Connection)
	r.participants = make(map[string]string)
	r.mu.Unlock()

	for _, conn := range sockets {
		conn.Close(1001, "router shutdown")
	}
}

func (r *Router) detachLocked(socketID string) {
	conn, ok := r.sockets[socketID]
	if !ok {
		return
	}
	delete(r.sockets, socketID)

	if current, ok := r.participants[conn.ParticipantID]; ok && current == socketID {
		delete(r.participants, conn.ParticipantID)
	}
}

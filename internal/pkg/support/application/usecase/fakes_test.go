package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

func testLogger() *logger.Logger { return logger.New("error") }

// fakeRepo is an in-memory SupportRepository. CreateSession enforces the same
// active-session uniqueness the database index does, under a mutex, so the
// claim race can be exercised with real goroutines.
type fakeRepo struct {
	mu           sync.Mutex
	participants map[string]*support.Participant
	sessions     map[string]*support.SupportSession
	favorites    map[string][]string
	blocks       map[string]*support.Block
	blockSeq     int

	failCreateSession      error
	failListCandidates     error
	failListActiveSessions error
	failEndSession         map[string]error
}

var _ repository.SupportRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		participants:   make(map[string]*support.Participant),
		sessions:       make(map[string]*support.SupportSession),
		favorites:      make(map[string][]string),
		blocks:         make(map[string]*support.Block),
		failEndSession: make(map[string]error),
	}
}

func (f *fakeRepo) addParticipant(p support.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.participants[p.ID] = &cp
}

func (f *fakeRepo) addSession(s support.SupportSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := s
	f.sessions[s.ID] = &cp
}

func (f *fakeRepo) session(id string) support.SupportSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sessions[id]
}

func (f *fakeRepo) participant(id string) support.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.participants[id]
}

func (f *fakeRepo) activeSessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.Status == support.SessionActive {
			n++
		}
	}
	return n
}

func (f *fakeRepo) GetParticipant(_ context.Context, id string) (*support.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, repository.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) SetIntentState(_ context.Context, id string, state support.IntentState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return repository.ErrParticipantNotFound
	}
	p.IntentState = state
	return nil
}

func (f *fakeRepo) SetAlwaysAvailable(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return repository.ErrParticipantNotFound
	}
	p.AlwaysAvailable = enabled
	return nil
}

func (f *fakeRepo) RecordHeartbeat(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return false, nil
	}
	if !p.AcceptsHeartbeat() {
		return false, nil
	}
	t := now
	p.LastHeartbeatAt = &t
	return true, nil
}

func (f *fakeRepo) ListListenerCandidates(_ context.Context, seekerID string, presentSince, now time.Time) ([]support.Participant, error) {
	if f.failListCandidates != nil {
		return nil, f.failListCandidates
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []support.Participant
	for _, p := range f.participants {
		if p.ID == seekerID {
			continue
		}
		if !p.AlwaysAvailable && p.IntentState != support.IntentAvailable {
			continue
		}
		if p.LastHeartbeatAt == nil || p.LastHeartbeatAt.Before(presentSince) {
			continue
		}
		if f.blockedLocked(p.ID, seekerID, now) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRepo) ListFavoriteListenerIDs(_ context.Context, seekerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.favorites[seekerID]...), nil
}

func (f *fakeRepo) CreateSession(_ context.Context, s support.SupportSession) error {
	if f.failCreateSession != nil {
		return f.failCreateSession
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.Status != support.SessionActive {
			continue
		}
		if existing.SeekerID == s.SeekerID {
			return repository.ErrActiveSessionExists
		}
		if existing.ListenerID == s.ListenerID && existing.SeekerID == s.SeekerID {
			return repository.ErrActiveSessionExists
		}
	}
	cp := s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, id string) (*support.SupportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) GetActiveSessionBySeeker(_ context.Context, seekerID string) (*support.SupportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == support.SessionActive && s.SeekerID == seekerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetActiveSessionByPair(_ context.Context, listenerID, seekerID string) (*support.SupportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == support.SessionActive && s.ListenerID == listenerID && s.SeekerID == seekerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListActiveSessions(_ context.Context) ([]support.SupportSession, error) {
	if f.failListActiveSessions != nil {
		return nil, f.failListActiveSessions
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []support.SupportSession
	for _, s := range f.sessions {
		if s.Status == support.SessionActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListActiveSessionsByParticipant(_ context.Context, participantID string) ([]support.SupportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []support.SupportSession
	for _, s := range f.sessions {
		if s.Status == support.SessionActive && s.Involves(participantID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) EndSession(_ context.Context, sessionID string, reason support.EndReason, now time.Time) (bool, error) {
	if err := f.failEndSession[sessionID]; err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != support.SessionActive {
		return false, nil
	}
	t := now
	s.Status = support.SessionEnded
	s.EndedAt = &t
	s.EndReason = &reason
	return true, nil
}

func (f *fakeRepo) MarkSessionWarned(_ context.Context, sessionID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != support.SessionActive {
		return false, nil
	}
	if s.WarnedAt != nil && (s.LastMessageAt == nil || s.WarnedAt.After(*s.LastMessageAt)) {
		return false, nil
	}
	t := now
	s.WarnedAt = &t
	return true, nil
}

func (f *fakeRepo) TouchSession(_ context.Context, sessionID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != support.SessionActive {
		return false, nil
	}
	t := now
	s.LastMessageAt = &t
	return true, nil
}

func (f *fakeRepo) IsGloballyBlocked(_ context.Context, participantID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.blocks {
		if b.SubjectID == participantID && b.IsGlobal() && b.InEffect(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasBlockBetween(_ context.Context, a, b string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockedLocked(a, b, now), nil
}

func (f *fakeRepo) blockedLocked(a, b string, now time.Time) bool {
	for _, blk := range f.blocks {
		if !blk.InEffect(now) {
			continue
		}
		if blk.IsGlobal() {
			if blk.SubjectID == a || blk.SubjectID == b {
				return true
			}
			continue
		}
		if (blk.SubjectID == a && *blk.TargetID == b) || (blk.SubjectID == b && *blk.TargetID == a) {
			return true
		}
	}
	return false
}

func (f *fakeRepo) CreateBlock(_ context.Context, b support.Block) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockSeq++
	id := fmt.Sprintf("block-%d", f.blockSeq)
	cp := b
	cp.ID = id
	f.blocks[id] = &cp
	return id, nil
}

func (f *fakeRepo) EndBlock(_ context.Context, blockID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blocks[blockID]
	if !ok || !b.IsActive {
		return false, nil
	}
	b.IsActive = false
	return true, nil
}

// fakeTransport records deliveries and optionally fails every send.
type fakeTransport struct {
	mu   sync.Mutex
	name string
	fail bool
	sent []fakeDelivery
}

type fakeDelivery struct {
	ParticipantID string
	Payload       []byte
}

func (t *fakeTransport) Name() string { return t.name }

func (t *fakeTransport) Send(_ context.Context, participantID string, payload []byte) error {
	if t.fail {
		return errors.New("transport down")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, fakeDelivery{ParticipantID: participantID, Payload: payload})
	return nil
}

func (t *fakeTransport) recipients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.sent))
	for _, d := range t.sent {
		out = append(out, d.ParticipantID)
	}
	return out
}

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	mu       sync.Mutex
	fail     error
	enqueued []fakeEnqueue
	seq      int
}

type fakeEnqueue struct {
	Task qport.Task
	Opt  qport.EnqueueOption
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	if q.fail != nil {
		return "", q.fail
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var opt qport.EnqueueOption
	if len(opts) > 0 {
		opt = opts[0]
	}
	q.enqueued = append(q.enqueued, fakeEnqueue{Task: t, Opt: opt})
	q.seq++
	return fmt.Sprintf("task-%d", q.seq), nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) taskTypes() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.enqueued))
	for _, e := range q.enqueued {
		out = append(out, e.Task.Type)
	}
	return out
}

// fakeLimiter returns a fixed verdict.
type fakeLimiter struct {
	allowed bool
	err     error
}

func (l *fakeLimiter) Allow(context.Context, string, time.Time) (bool, error) {
	return l.allowed, l.err
}

package adapter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
)

const uniqueViolation = "23505"

type PgSupportRepository struct {
	pool *pgxpool.Pool
}

func NewPgSupportRepository(pool *pgxpool.Pool) *PgSupportRepository {
	return &PgSupportRepository{pool: pool}
}

var _ repository.SupportRepository = (*PgSupportRepository)(nil)

func (r *PgSupportRepository) GetParticipant(ctx context.Context, id string) (*support.Participant, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	var p support.Participant
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, intent_state, always_available, last_heartbeat_at, created_at
		FROM participants
		WHERE id = $1::uuid
	`, id).Scan(&p.ID, &p.IntentState, &p.AlwaysAvailable, &p.LastHeartbeatAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrParticipantNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.GetParticipant.Scan")
	}
	return &p, nil
}

func (r *PgSupportRepository) SetIntentState(ctx context.Context, id string, state support.IntentState) error {
	if r == nil || r.pool == nil {
		return errors.New("PgSupportRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE participants SET intent_state = $2 WHERE id = $1::uuid
	`, id, string(state))
	if err != nil {
		return errors.Wrap(err, "supportRepo.SetIntentState.Exec")
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrParticipantNotFound
	}
	return nil
}

func (r *PgSupportRepository) SetAlwaysAvailable(ctx context.Context, id string, enabled bool) error {
	if r == nil || r.pool == nil {
		return errors.New("PgSupportRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE participants SET always_available = $2 WHERE id = $1::uuid
	`, id, enabled)
	if err != nil {
		return errors.Wrap(err, "supportRepo.SetAlwaysAvailable.Exec")
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrParticipantNotFound
	}
	return nil
}

func (r *PgSupportRepository) RecordHeartbeat(ctx context.Context, id string, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	// Conditional on matching posture so a stale client cannot resurrect
	// presence after leaving the pool.
	ct, err := r.pool.Exec(ctx, `
		UPDATE participants
		SET last_heartbeat_at = $2
		WHERE id = $1::uuid
		  AND (always_available OR intent_state IN ('available', 'requesting'))
	`, id, now)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.RecordHeartbeat.Exec")
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgSupportRepository) ListListenerCandidates(ctx context.Context, seekerID string, presentSince time.Time, now time.Time) ([]support.Participant, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT p.id::text, p.intent_state, p.always_available, p.last_heartbeat_at, p.created_at
		FROM participants p
		WHERE p.id <> $1::uuid
		  AND (p.always_available OR p.intent_state = 'available')
		  AND p.last_heartbeat_at IS NOT NULL
		  AND p.last_heartbeat_at >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE b.is_active
			  AND (b.expires_at IS NULL OR b.expires_at > $3)
			  AND (
				(b.subject_id = p.id AND (b.target_id IS NULL OR b.target_id = $1::uuid))
				OR (b.subject_id = $1::uuid AND b.target_id = p.id)
			  )
		  )
		ORDER BY p.last_heartbeat_at DESC
	`, seekerID, presentSince, now)
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.ListListenerCandidates.Query")
	}
	defer rows.Close()

	var out []support.Participant
	for rows.Next() {
		var p support.Participant
		if err := rows.Scan(&p.ID, &p.IntentState, &p.AlwaysAvailable, &p.LastHeartbeatAt, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "supportRepo.ListListenerCandidates.Scan")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "supportRepo.ListListenerCandidates.Rows")
	}
	return out, nil
}

func (r *PgSupportRepository) ListFavoriteListenerIDs(ctx context.Context, seekerID string) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT listener_id::text FROM favorites WHERE seeker_id = $1::uuid
	`, seekerID)
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.ListFavoriteListenerIDs.Query")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "supportRepo.ListFavoriteListenerIDs.Scan")
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "supportRepo.ListFavoriteListenerIDs.Rows")
	}
	return ids, nil
}

func (r *PgSupportRepository) CreateSession(ctx context.Context, s support.SupportSession) error {
	if r == nil || r.pool == nil {
		return errors.New("PgSupportRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO support_sessions (id, listener_id, seeker_id, status, created_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5)
	`, s.ID, s.ListenerID, s.SeekerID, string(s.Status), s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// The partial unique indexes on active sessions are the sole
			// serialization point for claims; a violation means a competing
			// claim committed first.
			return repository.ErrActiveSessionExists
		}
		return errors.Wrap(err, "supportRepo.CreateSession.Exec")
	}
	return nil
}

const sessionColumns = `
	id::text, listener_id::text, seeker_id::text, status,
	created_at, ended_at, last_message_at, warned_at, end_reason
`

func scanSession(row pgx.Row) (*support.SupportSession, error) {
	var (
		s      support.SupportSession
		status string
		reason *string
	)
	err := row.Scan(&s.ID, &s.ListenerID, &s.SeekerID, &status,
		&s.CreatedAt, &s.EndedAt, &s.LastMessageAt, &s.WarnedAt, &reason)
	if err != nil {
		return nil, err
	}
	s.Status = support.SessionStatus(status)
	if reason != nil {
		er := support.EndReason(*reason)
		s.EndReason = &er
	}
	return &s, nil
}

func (r *PgSupportRepository) GetSession(ctx context.Context, id string) (*support.SupportSession, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM support_sessions WHERE id = $1::uuid
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.GetSession.Scan")
	}
	return s, nil
}

func (r *PgSupportRepository) GetActiveSessionBySeeker(ctx context.Context, seekerID string) (*support.SupportSession, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM support_sessions
		WHERE seeker_id = $1::uuid AND status = 'active'
	`, seekerID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.GetActiveSessionBySeeker.Scan")
	}
	return s, nil
}

func (r *PgSupportRepository) GetActiveSessionByPair(ctx context.Context, listenerID, seekerID string) (*support.SupportSession, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM support_sessions
		WHERE listener_id = $1::uuid AND seeker_id = $2::uuid AND status = 'active'
	`, listenerID, seekerID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.GetActiveSessionByPair.Scan")
	}
	return s, nil
}

func (r *PgSupportRepository) ListActiveSessions(ctx context.Context) ([]support.SupportSession, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	return r.listSessions(ctx, `
		SELECT `+sessionColumns+`
		FROM support_sessions
		WHERE status = 'active'
		ORDER BY created_at
	`)
}

func (r *PgSupportRepository) ListActiveSessionsByParticipant(ctx context.Context, participantID string) ([]support.SupportSession, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgSupportRepository: nil pool")
	}
	return r.listSessions(ctx, `
		SELECT `+sessionColumns+`
		FROM support_sessions
		WHERE status = 'active'
		  AND (listener_id = $1::uuid OR seeker_id = $1::uuid)
		ORDER BY created_at
	`, participantID)
}

func (r *PgSupportRepository) listSessions(ctx context.Context, query string, args ...any) ([]support.SupportSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "supportRepo.listSessions.Query")
	}
	defer rows.Close()

	var out []support.SupportSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "supportRepo.listSessions.Scan")
		}
		out = append(out, *s)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "supportRepo.listSessions.Rows")
	}
	return out, nil
}

func (r *PgSupportRepository) EndSession(ctx context.Context, sessionID string, reason support.EndReason, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	// Guarded on status so concurrent sweeps and forced ends stay idempotent.
	ct, err := r.pool.Exec(ctx, `
		UPDATE support_sessions
		SET status = 'ended', ended_at = $2, end_reason = $3
		WHERE id = $1::uuid AND status = 'active'
	`, sessionID, now, string(reason))
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.EndSession.Exec")
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgSupportRepository) MarkSessionWarned(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE support_sessions
		SET warned_at = $2
		WHERE id = $1::uuid
		  AND status = 'active'
		  AND (warned_at IS NULL OR (last_message_at IS NOT NULL AND warned_at <= last_message_at))
	`, sessionID, now)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.MarkSessionWarned.Exec")
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgSupportRepository) TouchSession(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE support_sessions
		SET last_message_at = $2
		WHERE id = $1::uuid AND status = 'active'
	`, sessionID, now)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.TouchSession.Exec")
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgSupportRepository) IsGloballyBlocked(ctx context.Context, participantID string, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE subject_id = $1::uuid
			  AND target_id IS NULL
			  AND is_active
			  AND (expires_at IS NULL OR expires_at > $2)
		)
	`, participantID, now).Scan(&blocked)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.IsGloballyBlocked.Scan")
	}
	return blocked, nil
}

func (r *PgSupportRepository) HasBlockBetween(ctx context.Context, a, b string, now time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE is_active
			  AND (expires_at IS NULL OR expires_at > $3)
			  AND (
				(subject_id = $1::uuid AND target_id = $2::uuid)
				OR (subject_id = $2::uuid AND target_id = $1::uuid)
			  )
		)
	`, a, b, now).Scan(&blocked)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.HasBlockBetween.Scan")
	}
	return blocked, nil
}

func (r *PgSupportRepository) CreateBlock(ctx context.Context, b support.Block) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgSupportRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO blocks (subject_id, target_id, is_active, created_at, expires_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		RETURNING id::text
	`, b.SubjectID, b.TargetID, b.IsActive, b.CreatedAt, b.ExpiresAt).Scan(&id)
	if err != nil {
		return "", errors.Wrap(err, "supportRepo.CreateBlock.Scan")
	}
	return id, nil
}

func (r *PgSupportRepository) EndBlock(ctx context.Context, blockID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgSupportRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE blocks SET is_active = false WHERE id = $1::uuid AND is_active
	`, blockID)
	if err != nil {
		return false, errors.Wrap(err, "supportRepo.EndBlock.Exec")
	}
	return ct.RowsAffected() > 0, nil
}

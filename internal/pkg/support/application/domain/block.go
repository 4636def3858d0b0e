package support

import "time"

// Block is a moderation record. A nil TargetID means the subject is blocked
// globally; otherwise the block applies only between subject and target.
type Block struct {
	ID        string     `db:"id"`
	SubjectID string     `db:"subject_id"`
	TargetID  *string    `db:"target_id"`
	IsActive  bool       `db:"is_active"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// InEffect reports whether the block currently applies.
func (b Block) InEffect(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// IsGlobal reports whether the block excludes the subject from all matching.
func (b Block) IsGlobal() bool {
	return b.TargetID == nil
}

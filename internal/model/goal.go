package model

import (
	"time"
)

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
)

type Goal struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Description string    `db:"description"`
	Deadline    time.Time `db:"deadline"`
	LockImage   *string   `db:"lock_image"` // Sealed data URI, set at most once
	Status      string    `db:"status"`

	CompletedAt        *time.Time `db:"completed_at"`
	ArchivedAt         *time.Time `db:"archived_at"`
	DeadlineNotifiedAt *time.Time `db:"deadline_notified_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (g *Goal) HasLock() bool {
	return g.LockImage != nil && *g.LockImage != ""
}

func (g *Goal) IsCompleted() bool {
	return g.Status == GoalStatusCompleted
}

// Clone returns a copy that does not share pointer fields with g.
func (g *Goal) Clone() *Goal {
	if g == nil {
		return nil
	}
	c := *g
	c.LockImage = clonePtr(g.LockImage)
	c.CompletedAt = clonePtr(g.CompletedAt)
	c.ArchivedAt = clonePtr(g.ArchivedAt)
	c.DeadlineNotifiedAt = clonePtr(g.DeadlineNotifiedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package model

import (
	"time"
)

// VisionKey is a user-supplied vision API key, stored sealed.
type VisionKey struct {
	UserID     string    `db:"user_id"`
	SealedKey  string    `db:"sealed_key"`
	Hint       string    `db:"hint"` // Last four characters, for display
	VerifiedAt time.Time `db:"verified_at"`
	CreatedAt  time.Time `db:"created_at"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/codekeeper/internal/model"
)

var (
	ErrVisionKeyNotFound = errors.New("vision key not found")
)

// VisionKeyRepository stores at most one sealed vision API key per user.
type VisionKeyRepository interface {
	Save(ctx context.Context, key *model.VisionKey) error
	ByUserID(ctx context.Context, userID string) (*model.VisionKey, error)
	Delete(ctx context.Context, userID string) error
}

type visionKeyRepository struct {
	db *sqlx.DB
}

func NewVisionKeyRepository(db *sqlx.DB) VisionKeyRepository {
	return &visionKeyRepository{db: db}
}

// Save inserts or replaces the user's key.
func (r *visionKeyRepository) Save(ctx context.Context, key *model.VisionKey) error {
	query := `INSERT INTO vision_keys (user_id, sealed_key, hint, verified_at, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id) DO UPDATE
	          SET sealed_key = excluded.sealed_key, hint = excluded.hint, verified_at = excluded.verified_at`

	_, err := r.db.ExecContext(ctx, query, key.UserID, key.SealedKey, key.Hint, key.VerifiedAt, key.CreatedAt)
	return err
}

func (r *visionKeyRepository) ByUserID(ctx context.Context, userID string) (*model.VisionKey, error) {
	key := &model.VisionKey{}
	query := `SELECT * FROM vision_keys WHERE user_id = $1`

	err := r.db.GetContext(ctx, key, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVisionKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	return key, nil
}

func (r *visionKeyRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM vision_keys WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrVisionKeyNotFound
	}

	return nil
}

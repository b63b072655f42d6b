package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/codekeeper/internal/model"
)

var (
	ErrGoalNotFound     = errors.New("goal not found")
	ErrLockAlreadySet   = errors.New("goal lock image already set")
	ErrGoalNotActive    = errors.New("goal is not active")
	ErrGoalNotCompleted = errors.New("goal is not completed")
)

// GoalRepository stores goals. Every user-facing method is scoped by user ID,
// so one user can never read or change another's goal.
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	ByID(ctx context.Context, userID, goalID string) (*model.Goal, error)
	Active(ctx context.Context, userID string) (*model.Goal, error)
	Unarchived(ctx context.Context, userID string) (*model.Goal, error)
	AttachLock(ctx context.Context, userID, goalID, lockImage string) error
	Complete(ctx context.Context, userID, goalID string, at time.Time) error
	Archive(ctx context.Context, userID, goalID string, at time.Time) error
	Goals(ctx context.Context, userID string) ([]*model.Goal, error)
	PendingDeadlineNotices(ctx context.Context, now time.Time) ([]*model.Goal, error)
	MarkDeadlineNotified(ctx context.Context, goalID string, at time.Time) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, description, deadline, lock_image, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Description,
		goal.Deadline.UTC(),
		goal.LockImage,
		goal.Status,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// Active returns the user's first active goal. Several active rows can exist
// after a concurrent double submit; the oldest wins.
func (r *goalRepository) Active(ctx context.Context, userID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE user_id = $1 AND status = $2 ORDER BY created_at ASC, id ASC LIMIT 1`

	err := r.db.GetContext(ctx, goal, query, userID, model.GoalStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// Unarchived returns the newest completed goal the user has not reset yet.
func (r *goalRepository) Unarchived(ctx context.Context, userID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE user_id = $1 AND status = $2 AND archived_at IS NULL ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, goal, query, userID, model.GoalStatusCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (r *goalRepository) AttachLock(ctx context.Context, userID, goalID, lockImage string) error {
	query := `UPDATE goals SET lock_image = $1, updated_at = $2
	          WHERE id = $3 AND user_id = $4 AND status = $5 AND lock_image IS NULL`

	result, err := r.db.ExecContext(ctx, query, lockImage, time.Now(), goalID, userID, model.GoalStatusActive)
	if err != nil {
		return err
	}

	return r.explainNoRows(ctx, result, userID, goalID, ErrLockAlreadySet)
}

// Complete flips active to completed. It only applies to goals with a lock.
func (r *goalRepository) Complete(ctx context.Context, userID, goalID string, at time.Time) error {
	query := `UPDATE goals SET status = $1, completed_at = $2, updated_at = $3
	          WHERE id = $4 AND user_id = $5 AND status = $6 AND lock_image IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, model.GoalStatusCompleted, at, at, goalID, userID, model.GoalStatusActive)
	if err != nil {
		return err
	}

	return r.explainNoRows(ctx, result, userID, goalID, ErrGoalNotActive)
}

func (r *goalRepository) Archive(ctx context.Context, userID, goalID string, at time.Time) error {
	query := `UPDATE goals SET archived_at = $1, updated_at = $2
	          WHERE id = $3 AND user_id = $4 AND status = $5 AND archived_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, at, at, goalID, userID, model.GoalStatusCompleted)
	if err != nil {
		return err
	}

	return r.explainNoRows(ctx, result, userID, goalID, ErrGoalNotCompleted)
}

func (r *goalRepository) Goals(ctx context.Context, userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// PendingDeadlineNotices returns active goals whose deadline passed and
// whose owner has not been told yet. Only the columns a notice needs are read.
func (r *goalRepository) PendingDeadlineNotices(ctx context.Context, now time.Time) ([]*model.Goal, error) {
	var due []*model.Goal
	// Deadlines are written in UTC, so the comparison also holds for sqlite's text timestamps.
	query := `SELECT id, user_id, description, deadline FROM goals
	          WHERE status = $1 AND deadline_notified_at IS NULL AND deadline <= $2
	          ORDER BY deadline ASC`

	err := r.db.SelectContext(ctx, &due, query, model.GoalStatusActive, now.UTC())
	if err != nil {
		return nil, err
	}

	return due, nil
}

func (r *goalRepository) MarkDeadlineNotified(ctx context.Context, goalID string, at time.Time) error {
	query := `UPDATE goals SET deadline_notified_at = $1 WHERE id = $2 AND deadline_notified_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, at, goalID)
	return err
}

// explainNoRows maps a zero-row conditional update to ErrGoalNotFound or conflict.
func (r *goalRepository) explainNoRows(ctx context.Context, result sql.Result, userID, goalID string, conflict error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	_, err = r.ByID(ctx, userID, goalID)
	if err != nil {
		return err
	}
	return conflict
}

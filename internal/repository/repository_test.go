package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	conn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	database, err := db.Init(ctx, "sqlite", conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"))
	return database
}

func createUser(t *testing.T, repo UserRepository, email string) *model.User {
	t.Helper()
	user := &model.User{ID: uuid.New().String(), Email: email, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func newGoal(userID, description string, createdAt time.Time) *model.Goal {
	return &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Description: description,
		Deadline:    createdAt.Add(24 * time.Hour),
		Status:      model.GoalStatusActive,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := createUser(t, repo, "ada@example.com")

	got, err := repo.ByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.False(t, got.HasPassword())

	got, err = repo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	err = repo.Create(ctx, &model.User{ID: uuid.New().String(), Email: "ada@example.com", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = repo.ByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGoalRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := NewUserRepository(database)
	goals := NewGoalRepository(database)
	user := createUser(t, users, "grace@example.com")

	_, err := goals.Active(ctx, user.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	now := time.Now()
	goal := newGoal(user.ID, "ship the compiler", now)
	require.NoError(t, goals.Create(ctx, goal))

	active, err := goals.Active(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, active.ID)
	assert.Equal(t, "ship the compiler", active.Description)
	assert.WithinDuration(t, goal.Deadline, active.Deadline, time.Millisecond)
	assert.False(t, active.HasLock())

	// Completing requires a lock.
	err = goals.Complete(ctx, user.ID, goal.ID, now)
	assert.ErrorIs(t, err, ErrGoalNotActive)

	require.NoError(t, goals.AttachLock(ctx, user.ID, goal.ID, "sealed-lock"))
	err = goals.AttachLock(ctx, user.ID, goal.ID, "other-lock")
	assert.ErrorIs(t, err, ErrLockAlreadySet)

	active, err = goals.Active(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, active.HasLock())
	assert.Equal(t, "sealed-lock", *active.LockImage)

	// Archive only applies to completed goals.
	err = goals.Archive(ctx, user.ID, goal.ID, now)
	assert.ErrorIs(t, err, ErrGoalNotCompleted)

	require.NoError(t, goals.Complete(ctx, user.ID, goal.ID, now))
	err = goals.Complete(ctx, user.ID, goal.ID, now)
	assert.ErrorIs(t, err, ErrGoalNotActive)

	_, err = goals.Active(ctx, user.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	unarchived, err := goals.Unarchived(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, unarchived.ID)

	require.NoError(t, goals.Archive(ctx, user.ID, goal.ID, now))

	_, err = goals.Unarchived(ctx, user.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	stored, err := goals.ByID(ctx, user.ID, goal.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	assert.NotNil(t, stored.CompletedAt)
	assert.NotNil(t, stored.ArchivedAt)
}

func TestGoalRepository_ScopedToOwner(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := NewUserRepository(database)
	goals := NewGoalRepository(database)
	owner := createUser(t, users, "owner@example.com")
	other := createUser(t, users, "other@example.com")

	goal := newGoal(owner.ID, "learn go", time.Now())
	require.NoError(t, goals.Create(ctx, goal))

	_, err := goals.ByID(ctx, other.ID, goal.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	err = goals.AttachLock(ctx, other.ID, goal.ID, "lock")
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestGoalRepository_ActiveReturnsOldestOfDuplicates(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := NewUserRepository(database)
	goals := NewGoalRepository(database)
	user := createUser(t, users, "race@example.com")

	base := time.Now()
	first := newGoal(user.ID, "first", base)
	second := newGoal(user.ID, "second", base.Add(time.Second))
	require.NoError(t, goals.Create(ctx, second))
	require.NoError(t, goals.Create(ctx, first))

	active, err := goals.Active(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	all, err := goals.Goals(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestGoalRepository_DeadlineNotices(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := NewUserRepository(database)
	goals := NewGoalRepository(database)
	user := createUser(t, users, "late@example.com")

	now := time.Now()
	expired := newGoal(user.ID, "expired", now.Add(-48*time.Hour))
	future := newGoal(user.ID, "future", now)
	require.NoError(t, goals.Create(ctx, expired))
	require.NoError(t, goals.Create(ctx, future))

	due, err := goals.PendingDeadlineNotices(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, expired.ID, due[0].ID)

	require.NoError(t, goals.MarkDeadlineNotified(ctx, expired.ID, now))

	due, err = goals.PendingDeadlineNotices(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestGoalRepository_DeadlineNoticesCompareInUTC(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := NewUserRepository(database)
	goals := NewGoalRepository(database)
	user := createUser(t, users, "zones@example.com")

	east := time.FixedZone("UTC+14", 14*60*60)
	west := time.FixedZone("UTC-10", -10*60*60)
	now := time.Now().Truncate(time.Second)

	// Local wall clocks would sort these the wrong way round.
	future := newGoal(user.ID, "future", now)
	future.Deadline = now.Add(time.Hour).In(west)
	past := newGoal(user.ID, "past", now)
	past.Deadline = now.Add(-time.Hour).In(east)
	lock := "data:image/png;base64,AAAA"
	past.LockImage = &lock
	require.NoError(t, goals.Create(ctx, future))
	require.NoError(t, goals.Create(ctx, past))

	due, err := goals.PendingDeadlineNotices(ctx, now.In(east))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)
	assert.Equal(t, "past", due[0].Description)
	assert.True(t, past.Deadline.Equal(due[0].Deadline))
	assert.Nil(t, due[0].LockImage)
}

func TestFileRepository(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := createUser(t, NewUserRepository(database), "files@example.com")
	files := NewFileRepository(database)

	file := &model.File{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		OwnerType:    model.OwnerTypeGoal,
		OwnerID:      "goal-1",
		Type:         model.FileTypeProof,
		Filename:     "a.jpg",
		OriginalName: "proof.jpg",
		MimeType:     "image/jpeg",
		Size:         42,
		StoragePath:  "private/proofs/a.jpg",
		Verified:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, files.Create(ctx, file))

	list, err := files.Files(ctx, model.OwnerTypeGoal, "goal-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Verified)
	assert.Equal(t, int64(42), list[0].Size)

	require.NoError(t, files.Delete(ctx, file.ID))
	_, err = files.ByID(ctx, file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestVisionKeyRepository(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := createUser(t, NewUserRepository(database), "keys@example.com")
	keys := NewVisionKeyRepository(database)

	_, err := keys.ByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrVisionKeyNotFound)

	now := time.Now()
	require.NoError(t, keys.Save(ctx, &model.VisionKey{UserID: user.ID, SealedKey: "one", Hint: "1111", VerifiedAt: now, CreatedAt: now}))
	require.NoError(t, keys.Save(ctx, &model.VisionKey{UserID: user.ID, SealedKey: "two", Hint: "2222", VerifiedAt: now, CreatedAt: now}))

	key, err := keys.ByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", key.SealedKey)
	assert.Equal(t, "2222", key.Hint)

	require.NoError(t, keys.Delete(ctx, user.ID))
	assert.ErrorIs(t, keys.Delete(ctx, user.ID), ErrVisionKeyNotFound)
}

package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/service"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestNotifyDeadlines_LogsSentCountOnce(t *testing.T) {
	ctx := context.Background()

	conn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	database, err := db.Init(ctx, "sqlite", conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"))

	users := repository.NewUserRepository(database)
	goals := repository.NewGoalRepository(database)

	now := time.Now()
	user := &model.User{ID: uuid.New().String(), Email: "late@example.com", CreatedAt: now}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, goals.Create(ctx, &model.Goal{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "ship it",
		Deadline:    now.Add(-time.Minute),
		Status:      model.GoalStatusActive,
		CreatedAt:   now.Add(-time.Hour),
		UpdatedAt:   now.Add(-time.Hour),
	}))

	email := service.NewEmailService("", "noreply@example.com", "http://localhost:8090", "Codekeeper", true)
	a := &App{DeadlineNotifier: service.NewDeadlineNotifier(goals, users, email)}

	logs := captureLogs(t)
	require.NoError(t, a.notifyDeadlines(ctx))

	assert.Equal(t, 1, strings.Count(logs.String(), "deadline notices sent"))
}

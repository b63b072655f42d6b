package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/codekeeper/internal/repository"
)

// DeadlineNotifier emails owners once when an active goal's deadline passes.
type DeadlineNotifier struct {
	goals repository.GoalRepository
	users repository.UserRepository
	email *EmailService
	now   func() time.Time
}

func NewDeadlineNotifier(goals repository.GoalRepository, users repository.UserRepository, email *EmailService) *DeadlineNotifier {
	return &DeadlineNotifier{
		goals: goals,
		users: users,
		email: email,
		now:   time.Now,
	}
}

// RunOnce sends every pending notice and returns how many went out. A failed
// send is left pending for the next run.
func (n *DeadlineNotifier) RunOnce(ctx context.Context) (int, error) {
	now := n.now()

	due, err := n.goals.PendingDeadlineNotices(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired goals: %w", err)
	}

	sent := 0
	for _, goal := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		user, err := n.users.ByID(ctx, goal.UserID)
		if err != nil {
			slog.Error("failed to load goal owner", "error", err, "user_id", goal.UserID, "goal_id", goal.ID)
			continue
		}

		err = n.email.SendDeadlinePassed(ctx, user.Email, goal.Description, goal.Deadline)
		if err != nil {
			slog.Error("failed to send deadline email", "error", err, "user_id", goal.UserID, "goal_id", goal.ID)
			continue
		}

		err = n.goals.MarkDeadlineNotified(ctx, goal.ID, now)
		if err != nil {
			slog.Error("failed to mark deadline notified", "error", err, "goal_id", goal.ID)
			continue
		}
		sent++
	}

	if sent > 0 {
		slog.Info("deadline notices sent", "count", sent)
	}
	return sent, nil
}

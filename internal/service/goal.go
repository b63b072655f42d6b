package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/templui/codekeeper/internal/crypto"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
)

// GoalService is the goal store behind the lifecycle controller. Lock images
// are sealed before they reach the database and opened on the way out.
type GoalService struct {
	repo   repository.GoalRepository
	files  *FileService
	sealer *crypto.Sealer
}

func NewGoalService(repo repository.GoalRepository, files *FileService, sealer *crypto.Sealer) *GoalService {
	return &GoalService{
		repo:   repo,
		files:  files,
		sealer: sealer,
	}
}

func (s *GoalService) Create(ctx context.Context, goal *model.Goal) error {
	stored := goal.Clone()
	stored.LockImage = nil

	err := s.repo.Create(ctx, stored)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// Active returns the user's active or not yet archived completed goal, or nil.
func (s *GoalService) Active(ctx context.Context, userID string) (*model.Goal, error) {
	goal, err := s.repo.Active(ctx, userID)
	if errors.Is(err, repository.ErrGoalNotFound) {
		goal, err = s.repo.Unarchived(ctx, userID)
	}
	if errors.Is(err, repository.ErrGoalNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active goal: %w", err)
	}

	err = s.openLock(goal)
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) AttachLock(ctx context.Context, goal *model.Goal, lockImage string) error {
	sealed, err := s.sealer.Seal(lockImage)
	if err != nil {
		return fmt.Errorf("failed to seal lock image: %w", err)
	}

	err = s.repo.AttachLock(ctx, goal.UserID, goal.ID, sealed)
	if err != nil {
		return fmt.Errorf("failed to attach lock image: %w", err)
	}
	return nil
}

func (s *GoalService) Complete(ctx context.Context, goal *model.Goal, at time.Time) error {
	err := s.repo.Complete(ctx, goal.UserID, goal.ID, at)
	if err != nil {
		return fmt.Errorf("failed to complete goal: %w", err)
	}
	return nil
}

func (s *GoalService) Archive(ctx context.Context, goal *model.Goal, at time.Time) error {
	err := s.repo.Archive(ctx, goal.UserID, goal.ID, at)
	if err != nil {
		return fmt.Errorf("failed to archive goal: %w", err)
	}
	return nil
}

// HistoryEntry is one past or current goal with the proofs submitted for it.
type HistoryEntry struct {
	Goal   *model.Goal
	Proofs []*model.File
}

// History lists the user's goals, newest first. Lock images are only revealed
// for completed goals.
func (s *GoalService) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	goals, err := s.repo.Goals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(goals))
	for _, goal := range goals {
		if goal.IsCompleted() {
			err = s.openLock(goal)
			if err != nil {
				return nil, err
			}
		} else {
			goal.LockImage = nil
		}

		var proofs []*model.File
		if s.files != nil {
			proofs, err = s.files.ProofFiles(ctx, goal.ID)
			if err != nil {
				return nil, err
			}
		}

		entries = append(entries, HistoryEntry{Goal: goal, Proofs: proofs})
	}

	return entries, nil
}

func (s *GoalService) openLock(goal *model.Goal) error {
	if !goal.HasLock() {
		return nil
	}

	opened, err := s.sealer.Open(*goal.LockImage)
	if err != nil {
		return fmt.Errorf("failed to open lock image for goal %s: %w", goal.ID, err)
	}
	goal.LockImage = &opened
	return nil
}

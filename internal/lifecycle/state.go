// Package lifecycle sequences a user's goal from creation to unlock.
//
// The stage is derived from three facts: whether a user is signed in, whether
// they have an active goal, and whether that goal has a lock image. Next is the
// single transition function; Controller wraps it with persistence and
// verification for one user, and Manager keeps one Controller per user.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/templui/codekeeper/internal/model"
)

// Stage is the screen a user is on.
type Stage int

const (
	Unauthenticated Stage = iota
	AwaitingGoal
	AwaitingLock
	Tracking
	Unlocked
)

func (s Stage) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingGoal:
		return "awaiting_goal"
	case AwaitingLock:
		return "awaiting_lock"
	case Tracking:
		return "tracking"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrInvalidTransition is returned by Next for an event the stage does not accept.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// State is what the controller knows locally. Goal is nil exactly when
// the stage is Unauthenticated or AwaitingGoal.
type State struct {
	Stage  Stage
	UserID string
	Goal   *model.Goal
}

// Event is anything that can move a State.
type Event interface {
	event() string
}

// SignedIn carries the result of the one active-goal fetch made at sign-in.
type SignedIn struct {
	UserID string
	Goal   *model.Goal
}

type SignedOut struct{}

// GoalCreated carries the freshly stored goal, lock not yet attached.
type GoalCreated struct {
	Goal *model.Goal
}

type LockAttached struct {
	LockImage string
}

type ProofAccepted struct {
	At time.Time
}

type ProofRejected struct{}

// DeadlinePassed is informational. The stage stays Tracking.
type DeadlinePassed struct{}

// Archived returns an unlocked user to goal setup.
type Archived struct{}

func (SignedIn) event() string       { return "signed_in" }
func (SignedOut) event() string      { return "signed_out" }
func (GoalCreated) event() string    { return "goal_created" }
func (LockAttached) event() string   { return "lock_attached" }
func (ProofAccepted) event() string  { return "proof_accepted" }
func (ProofRejected) event() string  { return "proof_rejected" }
func (DeadlinePassed) event() string { return "deadline_passed" }
func (Archived) event() string       { return "archived" }

// Next applies e to s. It never mutates s.Goal; any goal in the result is a copy.
func Next(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case SignedOut:
		return State{Stage: Unauthenticated}, nil

	case SignedIn:
		if s.Stage != Unauthenticated || ev.UserID == "" {
			break
		}
		return State{Stage: stageFor(ev.Goal), UserID: ev.UserID, Goal: ev.Goal.Clone()}, nil

	case GoalCreated:
		if s.Stage != AwaitingGoal || ev.Goal == nil {
			break
		}
		return State{Stage: AwaitingLock, UserID: s.UserID, Goal: ev.Goal.Clone()}, nil

	case LockAttached:
		if s.Stage != AwaitingLock || ev.LockImage == "" {
			break
		}
		goal := s.Goal.Clone()
		lock := ev.LockImage
		goal.LockImage = &lock
		return State{Stage: Tracking, UserID: s.UserID, Goal: goal}, nil

	case ProofAccepted:
		if s.Stage != Tracking {
			break
		}
		goal := s.Goal.Clone()
		at := ev.At
		goal.Status = model.GoalStatusCompleted
		goal.CompletedAt = &at
		goal.UpdatedAt = at
		return State{Stage: Unlocked, UserID: s.UserID, Goal: goal}, nil

	case ProofRejected, DeadlinePassed:
		if s.Stage != Tracking {
			break
		}
		return s, nil

	case Archived:
		if s.Stage != Unlocked {
			break
		}
		return State{Stage: AwaitingGoal, UserID: s.UserID}, nil
	}

	if e == nil {
		return s, fmt.Errorf("%w: nil event in %s", ErrInvalidTransition, s.Stage)
	}
	return s, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e.event(), s.Stage)
}

// stageFor maps a fetched goal record to the screen the user resumes on.
func stageFor(goal *model.Goal) Stage {
	switch {
	case goal == nil:
		return AwaitingGoal
	case goal.IsCompleted():
		return Unlocked
	case !goal.HasLock():
		return AwaitingLock
	default:
		return Tracking
	}
}

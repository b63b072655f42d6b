package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/codekeeper/internal/countdown"
	"github.com/templui/codekeeper/internal/imagecodec"
	"github.com/templui/codekeeper/internal/model"
)

var (
	ErrDescriptionRequired    = errors.New("goal description is required")
	ErrDeadlineRequired       = errors.New("deadline is required")
	ErrDeadlineNotFuture      = errors.New("the deadline must be in the future")
	ErrNotAnImage             = errors.New("please select an image file")
	ErrDeadlinePassed         = errors.New("the deadline has passed")
	ErrVerificationInProgress = errors.New("a verification is already in progress")
	ErrStaleVerification      = errors.New("goal changed while verifying")
	ErrStore                  = errors.New("goal store failure")
)

// GoalStore persists goal records. Active returns nil, nil when the user has none.
type GoalStore interface {
	Create(ctx context.Context, goal *model.Goal) error
	Active(ctx context.Context, userID string) (*model.Goal, error)
	AttachLock(ctx context.Context, goal *model.Goal, lockImage string) error
	Complete(ctx context.Context, goal *model.Goal, at time.Time) error
	Archive(ctx context.Context, goal *model.Goal, at time.Time) error
}

// Verifier judges a proof photo. Every failure is a false verdict.
type Verifier interface {
	Verify(ctx context.Context, goal *model.Goal, proofDataURI string) bool
}

// Policy holds deployment choices that change lifecycle rules.
type Policy struct {
	// AllowLateProof keeps proof submission open after the deadline.
	AllowLateProof bool
}

type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one user's lifecycle state. Events are serialized by mu;
// the verification call runs without it.
type Controller struct {
	mu        sync.Mutex
	state     State
	verifying bool
	lastUsed  time.Time

	store    GoalStore
	verifier Verifier
	policy   Policy
	now      func() time.Time
}

func NewController(store GoalStore, verifier Verifier, policy Policy, opts ...Option) *Controller {
	c := &Controller{
		state:    State{Stage: Unauthenticated},
		store:    store,
		verifier: verifier,
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastUsed = c.now()
	return c
}

// State returns a snapshot safe to hand to templates.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Goal = s.Goal.Clone()
	return s
}

// OnAuthChanged reacts to a session change. An empty userID signs out.
// Signing in performs exactly one active-goal fetch; a failed fetch leaves
// the controller unauthenticated so the next call retries.
func (c *Controller) OnAuthChanged(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if userID == "" {
		c.apply(SignedOut{})
		return nil
	}
	if c.state.Stage != Unauthenticated && c.state.UserID == userID {
		return nil
	}
	if c.state.Stage != Unauthenticated {
		c.apply(SignedOut{})
	}

	goal, err := c.store.Active(ctx, userID)
	if err != nil {
		slog.Error("failed to fetch active goal", "error", err, "user_id", userID)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	return c.apply(SignedIn{UserID: userID, Goal: goal})
}

// SetGoal creates and stores a goal. The deadline must be in the future and is
// kept in UTC.
func (c *Controller) SetGoal(ctx context.Context, description string, deadline time.Time) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrDescriptionRequired
	}
	if deadline.IsZero() {
		return ErrDeadlineRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	now := c.now()
	if !deadline.After(now) {
		return ErrDeadlineNotFuture
	}
	if c.state.Stage != AwaitingGoal {
		return fmt.Errorf("%w: set goal in %s", ErrInvalidTransition, c.state.Stage)
	}

	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      c.state.UserID,
		Description: description,
		Deadline:    deadline.UTC(),
		Status:      model.GoalStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := c.store.Create(ctx, goal)
	if err != nil {
		slog.Error("failed to create goal", "error", err, "user_id", goal.UserID)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Info("goal created", "user_id", goal.UserID, "goal_id", goal.ID, "deadline", goal.Deadline)
	return c.apply(GoalCreated{Goal: goal})
}

// AttachLock stores the lock photo, as a data URI, on the active goal.
func (c *Controller) AttachLock(ctx context.Context, lockImage string) error {
	if !imagecodec.IsImage(lockImage) {
		return ErrNotAnImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state.Stage != AwaitingLock {
		return fmt.Errorf("%w: attach lock in %s", ErrInvalidTransition, c.state.Stage)
	}

	err := c.store.AttachLock(ctx, c.state.Goal, lockImage)
	if err != nil {
		slog.Error("failed to attach lock image", "error", err, "user_id", c.state.UserID, "goal_id", c.state.Goal.ID)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Info("lock image attached", "user_id", c.state.UserID, "goal_id", c.state.Goal.ID)
	return c.apply(LockAttached{LockImage: lockImage})
}

// SubmitProof asks the verifier about a proof photo and unlocks on a yes.
// A rejected proof returns false with a nil error.
func (c *Controller) SubmitProof(ctx context.Context, proof string) (bool, error) {
	if !imagecodec.IsImage(proof) {
		return false, ErrNotAnImage
	}

	c.mu.Lock()
	c.touch()
	if c.state.Stage != Tracking {
		stage := c.state.Stage
		c.mu.Unlock()
		return false, fmt.Errorf("%w: submit proof in %s", ErrInvalidTransition, stage)
	}
	if c.verifying {
		c.mu.Unlock()
		return false, ErrVerificationInProgress
	}
	if !c.policy.AllowLateProof && countdown.Until(c.state.Goal.Deadline, c.now()).IsOver {
		c.apply(DeadlinePassed{})
		c.mu.Unlock()
		return false, ErrDeadlinePassed
	}
	c.verifying = true
	goal := c.state.Goal.Clone()
	c.mu.Unlock()

	verified := c.verifier.Verify(ctx, goal, proof)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifying = false

	if c.state.Stage != Tracking || c.state.Goal == nil || c.state.Goal.ID != goal.ID {
		return false, ErrStaleVerification
	}

	if !verified {
		slog.Info("proof rejected", "user_id", goal.UserID, "goal_id", goal.ID)
		return false, c.apply(ProofRejected{})
	}

	at := c.now()
	err := c.store.Complete(ctx, goal, at)
	if err != nil {
		slog.Error("failed to complete goal", "error", err, "user_id", goal.UserID, "goal_id", goal.ID)
		return false, fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Info("goal unlocked", "user_id", goal.UserID, "goal_id", goal.ID)
	return true, c.apply(ProofAccepted{At: at})
}

// Reset archives the completed goal so a new one can be set.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state.Stage != Unlocked {
		return fmt.Errorf("%w: reset in %s", ErrInvalidTransition, c.state.Stage)
	}

	goal := c.state.Goal
	err := c.store.Archive(ctx, goal, c.now())
	if err != nil {
		slog.Error("failed to archive goal", "error", err, "user_id", goal.UserID, "goal_id", goal.ID)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Info("goal archived", "user_id", goal.UserID, "goal_id", goal.ID)
	return c.apply(Archived{})
}

// Countdown reports time left on the current goal. ok is false without one.
func (c *Controller) Countdown() (remaining countdown.Remaining, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Goal == nil {
		return countdown.Remaining{}, false
	}
	return countdown.Until(c.state.Goal.Deadline, c.now()), true
}

// CanSubmitProof reports whether a proof would currently be accepted for checking.
func (c *Controller) CanSubmitProof() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Stage != Tracking || c.verifying {
		return false
	}
	return c.policy.AllowLateProof || !countdown.Until(c.state.Goal.Deadline, c.now()).IsOver
}

// idleSince reports when the controller was last used, and whether it is busy.
func (c *Controller) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed, c.verifying
}

func (c *Controller) touch() {
	c.lastUsed = c.now()
}

// apply runs Next under mu. Callers hold the lock.
func (c *Controller) apply(e Event) error {
	next, err := Next(c.state, e)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

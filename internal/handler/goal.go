package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/imagecodec"
	"github.com/templui/codekeeper/internal/lifecycle"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/pages"
	"github.com/templui/codekeeper/internal/validation"
)

const (
	msgGoalFields      = "Please fill out both your goal and the deadline."
	msgGoalTooLong     = "Your goal must be at most 500 characters."
	msgDeadlineInvalid = "The deadline must be a valid date and time."
	msgDeadlineFuture  = "The deadline must be in the future."
	msgNotAnImage      = "Please select an image file."
	msgTooLarge        = "That photo is too large. The limit is 10 MB."
	msgDeadlinePassed  = "The deadline has passed. Proof can no longer be submitted."
	msgVerifying       = "A photo is already being verified. Please wait."
	msgRejected        = "Verification failed. The photo did not show the goal was achieved. Try another photo."
	msgVerified        = "Verified! Unlocking your code."
	msgCouldNotSave    = "Could not save. Please try again."
	msgGeneric         = "Something went wrong. Please try again."
)

// GoalHandler renders the lifecycle screens and forwards screen actions to
// the user's lifecycle controller.
type GoalHandler struct {
	goals          *lifecycle.Manager
	allowLateProof bool
}

func NewGoalHandler(goals *lifecycle.Manager, cfg *config.Config) *GoalHandler {
	return &GoalHandler{
		goals:          goals,
		allowLateProof: cfg.AllowLateProof,
	}
}

// AppPage shows whichever screen the user's stage calls for.
func (h *GoalHandler) AppPage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	state := ctrl.State()
	switch state.Stage {
	case lifecycle.AwaitingGoal:
		ui.Render(w, r, pages.GoalSetup(pages.GoalSetupProps{}))
	case lifecycle.AwaitingLock:
		ui.Render(w, r, pages.LockSetup(pages.LockSetupProps{Goal: state.Goal}))
	case lifecycle.Tracking:
		ui.Render(w, r, pages.Tracking(h.trackingProps(ctrl, state.Goal, nil)))
	case lifecycle.Unlocked:
		ui.Render(w, r, pages.Unlocked(pages.UnlockedProps{Goal: state.Goal, LockImage: lockImageURL(state.Goal)}))
	default:
		redirect(w, r, "/auth")
	}
}

func (h *GoalHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	form := validation.GoalForm{
		Description: r.FormValue("description"),
		Deadline:    r.FormValue("deadline"),
	}
	props := pages.GoalSetupProps{Description: form.Description, Deadline: form.Deadline}

	err := validation.Form(form)
	if err != nil {
		props.Error = goalMessage(err)
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.GoalSetup(props))
		return
	}

	deadline, err := validation.ParseDeadline(form.Deadline, r.FormValue("tz_offset"))
	if err != nil {
		props.Error = goalMessage(err)
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.GoalSetup(props))
		return
	}

	err = ctrl.SetGoal(r.Context(), form.Description, deadline)
	if errors.Is(err, lifecycle.ErrInvalidTransition) {
		redirect(w, r, "/app")
		return
	}
	if err != nil {
		props.Error = goalMessage(err)
		ui.RenderStatus(w, r, statusFor(err), pages.GoalSetup(props))
		return
	}

	redirect(w, r, "/app")
}

func (h *GoalHandler) AttachLock(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	lockImage, err := readPhoto(w, r)
	if err == nil {
		err = ctrl.AttachLock(r.Context(), lockImage)
	}
	if errors.Is(err, lifecycle.ErrInvalidTransition) {
		redirect(w, r, "/app")
		return
	}
	if err != nil {
		ui.RenderStatus(w, r, statusFor(err), pages.LockSetup(pages.LockSetupProps{
			Goal:  ctrl.State().Goal,
			Error: goalMessage(err),
		}))
		return
	}

	redirect(w, r, "/app")
}

// SubmitProof sends a proof photo for verification. htmx requests get the
// verdict as a fragment; a yes navigates to the unlocked screen.
func (h *GoalHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	proof, err := readPhoto(w, r)
	verified := false
	if err == nil {
		verified, err = ctrl.SubmitProof(r.Context(), proof)
	}

	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrStaleVerification):
		redirect(w, r, "/app")
		return
	case verified:
		redirect(w, r, "/app")
		return
	}

	result := &pages.ProofResultProps{Message: msgRejected}
	status := http.StatusOK
	if err != nil {
		result.Message = goalMessage(err)
		status = statusFor(err)
	}

	if isHTMX(r) {
		// htmx only swaps 2xx responses by default.
		ui.Render(w, r, pages.ProofResult(*result))
		return
	}

	state := ctrl.State()
	if state.Goal == nil {
		redirect(w, r, "/app")
		return
	}
	ui.RenderStatus(w, r, status, pages.Tracking(h.trackingProps(ctrl, state.Goal, result)))
}

// Countdown is polled by the tracking screen every countdown.RefreshInterval.
func (h *GoalHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	if ctrl.State().Stage != lifecycle.Tracking {
		redirect(w, r, "/app")
		return
	}

	remaining, _ := ctrl.Countdown()
	ui.Render(w, r, pages.Countdown(pages.CountdownProps{
		Remaining:      remaining,
		CanSubmit:      ctrl.CanSubmitProof(),
		AllowLateProof: h.allowLateProof,
	}))
}

func (h *GoalHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	err := ctrl.Reset(r.Context())
	if err != nil && !errors.Is(err, lifecycle.ErrInvalidTransition) {
		state := ctrl.State()
		ui.RenderStatus(w, r, statusFor(err), pages.Unlocked(pages.UnlockedProps{Goal: state.Goal, LockImage: lockImageURL(state.Goal)}))
		return
	}

	redirect(w, r, "/app")
}

func (h *GoalHandler) controller(w http.ResponseWriter, r *http.Request) (*lifecycle.Controller, bool) {
	user := ctxkeys.User(r.Context())

	ctrl, err := h.goals.Controller(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load lifecycle", "error", err, "user_id", user.ID)
		http.Error(w, "Could not load your goal. Please try again.", http.StatusServiceUnavailable)
		return nil, false
	}
	return ctrl, true
}

func (h *GoalHandler) trackingProps(ctrl *lifecycle.Controller, goal *model.Goal, result *pages.ProofResultProps) pages.TrackingProps {
	remaining, _ := ctrl.Countdown()
	return pages.TrackingProps{
		Goal: goal,
		Countdown: pages.CountdownProps{
			Remaining:      remaining,
			CanSubmit:      ctrl.CanSubmitProof(),
			AllowLateProof: h.allowLateProof,
		},
		Result: result,
	}
}

// readPhoto reads the "photo" upload and returns it as a data URI.
func readPhoto(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxUploadRequest)

	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", validation.ErrFileTooLarge
		}
		return "", validation.ErrNotAnImage
	}
	defer func() { _ = file.Close() }()

	err = validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return "", err
	}

	return imagecodec.Encode(file, "")
}

// lockImageURL returns the lock image for an img src. Only image data URIs pass.
func lockImageURL(goal *model.Goal) string {
	if goal == nil || !goal.HasLock() || !imagecodec.IsImage(*goal.LockImage) {
		return ""
	}
	return *goal.LockImage
}

func goalMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrGoalFieldsRequired),
		errors.Is(err, lifecycle.ErrDescriptionRequired),
		errors.Is(err, lifecycle.ErrDeadlineRequired):
		return msgGoalFields
	case errors.Is(err, validation.ErrGoalTooLong):
		return msgGoalTooLong
	case errors.Is(err, validation.ErrInvalidDeadlineInput):
		return msgDeadlineInvalid
	case errors.Is(err, lifecycle.ErrDeadlineNotFuture):
		return msgDeadlineFuture
	case errors.Is(err, validation.ErrFileTooLarge):
		return msgTooLarge
	case errors.Is(err, validation.ErrNotAnImage), errors.Is(err, lifecycle.ErrNotAnImage):
		return msgNotAnImage
	case errors.Is(err, lifecycle.ErrDeadlinePassed):
		return msgDeadlinePassed
	case errors.Is(err, lifecycle.ErrVerificationInProgress):
		return msgVerifying
	case errors.Is(err, lifecycle.ErrStore):
		return msgCouldNotSave
	default:
		return msgGeneric
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrStore):
		return http.StatusInternalServerError
	case errors.Is(err, lifecycle.ErrVerificationInProgress):
		return http.StatusConflict
	case errors.Is(err, validation.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}

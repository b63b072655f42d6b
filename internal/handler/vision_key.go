package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/pages"
	"github.com/templui/codekeeper/internal/validation"
)

// VisionKeyHandler manages a user's own vision API key.
type VisionKeyHandler struct {
	keys *service.VisionKeyService
}

func NewVisionKeyHandler(keys *service.VisionKeyService) *VisionKeyHandler {
	return &VisionKeyHandler{keys: keys}
}

func (h *VisionKeyHandler) Page(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	key, err := h.keys.Status(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load vision key", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to load API key", http.StatusInternalServerError)
		return
	}

	ui.Render(w, r, pages.VisionKey(pages.VisionKeyProps{Key: key, Saved: r.URL.Query().Get("saved") == "1"}))
}

func (h *VisionKeyHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	form := validation.VisionKeyForm{APIKey: r.FormValue("api_key")}

	err := validation.Form(form)
	if err == nil {
		err = h.keys.Save(r.Context(), user.ID, form.APIKey)
	}
	if err != nil {
		key, _ := h.keys.Status(r.Context(), user.ID)
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.VisionKey(pages.VisionKeyProps{
			Key:   key,
			Error: visionKeyMessage(err),
		}))
		return
	}

	redirect(w, r, "/app/vision-key?saved=1")
}

func (h *VisionKeyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.keys.Remove(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to remove vision key", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to remove API key", http.StatusInternalServerError)
		return
	}

	redirect(w, r, "/app/vision-key")
}

func visionKeyMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrVisionKeyRequired):
		return "Please enter an API key."
	case errors.Is(err, validation.ErrVisionKeyFormat):
		return "That does not look like an API key."
	case errors.Is(err, service.ErrVisionKeyRejected):
		return "The vision service rejected this API key. Check it and try again."
	default:
		slog.Error("failed to save vision key", "error", err)
		return "Something went wrong. Please try again."
	}
}

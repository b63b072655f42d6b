package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/components/toast"
)

// FileHandler serves and deletes the user's archived proof photos.
type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	fileID := r.PathValue("id")

	download, err := h.fileService.Locate(r.Context(), user.ID, fileID)
	if errors.Is(err, repository.ErrFileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to locate file", "error", err, "user_id", user.ID, "file_id", fileID)
		http.Error(w, "Failed to load file", http.StatusInternalServerError)
		return
	}

	if download.URL != "" {
		http.Redirect(w, r, download.URL, http.StatusFound)
		return
	}
	defer func() { _ = download.Body.Close() }()

	w.Header().Set("Content-Type", download.File.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(download.File.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, err = io.Copy(w, download.Body)
	if err != nil {
		slog.Warn("failed to stream file", "error", err, "file_id", fileID)
	}
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	fileID := r.PathValue("id")

	err := h.fileService.Delete(r.Context(), user.ID, fileID)
	if errors.Is(err, repository.ErrFileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to delete file", "error", err, "user_id", user.ID, "file_id", fileID)
		http.Error(w, "Failed to delete file", http.StatusInternalServerError)
		return
	}

	slog.Info("proof photo deleted", "user_id", user.ID, "file_id", fileID)
	// The list item is swapped for an empty body; only the toast is added.
	ui.RenderOOB(w, r, toast.Toast(toast.Props{
		Title:       "Photo deleted",
		Variant:     toast.VariantSuccess,
		Dismissible: true,
	}), "beforeend:#toast-container")
}

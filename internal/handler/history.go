package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/pages"
)

type HistoryHandler struct {
	goalService *service.GoalService
}

func NewHistoryHandler(goalService *service.GoalService) *HistoryHandler {
	return &HistoryHandler{goalService: goalService}
}

func (h *HistoryHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	entries, err := h.goalService.History(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load history", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	items := make([]pages.HistoryItem, 0, len(entries))
	for _, entry := range entries {
		status := entry.Goal.Status
		if entry.Goal.ArchivedAt != nil {
			status = "archived"
		}
		items = append(items, pages.HistoryItem{
			Goal:      entry.Goal,
			Status:    status,
			Archived:  entry.Goal.ArchivedAt != nil,
			LockImage: lockImageURL(entry.Goal),
			Proofs:    entry.Proofs,
		})
	}

	ui.Render(w, r, pages.History(pages.HistoryProps{Items: items}))
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/ui"
	"github.com/templui/codekeeper/internal/ui/pages"
)

type HelpHandler struct {
	helpService *service.HelpService
}

func NewHelpHandler(helpService *service.HelpService) *HelpHandler {
	return &HelpHandler{helpService: helpService}
}

func (h *HelpHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("page")

	page, err := h.helpService.Page(slug)
	if errors.Is(err, service.ErrHelpPageNotFound) {
		ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
		return
	}
	if err != nil {
		slog.Error("failed to load help page", "error", err, "slug", slug)
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}

	all, err := h.helpService.Pages()
	if err != nil {
		slog.Warn("failed to list help pages", "error", err)
	}

	links := make([]pages.HelpLink, 0, len(all))
	for _, p := range all {
		links = append(links, pages.HelpLink{Title: p.Title, Slug: p.Slug, Active: p.Slug == page.Slug})
	}

	ui.Render(w, r, pages.Help(pages.HelpProps{
		Title:       page.Title,
		Content:     page.Content,
		LastUpdated: page.LastUpdated,
		Links:       links,
	}))
}

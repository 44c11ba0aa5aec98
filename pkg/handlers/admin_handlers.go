package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"game-showcase/pkg/catalog"
)

// RescrapeHandler handles API requests to rebuild a single game's manifest and media
func (h *Handler) RescrapeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Game string `json:"game"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Game == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entries, err := catalog.Load(h.svc.Config().Paths.Catalog)
	if err != nil {
		h.logger.Error("loading catalog", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, entry, ok := catalog.Find(entries, req.Game)
	if !ok {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	h.logger.Info("Rebuilding game", "game", entry.Title)
	ctx := log.WithContext(r.Context(), h.logger)
	safe := catalog.SafeTitle(entry.Title)

	game := h.svc.BuildManifest(ctx, entry, true)
	if _, err := h.svc.WriteManifest(safe, game); err != nil {
		h.logger.Error("writing manifest", "game", entry.Title, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Game rebuilt successfully",
		"safeTitle": safe,
		"ready":     game.MediaDoneLoading(),
	})
}

// ThumbnailsHandler handles API requests to generate all missing thumbnails
func (h *Handler) ThumbnailsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Force bool `json:"force"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	h.logger.Info("Bulk generating thumbnails", "force", req.Force)

	report, err := h.svc.RegenerateThumbnails(log.WithContext(r.Context(), h.logger), req.Force)
	if err != nil {
		h.logger.Error("Error in bulk generate", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Bulk thumbnail generation completed",
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"errors":    report.Errors,
		"warnings":  report.Warnings,
	})
}

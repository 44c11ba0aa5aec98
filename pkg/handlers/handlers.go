package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/eknkc/pug"
	"github.com/eknkc/pug/compiler"

	"game-showcase/pkg/models"
	"game-showcase/pkg/services"
)

// Handler serves the preview pages of the gallery content
type Handler struct {
	svc    *services.Service
	logger *log.Logger
	views  string
}

// New creates a Handler rendering templates from the configured views directory
func New(svc *services.Service, logger *log.Logger) *Handler {
	views := svc.Config().Server.Views
	// the template loader refuses paths starting with ".."
	if abs, err := filepath.Abs(views); err == nil {
		views = abs
	}
	return &Handler{
		svc:    svc,
		logger: logger.WithPrefix("http"),
		views:  views,
	}
}

// Routes registers the preview routes. The public root is served as static files.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", h.IndexHandler(http.FileServer(http.Dir(h.svc.Config().Paths.Public))))
	mux.HandleFunc("/game/", h.GameHandler)
	mux.HandleFunc("/api/games", h.APIGamesHandler)
	mux.HandleFunc("/admin/scrape", h.RescrapeHandler)
	mux.HandleFunc("/admin/thumbnails", h.ThumbnailsHandler)
	return mux
}

// IndexHandler renders the catalog index at "/" and hands every other path to static
func (h *Handler) IndexHandler(static http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			static.ServeHTTP(w, r)
			return
		}
		h.logger.Info("Generating Index")

		index, err := h.svc.LoadIndex()
		if err != nil {
			h.logger.Warn("no index yet", "err", err)
			index = []models.CatalogIndexEntry{}
		}

		page := models.Index{Games: make([]models.IndexGame, 0, len(index))}
		for _, entry := range index {
			page.Games = append(page.Games, models.IndexGame{
				CatalogIndexEntry: entry,
				PageLink:          "/game/" + strings.TrimSuffix(path.Base(entry.GameDataURL), ".json"),
			})
		}
		h.render(w, "index.pug", page)
	}
}

// GamePage is the data of the per-game template
type GamePage struct {
	SafeTitle string
	Game      *models.GameManifest
}

// GameHandler renders one written manifest at /game/<safe title>
func (h *Handler) GameHandler(w http.ResponseWriter, r *http.Request) {
	safe := strings.Trim(strings.TrimPrefix(r.URL.Path, "/game/"), "/")
	if safe == "" || strings.ContainsAny(safe, `/\`) {
		http.NotFound(w, r)
		return
	}

	game, err := h.svc.LoadManifest(safe)
	if errors.Is(err, services.ErrNotFound) {
		h.logger.Info("Game not found", "game", safe)
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("loading manifest", "game", safe, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("Generating Game Page", "game", safe)

	h.render(w, "game.pug", GamePage{SafeTitle: safe, Game: game})
}

// APIGamesHandler returns the catalog index as JSON
func (h *Handler) APIGamesHandler(w http.ResponseWriter, _ *http.Request) {
	index, err := h.svc.LoadIndex()
	if err != nil {
		h.logger.Error("loading index", "err", err)
		http.Error(w, "Index not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, index)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	template, err := pug.CompileFile(name, pug.Options{Dir: compiler.FsDir(h.views)})
	if err != nil {
		h.logger.Error("Template error", "template", name, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := template.Execute(w, data); err != nil {
		h.logger.Error("Template execution error", "template", name, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

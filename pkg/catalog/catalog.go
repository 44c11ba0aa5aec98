package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"game-showcase/pkg/models"
)

// ErrEmptyCatalog is returned when the catalog document holds no games
var ErrEmptyCatalog = errors.New("catalog has no entries")

// Load reads the catalog document at path. JSON and YAML are supported, chosen by extension.
func Load(path string) ([]models.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var entries []models.CatalogEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCatalog)
	}
	return entries, nil
}

// Selection records which catalog indices run in full mode
type Selection struct {
	total    int
	selected map[int]bool
}

// Full reports whether entry i gets its media fetched and its manifest written.
// An empty selection means every entry is fully processed.
func (s Selection) Full(i int) bool {
	if len(s.selected) == 0 {
		return i >= 0 && i < s.total
	}
	return s.selected[i]
}

// Indices returns the explicitly selected indices in catalog order
func (s Selection) Indices() []int {
	out := make([]int, 0, len(s.selected))
	for i := 0; i < s.total; i++ {
		if s.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

// Resolve turns CLI selectors into a Selection. A selector is a zero-based index when it
// parses as an integer and an exact title otherwise. Selectors that match nothing are
// logged and skipped.
func Resolve(ctx context.Context, entries []models.CatalogEntry, selectors []string) Selection {
	logger := log.FromContext(ctx).WithPrefix("catalog")
	sel := Selection{total: len(entries), selected: make(map[int]bool)}

	for _, selector := range selectors {
		if idx, err := strconv.Atoi(selector); err == nil {
			if idx < 0 || idx >= len(entries) {
				logger.Error("index out of range", "index", idx, "games", len(entries))
				continue
			}
			sel.selected[idx] = true
			continue
		}

		found := false
		for i, entry := range entries {
			if entry.Title == selector {
				sel.selected[i] = true
				found = true
				break
			}
		}
		if !found {
			logger.Error("no game with title", "title", selector)
		}
	}

	return sel
}

// Find returns the entry named by an index-or-title selector
func Find(entries []models.CatalogEntry, selector string) (int, models.CatalogEntry, bool) {
	if idx, err := strconv.Atoi(selector); err == nil {
		if idx >= 0 && idx < len(entries) {
			return idx, entries[idx], true
		}
		return -1, models.CatalogEntry{}, false
	}
	for i, entry := range entries {
		if entry.Title == selector {
			return i, entry, true
		}
	}
	return -1, models.CatalogEntry{}, false
}

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"game-showcase/pkg/models"
)

// ErrNpmNotFound is returned when a build recipe needs npm and none is installed
var ErrNpmNotFound = errors.New("npm not found on PATH")

// BuildGame runs the entry's build recipe inside repoDir: a clean dependency install when
// requested, each npm script in order, then removal of node_modules.
func (s *Service) BuildGame(ctx context.Context, entry models.CatalogEntry, repoDir string) error {
	logger := log.FromContext(ctx).WithPrefix("build")

	npm, err := exec.LookPath("npm")
	if err != nil {
		return ErrNpmNotFound
	}

	nodeModules := filepath.Join(repoDir, "node_modules")

	if entry.Install {
		if err := os.RemoveAll(nodeModules); err != nil {
			return fmt.Errorf("removing old node_modules: %w", err)
		}
		logger.Info("installing dependencies", "game", entry.Title)
		if err := runNpm(ctx, npm, repoDir, "install"); err != nil {
			return err
		}
	}

	for _, script := range entry.Scripts {
		logger.Info("running script", "game", entry.Title, "script", script)
		if err := runNpm(ctx, npm, repoDir, "run", script); err != nil {
			return err
		}
	}

	if _, err := os.Stat(nodeModules); err == nil {
		logger.Info("cleanup", "dir", nodeModules)
		if err := os.RemoveAll(nodeModules); err != nil {
			return fmt.Errorf("removing node_modules: %w", err)
		}
	}
	return nil
}

// runNpm runs npm with args in dir, capturing stderr for the error message
func runNpm(ctx context.Context, npm, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, npm, args...)
	cmd.Dir = dir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("npm %s failed: %w, stderr: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"game-showcase/pkg/handlers"
	"game-showcase/pkg/services"
)

// newServeCmd creates a new command for serving the preview site
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the preview web server",
		Long:  `Start a web server that serves the public root and renders the written game manifests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := newService(cmd)
			if err != nil {
				return err
			}
			return serveWebsite(ctx, svc)
		},
	}
}

// serveWebsite runs the web server until ctx is cancelled
func serveWebsite(ctx context.Context, svc *services.Service) error {
	cfg := svc.Config()
	logger := log.FromContext(ctx)

	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           handlers.New(svc, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	cfg.PrintServerStartMessage()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

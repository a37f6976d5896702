package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/imgdrop/internal/common"
	"github.com/jo-hoe/imgdrop/internal/core"
	"github.com/jo-hoe/imgdrop/internal/frontend"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local session API for a browser UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				cfg, _ := ctx.ensureConfig()
				if port == 0 {
					port = cfg.Port
				}
				return serve(cmd.Context(), service, port)
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port of the session API (default from configuration)")
	return cmd
}

func serve(ctx context.Context, service *core.CoreService, port int) error {
	server := common.NewEchoServer()
	frontendService := frontend.NewFrontendService(service)
	frontendService.SetRoutes(server)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting session API", "port", port)
		if err := server.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("session API: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	frontendService.Close()
	return nil
}

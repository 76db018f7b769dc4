package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aptlist/users/internal/web"
)

const shutdownTimeout = 10 * time.Second

// serveCmd runs the HTTP API until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true, "")
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if a.cfg.JWTSecret == "" {
		a.logger.Warn("JWT_SECRET_KEY is empty, tokens are signed with an empty key")
	}
	server := web.NewWebServer(a.cfg.JWTSecret, a.cfg.JWTTTL, a.userService, a.logger.Named("web"))

	errs := make(chan error, 1)
	go func() {
		a.logger.Infof("Starting server on %s:%d", a.cfg.WebserverIP, a.cfg.WebserverPort)
		errs <- server.Run(a.cfg.WebserverIP, a.cfg.WebserverPort)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorf("Error during shutdown: %v", err)
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

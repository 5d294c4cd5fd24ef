package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run serves HTTP and runs the connectivity monitor until ctx is cancelled or
// either fails, then releases all resources.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.serve(ctx, ln)
}

// serve runs the application on ln.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	defer app.cleanup()

	server := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Hijacked websocket connections are not tracked by Shutdown
	server.RegisterOnShutdown(app.hub.Close)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.monitor.Run(gctx)
	})

	g.Go(func() error {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		app.logger.Error("server stopped with error", "error", err)
		return err
	}
	app.logger.Info("server shutdown completed")
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// runRelay serves until SIGINT or SIGTERM, then shuts down gracefully.
func runRelay(app *application, watcher *config.Watcher) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return serve(app, watcher, sigCh)
}

// serve starts the server and blocks until a signal arrives or the server
// fails, then stops every component.
func serve(app *application, watcher *config.Watcher, sigCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(context.Background())
	}()

	select {
	case sig := <-sigCh:
		app.logger.Info("received shutdown signal", observability.String("signal", sig.String()))
		shutdown(app, watcher)
		return <-errCh
	case err := <-errCh:
		if err != nil {
			app.logger.Error("server stopped unexpectedly", observability.Error(err))
		}
		shutdown(app, watcher)
		return err
	}
}

// shutdown stops the watcher, drains in-flight requests and flushes spans.
func shutdown(app *application, watcher *config.Watcher) {
	ctx, cancel := context.WithTimeout(context.Background(), app.server.ShutdownTimeout())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(ctx); err != nil {
		app.logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	app.logger.Info("apirelay stopped")
}

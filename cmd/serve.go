package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/server"
)

// Serve runs the browser interface until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		if addr, err = r.callbackAddr(); err != nil {
			return err
		}
	}

	app := server.NewApp(m, r.catalog, r.logger)
	srv := server.New(addr, app.Router(), r.logger)
	serveErrs, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	r.writePlain("Serving on http://%s\n", addr)

	select {
	case err := <-serveErrs:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

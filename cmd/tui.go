package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/ui"
)

// TUI launches the interactive terminal interface with a callback server running alongside it.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	addr, err := r.callbackAddr()
	if err != nil {
		return err
	}

	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	app := server.NewApp(m, r.catalog, r.logger)
	srv := server.New(addr, app.Router(), r.logger)
	if _, err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	model := ui.NewModel(ctx, m, r.catalog, shared.OpenBrowser, int(cmd.Int("limit")))
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

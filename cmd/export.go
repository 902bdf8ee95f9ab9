package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// Export writes one recommendation file per mood plus a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var moods []models.MoodProfile
	if names := cmd.StringSlice("moods"); len(names) > 0 {
		for _, name := range names {
			p, err := mood.Match(name)
			if err != nil {
				return err
			}
			moods = append(moods, p)
		}
	} else {
		moods = mood.Profiles()
	}

	if _, err := r.requireSession(ctx); err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, len(moods)*3)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := tasks.NewExporter(r.catalog, r.logger).Export(ctx, prog, moods, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		Limit:      int(cmd.Int("limit")),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.Catalog.RateLimit,
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\nExported %d/%d moods to %s\n", result.Succeeded, result.Total, result.OutputDirectory)
	if result.Failed > 0 {
		failed := make([]string, 0, result.Failed)
		for _, res := range result.Results {
			if !res.OK() {
				failed = append(failed, res.Mood)
			}
		}
		return fmt.Errorf("%d moods failed: %s", result.Failed, strings.Join(failed, ", "))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Moods lists the known moods.
func (r *Runner) Moods(ctx context.Context, cmd *cli.Command) error {
	profiles := mood.Profiles()
	if cmd.Bool("json") {
		return r.writeJSON(profiles, true)
	}

	for _, p := range profiles {
		if err := r.writePlain("%-10s %s\n", p.Name, p.Description); err != nil {
			return err
		}
	}
	return nil
}

// Recommend matches the arguments to a mood and prints recommended tracks.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: describe a mood, e.g. 'moodmix recommend happy'", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	profile, err := mood.Match(text)
	if err != nil {
		return err
	}

	if _, err := r.requireSession(ctx); err != nil {
		return err
	}

	r.logger.Debug("matched mood", "input", text, "mood", profile.Name)
	tracks, err := r.catalog.Recommendations(ctx, profile, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return r.emit(cmd, mood.Recommendations(profile, tracks), format)
}

// Search prints catalog tracks matching the arguments.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if _, err := r.requireSession(ctx); err != nil {
		return err
	}

	tracks, err := r.catalog.SearchTracks(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return r.emit(cmd, models.Recommendations{Mood: query, Tracks: tracks}, format)
}

func (r *Runner) emit(cmd *cli.Command, recs models.Recommendations, format formatter.Format) error {
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, recs, format); err != nil {
			return err
		}
		r.logger.Info("wrote recommendations", "path", path, "tracks", len(recs.Tracks))
		return nil
	}
	return formatter.Write(r.output, recs, format)
}

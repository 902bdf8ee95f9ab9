package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/shared"
)

// SetupDatabase creates the config file when missing, records the client registration, and runs migrations.
// With --reset the session tables are dropped and recreated first, discarding any stored login.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	if clientID, redirect := cmd.String("client-id"), cmd.String("redirect-uri"); clientID != "" || redirect != "" {
		if clientID != "" {
			r.config.Credentials.Spotify.ClientID = clientID
		}
		if redirect != "" {
			r.config.Credentials.Spotify.RedirectURI = redirect
		}
		if err := shared.SaveConfig(configPath, r.config); err != nil {
			return err
		}
		r.logger.Info("client registration saved", "path", configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("reset") {
		r.logger.Warn("dropping session tables", "path", r.config.Database.Path)
		if err := shared.ResetSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, m := range applied {
		r.logger.Debug("applied migration", "version", m.Version, "name", m.Name)
	}

	version, err := shared.SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s (schema v%d, %d applied)\n", r.config.Database.Path, version, len(applied))
	if cmd.Bool("reset") {
		r.writePlain("Session storage was reset; run 'moodmix auth login' to sign in again\n")
	}
	if r.config.Credentials.Spotify.ClientID == "" || r.config.Credentials.Spotify.ClientID == "your_spotify_client_id" {
		r.writePlain("\nNext: set credentials.spotify.client_id, then run 'moodmix auth login'\n")
	}
	return nil
}

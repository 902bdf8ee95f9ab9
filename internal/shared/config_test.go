package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./moodmix.db" {
			t.Errorf("expected database path ./moodmix.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Catalog.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("unexpected token URL %s", config.Catalog.TokenURL)
		}

		if config.Auth.RequestTimeout.Duration != 15*time.Second {
			t.Errorf("expected request timeout 15s, got %v", config.Auth.RequestTimeout)
		}

		if config.Auth.PendingTTL.Duration != 10*time.Minute {
			t.Errorf("expected pending ttl 10m, got %v", config.Auth.PendingTTL)
		}

		if len(config.Credentials.Spotify.Scopes) == 0 {
			t.Error("expected default scopes")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[auth]
request_timeout = "3s"

[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://localhost:8080/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Auth.RequestTimeout.Duration != 3*time.Second {
			t.Errorf("expected request timeout 3s, got %v", config.Auth.RequestTimeout)
		}

		if config.Auth.RefreshFraction != DefaultConfig().Auth.RefreshFraction {
			t.Error("expected unset values to keep defaults")
		}
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[auth]\nrequest_timeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error for invalid duration")
		}
	})

	t.Run("SaveConfig round trips", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_client"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "saved_client" {
			t.Errorf("expected saved_client, got %s", loaded.Credentials.Spotify.ClientID)
		}
		if loaded.Auth.PendingTTL.Duration != config.Auth.PendingTTL.Duration {
			t.Errorf("expected pending ttl %v, got %v", config.Auth.PendingTTL, loaded.Auth.PendingTTL)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("missing client id", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = ""

			if err := config.Validate(); !errors.Is(err, ErrMissingClientID) {
				t.Errorf("expected ErrMissingClientID, got %v", err)
			}
		})

		t.Run("bad refresh fraction", func(t *testing.T) {
			config := DefaultConfig()
			config.Auth.RefreshFraction = 1.5

			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("defaults are valid", func(t *testing.T) {
			if err := DefaultConfig().Validate(); err != nil {
				t.Errorf("expected embedded defaults to validate, got %v", err)
			}
		})
	})
}

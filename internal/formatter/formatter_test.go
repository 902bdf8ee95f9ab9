package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
)

func sample() models.Recommendations {
	return models.Recommendations{
		Mood: "happy",
		Tracks: []models.Track{
			{
				ID:       "track1",
				Title:    "Song One",
				Artist:   "Artist One",
				Album:    "Album One",
				Duration: 180,
				URL:      "https://open.spotify.com/track/track1",
			},
			{
				ID:       "track2",
				Title:    "Song, Two",
				Artist:   "Artist Two",
				Duration: 245,
			},
		},
	}
}

func TestFormatters(t *testing.T) {
	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(sample())
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Artist,Album,Duration,URL\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1,Song One,Artist One,Album One,180,https://open.spotify.com/track/track1") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `"Song, Two"`) {
			t.Errorf("CSV should quote fields containing commas, got: %s", output)
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		data, err := ToMarkdown(sample())
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Happy mix") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "1. Artist One - [Song One](https://open.spotify.com/track/track1) (Album One) [3:00]") {
			t.Errorf("Markdown missing linked track, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Song, Two [4:05]") {
			t.Errorf("Markdown missing unlinked track, got: %s", output)
		}
	})

	t.Run("ToText", func(t *testing.T) {
		data, err := ToText(sample())
		if err != nil {
			t.Fatalf("ToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Mood: happy") || !strings.Contains(output, "Tracks: 2") {
			t.Errorf("text missing header, got: %s", output)
		}
		if !strings.Contains(output, "1. Artist One - Song One [3:00]") {
			t.Errorf("text missing track, got: %s", output)
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(models.Recommendations{Mood: "calm"})
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if tracks, ok := decoded["tracks"].([]any); !ok || len(tracks) != 0 {
			t.Errorf("expected empty tracks array, got %v", decoded["tracks"])
		}
	})

	t.Run("empty mood title", func(t *testing.T) {
		data, _ := ToMarkdown(models.Recommendations{})
		if !strings.HasPrefix(string(data), "# Recommendations") {
			t.Errorf("expected fallback title, got %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"plain", FormatText},
		{"MD", FormatMarkdown},
		{"csv", FormatCSV},
		{" json ", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWrite(t *testing.T) {
	t.Run("writer failure", func(t *testing.T) {
		if err := Write(&th.FWriter{}, sample(), FormatText); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var sb strings.Builder
		if err := Write(&sb, sample(), Format("xml")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "happy.csv")

		if err := WriteFile(path, sample(), FormatCSV); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
			t.Errorf("file missing track, got: %s", content)
		}
	})

	t.Run("WriteFile into missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "happy.md")
		if err := WriteFile(path, sample(), FormatMarkdown); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "0:00", 59: "0:59", 60: "1:00", 185: "3:05", -3: "0:00", 3600: "60:00"}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %s, want %s", in, got, want)
		}
	}
}

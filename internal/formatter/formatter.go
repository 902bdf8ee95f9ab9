// package formatter renders recommendation results as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat resolves a user supplied format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "plain":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
	}
}

// Render converts recs into the given format.
func Render(recs models.Recommendations, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return ToText(recs)
	case FormatMarkdown:
		return ToMarkdown(recs)
	case FormatCSV:
		return ToCSV(recs)
	case FormatJSON:
		return ToJSON(recs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}
}

// Write renders recs and writes them to w.
func Write(w io.Writer, recs models.Recommendations, format Format) error {
	data, err := Render(recs, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders recs into the file at path.
func WriteFile(path string, recs models.Recommendations, format Format) error {
	data, err := Render(recs, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

// ToCSV converts recommendations to CSV with columns: ID, Title, Artist, Album, Duration, URL
func ToCSV(recs models.Recommendations) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range recs.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts recommendations to a Markdown list with links where available
func ToMarkdown(recs models.Recommendations) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(recs.Mood))
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(recs.Tracks))

	for i, track := range recs.Tracks {
		name := track.Title
		if track.URL != "" {
			name = fmt.Sprintf("[%s](%s)", track.Title, track.URL)
		}
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, name, albumPart, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ToText converts recommendations to plain text
func ToText(recs models.Recommendations) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Mood: %s\n", recs.Mood)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(recs.Tracks))

	for i, track := range recs.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ToJSON converts recommendations to indented JSON
func ToJSON(recs models.Recommendations) ([]byte, error) {
	if recs.Tracks == nil {
		recs.Tracks = []models.Track{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatDuration formats seconds as m:ss
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func title(mood string) string {
	if mood == "" {
		return "Recommendations"
	}
	return strings.ToUpper(mood[:1]) + mood[1:] + " mix"
}

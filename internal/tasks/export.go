package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/shared"
)

const (
	defaultWorkers = 3
	maxWorkers     = 10
	manifestName   = "export_manifest.json"
)

// Recommender fetches tracks for a mood.
type Recommender interface {
	Recommendations(ctx context.Context, mood models.MoodProfile, limit int) ([]models.Track, error)
}

// ExportOpts contains configuration for multi-mood exports.
type ExportOpts struct {
	Format     formatter.Format // Output format for each mood file
	OutputDir  string           // Base output directory (default: moodmix_export_{epoch})
	Limit      int              // Tracks per mood
	NumWorkers int              // Concurrent workers (default: 3, max: 10)
	RateLimit  float64          // Moods started per second, 0 disables pacing
}

// MoodExport is the outcome for one mood.
type MoodExport struct {
	Mood   string `json:"mood"`
	File   string `json:"file,omitempty"`
	Tracks int    `json:"tracks"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the mood was written.
func (m MoodExport) OK() bool {
	return m.Error == ""
}

// ExportResult summarizes a multi-mood export. Results are sorted by mood name.
type ExportResult struct {
	OutputDirectory string       `json:"output_directory"`
	Format          string       `json:"format"`
	ExportedAt      time.Time    `json:"exported_at"`
	Total           int          `json:"total"`
	Succeeded       int          `json:"succeeded"`
	Failed          int          `json:"failed"`
	Results         []MoodExport `json:"results"`
	ManifestPath    string       `json:"-"`
}

// Exporter writes recommendation files for several moods.
type Exporter struct {
	catalog Recommender
	logger  *log.Logger
	now     func() time.Time
}

// NewExporter creates an [Exporter] backed by catalog.
func NewExporter(catalog Recommender, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{catalog: catalog, logger: shared.WithLogger(logger, "component", "export"), now: time.Now}
}

// Export fetches and writes every mood in moods.
//
// A failing mood is recorded in the result and does not stop the others. Authentication failures are
// failures like any other; callers check [ExportResult.Failed]. The returned error is reserved for problems
// with the output directory, the manifest, or cancellation.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, moods []models.MoodProfile, opts ExportOpts) (*ExportResult, error) {
	if len(moods) == 0 {
		return nil, fmt.Errorf("%w: no moods to export", shared.ErrInvalidInput)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("moodmix_export_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	jobs := make(chan models.MoodProfile)
	results := make(chan MoodExport, len(moods))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, m := range moods {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case jobs <- m:
				sendProgress(prog, fetchingMoodUpdate(i+1, len(moods), m.Name))
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &ExportResult{
		OutputDirectory: opts.OutputDir,
		Format:          string(opts.Format),
		ExportedAt:      e.now().UTC(),
		Total:           len(moods),
		Results:         make([]MoodExport, 0, len(moods)),
	}

	for res := range results {
		result.Results = append(result.Results, res)
		done := len(result.Results)
		if res.OK() {
			result.Succeeded++
			sendProgress(prog, moodWrittenUpdate(done, len(moods), res))
		} else {
			result.Failed++
			e.logger.Warn("mood export failed", "mood", res.Mood, "error", res.Error)
			sendProgress(prog, moodFailedUpdate(done, len(moods), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].Mood < result.Results[j].Mood })

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	sendProgress(prog, manifestUpdate(manifestPath))
	if err := writeManifest(manifestPath, result); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("export complete", "dir", opts.OutputDir, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (e *Exporter) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.MoodProfile, results chan<- MoodExport, opts ExportOpts) {
	defer wg.Done()

	for m := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportMood(ctx, m, opts)
	}
}

func (e *Exporter) exportMood(ctx context.Context, m models.MoodProfile, opts ExportOpts) MoodExport {
	res := MoodExport{Mood: m.Name}

	tracks, err := e.catalog.Recommendations(ctx, m, opts.Limit)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	path := filepath.Join(opts.OutputDir, m.Name+extension(opts.Format))
	if err := formatter.WriteFile(path, mood.Recommendations(m, tracks), opts.Format); err != nil {
		res.Error = err.Error()
		return res
	}

	res.File = path
	res.Tracks = len(tracks)
	return res
}

func writeManifest(path string, result *ExportResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func extension(f formatter.Format) string {
	switch f {
	case formatter.FormatMarkdown:
		return ".md"
	case formatter.FormatCSV:
		return ".csv"
	case formatter.FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// sendProgress sends without blocking; updates are dropped when nobody is reading.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

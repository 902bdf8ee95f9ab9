package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchMood Phase = iota
	WriteMood
	MoodFailed
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchMood:
		return "fetch_mood"
	case WriteMood:
		return "write_mood"
	case MoodFailed:
		return "mood_failed"
	case WriteManifest:
		return "write_manifest"
	default:
		return "unknown"
	}
}

func fetchingMoodUpdate(step, total int, mood string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMood,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s (%d/%d)", mood, step, total),
	}
}

func moodWrittenUpdate(step, total int, res MoodExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteMood,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ %s: %d tracks (%d/%d)", res.Mood, res.Tracks, step, total),
		Data:    res,
	}
}

func moodFailedUpdate(step, total int, res MoodExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MoodFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ %s: %s (%d/%d)", res.Mood, res.Error, step, total),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: "Writing " + path}
}

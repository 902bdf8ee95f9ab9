// package mood maps free-text mood descriptions onto catalog seeds and audio targets
package mood

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// entry is one known mood and the words that select it.
type entry struct {
	profile models.MoodProfile
	aliases []string
}

var moods = []entry{
	{
		profile: models.MoodProfile{
			Name:        "happy",
			Description: "bright, upbeat and major key",
			Genres:      []string{"pop", "happy", "dance"},
			Targets:     models.AudioTargets{Valence: 0.9, Energy: 0.75, Danceability: 0.7, Acousticness: 0.2, Tempo: 120},
		},
		aliases: []string{"joyful", "cheerful", "glad", "sunny", "good", "great", "excited"},
	},
	{
		profile: models.MoodProfile{
			Name:        "sad",
			Description: "slow, low valence and reflective",
			Genres:      []string{"sad", "acoustic", "singer-songwriter"},
			Targets:     models.AudioTargets{Valence: 0.15, Energy: 0.3, Danceability: 0.3, Acousticness: 0.7, Tempo: 75},
		},
		aliases: []string{"down", "blue", "depressed", "heartbroken", "lonely", "unhappy", "crying"},
	},
	{
		profile: models.MoodProfile{
			Name:        "energetic",
			Description: "fast and loud",
			Genres:      []string{"work-out", "edm", "rock"},
			Targets:     models.AudioTargets{Valence: 0.7, Energy: 0.95, Danceability: 0.65, Acousticness: 0.05, Tempo: 140},
		},
		aliases: []string{"pumped", "hyped", "workout", "work-out", "gym", "running", "energized"},
	},
	{
		profile: models.MoodProfile{
			Name:        "calm",
			Description: "soft, slow and acoustic",
			Genres:      []string{"ambient", "chill", "classical"},
			Targets:     models.AudioTargets{Valence: 0.5, Energy: 0.2, Danceability: 0.3, Acousticness: 0.8, Tempo: 80},
		},
		aliases: []string{"relaxed", "peaceful", "serene", "tranquil", "mellow", "chill"},
	},
	{
		profile: models.MoodProfile{
			Name:        "angry",
			Description: "aggressive and dense",
			Genres:      []string{"metal", "hard-rock", "punk"},
			Targets:     models.AudioTargets{Valence: 0.25, Energy: 0.95, Danceability: 0.45, Acousticness: 0.05, Tempo: 150},
		},
		aliases: []string{"mad", "furious", "frustrated", "annoyed", "rage"},
	},
	{
		profile: models.MoodProfile{
			Name:        "romantic",
			Description: "warm, slow and intimate",
			Genres:      []string{"romance", "r-n-b", "soul"},
			Targets:     models.AudioTargets{Valence: 0.6, Energy: 0.4, Danceability: 0.55, Acousticness: 0.5, Tempo: 90},
		},
		aliases: []string{"love", "loving", "in love", "date", "intimate"},
	},
	{
		profile: models.MoodProfile{
			Name:        "focused",
			Description: "steady and instrumental",
			Genres:      []string{"study", "ambient", "piano"},
			Targets:     models.AudioTargets{Valence: 0.4, Energy: 0.35, Danceability: 0.3, Acousticness: 0.6, Tempo: 100},
		},
		aliases: []string{"focus", "study", "studying", "work", "working", "concentrate", "productive"},
	},
	{
		profile: models.MoodProfile{
			Name:        "party",
			Description: "danceable and loud",
			Genres:      []string{"party", "dance", "hip-hop"},
			Targets:     models.AudioTargets{Valence: 0.8, Energy: 0.85, Danceability: 0.9, Acousticness: 0.1, Tempo: 125},
		},
		aliases: []string{"dancing", "celebrate", "celebration", "club", "festive"},
	},
	{
		profile: models.MoodProfile{
			Name:        "sleepy",
			Description: "very quiet and slow",
			Genres:      []string{"sleep", "ambient", "new-age"},
			Targets:     models.AudioTargets{Valence: 0.3, Energy: 0.1, Danceability: 0.2, Acousticness: 0.9, Tempo: 65},
		},
		aliases: []string{"tired", "sleep", "bedtime", "drowsy", "exhausted"},
	},
	{
		profile: models.MoodProfile{
			Name:        "nostalgic",
			Description: "familiar and bittersweet",
			Genres:      []string{"indie", "folk", "soul"},
			Targets:     models.AudioTargets{Valence: 0.45, Energy: 0.45, Danceability: 0.45, Acousticness: 0.5, Tempo: 100},
		},
		aliases: []string{"nostalgia", "memories", "throwback", "reminiscing", "wistful"},
	},
}

// keywords flattens every name and alias for fuzzy matching; owner maps each back to its mood.
var keywords, owner = index()

func index() ([]string, []int) {
	var words []string
	var owners []int
	for i, m := range moods {
		words = append(words, m.profile.Name)
		owners = append(owners, i)
		for _, a := range m.aliases {
			words = append(words, a)
			owners = append(owners, i)
		}
	}
	return words, owners
}

// Names returns the known mood names in a stable order.
func Names() []string {
	names := make([]string, 0, len(moods))
	for _, m := range moods {
		names = append(names, m.profile.Name)
	}
	return names
}

// Profiles returns every known mood.
func Profiles() []models.MoodProfile {
	out := make([]models.MoodProfile, 0, len(moods))
	for _, m := range moods {
		out = append(out, clone(m.profile))
	}
	return out
}

// Lookup returns the mood with exactly this name.
func Lookup(name string) (models.MoodProfile, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range moods {
		if m.profile.Name == name {
			return clone(m.profile), true
		}
	}
	return models.MoodProfile{}, false
}

// Match resolves free text such as "feeling kind of blue today" to a known mood.
//
// Whole words that equal a mood name or alias win, earliest word first. Otherwise each word is fuzzy
// matched against every name and alias and the best score wins. Text with no match yields
// [shared.ErrUnknownMood].
func Match(text string) (models.MoodProfile, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return models.MoodProfile{}, fmt.Errorf("%w: empty mood", shared.ErrInvalidInput)
	}

	if i := slices.Index(keywords, normalized); i >= 0 {
		return clone(moods[owner[i]].profile), nil
	}

	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})

	for _, w := range words {
		if i := slices.Index(keywords, w); i >= 0 {
			return clone(moods[owner[i]].profile), nil
		}
	}

	best, bestScore := -1, 0
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		matches := fuzzy.Find(w, keywords)
		if len(matches) == 0 {
			continue
		}
		if top := matches[0]; best < 0 || top.Score > bestScore {
			best, bestScore = owner[top.Index], top.Score
		}
	}

	if best < 0 {
		return models.MoodProfile{}, fmt.Errorf("%w: %q (try one of %s)", shared.ErrUnknownMood, text, strings.Join(Names(), ", "))
	}
	return clone(moods[best].profile), nil
}

// Recommendations wraps tracks for mood into the result type used by formatters and handlers.
func Recommendations(mood models.MoodProfile, tracks []models.Track) models.Recommendations {
	return models.Recommendations{Mood: mood.Name, Tracks: tracks}
}

func clone(p models.MoodProfile) models.MoodProfile {
	p.Genres = slices.Clone(p.Genres)
	return p
}

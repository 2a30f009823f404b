package exercises

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const summaryMaxLen = 120

// Source tells where a batch of suggestions came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceMixed    Source = "mixed"
	SourceFallback Source = "fallback"
)

type Suggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary is the description cut to 120 characters, with "..." appended when cut.
func (s Suggestion) Summary() string {
	runes := []rune(s.Description)
	if len(runes) <= summaryMaxLen {
		return s.Description
	}
	return string(runes[:summaryMaxLen]) + "..."
}

var fallbackExercises = []Suggestion{
	{Name: "Bodyweight Squat", Description: "Basic squat to train legs and glutes."},
	{Name: "Push-up", Description: "Upper-body pressing exercise for chest & triceps."},
	{Name: "Plank", Description: "Core stability hold."},
	{Name: "Lunge (forward)", Description: "Single-leg exercise for quadriceps & balance."},
	{Name: "Bent-over Row (dumbbell)", Description: "Back pulling exercise for lat and rhomboids."},
	{Name: "Glute Bridge", Description: "Posterior chain activation."},
	{Name: "Jumping Jacks", Description: "Cardio warm-up."},
	{Name: "Mountain Climbers", Description: "Cardio + core move."},
	{Name: "Dumbbell Shoulder Press", Description: "Shoulder strengthening."},
	{Name: "Dead Bug", Description: "Core coordination exercise."},
}

// Fallback returns the first count entries of the local exercise list, cycling
// through it when count is larger than the list.
func Fallback(count int) []Suggestion {
	if count <= 0 {
		return []Suggestion{}
	}
	out := make([]Suggestion, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, fallbackExercises[i%len(fallbackExercises)])
	}
	return out
}

// textSanitizer removes every tag, leaving only the text content.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

func (s *textSanitizer) Text(markup string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(markup))
	return strings.Join(strings.Fields(stripped), " ")
}

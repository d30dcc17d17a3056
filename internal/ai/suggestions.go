// Package ai asks Gemini for personalised challenge suggestions.
package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSuggestions    = errors.New("no challenge suggestions in response")
	ErrSuggesterOffline = errors.New("challenge suggester not configured")
)

// Profile is what the prompt knows about the user. Empty fields render as "Not provided".
type Profile struct {
	Age           string
	Gender        string
	Weight        string
	Height        string
	ActivityLevel string
	Goal          string
}

type Suggestion struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Duration    string `json:"duration"`
	Difficulty  string `json:"difficulty"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
}

// DefaultSuggestions is served whenever the model is unavailable or answers with nothing usable.
func DefaultSuggestions() []Suggestion {
	return []Suggestion{
		{
			Title:       "30-Day Push-Up Challenge",
			Type:        "Strength",
			Duration:    "30 Days",
			Difficulty:  "Intermediate",
			Goal:        "Strength",
			Description: "Build upper body strength with progressive push-up training",
		},
		{
			Title:       "7-Day Core Challenge",
			Type:        "Core",
			Duration:    "7 Days",
			Difficulty:  "Beginner",
			Goal:        "Core Strength",
			Description: "Strengthen your core muscles with daily core exercises",
		},
	}
}

func BuildPrompt(profile Profile) string {
	var builder strings.Builder
	builder.WriteString("As a professional fitness trainer, suggest 5-10 personalized fitness challenges based on the following user information:\n\n")
	fmt.Fprintf(&builder, "Age: %s\n", orNotProvided(profile.Age))
	fmt.Fprintf(&builder, "Gender: %s\n", orNotProvided(profile.Gender))
	fmt.Fprintf(&builder, "Weight: %s kg\n", orNotProvided(profile.Weight))
	fmt.Fprintf(&builder, "Height: %s cm\n", orNotProvided(profile.Height))
	fmt.Fprintf(&builder, "Activity Level: %s\n", orNotProvided(profile.ActivityLevel))
	fmt.Fprintf(&builder, "Goal: %s\n\n", orNotProvided(profile.Goal))
	builder.WriteString(`For each challenge, provide:
1. Title (e.g., "30-Day Push-Up Challenge")
2. Type (Strength, Core, Cardio, Flexibility, Mindfulness, Stamina)
3. Duration (e.g., "30 Days", "7 Days", "21 Days")
4. Difficulty (Beginner, Intermediate, Advanced)
5. Goal (Weight Loss, Weight Gain, Strength, Core Strength, Maintain Fitness, Trauma Recovery)
6. Brief description

Format the response as a JSON array of objects with these exact keys:
title, type, duration, difficulty, goal, description

Return ONLY the JSON array, no additional text.`)
	return builder.String()
}

// ParseSuggestions decodes the outermost JSON array in text. Models often wrap the array in
// markdown fences or prose, so everything before the first '[' and after the last ']' is dropped.
func ParseSuggestions(text string) ([]Suggestion, error) {
	trimmed := strings.TrimSpace(text)
	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}

	var decoded []Suggestion
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(decoded))
	for _, suggestion := range decoded {
		suggestion = suggestion.normalized()
		if suggestion.Title == "" {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	if len(suggestions) == 0 {
		return nil, ErrNoSuggestions
	}
	return suggestions, nil
}

func (suggestion Suggestion) normalized() Suggestion {
	return Suggestion{
		Title:       strings.TrimSpace(suggestion.Title),
		Type:        strings.TrimSpace(suggestion.Type),
		Duration:    strings.TrimSpace(suggestion.Duration),
		Difficulty:  strings.TrimSpace(suggestion.Difficulty),
		Goal:        strings.TrimSpace(suggestion.Goal),
		Description: strings.TrimSpace(suggestion.Description),
	}
}

func orNotProvided(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Not provided"
	}
	return strings.TrimSpace(value)
}

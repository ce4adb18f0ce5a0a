package services

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hoppi/models"
)

func parkSnapshot() models.EnvironmentSnapshot {
	return models.EnvironmentSnapshot{
		LocationType: "park",
		WeatherHint:  "It's cloudy, suggest something cozy or introspective.",
		DayPeriod:    "morning",
		NearbyPlace:  &models.Place{Name: "Riverside Park", Category: "park", Lat: 49.2801, Lon: -123.1207},
	}
}

func TestComposeChallengePromptContents(t *testing.T) {
	dir := t.TempDir()
	pc := NewPromptComposer(dir, fixedClock("2025-06-01T09:30:00Z"), rand.New(rand.NewSource(1)))

	prompt := pc.ComposeChallengePrompt(49.2827, -123.1207, parkSnapshot())

	for _, want := range []string{
		"You are a warm, witty real-world assistant named Hoppi.",
		"Coordinates: 49.2827, -123.1207.",
		"The user's environment: park.",
		"It's cloudy, suggest something cozy or introspective.",
		"According to the sun cycle, it's morning.",
		"Nearby info: There is a park nearby called 'Riverside Park'.",
		"Variation: ",
		"Freshness: ",
		"under 30 words",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}

	// Variation and Freshness lines must not be empty.
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Variation:") && len(strings.TrimSpace(strings.TrimPrefix(line, "Variation:"))) == 0 {
			t.Errorf("Empty Variation line")
		}
		if strings.HasPrefix(line, "Freshness:") && len(strings.TrimSpace(strings.TrimPrefix(line, "Freshness:"))) == 0 {
			t.Errorf("Empty Freshness line")
		}
	}
}

func TestComposeChallengePromptDeterministicWithSeed(t *testing.T) {
	dir := t.TempDir()
	a := NewPromptComposer(dir, fixedClock("2025-06-01T09:30:00Z"), rand.New(rand.NewSource(7)))
	b := NewPromptComposer(dir, fixedClock("2025-06-01T09:30:00Z"), rand.New(rand.NewSource(7)))

	if a.ComposeChallengePrompt(1, 2, parkSnapshot()) != b.ComposeChallengePrompt(1, 2, parkSnapshot()) {
		t.Errorf("Same seed should produce identical prompts")
	}
}

func TestComposeChallengePromptNightSafety(t *testing.T) {
	snap := parkSnapshot()
	snap.DayPeriod = "night"
	pc := NewPromptComposer(t.TempDir(), fixedClock("2025-06-01T23:00:00Z"), rand.New(rand.NewSource(3)))

	prompt := pc.ComposeChallengePrompt(49.2827, -123.1207, snap)
	if !strings.Contains(prompt, "It's dark, so avoid unsafe areas or strangers.") {
		t.Errorf("Night prompt missing conservative safety sentence:\n%s", prompt)
	}
}

func TestComposeChallengePromptNoNearbyPlace(t *testing.T) {
	snap := parkSnapshot()
	snap.NearbyPlace = nil
	pc := NewPromptComposer(t.TempDir(), fixedClock("2025-06-01T09:30:00Z"), rand.New(rand.NewSource(3)))

	prompt := pc.ComposeChallengePrompt(49.2827, -123.1207, snap)
	if !strings.Contains(prompt, "No major places nearby. Suggest something suitable for open areas.") {
		t.Errorf("Prompt missing open-areas sentence:\n%s", prompt)
	}
}

func TestPromptDebugFileOverwritten(t *testing.T) {
	dir := t.TempDir()
	pc := NewPromptComposer(dir, fixedClock("2025-06-01T09:30:00Z"), rand.New(rand.NewSource(3)))

	first := pc.ComposeChallengePrompt(1.0, 2.0, parkSnapshot())
	_ = first
	second := pc.ComposeChallengePrompt(3.0, 4.0, parkSnapshot())

	data, err := os.ReadFile(filepath.Join(dir, "prompts.txt"))
	if err != nil {
		t.Fatalf("prompts.txt not written: %v", err)
	}
	if !strings.Contains(string(data), "Coordinates: 3.0000, 4.0000.") {
		t.Errorf("Debug file does not hold the latest prompt:\n%s", data)
	}
	if string(data) != second+"\n" {
		t.Errorf("Debug file should contain exactly the last prompt")
	}
}

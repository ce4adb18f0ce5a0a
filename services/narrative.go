package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"hoppi/models"
)

// MinNarrativeSubmissions is how many submissions a session needs before a
// micro-narrative can be composed.
const MinNarrativeSubmissions = 3

// PlaceholderImageURL stands in for any beat whose image generation failed.
const PlaceholderImageURL = "https://placehold.co/1024x1024/png?text=Hoppi"

const imageStyleSuffix = " | cinematic, natural light, detailed textures, poetic atmosphere"

// unrelatedFallbackBeats replaces an empty beat list when the submissions
// were judged thematically unrelated.
var unrelatedFallbackBeats = []models.Beat{
	{Title: "Fragment I", Prompt: "abstract swirl of lights and motion blur"},
	{Title: "Fragment II", Prompt: "floating memories in pastel mist"},
	{Title: "Fragment III", Prompt: "gentle horizon fading into cosmic noise"},
}

// fallbackStory and fallbackBeats cover a complete narrative-model failure.
const fallbackStory = "Three quiet moments stitched together — a small journey seen through curious eyes."

var fallbackBeats = []models.Beat{
	{Title: "Scene 1", Prompt: "soft morning light over an urban corner"},
	{Title: "Scene 2", Prompt: "vivid colors and textures noticed mid-day"},
	{Title: "Scene 3", Prompt: "evening calm under city lights"},
}

// NarrativeComposer turns a session's submissions into a short illustrated
// story: one structured-JSON text call, then one image call per beat.
type NarrativeComposer struct {
	completer  TextCompleter
	images     ImageGenerator
	textModel  string
	imageModel string
	resultsDir string
}

func NewNarrativeComposer(completer TextCompleter, images ImageGenerator, textModel, imageModel, resultsDir string) *NarrativeComposer {
	return &NarrativeComposer{
		completer:  completer,
		images:     images,
		textModel:  textModel,
		imageModel: imageModel,
		resultsDir: resultsDir,
	}
}

// submissionsUnrelated flags a set whose summaries share little or no
// thematic overlap: almost no text at all, or almost every word unique.
func submissionsUnrelated(subs []models.NarrativeInput) bool {
	var parts []string
	for _, s := range subs {
		if s.Summary != "" {
			parts = append(parts, s.Summary)
		}
	}
	blob := strings.Join(parts, " ")
	if len(strings.TrimSpace(blob)) < 30 {
		return true
	}
	words := strings.Fields(strings.ToLower(blob))
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	total := len(words)
	if total == 0 {
		total = 1
	}
	return float64(len(unique))/float64(total) > 0.9
}

func (n *NarrativeComposer) composePrompt(subs []models.NarrativeInput, unrelated bool) string {
	var joined []string
	for _, s := range subs {
		joined = append(joined, fmt.Sprintf("Task: %s\nSubmission: %s\nHoppi's feedback: %s", s.Task, s.Summary, s.JudgeFeedback))
	}

	narrativeHint := "These three moments share a loose connection. Write a simple, grounded mini-story that links them together. " +
		"Keep it conversational — like someone casually describing what happened to a friend. " +
		"Avoid deep symbolism; focus on clarity, mood, and what the user might've experienced."
	if unrelated {
		narrativeHint = "These three submissions seem unrelated. Don't try to force a plot. " +
			"Instead, create a playful or loosely connected snapshot that shows contrast or randomness — like flipping through someone's curious day. " +
			"You can be a little surreal, but keep the tone light and clear."
	}

	return fmt.Sprintf(`You are Hoppi — a micro-narrative storyteller.
%s

Write a micro-narrative under 60 words that connects or reinterprets these 3 user submissions.
Your tone should be light, clear, human and a bit thoughtful — but not poetic or abstract.
Avoid metaphors unless very simple. No overly flowery or symbolic language.
Focus on small observations, little shifts in mood, or changes in attention.

Then generate 3 short visual prompts — one per moment — based on the story's key scenes.

Format your output as JSON:
{"story_text": "...", "beats": [{"title":"...","prompt":"..."}, ...]}

Submissions:
%s

Return ONLY JSON.`, narrativeHint, strings.Join(joined, "\n\n"))
}

// repairJSON strips code fences and, failing a direct parse, trims the text
// to its outermost {...} span before trying again.
func repairJSON(raw string, out any) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object found in model output")
	}
	return json.Unmarshal([]byte(cleaned[start:end+1]), out)
}

// generateStory asks the narrative model for the story text and beats.
// Any failure degrades to the fixed fallback story.
func (n *NarrativeComposer) generateStory(ctx context.Context, subs []models.NarrativeInput) (string, []models.Beat) {
	unrelated := submissionsUnrelated(subs)
	prompt := n.composePrompt(subs, unrelated)

	raw, err := n.completer.Complete(ctx, n.textModel, prompt)
	if err != nil {
		log.Printf("[ERROR] Narrative text generation failed: %v", err)
		return fallbackStory, fallbackBeats
	}

	var parsed struct {
		StoryText string        `json:"story_text"`
		Beats     []models.Beat `json:"beats"`
	}
	if err := repairJSON(raw, &parsed); err != nil {
		log.Printf("[ERROR] Narrative JSON parse failed: %v", err)
		return fallbackStory, fallbackBeats
	}

	beats := parsed.Beats
	if unrelated && len(beats) == 0 {
		beats = unrelatedFallbackBeats
	}
	return strings.TrimSpace(parsed.StoryText), beats
}

// generateImages requests one image per beat. A failed beat gets the
// placeholder URL; one failure never blocks the others. Inline image bytes
// are written under the results dir and addressed by a story-image path the
// HTTP layer serves.
func (n *NarrativeComposer) generateImages(ctx context.Context, beats []models.Beat) []models.BeatImage {
	out := make([]models.BeatImage, 0, len(beats))
	for _, b := range beats {
		result, err := n.images.GenerateImage(ctx, n.imageModel, b.Prompt+imageStyleSuffix)
		if err != nil {
			log.Printf("[ERROR] Image generation failed for %s: %v", b.Title, err)
			out = append(out, models.BeatImage{Title: b.Title, URL: PlaceholderImageURL})
			continue
		}
		url := result.URL
		if !result.Hosted() {
			url, err = n.storeInlineImage(result.Data)
			if err != nil {
				log.Printf("[ERROR] Could not store inline image for %s: %v", b.Title, err)
				url = PlaceholderImageURL
			}
		}
		out = append(out, models.BeatImage{Title: b.Title, URL: url})
	}
	return out
}

func (n *NarrativeComposer) storeInlineImage(data []byte) (string, error) {
	dir := filepath.Join(n.resultsDir, "story-images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}
	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return "/story-image/" + name, nil
}

// ComposeChapter is the full pipeline: submissions in, story text plus beats
// plus one image per beat out.
func (n *NarrativeComposer) ComposeChapter(ctx context.Context, subs []models.NarrativeInput) (*models.Chapter, error) {
	if len(subs) < MinNarrativeSubmissions {
		return nil, fmt.Errorf("need at least %d submissions, have %d", MinNarrativeSubmissions, len(subs))
	}
	story, beats := n.generateStory(ctx, subs)
	images := n.generateImages(ctx, beats)
	return &models.Chapter{StoryText: story, Beats: beats, Images: images}, nil
}

package services

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hoppi/models"
)

// periodHints is the fixed day-period guidance table used in the challenge
// prompt.
var periodHints = map[string]string{
	"pre-dawn":  "It's before sunrise — suggest something peaceful or introspective.",
	"morning":   "It's morning, suggest something energizing and fresh.",
	"afternoon": "It's afternoon, suggest something social or creative.",
	"evening":   "It's evening, suggest something calm and reflective.",
	"night":     "It's night, suggest something quiet, safe, and introspective.",
}

var daytimeVariations = []string{
	"Be energetic and playful.",
	"Encourage interaction with others.",
	"Make it involve a stranger.",
	"Encourage them to take a photo, video or record audio.",
	"Make it feel like a mini-game.",
	"Include movement or interaction with the environment.",
	"Encourage a quick creative act.",
	"Make them explore a small detail around them they normally ignore.",
	"Include something involving color or sound.",
}

var nighttimeVariations = []string{
	"Be soft and gentle.",
	"Encourage quiet reflection.",
	"Focus on creativity or mindfulness.",
	"Suggest a calming or self-reflective act.",
	"Make it about observing surroundings quietly.",
	"Encourage them to write or record a thought privately.",
	"Let them notice city lights, sounds, or patterns quietly.",
	"Prompt them to capture a subtle night detail in a photo or note.",
}

var freshnessHints = []string{
	"Make sure this challenge feels totally new compared to any previous idea.",
	"Ensure this activity feels distinct in tone or action from the last few suggestions.",
	"Add a small creative twist not seen in previous tasks.",
	"Vary the setting or mood slightly to keep it interesting.",
	"Change up the interaction style for variety.",
}

// darkPeriods are the periods that get the conservative safety sentence and
// the nighttime variation list.
func isDarkPeriod(period string) bool {
	return period == "evening" || period == "night" || period == "pre-dawn"
}

// PromptComposer assembles the natural-language instruction for the
// challenge model. Randomness and the clock are injected so tests can pin
// the output.
type PromptComposer struct {
	resultsDir string
	now        func() time.Time
	rng        *rand.Rand
}

func NewPromptComposer(resultsDir string, now func() time.Time, rng *rand.Rand) *PromptComposer {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PromptComposer{resultsDir: resultsDir, now: now, rng: rng}
}

// ComposeChallengePrompt builds the full generation prompt from the
// environment snapshot and, as a side effect, overwrites the prompts.txt
// debug file with the assembled text. The debug write is best-effort and
// replaces the previous content every call.
func (p *PromptComposer) ComposeChallengePrompt(lat, lon float64, env models.EnvironmentSnapshot) string {
	periodHint, ok := periodHints[env.DayPeriod]
	if !ok {
		periodHint = periodHints["afternoon"]
	}

	safetyHint := "It's bright outside, so social or playful tasks are great."
	variations := daytimeVariations
	if isDarkPeriod(env.DayPeriod) {
		safetyHint = "It's dark, so avoid unsafe areas or strangers. Focus on calm, personal tasks."
		variations = nighttimeVariations
	}

	nearbyHint := "No major places nearby. Suggest something suitable for open areas."
	if env.NearbyPlace != nil {
		nearbyHint = fmt.Sprintf("There is a %s nearby called '%s'. Suggest something relevant to that place.",
			env.NearbyPlace.Category, env.NearbyPlace.Name)
	}

	variationHint := variations[p.rng.Intn(len(variations))]
	freshnessHint := freshnessHints[p.rng.Intn(len(freshnessHints))]

	var b strings.Builder
	b.WriteString("You are a warm, witty real-world assistant named Hoppi.\n\n")
	fmt.Fprintf(&b, "The user's environment: %s.\n", env.LocationType)
	fmt.Fprintf(&b, "Coordinates: %.4f, %.4f.\n", lat, lon)
	fmt.Fprintf(&b, "Local time (approx hour): %s:00.\n", p.now().Format("15"))
	if env.WeatherHint != "" {
		b.WriteString(env.WeatherHint + "\n")
	}
	fmt.Fprintf(&b, "According to the sun cycle, it's %s.\n", env.DayPeriod)
	b.WriteString(periodHint + "\n")
	b.WriteString(safetyHint + "\n\n")
	fmt.Fprintf(&b, "Nearby info: %s\n", nearbyHint)
	fmt.Fprintf(&b, "Variation: %s\n", variationHint)
	fmt.Fprintf(&b, "Freshness: %s\n\n", freshnessHint)
	b.WriteString("Write ONE short, fun, real-time challenge under 30 words.\n")
	b.WriteString("No emojis/hashtags. Avoid repetitive openings. No exact clock time. Simple, 12-year-old-friendly, spontaneous, doable now with just a phone.\n")

	prompt := b.String()
	p.writeDebugPrompt(prompt)
	return prompt
}

func (p *PromptComposer) writeDebugPrompt(prompt string) {
	if p.resultsDir == "" {
		return
	}
	if err := os.MkdirAll(p.resultsDir, 0o755); err != nil {
		log.Printf("[WARN] Could not create results dir: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(p.resultsDir, "prompts.txt"), []byte(prompt+"\n"), 0o644); err != nil {
		log.Printf("[WARN] Could not write prompt debug file: %v", err)
	}
}

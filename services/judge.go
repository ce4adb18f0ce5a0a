package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hoppi/models"
)

// JudgeFallback is returned whenever the completion call fails during
// judging. Deliberately different wording from GeneratorFallback.
const JudgeFallback = "That was unexpected — but Hoppi loves surprises! Ready for another quick challenge?"

const maxVerdictWords = 45

// encouragements is the fixed set of closing lines; every verdict must end
// with exactly one of them.
var encouragements = []string{
	"Ready for another little adventure?",
	"Want to see what Hoppi dreams up next?",
	"Shall we try another quick challenge?",
	"Let's cook up the next idea!",
}

var humorStyles = []string{"playful", "clever", "lightly teasing", "curious and kind"}

// periodTones maps the day period to the verdict's tone directive.
var periodTones = map[string]string{
	"morning":   "be bright and energizing",
	"afternoon": "sound playful and social",
	"evening":   "be warm and reflective",
	"night":     "be calm, witty, and gentle",
}

var (
	feedbackFragmentRe = regexp.MustCompile(`"feedback"\s*:\s*"([^"]+)"`)
	fitScoreFragmentRe = regexp.MustCompile(`"fit_score"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)
)

// Summarizer turns a stored media file into a short description.
type Summarizer interface {
	Summarize(filePath, mediaType string) string
}

// Judge composes the verdict prompt for a submission, calls the judging
// model and post-processes the raw output into a bounded verdict.
type Judge struct {
	completer  TextCompleter
	summarizer Summarizer
	model      string
	rng        *rand.Rand
}

func NewJudge(completer TextCompleter, summarizer Summarizer, model string, rng *rand.Rand) *Judge {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Judge{completer: completer, summarizer: summarizer, model: model, rng: rng}
}

// JudgeInput is everything the judge considers for one submission.
type JudgeInput struct {
	Task      string
	MediaType string
	Text      string
	FilePath  string
	Lat       *float64
	Lon       *float64
	Env       *models.EnvironmentSnapshot
}

// Verdict is the judge's reaction plus an optional structured score the
// model may have embedded in its output.
type Verdict struct {
	Text     string
	FitScore *float64
}

// Judge returns a verdict for the submission. Upstream failure yields the
// fixed fallback text; the method itself never errors.
func (j *Judge) Judge(ctx context.Context, in JudgeInput) Verdict {
	prompt := j.composePrompt(in)

	raw, err := j.completer.Complete(ctx, j.model, prompt)
	if err != nil {
		log.Printf("[LLM ERROR] judge call failed: %v", err)
		return Verdict{Text: JudgeFallback}
	}

	text, score := j.postprocess(raw)
	return Verdict{Text: text, FitScore: score}
}

// sampleDescription prefers free text, then a media summary, then a generic
// placeholder.
func (j *Judge) sampleDescription(in JudgeInput) string {
	if trimmed := strings.TrimSpace(in.Text); trimmed != "" {
		// Truncate on a rune boundary so multi-byte text cannot leak a
		// split character into the prompt.
		if runes := []rune(trimmed); len(runes) > 200 {
			trimmed = string(runes[:200])
		}
		return "User wrote: " + trimmed
	}
	if in.FilePath != "" && j.summarizer != nil {
		return j.summarizer.Summarize(in.FilePath, in.MediaType)
	}
	return fmt.Sprintf("A %s was submitted, but no further detail was provided.", in.MediaType)
}

func (j *Judge) composePrompt(in JudgeInput) string {
	sample := j.sampleDescription(in)

	var locationHint, weatherHint, dayPeriod string
	if in.Env != nil {
		locationHint = in.Env.LocationType
		weatherHint = in.Env.WeatherHint
		dayPeriod = in.Env.DayPeriod
	}
	tone, ok := periodTones[dayPeriod]
	if !ok {
		tone = "be upbeat and kind"
	}
	humor := humorStyles[j.rng.Intn(len(humorStyles))]

	var b strings.Builder
	b.WriteString("You are Hoppi — a witty, thoughtful AI who is a story companion, not just a reviewer\n\n")
	fmt.Fprintf(&b, "Task:\n> %s\n\n", in.Task)
	fmt.Fprintf(&b, "User submission:\n> %s\n\n", sample)
	b.WriteString("Environment context:\n")
	fmt.Fprintf(&b, "- Media type: %s\n", in.MediaType)
	fmt.Fprintf(&b, "- Location: %s, %s\n", locationHint, weatherHint)
	fmt.Fprintf(&b, "- Time: %s\n", dayPeriod)
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	fmt.Fprintf(&b, "- Humor: %s\n\n", humor)
	b.WriteString(`Your goal:
1. Skip greetings like "Hello there" or "Hi friend."
2. Be short, friendly, and specific (under 30 words).
3. React to the actual content first — summarize or interpret what the user submitted (especially audio or image content), even if it diverges from the task.
4. Use surprise or contrast. Point out what's weird, bold, or interesting in what they did.
5. If it's off-task: tease them a little, but make it fun — like "that's not what I asked, but I'll allow it."
6. Avoid generic compliments ("Beautiful!" "Nice work!"). Focus on imagery, tone, or emotion evoked.
7. No emojis, hashtags, lists, or markdown.
8. Be playful and teasing — like a clever friend noticing what they tried to do.

Examples:

A. User sends breath audio as requested:
> “Alright, that’s definitely breathing. Not creepy at all. You and the BUDō door are totally vibing. Want the next one?”

B. User sends something random instead of breath:
> “That’s not a breath. That’s... a glitchy rave? But sure, let’s pretend it’s your soul pulsing at 6am. Let’s see what’s next.”

C. User nails the mood:
> “Oooh that clip is so calm I almost took a nap. You’re setting the mood early. Ready to shake it up?”

D. Totally empty or meaningless input:
> “You blinked, didn’t you? Try again — I want to hear something real.”

Rules:
- Be short (under 30 words).
- Be specific, casual, and grounded.
- No greetings, hashtags, or quotes.
- Always react to the submission. Never ignore it.
- Keep the voice smart, warm, and just a little chaotic.
`)
	return b.String()
}

// postprocess extracts an embedded feedback fragment when present, collapses
// whitespace, enforces the word bound and guarantees exactly one closing
// encouragement.
func (j *Judge) postprocess(raw string) (string, *float64) {
	feedback := strings.TrimSpace(raw)

	var score *float64
	if m := fitScoreFragmentRe.FindStringSubmatch(feedback); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = &v
		}
	}

	if m := feedbackFragmentRe.FindStringSubmatch(feedback); m != nil {
		feedback = m[1]
	}
	feedback = strings.TrimSpace(strings.ReplaceAll(feedback, "\n", " "))

	words := strings.Fields(feedback)
	if len(words) > maxVerdictWords {
		feedback = strings.Join(words[:maxVerdictWords], " ") + "…"
	}

	if !hasEncouragement(feedback) {
		feedback = strings.TrimRight(feedback, ".!?") + ". " + encouragements[j.rng.Intn(len(encouragements))]
	}
	return feedback, score
}

// hasEncouragement checks for the body of any known encouragement line,
// question mark excluded, so a truncated closing still counts.
func hasEncouragement(text string) bool {
	for _, e := range encouragements {
		stem := strings.Split(e, "?")[0]
		if strings.Contains(text, stem) {
			return true
		}
	}
	return false
}

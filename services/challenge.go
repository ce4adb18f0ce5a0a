package services

import (
	"context"
	"log"
	"strings"
)

// GeneratorFallback is returned whenever the completion call fails during
// challenge generation. Deliberately distinct from the judge's fallback so
// the two failure sites stay distinguishable.
const GeneratorFallback = "Nice! That totally counts. Ready for another quick challenge?"

// ChallengeGenerator wraps the completion call for task generation.
type ChallengeGenerator struct {
	completer TextCompleter
	model     string
}

func NewChallengeGenerator(completer TextCompleter, model string) *ChallengeGenerator {
	return &ChallengeGenerator{completer: completer, model: model}
}

// Generate returns the model's challenge text, or the fixed fallback with
// source "fallback" when the upstream call fails. The error is consumed
// here; generation never fails a request.
func (g *ChallengeGenerator) Generate(ctx context.Context, prompt string) (task, source string) {
	out, err := g.completer.Complete(ctx, g.model, prompt)
	if err != nil {
		log.Printf("[LLM ERROR] challenge generation failed: %v", err)
		return GeneratorFallback, "fallback"
	}
	return strings.TrimSpace(out), "LLM"
}

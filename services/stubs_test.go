package services

import (
	"context"
	"errors"
)

// fakeCompleter returns a canned response or error and records the last
// prompt it saw.
type fakeCompleter struct {
	response   string
	err        error
	lastModel  string
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, model, prompt string) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeImageGen serves queued results, one per call, and fails once the
// queue is exhausted or an entry's fail flag is set.
type fakeImageGen struct {
	results []ImageResult
	fails   []bool
	calls   int
}

func (f *fakeImageGen) GenerateImage(_ context.Context, _, _ string) (ImageResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.fails) && f.fails[i] {
		return ImageResult{}, errors.New("image backend down")
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return ImageResult{}, errors.New("no more stubbed results")
}

type fakeSummarizer struct {
	summary string
}

func (f *fakeSummarizer) Summarize(_, _ string) string {
	return f.summary
}

package models

// Beat is one scene of a micro-narrative with its image-generation prompt.
type Beat struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// BeatImage pairs a beat title with the URL of its generated image.
type BeatImage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Chapter is the full output of the narrative pipeline for one session.
type Chapter struct {
	StoryText string      `json:"story_text"`
	Beats     []Beat      `json:"beats"`
	Images    []BeatImage `json:"images"`
}

// NarrativeInput is what the composer needs from each prior submission.
type NarrativeInput struct {
	Task          string `json:"task"`
	Summary       string `json:"summary"`
	JudgeFeedback string `json:"judge_feedback"`
}

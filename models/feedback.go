package models

// FeedbackEntry is one thumbs-up/down record from the client. Entries are
// independent of sessions and stored one file per entry.
type FeedbackEntry struct {
	Rating    string `json:"rating"` // "up" or "down"
	Input     string `json:"input"`
	Output    string `json:"output"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

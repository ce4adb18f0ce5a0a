package models

// Submission is one stored response to a generated challenge. The on-disk
// record (meta.json) uses exactly these field names.
type Submission struct {
	SessionID     string   `json:"session_id"`
	Index         int      `json:"index"`
	Task          string   `json:"task"`
	MediaType     string   `json:"media_type"`
	File          string   `json:"file,omitempty"`
	Text          string   `json:"text"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	CreatedUTC    string   `json:"created_utc"`
	JudgeFeedback string   `json:"judge_feedback,omitempty"`
	FitScore      *float64 `json:"fit_score,omitempty"`
}

// Progress reports how far a session is through the current 5-task cycle.
type Progress struct {
	Count         int  `json:"count"`
	Remaining     int  `json:"remaining"`
	SurpriseReady bool `json:"surprise_ready"`
}

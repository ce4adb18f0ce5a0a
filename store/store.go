package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"hoppi/models"
)

// CycleSize is the number of submissions that completes one surprise cycle.
const CycleSize = 5

// SubmissionStore manages the per-session directory layout under a single
// upload root:
//
//	<root>/<session_id>/<3-digit-index>/{uploaded file, note.txt, meta.json}
//
// Index assignment is serialized per session so two simultaneous submissions
// cannot claim the same directory. The layout itself is the external
// contract and must not change.
type SubmissionStore struct {
	root string

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

func NewSubmissionStore(root string) *SubmissionStore {
	return &SubmissionStore{
		root:     root,
		sessions: make(map[string]*sync.Mutex),
	}
}

// Root returns the upload root directory.
func (s *SubmissionStore) Root() string {
	return s.root
}

func (s *SubmissionStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[sessionID] = lock
	}
	return lock
}

// EnsureSessionDir creates the session directory if needed and returns it.
func (s *SubmissionStore) EnsureSessionDir(sessionID string) (string, error) {
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}
	return dir, nil
}

// NextIndex scans the session directory for purely numeric subdirectories and
// returns max+1, or 1 when none exist. The counter lives in the directory
// names themselves, never in memory.
func (s *SubmissionStore) NextIndex(sessionDir string) (int, error) {
	indices, err := listIndices(sessionDir)
	if err != nil {
		return 0, err
	}
	if len(indices) == 0 {
		return 1, nil
	}
	return indices[len(indices)-1] + 1, nil
}

func listIndices(sessionDir string) ([]int, error) {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session dir: %w", err)
	}
	var indices []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n > 0 {
			indices = append(indices, n)
		}
	}
	sort.Ints(indices)
	return indices, nil
}

// SaveRequest carries everything needed to persist one submission.
type SaveRequest struct {
	SessionID string
	Task      string
	MediaType string
	Text      string
	Lat       *float64
	Lon       *float64
	// FileName and FileData describe an optional upload; FileName must
	// already be sanitized by the caller.
	FileName string
	FileData []byte
}

// SaveSubmission writes a new zero-padded entry directory with the uploaded
// file, an optional note.txt, and the meta.json record, then returns the
// stored submission alongside fresh progress figures.
func (s *SubmissionStore) SaveSubmission(req SaveRequest) (*models.Submission, models.Progress, error) {
	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sdir, err := s.EnsureSessionDir(req.SessionID)
	if err != nil {
		return nil, models.Progress{}, err
	}
	idx, err := s.NextIndex(sdir)
	if err != nil {
		return nil, models.Progress{}, err
	}

	entry := filepath.Join(sdir, fmt.Sprintf("%03d", idx))
	if err := os.MkdirAll(entry, 0o755); err != nil {
		return nil, models.Progress{}, fmt.Errorf("failed to create entry dir: %w", err)
	}

	sub := &models.Submission{
		SessionID:  req.SessionID,
		Index:      idx,
		Task:       req.Task,
		MediaType:  req.MediaType,
		Text:       req.Text,
		Lat:        req.Lat,
		Lon:        req.Lon,
		CreatedUTC: time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
	}

	if req.FileName != "" && len(req.FileData) > 0 {
		path := filepath.Join(entry, req.FileName)
		if err := os.WriteFile(path, req.FileData, 0o644); err != nil {
			return nil, models.Progress{}, fmt.Errorf("failed to write upload: %w", err)
		}
		sub.File = path
	}

	if req.Text != "" {
		if err := os.WriteFile(filepath.Join(entry, "note.txt"), []byte(req.Text), 0o644); err != nil {
			return nil, models.Progress{}, fmt.Errorf("failed to write note: %w", err)
		}
	}

	if err := writeMeta(entry, sub); err != nil {
		return nil, models.Progress{}, err
	}

	progress, err := s.progressLocked(sdir)
	if err != nil {
		return nil, models.Progress{}, err
	}
	return sub, progress, nil
}

// Progress recomputes the session's counters from the directory contents.
// The session directory is created on first query, matching the implicit
// session lifecycle.
func (s *SubmissionStore) Progress(sessionID string) (models.Progress, error) {
	sdir, err := s.EnsureSessionDir(sessionID)
	if err != nil {
		return models.Progress{}, err
	}
	return s.progressLocked(sdir)
}

func (s *SubmissionStore) progressLocked(sessionDir string) (models.Progress, error) {
	indices, err := listIndices(sessionDir)
	if err != nil {
		return models.Progress{}, err
	}
	count := len(indices)
	remaining := CycleSize - count
	if remaining < 0 {
		remaining = 0
	}
	return models.Progress{
		Count:         count,
		Remaining:     remaining,
		SurpriseReady: count >= CycleSize,
	}, nil
}

// ListSubmissions reads every entry's meta.json in ascending index order.
// Entries whose meta.json is missing or unreadable are skipped.
func (s *SubmissionStore) ListSubmissions(sessionID string) ([]models.Submission, error) {
	sdir := filepath.Join(s.root, sessionID)
	indices, err := listIndices(sdir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var subs []models.Submission
	for _, idx := range indices {
		data, err := os.ReadFile(filepath.Join(sdir, fmt.Sprintf("%03d", idx), "meta.json"))
		if err != nil {
			continue
		}
		var sub models.Submission
		if err := json.Unmarshal(data, &sub); err != nil {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// AttachVerdict records the judge's feedback text and, when present, the
// fit_score on an existing entry's meta.json. This is the only mutation
// allowed after a submission is created.
func (s *SubmissionStore) AttachVerdict(sessionID string, index int, feedback string, score *float64) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	entry := filepath.Join(s.root, sessionID, fmt.Sprintf("%03d", index))
	data, err := os.ReadFile(filepath.Join(entry, "meta.json"))
	if err != nil {
		return fmt.Errorf("failed to read meta: %w", err)
	}
	var sub models.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("failed to parse meta: %w", err)
	}
	sub.JudgeFeedback = feedback
	if score != nil {
		sub.FitScore = score
	}
	return writeMeta(entry, &sub)
}

func writeMeta(entryDir string, sub *models.Submission) error {
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, "meta.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}
	return nil
}

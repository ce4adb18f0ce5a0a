package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hoppi/models"
)

// FeedbackStore persists one text file per feedback entry under a flat
// directory, optionally mirroring each file to an export directory.
type FeedbackStore struct {
	dir       string
	exportDir string
}

func NewFeedbackStore(dir, exportDir string) *FeedbackStore {
	return &FeedbackStore{dir: dir, exportDir: exportDir}
}

// Save writes the entry as <timestamp>_<rating>.txt and returns the filename.
func (f *FeedbackStore) Save(entry models.FeedbackEntry) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create feedback dir: %w", err)
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("20060102-150405")
	}
	name := fmt.Sprintf("%s_%s.txt", entry.Timestamp, entry.Rating)

	var b strings.Builder
	fmt.Fprintf(&b, "rating: %s\n", entry.Rating)
	fmt.Fprintf(&b, "timestamp: %s\n", entry.Timestamp)
	fmt.Fprintf(&b, "input: %s\n", entry.Input)
	fmt.Fprintf(&b, "output: %s\n", entry.Output)
	if entry.Reason != "" {
		fmt.Fprintf(&b, "reason: %s\n", entry.Reason)
	}

	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write feedback: %w", err)
	}

	if f.exportDir != "" {
		if err := os.MkdirAll(f.exportDir, 0o755); err == nil {
			// Mirroring is best-effort; the primary write already succeeded.
			_ = os.WriteFile(filepath.Join(f.exportDir, name), []byte(b.String()), 0o644)
		}
	}
	return name, nil
}

// List returns the stored feedback filenames, newest first.
func (f *FeedbackStore) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read feedback dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Path resolves a stored filename to its full path, rejecting anything that
// would escape the feedback directory.
func (f *FeedbackStore) Path(name string) (string, error) {
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid feedback filename")
	}
	path := filepath.Join(f.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("feedback file not found: %w", err)
	}
	return path, nil
}

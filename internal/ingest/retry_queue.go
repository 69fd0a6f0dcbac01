package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultRetryQueueFile is the retry queue file name inside the output dir.
const DefaultRetryQueueFile = "receipt_retry_queue.json"

// RetryEntry is a failed analysis waiting to be retried.
type RetryEntry struct {
	ImageURL  string    `json:"image_url"`
	ImageID   string    `json:"image_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RetryQueue is a JSON array persisted to a single file. A corrupt or
// missing file reads as an empty queue.
type RetryQueue struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewRetryQueue(path string, logger *slog.Logger) *RetryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryQueue{path: path, logger: logger, now: time.Now}
}

func (q *RetryQueue) Path() string { return q.path }

// Add appends one entry and rewrites the file.
func (q *RetryQueue) Add(imageURL, imageID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.load()
	entries = append(entries, RetryEntry{ImageURL: imageURL, ImageID: imageID, Timestamp: q.now()})
	if err := q.save(entries); err != nil {
		q.logger.Error("failed to save retry queue", "path", q.path, "error", err)
		return err
	}
	q.logger.Info("added to retry queue", "image_id", imageID, "image_url", imageURL, "pending", len(entries))
	return nil
}

// List returns the queued entries in insertion order.
func (q *RetryQueue) List() []RetryEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Drain returns the queued entries and empties the queue.
func (q *RetryQueue) Drain() ([]RetryEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.load()
	if err := q.clear(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (q *RetryQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clear()
}

func (q *RetryQueue) clear() error {
	if err := os.Remove(q.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove retry queue: %w", err)
	}
	return nil
}

func (q *RetryQueue) load() []RetryEntry {
	raw, err := os.ReadFile(q.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			q.logger.Error("error loading retry queue", "path", q.path, "error", err)
		}
		return []RetryEntry{}
	}
	var entries []RetryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		q.logger.Error("error loading retry queue", "path", q.path, "error", err)
		return []RetryEntry{}
	}
	return entries
}

// save writes through a temp file and rename so readers never see a
// partial queue.
func (q *RetryQueue) save(entries []RetryEntry) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create retry queue dir: %w", err)
	}
	bs, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode retry queue: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(q.path), ".retry-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(bs); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write retry queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close retry queue: %w", err)
	}
	if err := os.Rename(tmp.Name(), q.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename retry queue: %w", err)
	}
	return nil
}

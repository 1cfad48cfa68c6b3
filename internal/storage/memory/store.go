// Package memory implements the URL store as a mutex-guarded in-process map
// with an optional JSON snapshot file for durability across restarts.
package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mbocharov/shortlink/internal/models"
	"github.com/mbocharov/shortlink/internal/storage"
)

// Store owns the short code to URL record mapping. All mutations run under
// the write lock; reads take the read lock and return deep copies so callers
// never observe a partially written record. If snapshotPath is empty the
// store is purely in-memory.
type Store struct {
	mu   sync.RWMutex
	urls map[string]*models.URL

	// flushMu serializes snapshot writes; records are marshalled outside
	// the record lock so slow disks don't stall mutations.
	flushMu      sync.Mutex
	snapshotPath string

	logger *slog.Logger
}

// New creates an empty store. Call Load to hydrate it from a previous
// snapshot.
func New(snapshotPath string, logger *slog.Logger) *Store {
	return &Store{
		urls:         make(map[string]*models.URL),
		snapshotPath: snapshotPath,
		logger:       logger,
	}
}

// Load hydrates the store from the snapshot file. A missing file is not an
// error; the store starts empty. A malformed file is reported to the caller,
// which is expected to log it and keep serving from an empty store.
func (s *Store) Load() error {
	const op = "storage.memory.Store.Load"

	if s.snapshotPath == "" {
		return nil
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no snapshot file found, starting with empty store")
			return nil
		}
		return fmt.Errorf("%s: failed to read snapshot file: %w", op, err)
	}

	var records []*models.URL
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%s: failed to decode snapshot file: %w", op, err)
	}

	for _, rec := range records {
		if rec == nil || rec.ShortCode == "" {
			return fmt.Errorf("%s: snapshot file contains a record without a short code", op)
		}
	}

	s.mu.Lock()
	for _, rec := range records {
		s.urls[rec.ShortCode] = rec
	}
	s.mu.Unlock()

	s.logger.Info("loaded urls from snapshot", slog.Int("count", len(records)))

	return nil
}

// Put inserts or overwrites the record under its short code and flushes the
// snapshot. The in-memory insert cannot fail; any error is a snapshot I/O
// fault.
func (s *Store) Put(rec *models.URL) error {
	const op = "storage.memory.Store.Put"

	s.mu.Lock()
	s.urls[rec.ShortCode] = rec.Clone()
	s.mu.Unlock()

	if err := s.flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Get returns a copy of the record stored under the short code.
func (s *Store) Get(shortCode string) (*models.URL, error) {
	const op = "storage.memory.Store.Get"

	s.mu.RLock()
	rec, ok := s.urls[shortCode]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrURLNotFound)
	}

	return rec.Clone(), nil
}

// Exists reports whether a record is stored under the short code.
func (s *Store) Exists(shortCode string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.urls[shortCode]
	return ok
}

// ListAll returns copies of all records as of the call. There is no live view.
func (s *Store) ListAll() []*models.URL {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.URL, 0, len(s.urls))
	for _, rec := range s.urls {
		records = append(records, rec.Clone())
	}

	return records
}

// Update replaces the record stored under the short code, failing if the key
// is absent. On success the snapshot is flushed.
func (s *Store) Update(shortCode string, rec *models.URL) error {
	const op = "storage.memory.Store.Update"

	s.mu.Lock()
	if _, ok := s.urls[shortCode]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, storage.ErrURLNotFound)
	}
	s.urls[shortCode] = rec.Clone()
	s.mu.Unlock()

	if err := s.flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordClick appends a click to the record under the write lock, so the
// read-then-increment is atomic per key. Existence is checked before expiry;
// the two failures stay distinguishable to callers.
func (s *Store) RecordClick(shortCode string, click models.Click, now time.Time) (*models.URL, models.ClickEvent, error) {
	const op = "storage.memory.Store.RecordClick"

	s.mu.Lock()
	rec, ok := s.urls[shortCode]
	if !ok {
		s.mu.Unlock()
		return nil, models.ClickEvent{}, fmt.Errorf("%s: %w", op, storage.ErrURLNotFound)
	}
	if rec.IsExpired(now) {
		s.mu.Unlock()
		return nil, models.ClickEvent{}, fmt.Errorf("%s: %w", op, storage.ErrURLExpired)
	}

	ev := rec.AddClick(click, now)
	cp := rec.Clone()
	s.mu.Unlock()

	if err := s.flush(); err != nil {
		return cp, ev, fmt.Errorf("%s: %w", op, err)
	}

	return cp, ev, nil
}

// SweepExpired removes every record whose validity window has passed at the
// given time and returns the number removed. The snapshot is flushed once,
// and only when something was removed.
func (s *Store) SweepExpired(now time.Time) (int, error) {
	const op = "storage.memory.Store.SweepExpired"

	s.mu.Lock()
	var removed int
	for shortCode, rec := range s.urls {
		if rec.IsExpired(now) {
			delete(s.urls, shortCode)
			removed++
		}
	}
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}

	if err := s.flush(); err != nil {
		return removed, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("removed expired urls", slog.Int("count", removed))

	return removed, nil
}

// Summary computes aggregate counts over all records at the given time.
func (s *Store) Summary(now time.Time) storage.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := storage.Summary{TotalURLs: len(s.urls)}
	for _, rec := range s.urls {
		if rec.IsExpired(now) {
			sum.ExpiredURLs++
		} else {
			sum.ActiveURLs++
		}
		sum.TotalClicks += rec.ClickCount
	}

	return sum
}

// flush writes the whole record set to the snapshot file, replacing it
// wholesale. Records are cloned under the read lock, then marshalled and
// written outside it. The write goes through a temp file and rename so a
// crash mid-write never leaves a truncated snapshot.
func (s *Store) flush() error {
	if s.snapshotPath == "" {
		return nil
	}

	s.mu.RLock()
	records := make([]*models.URL, 0, len(s.urls))
	for _, rec := range s.urls {
		records = append(records, rec.Clone())
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	dir := filepath.Dir(s.snapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.snapshotPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	return nil
}

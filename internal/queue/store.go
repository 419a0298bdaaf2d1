package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/repositories"
	"github.com/desertthunder/pulse/internal/shared"
)

// Store is the ordered, deduplicated export queue.
//
// Every mutation builds the next sequence, writes it to the [repositories.StateStore] and only
// then swaps it in. A failed write leaves the in-memory queue untouched.
type Store struct {
	mu        sync.RWMutex
	state     repositories.StateStore
	tracks    []models.Track
	exportDir string
	logger    *log.Logger
}

// NewStore creates an empty Store backed by state. Call [Store.Restore] to load persisted data.
func NewStore(state repositories.StateStore, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{state: state, logger: shared.WithLogger(logger, "component", "queue")}
}

// Restore loads the queue and export directory from the state store.
//
// Tracks that were not downloaded are reset to idle; their cached video URL is kept.
// Persisted duplicates are dropped, keeping the first occurrence.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, ok, err := s.state.Get(ctx, repositories.ExportDirKey)
	if err != nil {
		return err
	}
	if ok {
		s.exportDir = dir
	}

	raw, ok, err := s.state.Get(ctx, repositories.QueueKey)
	if err != nil {
		return err
	}
	if !ok || raw == "" {
		s.tracks = nil
		return nil
	}

	var stored []models.Track
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("%w: persisted queue is corrupt: %v", shared.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(stored))
	next := make([]models.Track, 0, len(stored))
	for _, t := range stored {
		if err := t.Validate(); err != nil {
			s.logger.Warn("dropping invalid queue entry", "error", err)
			continue
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		t.Selected = false
		t.ResetForRetry()
		next = append(next, t)
	}

	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Debug("queue restored", "tracks", len(next), "export_dir", s.exportDir)
	return nil
}

// Persist writes the current queue to the state store.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, s.tracks)
}

// Add appends track with idle status. It returns [shared.ErrAlreadyQueued] when the id is present.
func (s *Store) Add(ctx context.Context, track models.Track) error {
	added, _, err := s.AddAll(ctx, []models.Track{track})
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyQueued, track.ID)
	}
	return nil
}

// AddAll appends every track whose id is not yet queued in a single write.
//
// It reports the ids that were added and the ids skipped as duplicates.
func (s *Store) AddAll(ctx context.Context, tracks []models.Track) (added, duplicates []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]bool, len(s.tracks)+len(tracks))
	for _, t := range s.tracks {
		present[t.ID] = true
	}

	next := s.clone()
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		if present[t.ID] {
			duplicates = append(duplicates, t.ID)
			continue
		}
		present[t.ID] = true

		t.Selected = false
		t.SetStatus(models.StatusIdle)
		next = append(next, t)
		added = append(added, t.ID)
	}

	if len(added) == 0 {
		return nil, duplicates, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return nil, nil, err
	}
	return added, duplicates, nil
}

// Remove deletes the track with id. Removing a missing id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := make([]models.Track, 0, len(s.tracks)-1)
	next = append(next, s.tracks[:idx]...)
	next = append(next, s.tracks[idx+1:]...)
	return s.commit(ctx, next)
}

// Reorder replaces the order with ids, which must be a permutation of the queued ids.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reorder(ctx, ids)
}

// Move shifts the track with id by delta positions, clamped to the ends of the queue.
func (s *Store) Move(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.indexOf(id)
	if from < 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	to := max(0, min(from+delta, len(s.tracks)-1))
	if to == from {
		return nil
	}

	ids := s.ids()
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]string{id}, ids[to:]...)...)
	return s.reorder(ctx, ids)
}

// Clear empties the queue. The export directory is kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []models.Track{})
}

// Update applies fn to a copy of the track with id and stores the result.
//
// The id cannot be changed by fn. The updated track is returned.
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Track)) (models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	next := s.clone()
	t := next[idx]
	fn(&t)
	t.ID = id
	next[idx] = t

	if err := s.commit(ctx, next); err != nil {
		return models.Track{}, err
	}
	return t, nil
}

// Tracks returns a snapshot of the queue in order.
func (s *Store) Tracks() []models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone()
}

// IDs returns the queued ids in order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids()
}

// Get returns the track with id.
func (s *Store) Get(id string) (models.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.tracks[idx], true
	}
	return models.Track{}, false
}

// Contains reports whether id is queued.
func (s *Store) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Summary counts the queue by status.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Total: len(s.tracks)}
	for _, t := range s.tracks {
		switch {
		case t.Status == models.StatusDownloaded:
			sum.Downloaded++
		case t.Status == models.StatusError:
			sum.Failed++
		case t.Status.IsActive():
			sum.InFlight++
		default:
			sum.Pending++
		}
	}
	return sum
}

// ExportDir returns the configured export directory, or "" when none is set.
func (s *Store) ExportDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportDir
}

// SetExportDir resolves dir with [shared.ResolveDir] and persists it.
func (s *Store) SetExportDir(ctx context.Context, dir string) (string, error) {
	resolved, err := shared.ResolveDir(dir)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Set(ctx, repositories.ExportDirKey, resolved); err != nil {
		return "", err
	}
	s.exportDir = resolved
	s.logger.Info("export directory set", "dir", resolved)
	return resolved, nil
}

func (s *Store) reorder(ctx context.Context, ids []string) error {
	if len(ids) != len(s.tracks) {
		return fmt.Errorf("%w: got %d ids for %d tracks", shared.ErrInvalidPermutation, len(ids), len(s.tracks))
	}

	byID := make(map[string]models.Track, len(s.tracks))
	for _, t := range s.tracks {
		byID[t.ID] = t
	}

	next := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated id %s", shared.ErrInvalidPermutation, id)
		}
		delete(byID, id)
		next = append(next, t)
	}
	return s.commit(ctx, next)
}

// commit persists next and swaps it in. Callers hold mu.
func (s *Store) commit(ctx context.Context, next []models.Track) error {
	if next == nil {
		next = []models.Track{}
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if err := s.state.Set(ctx, repositories.QueueKey, string(data)); err != nil {
		return err
	}
	s.tracks = next
	return nil
}

func (s *Store) clone() []models.Track {
	out := make([]models.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *Store) ids() []string {
	ids := make([]string, len(s.tracks))
	for i, t := range s.tracks {
		ids[i] = t.ID
	}
	return ids
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

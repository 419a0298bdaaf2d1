// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/pulse/internal/models"
)

// MemoryStore is an in-memory state store. Set fails with SetErr when it is non-nil.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	SetErr   error
	SetCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Raw returns the stored value for key, or "" when unset.
func (m *MemoryStore) Raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// MockSource is a playlist source test double.
//
// When Gates has a channel for a playlist id, PlaylistTracks blocks until it is closed.
// With IgnoreCancel set the block also ignores context cancellation.
type MockSource struct {
	PlaylistList []models.Playlist
	TrackLists   map[string][]models.Track
	Gates        map[string]chan struct{}
	IgnoreCancel bool
	Err          error

	mu            sync.Mutex
	PlaylistCalls int
	TrackCalls    []string
}

func (m *MockSource) Playlists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	m.PlaylistCalls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PlaylistList, nil
}

func (m *MockSource) PlaylistTracks(ctx context.Context, id string) ([]models.Track, error) {
	m.mu.Lock()
	m.TrackCalls = append(m.TrackCalls, id)
	gate := m.Gates[id]
	m.mu.Unlock()

	if gate != nil {
		if m.IgnoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	tracks, ok := m.TrackLists[id]
	if !ok {
		return nil, fmt.Errorf("playlist not found: %s", id)
	}
	out := make([]models.Track, len(tracks))
	copy(out, tracks)
	return out, nil
}

// WaitForTrackCall blocks until PlaylistTracks has been called for id.
func (m *MockSource) WaitForTrackCall(t *testing.T, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for _, c := range m.TrackCalls {
			if c == id {
				m.mu.Unlock()
				return
			}
		}
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("PlaylistTracks(%s) was never called", id)
}

// MockSearcher returns Results keyed by query. Queries listed in Errs fail.
type MockSearcher struct {
	Results map[string][]models.Video
	Errs    map[string]error

	mu      sync.Mutex
	Queries []string
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]models.Video, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if err := m.Errs[query]; err != nil {
		return nil, err
	}
	return m.Results[query], nil
}

// Calls returns the number of searches made.
func (m *MockSearcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockConverter pretends to convert videos into "<Artist> - <Title>.mp3" under dir.
//
// Videos listed in Errs fail. Hook, when set, runs before each conversion and may block
// or panic.
type MockConverter struct {
	Errs map[string]error
	Hook func(ctx context.Context, videoURL string)

	mu    sync.Mutex
	Calls []string
}

func (m *MockConverter) Convert(ctx context.Context, videoURL string, meta models.TrackMetadata, dir string) (*models.ConvertResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, videoURL)
	m.mu.Unlock()

	if m.Hook != nil {
		m.Hook(ctx, videoURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Errs[videoURL]; err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s - %s.mp3", meta.Artist, meta.Title)
	return &models.ConvertResult{Path: filepath.Join(dir, name), Filename: name, Size: 1024}, nil
}

// CallCount returns the number of conversions attempted.
func (m *MockConverter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Track builds an idle track whose title and artist are derived from id.
func Track(id string) models.Track {
	return models.Track{
		ID:          id,
		Title:       "Title " + id,
		Artist:      "Artist " + id,
		Album:       "Album",
		ReleaseYear: "2020",
		SourceURL:   "https://open.spotify.com/track/" + id,
		Status:      models.StatusIdle,
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

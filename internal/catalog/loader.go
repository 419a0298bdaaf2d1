package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// Source lists playlists and their tracks.
type Source interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
}

// SortField names a column the catalog can be sorted by.
type SortField string

const (
	SortNone   SortField = ""
	SortTitle  SortField = "title"
	SortArtist SortField = "artist"
	SortAlbum  SortField = "album"
	SortYear   SortField = "year"
)

// ParseSortField maps user input to a [SortField].
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortNone, SortTitle, SortArtist, SortAlbum, SortYear:
		return f, nil
	default:
		return SortNone, fmt.Errorf("%w: unknown sort field %q", shared.ErrInvalidArgument, s)
	}
}

// Loader is the catalog: the tracks of the most recently selected playlist.
//
// Only the latest [Loader.Load] may apply its result. Earlier loads still in flight are
// cancelled, and any that complete anyway return [shared.ErrStaleRequest].
type Loader struct {
	source Source
	logger *log.Logger
	seq    atomic.Uint64

	mu         sync.RWMutex
	cancel     context.CancelFunc
	playlistID string
	tracks     []models.Track
	original   []models.Track
	sortField  SortField
	sortDesc   bool
	playlists  []models.Playlist
}

// NewLoader creates a Loader reading from source.
func NewLoader(source Source, logger *log.Logger) *Loader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Loader{source: source, logger: shared.WithLogger(logger, "component", "catalog")}
}

// Playlists returns the user's playlists, fetching them on first use.
func (l *Loader) Playlists(ctx context.Context) ([]models.Playlist, error) {
	l.mu.RLock()
	cached := l.playlists
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return l.RefreshPlaylists(ctx)
}

// RefreshPlaylists refetches the playlist list and replaces the cache.
func (l *Loader) RefreshPlaylists(ctx context.Context) ([]models.Playlist, error) {
	playlists, err := l.source.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	l.mu.Lock()
	l.playlists = playlists
	l.mu.Unlock()
	return playlists, nil
}

// Load fetches the tracks of playlistID and replaces the catalog with them.
//
// Tracks enter the catalog idle and unselected, deduplicated by id. The current sort order
// is reapplied.
func (l *Loader) Load(ctx context.Context, playlistID string) ([]models.Track, error) {
	seq := l.seq.Add(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	tracks, err := l.source.PlaylistTracks(ctx, playlistID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seq.Load() != seq {
		l.logger.Debug("dropping stale catalog load", "playlist", playlistID, "seq", seq)
		return nil, shared.ErrStaleRequest
	}
	l.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load playlist %s: %w", playlistID, err)
	}

	l.playlistID = playlistID
	l.original = normalize(tracks)
	l.tracks = l.sorted()
	l.logger.Debug("catalog loaded", "playlist", playlistID, "tracks", len(l.tracks))
	return l.snapshot(), nil
}

// PlaylistID is the playlist currently shown in the catalog.
func (l *Loader) PlaylistID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playlistID
}

// Tracks returns a snapshot of the catalog in display order.
func (l *Loader) Tracks() []models.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot()
}

// Get returns the catalog track with id.
func (l *Loader) Get(id string) (models.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Track{}, false
}

// SetSelected marks the track with id as selected or not.
func (l *Loader) SetSelected(id string, selected bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := false
	for _, set := range [][]models.Track{l.tracks, l.original} {
		for i := range set {
			if set[i].ID == id {
				set[i].Selected = selected
				found = true
			}
		}
	}
	return found
}

// Toggle flips the selection of the track with id.
func (l *Loader) Toggle(id string) {
	t, ok := l.Get(id)
	if ok {
		l.SetSelected(id, !t.Selected)
	}
}

// SelectAll sets the selection flag on every track.
func (l *Loader) SelectAll(selected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tracks {
		l.tracks[i].Selected = selected
	}
	for i := range l.original {
		l.original[i].Selected = selected
	}
}

// Selected returns the selected tracks in display order.
func (l *Loader) Selected() []models.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.Track
	for _, t := range l.tracks {
		if t.Selected {
			out = append(out, t)
		}
	}
	return out
}

// Sort orders the catalog by field. [SortNone] restores playlist order.
func (l *Loader) Sort(field SortField, desc bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sortField = field
	l.sortDesc = desc
	l.tracks = l.sorted()
}

// SortState reports the active sort.
func (l *Loader) SortState() (SortField, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortField, l.sortDesc
}

func (l *Loader) sorted() []models.Track {
	out := make([]models.Track, len(l.original))
	copy(out, l.original)
	if l.sortField == SortNone {
		return out
	}

	key := func(t models.Track) string {
		switch l.sortField {
		case SortArtist:
			return t.Artist
		case SortAlbum:
			return t.Album
		case SortYear:
			return t.ReleaseYear
		default:
			return t.Title
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(key(out[i])), strings.ToLower(key(out[j]))
		if l.sortDesc {
			return a > b
		}
		return a < b
	})
	return out
}

func (l *Loader) snapshot() []models.Track {
	out := make([]models.Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

func normalize(tracks []models.Track) []models.Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		t.Selected = false
		if t.Status == "" {
			t.Status = models.StatusIdle
		}
		out = append(out, t)
	}
	return out
}

package services

import (
	"context"

	"github.com/desertthunder/pulse/internal/models"
)

// PlaylistSource lists the user's playlists and the tracks inside one of them.
type PlaylistSource interface {
	// Playlists returns every playlist visible to the authenticated user, in service order.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks returns the normalized tracks of a playlist, following pagination
	// internally. Entries without a playable track are skipped.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
}

// VideoSearcher finds videos for a free-text query.
//
// Results are ranked; callers use the first. An empty slice means nothing matched.
type VideoSearcher interface {
	Search(ctx context.Context, query string) ([]models.Video, error)
}

// Converter downloads a video's audio into dir as a tagged file.
//
// Implementations never leave a partial file at the final name.
type Converter interface {
	Convert(ctx context.Context, videoURL string, meta models.TrackMetadata, dir string) (*models.ConvertResult, error)
}

// Extractor writes the audio of videoURL to outputPath.
type Extractor interface {
	Extract(ctx context.Context, videoURL, outputPath string) error
}

// Tagger embeds metadata into an audio file in place.
type Tagger interface {
	Tag(path string, meta models.TrackMetadata) error
}

var (
	_ PlaylistSource = (*SpotifyService)(nil)
	_ VideoSearcher  = (*YouTubeService)(nil)
	_ VideoSearcher  = (*YTDataService)(nil)
	_ Converter      = (*AudioConverter)(nil)
	_ Extractor      = (*YtdlpExtractor)(nil)
	_ Tagger         = (*ID3Tagger)(nil)
)

// ProgressFunc receives the completed fraction, between 0 and 1, of a long-running adapter call.
type ProgressFunc func(fraction float64)

type progressKey struct{}

// WithProgress attaches fn to ctx. Adapters that can measure progress report through it.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(float64) {}
}

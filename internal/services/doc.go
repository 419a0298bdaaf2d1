// Package services adapts the external systems pulse talks to behind small interfaces.
//
// # Playlist Source
//
// [SpotifyService] implements [PlaylistSource] over the Spotify Web API. Authentication is
// OAuth2 authorization code; the [oauth2.Client] refreshes expired tokens and
// [SpotifyService.SetTokenRefreshCallback] lets callers persist the refreshed token in a
// [TokenCache].
//
// # Video Search
//
// Two [VideoSearcher] implementations exist:
//   - [YouTubeService] queries a search proxy over plain HTTP (/api/search)
//   - [YTDataService] queries the YouTube Data API v3 with an API key
//
// # Conversion
//
// [AudioConverter] composes an [Extractor] ([YtdlpExtractor], driving yt-dlp through go-ytdlp)
// with a [Tagger] ([ID3Tagger]). Audio is extracted to a hidden temp file, tagged, and
// renamed to "Artist - Title.mp3" in the export directory. Name collisions get " (2)", " (3)"
// suffixes.
//
// # Error Handling
//
// Adapters wrap sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : no token, or Spotify returned 401
//   - [shared.ErrTokenExpired] : token refresh failed
//   - [shared.ErrPlaylistNotFound] : unknown playlist id
//   - [shared.ErrServiceUnavailable] : rate limited, 5xx, or unreachable
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrProcess] : yt-dlp exited non-zero
//   - [shared.ErrTimeout] : conversion exceeded its deadline
package services

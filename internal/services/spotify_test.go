package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/pulse/internal/shared"
	"golang.org/x/oauth2"
)

func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.SetBaseURL(server.URL)
	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect URI %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})
			if err != nil {
				t.Fatal(err)
			}
			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "test_client_id", "client_secret": "s"})

		authURL := srv.GetAuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-read-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q: %s", want, authURL)
			}
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})

		if srv.IsAuthenticated() {
			t.Error("new service should not be authenticated")
		}
		if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "tok"}); err != nil {
			t.Fatalf("expected no error with access token, got %v", err)
		}
		if srv.Token() == nil || srv.Token().AccessToken != "tok" {
			t.Error("expected token to be set")
		}
		if err := srv.Authenticate(context.Background(), map[string]string{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})
		if _, err := srv.Playlists(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		var offsets []string
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
				t.Errorf("unexpected Authorization header %q", got)
			}
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit=50, got %s", r.URL.Query().Get("limit"))
			}

			offset := r.URL.Query().Get("offset")
			offsets = append(offsets, offset)

			page := SpotifyPaginatedPlaylists{Limit: 50}
			if offset == "0" {
				next := "more"
				page.Next = &next
				page.Items = []SpotifySimplePlaylist{
					{ID: "p1", Name: "One", Owner: Owner{DisplayName: "me"}, Images: []SpotifyImage{{URL: "https://img/1"}}},
					{ID: "p2", Name: "Two"},
				}
			} else {
				page.Items = []SpotifySimplePlaylist{{ID: "p3", Name: "Three"}}
			}
			page.Items[0].Tracks.Total = 7
			json.NewEncoder(w).Encode(page)
		})

		playlists, err := srv.Playlists(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(playlists) != 3 {
			t.Fatalf("expected 3 playlists, got %d", len(playlists))
		}
		if playlists[0].ImageURL != "https://img/1" || playlists[0].Owner != "me" || playlists[0].TrackCount != 7 {
			t.Errorf("unexpected first playlist %+v", playlists[0])
		}
		if strings.Join(offsets, ",") != "0,2" {
			t.Errorf("unexpected offsets %v", offsets)
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "100" {
				t.Errorf("expected limit=100, got %s", r.URL.Query().Get("limit"))
			}

			if r.URL.Query().Get("offset") == "" {
				next := "http://" + r.Host + "/playlists/pl1/tracks?limit=100&offset=100"
				fmt.Fprintf(w, `{"items":[
					{"track":{"id":"t1","name":"Song","artists":[{"name":"A"},{"name":"B"}],
						"album":{"name":"LP","release_date":"1999-04-01","images":[{"url":"https://img/a"}]},
						"external_urls":{"spotify":"https://open.spotify.com/track/t1"}}},
					{"track":null},
					{"track":{"id":"","name":"Local","is_local":true}}
				],"next":%q}`, next)
				return
			}
			fmt.Fprint(w, `{"items":[{"track":{"id":"t2","name":"Other","artists":[],"album":{"name":"","release_date":""}}}],"next":null}`)
		})

		tracks, err := srv.PlaylistTracks(context.Background(), "pl1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.Artist != "A, B" || first.ReleaseYear != "1999" || first.Album != "LP" {
			t.Errorf("unexpected normalization %+v", first)
		}
		if first.SourceURL != "https://open.spotify.com/track/t1" || first.AlbumArtURL != "https://img/a" {
			t.Errorf("unexpected links %+v", first)
		}
		if tracks[1].ReleaseYear != "Unknown" {
			t.Errorf("expected Unknown year, got %q", tracks[1].ReleaseYear)
		}
	})

	t.Run("PlaylistTracks requires id", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})
		if _, err := srv.PlaylistTracks(context.Background(), " "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Status Mapping", func(t *testing.T) {
		tc := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrNotAuthenticated},
			{http.StatusNotFound, shared.ErrPlaylistNotFound},
			{http.StatusTooManyRequests, shared.ErrServiceUnavailable},
			{http.StatusBadGateway, shared.ErrServiceUnavailable},
			{http.StatusBadRequest, shared.ErrAPIRequest},
		}
		for _, tt := range tc {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, `{"error":{"status":0,"message":"nope"}}`)
				})
				if _, err := srv.PlaylistTracks(context.Background(), "x"); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("UserProfile", func(t *testing.T) {
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"u1","display_name":"Listener","product":"premium"}`)
		})
		user, err := srv.UserProfile(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if user.DisplayName != "Listener" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})

		var got *oauth2.Token
		srv.SetTokenRefreshCallback(func(token *oauth2.Token) { got = token })
		srv.tokenRefreshed(&oauth2.Token{AccessToken: "fresh"})

		if got == nil || got.AccessToken != "fresh" {
			t.Error("expected callback to receive the refreshed token")
		}
		if srv.Token().AccessToken != "fresh" {
			t.Error("expected service token to be replaced")
		}

		srv.SetTokenRefreshCallback(nil)
		srv.tokenRefreshed(&oauth2.Token{AccessToken: "again"})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var captured *oauth2.Token
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { captured = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if captured == nil || captured.AccessToken != "test_token" {
				t.Error("expected callback to be called on first fetch")
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback only when token changes", func(t *testing.T) {
			callCount := 0
			mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{
				source:   mock,
				callback: func(*oauth2.Token) { callCount++ },
			}

			source.Token()
			source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mock.token = &oauth2.Token{AccessToken: "token2"}
			source.Token()
			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
		})

		t.Run("skips the installed token", func(t *testing.T) {
			callCount := 0
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same"}},
				callback: func(*oauth2.Token) { callCount++ },
				last:     "same",
			}
			source.Token()
			if callCount != 0 {
				t.Errorf("expected no callback, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "t"}}}
			if token, err := source.Token(); err != nil || token.AccessToken != "t" {
				t.Fatalf("unexpected result %v, %v", token, err)
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source:   &mockTokenSource{err: errors.New("token source error")},
				callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Fatalf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

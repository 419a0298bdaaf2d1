// YouTube search via the local search proxy, implementing [VideoSearcher]
//
// The proxy exposes GET /api/search?q=<query>&filter=videos and answers with a JSON array.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

const (
	defaultYTBaseURL string = "http://127.0.0.1:8080"
	videoURLPrefix   string = "https://youtube.com/watch?v="
)

// VideoURL builds the watch URL for a video id.
func VideoURL(id string) string {
	return videoURLPrefix + id
}

// YouTubeArtist represents an artist in proxy search results.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeSearchResult is one entry returned by the proxy.
type YouTubeSearchResult struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// YouTubeService searches videos through the proxy.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a proxy search client. An empty baseURL selects the local default.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: search proxy status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: search proxy status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Search returns videos matching query in proxy rank order.
//
// Calls GET /api/search?q={query}&filter=videos on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("/api/search?q=%s&filter=videos", url.QueryEscape(query))

	var results []YouTubeSearchResult
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &results); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		videos = append(videos, models.Video{
			ID:    r.VideoID,
			URL:   VideoURL(r.VideoID),
			Title: r.Title,
		})
	}
	return videos, nil
}

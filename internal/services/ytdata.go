package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultDataAPIResults int64 = 5

// YTDataService implements [VideoSearcher] with the YouTube Data API v3.
type YTDataService struct {
	svc        *youtube.Service
	maxResults int64
}

// NewYTDataService creates a Data API client authenticated with apiKey.
//
// Extra options are appended, which lets tests point the client at a local server.
func NewYTDataService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YTDataService, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, fmt.Errorf("%w: youtube api_key", shared.ErrMissingCredentials)
	}

	all := make([]option.ClientOption, 0, len(opts)+1)
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	all = append(all, opts...)

	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YTDataService{svc: svc, maxResults: defaultDataAPIResults}, nil
}

func (y *YTDataService) Name() string {
	return "YouTube Data API"
}

// Search lists videos matching query in relevance order.
func (y *YTDataService) Search(ctx context.Context, query string) ([]models.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	resp, err := y.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(y.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			switch gerr.Code {
			case http.StatusForbidden, http.StatusTooManyRequests:
				return nil, fmt.Errorf("%w: youtube data api %d: %s", shared.ErrServiceUnavailable, gerr.Code, gerr.Message)
			case http.StatusUnauthorized, http.StatusBadRequest:
				return nil, fmt.Errorf("%w: youtube data api %d: %s", shared.ErrMissingCredentials, gerr.Code, gerr.Message)
			}
			return nil, fmt.Errorf("%w: youtube data api %d: %s", shared.ErrAPIRequest, gerr.Code, gerr.Message)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		v := models.Video{ID: item.Id.VideoId, URL: VideoURL(item.Id.VideoId)}
		if item.Snippet != nil {
			v.Title = html.UnescapeString(item.Snippet.Title)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

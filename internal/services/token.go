package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/pulse/internal/shared"
	"golang.org/x/oauth2"
)

// TokenCache persists the Spotify OAuth token as JSON readable only by the owner.
type TokenCache struct {
	path string
}

// NewTokenCache creates a TokenCache at path. An empty path selects
// <user config dir>/pulse/token.json.
func NewTokenCache(path string) (*TokenCache, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%w: user config dir: %v", shared.ErrIO, err)
		}
		return &TokenCache{path: filepath.Join(dir, "pulse", "token.json")}, nil
	}

	expanded, err := shared.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return &TokenCache{path: expanded}, nil
}

func (c *TokenCache) Path() string {
	return c.path
}

// Load reads the cached token. It returns (nil, nil) when nothing is cached.
func (c *TokenCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading token file: %v", shared.ErrIO, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: parsing token file: %v", shared.ErrIO, err)
	}
	return &token, nil
}

// Save writes token, creating the parent directory if needed.
func (c *TokenCache) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidInput)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("%w: creating token directory: %v", shared.ErrIO, err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("%w: writing token file: %v", shared.ErrIO, err)
	}
	return nil
}

// Delete removes the cached token. A missing file is not an error.
func (c *TokenCache) Delete() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: removing token file: %v", shared.ErrIO, err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pulse/internal/server"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

type authStatus struct {
	Authenticated bool                  `json:"authenticated"`
	User          *services.SpotifyUser `json:"user,omitempty"`
	TokenPath     string                `json:"tokenPath"`
	Expiry        *time.Time            `json:"expiry,omitempty"`
}

// AuthLogin performs the OAuth2 authorization code flow against Spotify.
//
// The token is persisted by the refresh callback installed in [Runner.open].
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	spotify, err := a.requireSpotify()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, spotify)
	if err != nil {
		return err
	}
	r.logger.Info("spotify token stored", "path", a.tokens.Path(), "expiry", token.Expiry)

	user, err := spotify.UserProfile(ctx)
	if err != nil {
		r.logger.Warn("signed in but could not load the profile", "error", err)
		return r.writePlain("✓ Signed in to Spotify\n")
	}
	return r.writePlain("✓ Signed in to Spotify as %s\n", displayName(user))
}

// AuthLogout forgets the in-memory token and deletes the token cache.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	if a.spotify != nil {
		a.spotify.Logout()
	}
	if err := a.tokens.Delete(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the signed-in account by fetching the profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	spotify, err := a.requireSpotify()
	if err != nil {
		return err
	}

	status := authStatus{TokenPath: a.tokens.Path()}
	if spotify.IsAuthenticated() {
		user, err := spotify.UserProfile(ctx)
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
			r.logger.Debug("stored token rejected", "error", err)
		case err != nil:
			return err
		default:
			status.Authenticated = true
			status.User = user
			if tok := spotify.Token(); tok != nil && !tok.Expiry.IsZero() {
				status.Expiry = &tok.Expiry
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		r.writePlain("Authentication: ✗ Not signed in\n")
		return r.writePlain("Run 'pulse auth login' to connect your Spotify account\n")
	}
	r.writePlain("Authentication: ✓ Signed in as %s\n", displayName(status.User))
	if status.User.Product != "" {
		r.writePlain("Plan: %s\n", status.User.Product)
	}
	return r.writePlain("Token: %s\n", status.TokenPath)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, spotify *services.SpotifyService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	exchange := func(ctx context.Context, code string) (*oauth2.Token, error) {
		if err := spotify.Authenticate(ctx, map[string]string{"auth_code": code}); err != nil {
			return nil, err
		}
		return spotify.Token(), nil
	}

	oauthHandler := server.NewOAuthHandler(exchange, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	srv := server.New(r.config.Server.Addr(), router, r.logger)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", srv.Addr())
		serverErrors <- srv.Run(ctx)
	}()

	authURL := spotify.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: authorization aborted", shared.ErrCancelled)
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func displayName(u *services.SpotifyUser) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

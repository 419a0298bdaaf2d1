package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/catalog"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 1 << 20

// Account is the signed-in streaming account.
type Account interface {
	IsAuthenticated() bool
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
	GetAuthURL(state string) string
	Authenticate(ctx context.Context, credentials map[string]string) error
	Token() *oauth2.Token
	Logout()
}

// Deps are the components the API serves.
type Deps struct {
	Account Account
	Tokens  *services.TokenCache
	Catalog *catalog.Loader
	Queue   *queue.Store
	Hub     *ExportHub
	Web     http.Handler
	Logger  *log.Logger
}

// API implements the JSON endpoints under /api and the OAuth callback.
type API struct {
	Deps

	// base bounds background export runs; request contexts end too early.
	base context.Context

	mu    sync.Mutex
	login *OAuthHandler
}

// NewAPI creates an API. Export runs started through it stop when ctx is cancelled.
func NewAPI(ctx context.Context, deps Deps) *API {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	deps.Logger = shared.WithLogger(deps.Logger, "component", "api")
	return &API{Deps: deps, base: ctx}
}

// Register adds every route to r.
func (a *API) Register(r Router) {
	r.Handle("GET", "/api/me", http.HandlerFunc(a.handleMe))
	r.Handle("GET", "/api/login", http.HandlerFunc(a.handleLogin))
	r.Handle("POST", "/api/logout", http.HandlerFunc(a.handleLogout))
	r.Handle("GET", "/callback", http.HandlerFunc(a.handleCallback))

	r.Handle("GET", "/api/playlists", http.HandlerFunc(a.handlePlaylists))
	r.Handle("GET", "/api/playlists/{id}/tracks", http.HandlerFunc(a.handlePlaylistTracks))

	r.Handle("GET", "/api/queue", http.HandlerFunc(a.handleQueue))
	r.Handle("POST", "/api/queue", http.HandlerFunc(a.handleQueueAdd))
	r.Handle("DELETE", "/api/queue", http.HandlerFunc(a.handleQueueClear))
	r.Handle("DELETE", "/api/queue/{id}", http.HandlerFunc(a.handleQueueRemove))
	r.Handle("PUT", "/api/queue/order", http.HandlerFunc(a.handleQueueOrder))

	r.Handle("GET", "/api/export", http.HandlerFunc(a.handleExportStatus))
	r.Handle("POST", "/api/export", http.HandlerFunc(a.handleExportStart))
	r.Handle("DELETE", "/api/export", http.HandlerFunc(a.handleExportCancel))
	r.Handle("PUT", "/api/export/dir", http.HandlerFunc(a.handleExportDir))

	if a.Web != nil {
		r.Handle("GET", "/{$}", a.Web)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type meResponse struct {
	Authenticated bool                  `json:"authenticated"`
	User          *services.SpotifyUser `json:"user,omitempty"`
}

type queueResponse struct {
	Tracks      []models.Track `json:"tracks"`
	Summary     queue.Summary  `json:"summary"`
	SummaryText string         `json:"summaryText"`
	ExportDir   string         `json:"exportDir"`
}

type addResponse struct {
	Added      []string `json:"added"`
	Duplicates []string `json:"duplicates"`
}

type dirRequest struct {
	Dir string `json:"dir"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if !a.Account.IsAuthenticated() {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	user, err := a.Account.UserProfile(r.Context())
	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrTokenExpired) {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Authenticated: true, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.mu.Lock()
	a.login = NewOAuthHandler(a.exchange, state)
	a.mu.Unlock()

	http.Redirect(w, r, a.Account.GetAuthURL(state), http.StatusFound)
}

func (a *API) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := a.Account.Authenticate(ctx, map[string]string{"auth_code": code}); err != nil {
		return nil, err
	}
	return a.Account.Token(), nil
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	login := a.login
	a.mu.Unlock()

	if login == nil {
		http.Error(w, "No login in progress", http.StatusBadRequest)
		return
	}

	login.ServeHTTP(w, r)

	result := <-login.Result()
	if result.Error() != nil {
		a.Logger.Warn("spotify login failed", "error", result.Error())
	} else if result.Token != nil {
		a.Logger.Info("spotify account connected")
	}

	a.mu.Lock()
	if a.login == login {
		a.login = nil
	}
	a.mu.Unlock()
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.Account.Logout()
	if a.Tokens != nil {
		if err := a.Tokens.Delete(); err != nil {
			a.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	load := a.Catalog.Playlists
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		load = a.Catalog.RefreshPlaylists
	}

	playlists, err := load(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("sort"); raw != "" {
		field, err := catalog.ParseSortField(raw)
		if err != nil {
			a.writeError(w, err)
			return
		}
		desc, _ := strconv.ParseBool(r.URL.Query().Get("desc"))
		a.Catalog.Sort(field, desc)
	}

	tracks, err := a.Catalog.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	summary := a.Queue.Summary()
	writeJSON(w, http.StatusOK, queueResponse{
		Tracks:      a.Queue.Tracks(),
		Summary:     summary,
		SummaryText: summary.String(),
		ExportDir:   a.Queue.ExportDir(),
	})
}

func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var tracks []models.Track
	if err := decodeJSON(r, &tracks); err != nil {
		a.writeError(w, err)
		return
	}

	added, duplicates, err := a.Queue.AddAll(r.Context(), tracks)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	if duplicates == nil {
		duplicates = []string{}
	}
	writeJSON(w, http.StatusOK, addResponse{Added: added, Duplicates: duplicates})
}

func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	if err := a.Queue.Remove(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleQueueOrder(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeJSON(r, &ids); err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.Queue.Reorder(r.Context(), ids); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if err := a.Queue.Clear(r.Context()); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Hub.Status())
}

func (a *API) handleExportStart(w http.ResponseWriter, r *http.Request) {
	if err := a.Hub.Start(a.base); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, a.Hub.Status())
}

func (a *API) handleExportCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": a.Hub.Cancel()})
}

func (a *API) handleExportDir(w http.ResponseWriter, r *http.Request) {
	var req dirRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	dir, err := a.Queue.SetExportDir(r.Context(), req.Dir)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dirRequest{Dir: dir})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrStaleRequest), errors.Is(err, shared.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, shared.ErrEmptyQueue), errors.Is(err, shared.ErrNoExportDir):
		return http.StatusPreconditionFailed
	case errors.Is(err, shared.ErrInvalidPermutation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrIO):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encoding response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

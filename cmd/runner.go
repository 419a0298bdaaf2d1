package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/catalog"
	"github.com/desertthunder/pulse/internal/formatter"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/repositories"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	source    catalog.Source
	searcher  services.VideoSearcher
	converter services.Converter

	// preset is set when the config was supplied by the caller rather than read from disk.
	preset bool
	app    *app
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Source, Searcher and Converter replace the adapters built from the config when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer

	Source    catalog.Source
	Searcher  services.VideoSearcher
	Converter services.Converter
}

// app is the set of long-lived components shared by the commands of one invocation.
type app struct {
	db       *sql.DB
	spotify  *services.SpotifyService
	tokens   *services.TokenCache
	catalog  *catalog.Loader
	queue    *queue.Store
	pipeline *tasks.Pipeline
	runs     *repositories.RunRepository
	closers  []func()
}

// missingSource stands in for Spotify when no credentials are configured.
type missingSource struct{ err error }

func (m missingSource) Playlists(context.Context) ([]models.Playlist, error) { return nil, m.err }
func (m missingSource) PlaylistTracks(context.Context, string) ([]models.Track, error) {
	return nil, m.err
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	preset := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		source:     opts.Source,
		searcher:   opts.Searcher,
		converter:  opts.Converter,
		preset:     preset,
	}
}

// SetLogger replaces the logger used by the runner and every component it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, queueCommand, exportCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration and applies the log level flags.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("debug"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.InfoLevel)
	default:
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}

	if r.preset && !cmd.IsSet("config") {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	if !shared.FileExists(r.configPath) {
		r.logger.Info("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// open builds the shared components on first use.
func (r *Runner) open(ctx context.Context) (*app, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg := r.config
	a := &app{}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close() })

	state, err := r.stateStore(ctx, a)
	if err != nil {
		a.close()
		return nil, err
	}

	a.queue = queue.NewStore(state, r.logger)
	if err := a.queue.Restore(ctx); err != nil {
		r.logger.Warn("could not restore the queue, starting empty", "error", err)
	}

	if a.tokens, err = services.NewTokenCache(cfg.Credentials.Spotify.TokenPath); err != nil {
		a.close()
		return nil, err
	}

	source := r.source
	if source == nil {
		source = r.spotifySource(ctx, a)
	}
	a.catalog = catalog.NewLoader(source, r.logger)

	searcher, err := r.videoSearcher(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	converter := r.converter
	if converter == nil {
		extractor := services.NewYtdlpExtractor(cfg.Export.YtdlpPath, cfg.Export.AudioFormat, r.logger)
		converter = services.NewAudioConverter(
			extractor, services.NewID3Tagger(), cfg.Export.ConversionTimeout(), cfg.Export.AudioFormat, r.logger,
		)
	}

	a.runs = repositories.NewRunRepository(db)
	a.pipeline = tasks.NewPipeline(a.queue, searcher, converter, tasks.Options{
		SearchRate: cfg.Export.SearchRate,
		Recorders:  []tasks.Recorder{a.runs, formatter.NewManifestWriter()},
		Logger:     r.logger,
	})

	r.app = a
	return a, nil
}

func (r *Runner) stateStore(ctx context.Context, a *app) (repositories.StateStore, error) {
	cfg := r.config.Storage
	if cfg.Backend != "redis" {
		return repositories.NewSQLiteStore(a.db), nil
	}

	client, closeFn, err := repositories.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB, r.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeFn)
	return repositories.NewRedisStore(client, cfg.RedisPrefix), nil
}

// spotifySource builds the Spotify adapter and installs the cached token.
//
// Refreshed tokens are written back to the cache.
func (r *Runner) spotifySource(ctx context.Context, a *app) catalog.Source {
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		r.logger.Debug("spotify is not configured", "error", err)
		return missingSource{err: err}
	}

	tokens := a.tokens
	spotify.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := tokens.Save(token); err != nil {
			r.logger.Warn("failed to save spotify token", "error", err)
		}
	})

	token, err := tokens.Load()
	if err != nil {
		r.logger.Warn("ignoring unreadable token cache", "path", tokens.Path(), "error", err)
	} else if token != nil {
		spotify.SetToken(ctx, token)
	}

	a.spotify = spotify
	return spotify
}

func (r *Runner) videoSearcher(ctx context.Context) (services.VideoSearcher, error) {
	if r.searcher != nil {
		return r.searcher, nil
	}

	yt := r.config.Credentials.YouTube
	if r.config.Export.SearchBackend == "data_api" {
		return services.NewYTDataService(ctx, yt.APIKey)
	}
	return services.NewYouTubeService(yt.ProxyURL), nil
}

// requireSpotify returns the Spotify adapter or an error naming the missing credentials.
func (a *app) requireSpotify() (*services.SpotifyService, error) {
	if a.spotify == nil {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in the config", shared.ErrMissingCredentials)
	}
	return a.spotify, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Close releases the database and any other connections.
func (r *Runner) Close() {
	if r.app != nil {
		r.app.close()
		r.app = nil
	}
}

// applyDefaultExportDir sets export.dir from the config when the queue has no folder yet.
func (r *Runner) applyDefaultExportDir(ctx context.Context, a *app) {
	dir := r.config.Export.Dir
	if dir == "" || a.queue.ExportDir() != "" {
		return
	}
	if _, err := a.queue.SetExportDir(ctx, dir); err != nil {
		r.logger.Warn("configured export dir is unusable", "dir", dir, "error", err)
	}
}

func (r *Runner) isTerminal() bool {
	f, ok := r.output.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

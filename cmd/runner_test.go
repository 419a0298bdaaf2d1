package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	tu "github.com/desertthunder/pulse/internal/testing"
	"golang.org/x/oauth2"
)

type cliFixture struct {
	runner    *Runner
	out       *bytes.Buffer
	source    *tu.MockSource
	searcher  *tu.MockSearcher
	converter *tu.MockConverter
	config    *shared.Config
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	cfg := shared.DefaultConfig()
	cfg.Database = shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}
	cfg.Export.Dir = ""
	cfg.Export.SearchRate = 0
	cfg.Storage.Backend = "sqlite"
	cfg.Credentials.Spotify.TokenPath = filepath.Join(t.TempDir(), "token.json")
	return cfg
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	tracks := []models.Track{tu.Track("a"), tu.Track("b"), tu.Track("c")}
	source := &tu.MockSource{
		PlaylistList: []models.Playlist{{ID: "p1", Name: "Road Trip", TrackCount: 3}},
		TrackLists:   map[string][]models.Track{"p1": tracks},
	}
	searcher := &tu.MockSearcher{Results: map[string][]models.Video{}, Errs: map[string]error{}}
	for _, tr := range tracks {
		id := "v" + tr.ID
		searcher.Results[tr.Query()] = []models.Video{{ID: id, URL: services.VideoURL(id)}}
	}

	f := &cliFixture{
		out:       &bytes.Buffer{},
		source:    source,
		searcher:  searcher,
		converter: &tu.MockConverter{},
		config:    testConfig(t),
	}
	f.runner = NewRunner(RunnerOpts{
		Config:    f.config,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    f.out,
		Source:    f.source,
		Searcher:  f.searcher,
		Converter: f.converter,
	})
	t.Cleanup(f.runner.Close)
	return f
}

// run executes args against the root command and returns what was written.
func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	f.out.Reset()
	err := f.runner.command().Run(context.Background(), append([]string{"pulse"}, args...))
	return f.out.String(), err
}

func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.run(t, args...)
	if err != nil {
		t.Fatalf("pulse %s: unexpected error: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			source := &tu.MockSource{}
			searcher := &tu.MockSearcher{}
			converter := &tu.MockConverter{}

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Source:    source,
				Searcher:  searcher,
				Converter: converter,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.source != source {
				t.Error("expected source to be set")
			}
			if runner.searcher != searcher {
				t.Error("expected searcher to be set")
			}
			if runner.converter != converter {
				t.Error("expected converter to be set")
			}
			if !runner.preset {
				t.Error("expected a supplied config to be marked as preset")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.preset {
				t.Error("expected default config not to be preset")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds the line with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("%d of %d", 1, 2); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\n1 of 2\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "playlists", "queue", "export", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("isTerminal is false for buffers", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if runner.isTerminal() {
			t.Error("expected a buffer not to be a terminal")
		}
	})
}

func TestConfigLoading(t *testing.T) {
	t.Run("reads --config when no config was supplied", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig(t)
		cfg.Database.Path = filepath.Join(dir, "pulse.db")
		cfg.Export.Dir = filepath.Join(dir, "music")
		path := filepath.Join(dir, "config.toml")
		if err := shared.SaveConfig(path, cfg); err != nil {
			t.Fatal(err)
		}

		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: out, Logger: shared.NewLogger(&bytes.Buffer{}), Source: &tu.MockSource{}})
		defer runner.Close()

		if err := runner.command().Run(context.Background(), []string{"pulse", "--config", path, "queue", "ls"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runner.configPath != path {
			t.Errorf("expected configPath %s, got %s", path, runner.configPath)
		}
		if runner.config.Database.Path != cfg.Database.Path {
			t.Errorf("expected database path from file, got %s", runner.config.Database.Path)
		}
		tu.AssertFileExists(t, cfg.Database.Path)
		if !strings.Contains(out.String(), "Queue is empty") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("falls back to defaults when the file is missing", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		missing := filepath.Join(t.TempDir(), "nope.toml")

		// setup config writes the file but opens nothing else
		if err := runner.command().Run(context.Background(), []string{"pulse", "-c", missing, "setup", "config"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, missing)
		if runner.config.Server.Port != shared.DefaultConfig().Server.Port {
			t.Error("expected default config to be used")
		}
	})

	t.Run("rejects an invalid config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[server\nport = "), 0644); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		if err := runner.command().Run(context.Background(), []string{"pulse", "-c", path, "queue", "ls"}); err == nil {
			t.Error("expected an error for malformed TOML")
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	f := newCLIFixture(t)

	t.Run("ls", func(t *testing.T) {
		out := f.mustRun(t, "playlists", "ls")
		if !strings.Contains(out, "Road Trip (3 tracks)") {
			t.Errorf("unexpected output %q", out)
		}

		out = f.mustRun(t, "playlists", "ls", "--json")
		var playlists []models.Playlist
		if err := json.Unmarshal([]byte(out), &playlists); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(playlists) != 1 || playlists[0].ID != "p1" {
			t.Errorf("unexpected playlists %+v", playlists)
		}
	})

	t.Run("tracks sorted descending", func(t *testing.T) {
		out := f.mustRun(t, "playlists", "tracks", "--sort", "title", "--desc", "p1")
		first := strings.Index(out, "Title c")
		last := strings.Index(out, "Title a")
		if first < 0 || last < 0 || first > last {
			t.Errorf("expected c before a, got %q", out)
		}
	})

	t.Run("tracks marks queued entries", func(t *testing.T) {
		f.mustRun(t, "queue", "add", "p1", "b")
		out := f.mustRun(t, "playlists", "tracks", "p1")
		if !strings.Contains(out, "+   2. Artist b - Title b") {
			t.Errorf("expected b to be marked, got %q", out)
		}
		f.mustRun(t, "queue", "clear")
	})

	t.Run("tracks requires an id", func(t *testing.T) {
		if _, err := f.run(t, "playlists", "tracks"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("bad sort field", func(t *testing.T) {
		if _, err := f.run(t, "playlists", "tracks", "--sort", "bpm", "p1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("source errors propagate", func(t *testing.T) {
		f.source.Err = shared.ErrNotAuthenticated
		defer func() { f.source.Err = nil }()

		if _, err := f.run(t, "playlists", "tracks", "p1"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestQueueCommands(t *testing.T) {
	f := newCLIFixture(t)

	t.Run("add requires ids or --all", func(t *testing.T) {
		if _, err := f.run(t, "queue", "add", "p1"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := f.run(t, "queue", "add"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("add unknown track", func(t *testing.T) {
		if _, err := f.run(t, "queue", "add", "p1", "zzz"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if f.runner.app.queue.Len() != 0 {
			t.Error("expected nothing to be queued")
		}
	})

	t.Run("add reports duplicates", func(t *testing.T) {
		out := f.mustRun(t, "queue", "add", "p1", "a")
		if !strings.Contains(out, "Queued 1 track(s)") {
			t.Errorf("unexpected output %q", out)
		}

		out = f.mustRun(t, "queue", "add", "--all", "p1")
		if !strings.Contains(out, "Queued 2 track(s), 1 already queued") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("ls", func(t *testing.T) {
		out := f.mustRun(t, "queue", "ls")
		for _, want := range []string{"  1. [idle] Artist a - Title a", "  3. [idle] Artist c - Title c", "0 of 3 ready"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}

		var listing queueListing
		if err := json.Unmarshal([]byte(f.mustRun(t, "queue", "ls", "--json")), &listing); err != nil {
			t.Fatal(err)
		}
		if listing.Summary.Total != 3 || len(listing.Tracks) != 3 {
			t.Errorf("unexpected listing %+v", listing)
		}
	})

	t.Run("move", func(t *testing.T) {
		out := f.mustRun(t, "queue", "move", "--up", "--steps", "5", "c")
		if !strings.Contains(out, "position 1") {
			t.Errorf("unexpected output %q", out)
		}
		assertOrder(t, f, "c", "a", "b")

		f.mustRun(t, "queue", "move", "--down", "c")
		assertOrder(t, f, "a", "c", "b")

		if _, err := f.run(t, "queue", "move", "c"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument without a direction, got %v", err)
		}
		if _, err := f.run(t, "queue", "move", "--up", "zzz"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("reorder", func(t *testing.T) {
		f.mustRun(t, "queue", "reorder", "b", "a", "c")
		assertOrder(t, f, "b", "a", "c")

		if _, err := f.run(t, "queue", "reorder", "a", "b"); !errors.Is(err, shared.ErrInvalidPermutation) {
			t.Errorf("expected ErrInvalidPermutation, got %v", err)
		}
		assertOrder(t, f, "b", "a", "c")
	})

	t.Run("rm", func(t *testing.T) {
		out := f.mustRun(t, "queue", "rm", "a")
		if !strings.Contains(out, "Removed Artist a - Title a") {
			t.Errorf("unexpected output %q", out)
		}
		assertOrder(t, f, "b", "c")

		if _, err := f.run(t, "queue", "rm", "a"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("clear keeps the export dir", func(t *testing.T) {
		dir := t.TempDir()
		f.mustRun(t, "export", "dir", dir)

		out := f.mustRun(t, "queue", "clear")
		if !strings.Contains(out, "Cleared 2 track(s)") {
			t.Errorf("unexpected output %q", out)
		}
		if out := f.mustRun(t, "queue", "ls"); !strings.Contains(out, "Queue is empty") {
			t.Errorf("unexpected output %q", out)
		}
		if f.runner.app.queue.ExportDir() != dir {
			t.Errorf("expected export dir to survive clear, got %q", f.runner.app.queue.ExportDir())
		}
	})
}

func assertOrder(t *testing.T, f *cliFixture, want ...string) {
	t.Helper()
	got := f.runner.app.queue.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestExportCommands(t *testing.T) {
	f := newCLIFixture(t)

	t.Run("empty queue", func(t *testing.T) {
		out := f.mustRun(t, "export", "run")
		if !strings.Contains(out, "Queue is empty") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("requires an export dir", func(t *testing.T) {
		f.mustRun(t, "queue", "add", "--all", "p1")
		if out := f.mustRun(t, "export", "dir"); !strings.Contains(out, "No export folder set") {
			t.Errorf("unexpected output %q", out)
		}

		if _, err := f.run(t, "export", "run"); !errors.Is(err, shared.ErrNoExportDir) {
			t.Errorf("expected ErrNoExportDir, got %v", err)
		}
		if f.converter.CallCount() != 0 {
			t.Error("expected no conversions")
		}
	})

	dir := filepath.Join(t.TempDir(), "exports")

	t.Run("run continues past failures", func(t *testing.T) {
		f.searcher.Errs[tu.Track("c").Query()] = errors.New("search backend down")

		out := f.mustRun(t, "export", "run", "--dir", dir)
		for _, want := range []string{
			"Exporting 3 tracks to " + dir,
			"✓ Artist a - Title a.mp3",
			"✗ Artist c - Title c: search backend down",
			"Export finished: 2 downloaded, 1 failed, 0 skipped",
			"Manifest: " + filepath.Join(dir, "pulse-export.json"),
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
		tu.AssertDirExists(t, dir)

		out = f.mustRun(t, "queue", "ls", "--errors")
		for _, want := range []string{"[downloaded] Artist a - Title a  Artist a - Title a.mp3", "search backend down", "2 of 3 ready, 1 failed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("second run retries only the failure", func(t *testing.T) {
		delete(f.searcher.Errs, tu.Track("c").Query())
		before := f.converter.CallCount()

		out := f.mustRun(t, "export", "run")
		if !strings.Contains(out, "Export finished: 1 downloaded, 0 failed, 2 skipped") {
			t.Errorf("unexpected output %q", out)
		}
		if got := f.converter.CallCount() - before; got != 1 {
			t.Errorf("expected 1 conversion, got %d", got)
		}
	})

	t.Run("history", func(t *testing.T) {
		out := f.mustRun(t, "export", "history")
		if strings.Count(out, dir) != 2 {
			t.Errorf("expected two runs in %q", out)
		}
		if !strings.Contains(out, "1 downloaded, 0 failed, 2 skipped") || !strings.Contains(out, "2 downloaded, 1 failed, 0 skipped") {
			t.Errorf("unexpected output %q", out)
		}

		var runs []models.ExportRun
		if err := json.Unmarshal([]byte(f.mustRun(t, "export", "history", "--json", "--limit", "1")), &runs); err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].Downloaded != 1 {
			t.Errorf("unexpected runs %+v", runs)
		}

		if _, err := f.run(t, "export", "history", "--limit", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestExportDefaultDir(t *testing.T) {
	f := newCLIFixture(t)
	dir := filepath.Join(t.TempDir(), "music")
	f.config.Export.Dir = dir

	f.mustRun(t, "queue", "add", "p1", "a")
	out := f.mustRun(t, "export", "run")
	if !strings.Contains(out, "Export finished: 1 downloaded") {
		t.Errorf("unexpected output %q", out)
	}
	if got := f.runner.app.queue.ExportDir(); got != dir {
		t.Errorf("expected configured dir %s, got %s", dir, got)
	}
}

func TestAuthCommands(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Credentials.Spotify.ClientID = ""
		cfg.Credentials.Spotify.ClientSecret = ""

		runner := NewRunner(RunnerOpts{Config: cfg, Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		defer runner.Close()

		err := runner.command().Run(context.Background(), []string{"pulse", "auth", "status"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		err = runner.command().Run(context.Background(), []string{"pulse", "playlists", "ls"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected the catalog to report missing credentials, got %v", err)
		}
	})

	t.Run("status without a token", func(t *testing.T) {
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: out, Logger: shared.NewLogger(&bytes.Buffer{})})
		defer runner.Close()

		if err := runner.command().Run(context.Background(), []string{"pulse", "auth", "status", "--json"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var status authStatus
		if err := json.Unmarshal(out.Bytes(), &status); err != nil {
			t.Fatal(err)
		}
		if status.Authenticated || status.User != nil {
			t.Errorf("expected signed-out status, got %+v", status)
		}
	})

	t.Run("logout deletes the token cache", func(t *testing.T) {
		cfg := testConfig(t)
		tokens, err := services.NewTokenCache(cfg.Credentials.Spotify.TokenPath)
		if err != nil {
			t.Fatal(err)
		}
		if err := tokens.Save(&oauth2.Token{AccessToken: "cached", RefreshToken: "refresh"}); err != nil {
			t.Fatal(err)
		}

		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: cfg, Output: out, Logger: shared.NewLogger(&bytes.Buffer{})})
		defer runner.Close()

		if err := runner.command().Run(context.Background(), []string{"pulse", "auth", "logout"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertNoFile(t, cfg.Credentials.Spotify.TokenPath)
		if !strings.Contains(out.String(), "Signed out") {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}

package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the bundled config template to the --config path.
//
// An existing file is left alone.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}
	if shared.FileExists(path) {
		return r.writePlain("Config already exists at %s\n", path)
	}

	r.logger.Info("creating config from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret\n")
	r.writePlain("2. Run 'pulse setup deps' to locate yt-dlp\n")
	r.writePlain("3. Run 'pulse auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, _, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
}

// SetupDeps resolves yt-dlp, downloading it when allowed, and reports whether ffmpeg is available.
func (r *Runner) SetupDeps(ctx context.Context, cmd *cli.Command) error {
	if path := r.config.Export.YtdlpPath; path != "" {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("%w: export.ytdlp_path %q: %v", shared.ErrServiceUnavailable, path, err)
		}
		r.writePlain("✓ yt-dlp: %s (from config)\n", path)
	} else {
		r.writePlain("→ Resolving yt-dlp...\n")
		exe, version, err := services.InstallYtdlp(ctx, !cmd.Bool("no-download"))
		if err != nil {
			return err
		}
		r.writePlain("✓ yt-dlp %s: %s\n", version, exe)
		if r.config.Export.YtdlpPath == "" {
			r.writePlain("  set export.ytdlp_path = %q to pin it\n", exe)
		}
	}

	if ffmpeg, err := exec.LookPath("ffmpeg"); err != nil {
		r.writePlain("✗ ffmpeg not found on PATH; audio extraction will fail\n")
	} else {
		r.writePlain("✓ ffmpeg: %s\n", ffmpeg)
	}
	return nil
}

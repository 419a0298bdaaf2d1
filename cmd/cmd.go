// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// command returns the root command with every subcommand attached.
func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:    "pulse",
		Usage:   "Export Spotify playlists as tagged MP3 files",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PULSE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log progress information",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log debug information",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

// setupCommand handles setup operations for config, database and external tools.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the bundled template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "deps",
				Usage: "Locate or install yt-dlp and check for ffmpeg",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-download",
						Usage: "Only look for an existing yt-dlp, never download one",
					},
				},
				Action: r.SetupDeps,
			},
		},
	}
}

// authCommand handles Spotify sign-in.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in to Spotify through the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in Spotify account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand browses the user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse Spotify playlists",
		Commands: []*cli.Command{
			{
				Name:    "ls",
				Aliases: []string{"list"},
				Usage:   "List your playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:  "tracks",
				Usage: "List the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort by title, artist, album or year",
					},
					&cli.BoolFlag{
						Name:  "desc",
						Usage: "Sort descending",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistTracks,
			},
		},
	}
}

// queueCommand edits the persisted download queue.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Manage the download queue",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue tracks from a playlist",
				ArgsUsage: "<playlist-id> [track-id...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Queue every track in the playlist",
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:    "rm",
				Aliases: []string{"remove"},
				Usage:   "Remove a track from the queue",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.QueueRemove,
			},
			{
				Name:    "ls",
				Aliases: []string{"list"},
				Usage:   "Show the queue in download order",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.BoolFlag{
						Name:  "errors",
						Usage: "Include the full error message of failed tracks",
					},
				},
				Action: r.QueueList,
			},
			{
				Name:      "reorder",
				Usage:     "Set the queue order; every queued id must be given exactly once",
				ArgsUsage: "<track-id...>",
				Action:    r.QueueReorder,
			},
			{
				Name:  "move",
				Usage: "Move a track up or down the queue",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "up",
						Usage: "Move toward the front of the queue",
					},
					&cli.BoolFlag{
						Name:  "down",
						Usage: "Move toward the back of the queue",
					},
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of positions to move",
						Value: 1,
					},
				},
				Action: r.QueueMove,
			},
			{
				Name:   "clear",
				Usage:  "Remove every track from the queue",
				Action: r.QueueClear,
			},
		},
	}
}

// exportCommand runs the download pipeline and inspects past runs.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Download the queue as tagged audio files",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Process every queued track in order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Export folder; overrides the stored one",
					},
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Open the export folder when the run finishes",
					},
				},
				Action: r.ExportRun,
			},
			{
				Name:  "dir",
				Usage: "Show or set the export folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.ExportDir,
			},
			{
				Name:  "history",
				Usage: "List recent export runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.ExportHistory,
			},
		},
	}
}

// serveCommand starts the local web interface.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web interface and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; defaults to server.host and server.port from the config",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the interface in the browser",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal interface",
		Action:  r.TUI,
	}
}

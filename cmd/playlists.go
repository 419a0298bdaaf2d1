package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pulse/internal/catalog"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	playlists, err := a.catalog.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found\n")
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-24s %s (%d tracks)\n", p.ID, p.Name, p.TrackCount)
	}
	return nil
}

// PlaylistTracks prints the tracks of one playlist with queue membership markers.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	field, err := catalog.ParseSortField(cmd.String("sort"))
	if err != nil {
		return err
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	if _, err := a.catalog.Load(ctx, id); err != nil {
		return err
	}
	a.catalog.Sort(field, cmd.Bool("desc"))
	tracks := a.catalog.Tracks()

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		return r.writePlain("Playlist has no tracks\n")
	}

	for i, t := range tracks {
		mark := " "
		if a.queue.Contains(t.ID) {
			mark = "+"
		}
		r.writePlain("%s %3d. %s - %s", mark, i+1, t.Artist, t.Title)
		if t.Album != "" {
			r.writePlain(" [%s]", t.Album)
		}
		r.writePlain("  (%s)\n", t.ID)
	}
	return r.writePlainln("%d tracks, + marks queued tracks", len(tracks))
}

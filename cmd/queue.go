package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type queueListing struct {
	ExportDir string         `json:"exportDir"`
	Summary   queue.Summary  `json:"summary"`
	Tracks    []models.Track `json:"tracks"`
}

// QueueAdd loads a playlist and queues the named tracks, or all of them with --all.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	playlistID, ids := args[0], args[1:]
	all := cmd.Bool("all")
	if len(ids) == 0 && !all {
		return fmt.Errorf("%w: track ids or --all", shared.ErrMissingArgument)
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	if _, err := a.catalog.Load(ctx, playlistID); err != nil {
		return err
	}

	if all {
		a.catalog.SelectAll(true)
	}
	for _, id := range ids {
		if !a.catalog.SetSelected(id, true) {
			return fmt.Errorf("%w: %s is not in playlist %s", shared.ErrTrackNotFound, id, playlistID)
		}
	}

	added, duplicates, err := a.queue.AddAll(ctx, a.catalog.Selected())
	if err != nil {
		return err
	}

	r.logger.Info("queued tracks", "playlist", playlistID, "added", len(added), "duplicates", len(duplicates))
	if len(duplicates) > 0 {
		return r.writePlain("Queued %d track(s), %d already queued\n", len(added), len(duplicates))
	}
	return r.writePlain("Queued %d track(s)\n", len(added))
}

// QueueRemove drops one track from the queue.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	track, ok := a.queue.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err := a.queue.Remove(ctx, id); err != nil {
		return err
	}
	return r.writePlain("Removed %s - %s\n", track.Artist, track.Title)
}

// QueueList prints the queue in download order followed by a summary line.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	tracks := a.queue.Tracks()
	summary := a.queue.Summary()

	if cmd.Bool("json") {
		return r.writeJSON(queueListing{
			ExportDir: a.queue.ExportDir(),
			Summary:   summary,
			Tracks:    tracks,
		}, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		return r.writePlain("Queue is empty\n")
	}

	showErrors := cmd.Bool("errors")
	for i, t := range tracks {
		r.writePlain("%3d. [%s] %s - %s", i+1, t.Status, t.Artist, t.Title)
		switch {
		case t.Status == models.StatusDownloaded:
			r.writePlain("  %s", t.OutputFilename)
			if info, err := os.Stat(t.OutputPath); err == nil {
				r.writePlain(" (%s)", humanize.Bytes(uint64(info.Size())))
			}
		case t.Status == models.StatusError && showErrors:
			r.writePlain("\n       %s", t.ErrorMessage)
		}
		r.writePlain("\n")
	}

	if dir := a.queue.ExportDir(); dir != "" {
		r.writePlainln("%s → %s", summary, dir)
		return nil
	}
	return r.writePlainln("%s", summary)
}

// QueueReorder replaces the queue order with the given ids.
func (r *Runner) QueueReorder(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: track ids", shared.ErrMissingArgument)
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	if err := a.queue.Reorder(ctx, ids); err != nil {
		return err
	}
	return r.writePlain("Queue reordered\n")
}

// QueueMove shifts one track toward the front (--up) or back (--down).
func (r *Runner) QueueMove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	up, down := cmd.Bool("up"), cmd.Bool("down")
	if up == down {
		return fmt.Errorf("%w: exactly one of --up or --down", shared.ErrInvalidArgument)
	}
	steps := cmd.Int("steps")
	if steps < 1 {
		return fmt.Errorf("%w: --steps must be at least 1", shared.ErrInvalidArgument)
	}
	if up {
		steps = -steps
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	if err := a.queue.Move(ctx, id, steps); err != nil {
		return err
	}

	for i, qid := range a.queue.IDs() {
		if qid == id {
			return r.writePlain("Moved %s to position %d\n", id, i+1)
		}
	}
	return nil
}

// QueueClear removes every track; the export folder is kept.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	n := a.queue.Len()
	if err := a.queue.Clear(ctx); err != nil {
		return err
	}
	return r.writePlain("Cleared %d track(s)\n", n)
}

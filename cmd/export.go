package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/desertthunder/pulse/internal/formatter"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// ExportRun processes the queue until it is exhausted or the user interrupts.
//
// Ctrl+C cancels the in-flight track; tracks after it keep their status for the next run.
func (r *Runner) ExportRun(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	if dir := cmd.String("dir"); dir != "" {
		if _, err := a.queue.SetExportDir(ctx, dir); err != nil {
			return err
		}
	} else {
		r.applyDefaultExportDir(ctx, a)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.consumeProgress(progress)
	}()

	run, err := a.pipeline.Run(ctx, progress)
	close(progress)
	<-done

	switch {
	case errors.Is(err, shared.ErrNoExportDir):
		return fmt.Errorf("%w: pass --dir or run 'pulse export dir <path>'", err)
	case errors.Is(err, shared.ErrEmptyQueue):
		return r.writePlain("Queue is empty; add tracks with 'pulse queue add'\n")
	case err != nil:
		return err
	}

	r.writePlain("Took %s, %s written to %s\n", run.Duration().Round(10*time.Millisecond), humanize.Bytes(writtenBytes(run)), run.ExportDir)
	if manifest := filepath.Join(run.ExportDir, formatter.ManifestFile); shared.FileExists(manifest) {
		r.writePlain("Manifest: %s\n", manifest)
	}

	if cmd.Bool("reveal") {
		if err := shared.RevealDir(run.ExportDir); err != nil {
			r.logger.Warn("could not open export folder", "dir", run.ExportDir, "error", err)
		}
	}
	return nil
}

// consumeProgress renders updates until progress is closed.
//
// On a terminal the current step is redrawn in place; otherwise only notices are printed.
func (r *Runner) consumeProgress(progress <-chan tasks.ProgressUpdate) {
	live := r.isTerminal()
	for update := range progress {
		switch {
		case update.Notice == tasks.NoticePrecondition:
			// returned as an error by Run
		case update.IsNotice():
			if live {
				r.writePlain("\r\033[K")
			}
			r.writePlain("%s\n", update.Message)
		case update.Phase == tasks.Starting:
			r.writePlain("%s\n", update.Message)
		case live:
			r.writePlain("\r\033[K%s", update.Message)
		}
	}
}

func writtenBytes(run *models.ExportRun) uint64 {
	var total uint64
	for _, res := range run.Results {
		if res.Status != models.StatusDownloaded || res.Skipped || res.OutputPath == "" {
			continue
		}
		if info, err := os.Stat(res.OutputPath); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}

// ExportDir prints the export folder or, given a path, sets it.
func (r *Runner) ExportDir(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		dir := a.queue.ExportDir()
		if dir == "" {
			return r.writePlain("No export folder set\n")
		}
		return r.writePlain("%s\n", dir)
	}

	dir, err := a.queue.SetExportDir(ctx, path)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Export folder set to %s\n", dir)
}

// ExportHistory lists the most recent runs, newest first.
func (r *Runner) ExportHistory(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: --limit must be at least 1", shared.ErrInvalidArgument)
	}

	a, err := r.open(ctx)
	if err != nil {
		return err
	}

	runs, err := a.runs.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No export runs recorded\n")
	}

	for _, run := range runs {
		status := ""
		if run.Cancelled {
			status = " (cancelled)"
		}
		r.writePlain("%s  %-14s %d downloaded, %d failed, %d skipped%s\n",
			shortID(run.ID), humanize.Time(run.StartedAt), run.Downloaded, run.Failed, run.Skipped, status)
		r.writePlain("          %s\n", run.ExportDir)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

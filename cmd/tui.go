package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath())
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	r.applyDefaultExportDir(ctx, a)

	model := ui.NewModel(ctx, ui.Deps{
		Catalog:  a.catalog,
		Queue:    a.queue,
		Pipeline: a.pipeline,
		Logger:   fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err = p.Run()
	a.pipeline.Cancel()
	model.Wait()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func tuiLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pulse-tui.log")
	}
	return filepath.Join(dir, "pulse", "tui.log")
}

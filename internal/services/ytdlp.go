package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const (
	defaultAudioFormat = "mp3"
	stderrExcerptLen   = 400
)

// YtdlpExtractor extracts audio with yt-dlp through go-ytdlp.
type YtdlpExtractor struct {
	executable  string
	audioFormat string
	logger      *log.Logger
}

// NewYtdlpExtractor creates an extractor. An empty executable lets go-ytdlp resolve yt-dlp
// from its cache or PATH.
func NewYtdlpExtractor(executable, audioFormat string, logger *log.Logger) *YtdlpExtractor {
	if audioFormat == "" {
		audioFormat = defaultAudioFormat
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YtdlpExtractor{
		executable:  executable,
		audioFormat: audioFormat,
		logger:      shared.WithLogger(logger, "component", "yt-dlp"),
	}
}

// Command builds the yt-dlp invocation writing to outputPath.
//
// yt-dlp replaces the extension after post-processing, so the template uses %(ext)s.
func (e *YtdlpExtractor) Command(outputPath string) *ytdlp.Command {
	template := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".%(ext)s"

	cmd := ytdlp.New().
		ExtractAudio().
		AudioFormat(e.audioFormat).
		Format("bestaudio/best").
		NoWarnings().
		NoPlaylist().
		ForceOverwrites().
		Retries("3").
		Output(template)

	if e.executable != "" {
		cmd.SetExecutable(e.executable)
	}
	return cmd
}

// Extract runs yt-dlp for videoURL. Download progress is reported through [WithProgress].
func (e *YtdlpExtractor) Extract(ctx context.Context, videoURL, outputPath string) error {
	cmd := e.Command(outputPath)

	report := progressFrom(ctx)
	cmd.ProgressFunc(250*time.Millisecond, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			report(float64(update.DownloadedBytes) / float64(update.TotalBytes))
		}
	})

	e.logger.Debug("running yt-dlp", "url", videoURL, "output", outputPath)
	result, err := cmd.Run(ctx, videoURL)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: yt-dlp killed", shared.ErrTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return shared.ErrCancelled
	}

	return processError(result, err)
}

// processError formats a yt-dlp failure with its exit code and a stderr excerpt.
func processError(result *ytdlp.Result, err error) error {
	if result == nil {
		return fmt.Errorf("%w: %v", shared.ErrProcess, err)
	}

	excerpt := strings.TrimSpace(result.Stderr)
	if len(excerpt) > stderrExcerptLen {
		excerpt = "..." + excerpt[len(excerpt)-stderrExcerptLen:]
	}
	if excerpt == "" {
		return fmt.Errorf("%w: yt-dlp exited with code %d", shared.ErrProcess, result.ExitCode)
	}
	return fmt.Errorf("%w: yt-dlp exited with code %d: %s", shared.ErrProcess, result.ExitCode, excerpt)
}

// InstallYtdlp resolves yt-dlp, downloading it into go-ytdlp's cache when it is not on PATH.
func InstallYtdlp(ctx context.Context, allowDownload bool) (executable, version string, err error) {
	resolved, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{DisableDownload: !allowDownload})
	if err != nil {
		return "", "", fmt.Errorf("%w: yt-dlp: %v", shared.ErrServiceUnavailable, err)
	}
	return resolved.Executable, resolved.Version, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// AudioConverter implements [Converter]: extract to a hidden temp file, tag it, then
// rename it into place under a unique name.
type AudioConverter struct {
	extractor Extractor
	tagger    Tagger
	timeout   time.Duration
	format    string
	logger    *log.Logger
}

// NewAudioConverter creates a converter. A non-positive timeout selects
// [shared.DefaultConversionTimeout].
func NewAudioConverter(extractor Extractor, tagger Tagger, timeout time.Duration, format string, logger *log.Logger) *AudioConverter {
	if timeout <= 0 {
		timeout = shared.DefaultConversionTimeout
	}
	if format == "" {
		format = defaultAudioFormat
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AudioConverter{
		extractor: extractor,
		tagger:    tagger,
		timeout:   timeout,
		format:    format,
		logger:    shared.WithLogger(logger, "component", "converter"),
	}
}

func (c *AudioConverter) Convert(ctx context.Context, videoURL string, meta models.TrackMetadata, dir string) (res *models.ConvertResult, err error) {
	if videoURL == "" {
		return nil, fmt.Errorf("%w: empty video url", shared.ErrInvalidInput)
	}
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: export directory %s is not available", shared.ErrIO, dir)
	}

	prefix := fmt.Sprintf(".pulse-%s.tmp.", shared.GenerateID())
	tmp := filepath.Join(dir, prefix+c.format)
	defer func() {
		if err != nil {
			c.removeTemp(dir, prefix)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.extractor.Extract(runCtx, videoURL, tmp); err != nil {
		if errors.Is(err, shared.ErrTimeout) || (errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil) {
			return nil, fmt.Errorf("%w: conversion timed out after %s", shared.ErrTimeout, c.timeout)
		}
		return nil, err
	}

	if !shared.FileExists(tmp) {
		return nil, fmt.Errorf("%w: extractor produced no output file", shared.ErrProcess)
	}

	if err := c.tagger.Tag(tmp, meta); err != nil {
		return nil, err
	}

	final, name, err := UniquePath(dir, OutputFilename(meta, c.format))
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, final); err != nil {
		return nil, fmt.Errorf("%w: finalizing %s: %v", shared.ErrIO, name, err)
	}

	result := &models.ConvertResult{Path: final, Filename: name}
	if info, err := os.Stat(final); err == nil {
		result.Size = info.Size()
	}

	c.logger.Debug("converted", "url", videoURL, "path", final, "bytes", result.Size)
	return result, nil
}

// removeTemp deletes every file in dir starting with prefix. yt-dlp leaves .part and
// intermediate container files next to the target when interrupted.
func (c *AudioConverter) removeTemp(dir, prefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.logger.Warn("failed to list export directory", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}
}

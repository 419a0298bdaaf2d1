// package formatter writes export results to various formats (JSON manifest, M3U, CSV, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// File names written into the export directory by [ManifestWriter].
const (
	ManifestFile = "pulse-export.json"
	PlaylistFile = "playlist.m3u"
	TracksFile   = "tracks.csv"
)

// ExportToCSV converts a run to CSV format with columns: Position, ID, Title, Artist, Status, File, Error, Skipped
func ExportToCSV(run *models.ExportRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Status", "File", "Error", "Skipped"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, res := range run.Results {
		file := ""
		if res.OutputPath != "" {
			file = filepath.Base(res.OutputPath)
		}
		record := []string{
			strconv.Itoa(i + 1),
			res.TrackID,
			res.Title,
			res.Artist,
			string(res.Status),
			file,
			res.ErrorMessage,
			strconv.FormatBool(res.Skipped),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToM3U builds an extended M3U playlist of the run's downloaded files, in queue order.
//
// Entries are file names relative to the export directory, where the playlist is written.
func ExportToM3U(run *models.ExportRun) []byte {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	for _, res := range run.Results {
		if res.Status != models.StatusDownloaded || res.OutputPath == "" {
			continue
		}
		buf.WriteString(fmt.Sprintf("#EXTINF:-1,%s - %s\n", res.Artist, res.Title))
		buf.WriteString(filepath.Base(res.OutputPath) + "\n")
	}

	return buf.Bytes()
}

// ExportToText converts a run to a plain text report
func ExportToText(run *models.ExportRun) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", run.ID))
	buf.WriteString(fmt.Sprintf("Directory: %s\n", run.ExportDir))
	buf.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt.Format(time.DateTime)))
	if !run.FinishedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Duration: %s\n", run.Duration().Round(time.Second)))
	}
	buf.WriteString(fmt.Sprintf("Downloaded: %d, Failed: %d, Skipped: %d", run.Downloaded, run.Failed, run.Skipped))
	if run.Cancelled {
		buf.WriteString(" (cancelled)")
	}
	buf.WriteString("\n\n")

	for i, res := range run.Results {
		mark := "✓"
		switch {
		case res.Skipped:
			mark = "-"
		case res.Status == models.StatusError:
			mark = "✗"
		}
		buf.WriteString(fmt.Sprintf("%d. %s %s - %s", i+1, mark, res.Artist, res.Title))
		if res.ErrorMessage != "" {
			buf.WriteString(": " + res.ErrorMessage)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ToManifestJSON generates the JSON manifest of a run
func ToManifestJSON(run *models.ExportRun) ([]byte, error) {
	return shared.MarshalJSON(run, true)
}

// ManifestResult contains the paths of files created by [ManifestWriter.Write]
type ManifestResult struct {
	ManifestFile string
	PlaylistFile string
	TracksFile   string
}

// ManifestWriter writes the manifest, M3U playlist and CSV report of each run into its
// export directory.
type ManifestWriter struct{}

func NewManifestWriter() *ManifestWriter {
	return &ManifestWriter{}
}

// Record implements the export pipeline's recorder hook.
func (w *ManifestWriter) Record(ctx context.Context, run *models.ExportRun) error {
	_, err := w.Write(run)
	return err
}

// Write creates the three report files, replacing earlier ones.
func (w *ManifestWriter) Write(run *models.ExportRun) (*ManifestResult, error) {
	if run == nil || run.ExportDir == "" {
		return nil, fmt.Errorf("%w: run has no export directory", shared.ErrInvalidInput)
	}

	manifest, err := ToManifestJSON(run)
	if err != nil {
		return nil, fmt.Errorf("failed to generate manifest: %w", err)
	}

	tracks, err := ExportToCSV(run)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	result := &ManifestResult{
		ManifestFile: filepath.Join(run.ExportDir, ManifestFile),
		PlaylistFile: filepath.Join(run.ExportDir, PlaylistFile),
		TracksFile:   filepath.Join(run.ExportDir, TracksFile),
	}

	files := []struct {
		path string
		data []byte
	}{
		{result.ManifestFile, manifest},
		{result.PlaylistFile, ExportToM3U(run)},
		{result.TracksFile, tracks},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("%w: failed to write %s: %v", shared.ErrIO, filepath.Base(f.path), err)
		}
	}

	return result, nil
}

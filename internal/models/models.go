// package models defines the data model shared by the catalog, queue, and export pipeline
package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle stage of a track inside the export queue.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusSearchingVideo Status = "searching_video"
	StatusVideoFound     Status = "video_found"
	StatusDownloading    Status = "downloading"
	StatusDownloaded     Status = "downloaded"
	StatusError          Status = "error"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusIdle, StatusSearchingVideo, StatusVideoFound, StatusDownloading, StatusDownloaded, StatusError,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsActive reports whether a track is being worked on by a run.
func (s Status) IsActive() bool {
	return s == StatusSearchingVideo || s == StatusVideoFound || s == StatusDownloading
}

// IsTerminal reports whether a run is finished with the track.
func (s Status) IsTerminal() bool {
	return s == StatusDownloaded || s == StatusError
}

// Track is one song drawn from a source playlist, carried through the catalog and the queue.
type Track struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Album          string `json:"album"`
	ReleaseYear    string `json:"releaseYear"`
	AlbumArtURL    string `json:"albumArtUrl,omitempty"`
	SourceURL      string `json:"sourceUrl"`
	VideoURL       string `json:"videoUrl,omitempty"`
	OutputPath     string `json:"outputPath,omitempty"`
	OutputFilename string `json:"outputFilename,omitempty"`
	Selected       bool   `json:"selected"`
	Status         Status `json:"status"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// Validate checks the fields the queue relies on.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("track id is required")
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("track %s has unknown status %q", t.ID, t.Status)
	}
	return nil
}

// Query is the free-text search string used to find a matching video.
func (t Track) Query() string {
	return strings.TrimSpace(strings.TrimSpace(t.Title) + " " + strings.TrimSpace(t.Artist))
}

// Metadata returns the tag fields written into the output file.
func (t Track) Metadata() TrackMetadata {
	return TrackMetadata{
		ID:     t.ID,
		Title:  t.Title,
		Artist: t.Artist,
		Album:  t.Album,
		Year:   t.ReleaseYear,
	}
}

// Fail moves the track to [StatusError] with msg.
func (t *Track) Fail(msg string) {
	t.Status = StatusError
	t.ErrorMessage = msg
}

// SetStatus moves the track to a non-error status and clears any previous error.
func (t *Track) SetStatus(s Status) {
	t.Status = s
	t.ErrorMessage = ""
}

// ResetForRetry applies the restore rule: anything not downloaded returns to idle.
//
// The resolved video URL is kept so a retry can skip the search.
func (t *Track) ResetForRetry() {
	if t.Status == StatusDownloaded {
		return
	}
	t.Status = StatusIdle
	t.ErrorMessage = ""
	t.OutputPath = ""
	t.OutputFilename = ""
}

// TrackMetadata is the subset of a track embedded as audio tags.
type TrackMetadata struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Year   string
}

// Playlist is a source playlist as listed by the streaming service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	TrackCount  int    `json:"trackCount"`
}

// Video is a single search result from the video platform.
type Video struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Views int64  `json:"views,omitempty"`
}

// ConvertResult is the finished audio file produced for one track.
type ConvertResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// TrackResult is the outcome recorded for one track in an [ExportRun].
type TrackResult struct {
	TrackID      string `json:"trackId"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Status       Status `json:"status"`
	OutputPath   string `json:"outputPath,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// ExportRun summarizes one pass of the export pipeline over the queue.
type ExportRun struct {
	ID         string        `json:"id"`
	ExportDir  string        `json:"exportDir"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Total      int           `json:"total"`
	Downloaded int           `json:"downloaded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Cancelled  bool          `json:"cancelled"`
	Results    []TrackResult `json:"results"`
}

// Processed is the number of tracks the run attempted.
func (r ExportRun) Processed() int {
	return r.Downloaded + r.Failed
}

// Duration is the wall-clock length of the run.
func (r ExportRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

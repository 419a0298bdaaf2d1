package tasks

import (
	"fmt"

	"github.com/desertthunder/pulse/internal/models"
)

// ProgressUpdate represents a progress event during an export run.
//
// Used to send real-time updates to the CLI, TUI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current track number (1-based) within the run
	Total   int    // Number of tracks in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
	Notice  Notice // Set for user-facing notifications, empty for plain progress
	TrackID string // Track the update is about, if any
}

// IsNotice reports whether the update is a user-facing notification.
func (u ProgressUpdate) IsNotice() bool {
	return u.Notice != NoticeNone
}

// Operation phase enumeration
type Phase int

const (
	Starting Phase = iota
	SearchVideo
	Download
	Finished
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case SearchVideo:
		return "search_video"
	case Download:
		return "download"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// Notice is the kind of notification carried by a [ProgressUpdate].
type Notice string

const (
	NoticeNone         Notice = ""
	NoticeSuccess      Notice = "success"
	NoticeFailure      Notice = "failure"
	NoticeComplete     Notice = "complete"
	NoticePrecondition Notice = "precondition"
)

func startingUpdate(total int, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Starting,
		Total:   total,
		Message: fmt.Sprintf("Exporting %d tracks to %s...", total, dir),
	}
}

func searchingUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchVideo,
		Step:    step,
		Total:   total,
		TrackID: tr.ID,
		Message: fmt.Sprintf("[%d/%d] Searching: %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func cachedVideoUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchVideo,
		Step:    step,
		Total:   total,
		TrackID: tr.ID,
		Message: fmt.Sprintf("[%d/%d] Using cached video for %s - %s", step, total, tr.Artist, tr.Title),
		Data:    tr.VideoURL,
	}
}

func downloadingUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		TrackID: tr.ID,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s - %s", step, total, tr.Artist, tr.Title),
		Data:    0.0,
	}
}

// downloadProgressUpdate carries the completed fraction of the current download in Data.
func downloadProgressUpdate(step, total int, id string, fraction float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		TrackID: id,
		Message: fmt.Sprintf("[%d/%d] %.0f%%", step, total, fraction*100),
		Data:    fraction,
	}
}

func successNotice(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		TrackID: tr.ID,
		Notice:  NoticeSuccess,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, tr.OutputFilename),
		Data:    tr,
	}
}

func failureNotice(phase Phase, step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		TrackID: tr.ID,
		Notice:  NoticeFailure,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %s", step, total, tr.Artist, tr.Title, tr.ErrorMessage),
		Data:    tr,
	}
}

func completeNotice(run *models.ExportRun) ProgressUpdate {
	msg := fmt.Sprintf("Export finished: %d downloaded, %d failed, %d skipped", run.Downloaded, run.Failed, run.Skipped)
	if run.Cancelled {
		msg = fmt.Sprintf("Export cancelled: %d downloaded, %d failed, %d skipped", run.Downloaded, run.Failed, run.Skipped)
	}
	return ProgressUpdate{
		Phase:   Finished,
		Step:    run.Processed() + run.Skipped,
		Total:   run.Total,
		Notice:  NoticeComplete,
		Message: msg,
		Data:    run,
	}
}

func preconditionNotice(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Starting,
		Notice:  NoticePrecondition,
		Message: fmt.Sprintf("Cannot export: %v", err),
		Data:    err,
	}
}

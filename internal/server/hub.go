package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/tasks"
)

const maxNotices = 200

// NoticeEntry is one user-facing notification from an export run.
type NoticeEntry struct {
	Kind    tasks.Notice `json:"kind"`
	Message string       `json:"message"`
	TrackID string       `json:"trackId,omitempty"`
	Time    time.Time    `json:"time"`
}

// ProgressView is the latest progress of the active run.
type ProgressView struct {
	Phase    string  `json:"phase"`
	Step     int     `json:"step"`
	Total    int     `json:"total"`
	Message  string  `json:"message"`
	TrackID  string  `json:"trackId,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
}

// ExportStatus is what GET /api/export returns.
type ExportStatus struct {
	IsExporting bool              `json:"isExporting"`
	Progress    *ProgressView     `json:"progress,omitempty"`
	LastRun     *models.ExportRun `json:"lastRun,omitempty"`
	Notices     []NoticeEntry     `json:"notices"`
}

// ExportHub runs the pipeline in the background for HTTP clients and keeps its notices.
type ExportHub struct {
	pipeline *tasks.Pipeline
	queue    *queue.Store
	logger   *log.Logger

	mu       sync.Mutex
	active   bool
	done     chan struct{}
	progress *ProgressView
	notices  []NoticeEntry
}

func NewExportHub(pipeline *tasks.Pipeline, q *queue.Store, logger *log.Logger) *ExportHub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportHub{
		pipeline: pipeline,
		queue:    q,
		logger:   shared.WithLogger(logger, "component", "export-hub"),
	}
}

// Start launches a run detached from the caller. ctx bounds the run's lifetime.
//
// Preconditions are checked before returning, so callers can report them synchronously.
func (h *ExportHub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.active || h.pipeline.IsExporting():
		return shared.ErrExportInProgress
	case h.queue.Len() == 0:
		h.appendNotice(tasks.NoticePrecondition, shared.ErrEmptyQueue.Error(), "")
		return shared.ErrEmptyQueue
	case h.queue.ExportDir() == "":
		h.appendNotice(tasks.NoticePrecondition, shared.ErrNoExportDir.Error(), "")
		return shared.ErrNoExportDir
	}

	h.active = true
	h.done = make(chan struct{})
	h.progress = nil

	progress := make(chan tasks.ProgressUpdate, 64)
	go h.consume(progress, h.done)
	go func() {
		defer close(progress)
		if _, err := h.pipeline.Run(ctx, progress); err != nil {
			h.logger.Warn("export did not start", "error", err)
		}
	}()
	return nil
}

// Cancel stops the active run. It reports whether one was running.
func (h *ExportHub) Cancel() bool {
	return h.pipeline.Cancel()
}

// Wait blocks until the active run, if any, has finished and its notices are recorded.
func (h *ExportHub) Wait() {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns a snapshot for clients.
func (h *ExportHub) Status() ExportStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := ExportStatus{
		IsExporting: h.active,
		LastRun:     h.pipeline.LastRun(),
		Notices:     make([]NoticeEntry, len(h.notices)),
	}
	copy(status.Notices, h.notices)
	if h.progress != nil {
		p := *h.progress
		status.Progress = &p
	}
	return status
}

func (h *ExportHub) consume(progress <-chan tasks.ProgressUpdate, done chan struct{}) {
	defer close(done)

	for u := range progress {
		h.mu.Lock()
		view := &ProgressView{
			Phase:   u.Phase.String(),
			Step:    u.Step,
			Total:   u.Total,
			Message: u.Message,
			TrackID: u.TrackID,
		}
		if fraction, ok := u.Data.(float64); ok {
			view.Fraction = fraction
		}
		h.progress = view
		if u.IsNotice() {
			h.appendNotice(u.Notice, u.Message, u.TrackID)
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// appendNotice must be called with h.mu held.
func (h *ExportHub) appendNotice(kind tasks.Notice, msg, trackID string) {
	h.notices = append(h.notices, NoticeEntry{Kind: kind, Message: msg, TrackID: trackID, Time: time.Now()})
	if len(h.notices) > maxNotices {
		h.notices = h.notices[len(h.notices)-maxNotices:]
	}
}

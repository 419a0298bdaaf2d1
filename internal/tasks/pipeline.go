package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	"golang.org/x/time/rate"
)

const (
	cancelledMessage = "cancelled"
	noticeTimeout    = 5 * time.Second
)

// Queue is the part of the queue store the pipeline reads and writes.
type Queue interface {
	IDs() []string
	Get(id string) (models.Track, bool)
	Update(ctx context.Context, id string, fn func(*models.Track)) (models.Track, error)
	ExportDir() string
}

// Recorder receives the summary of every finished run.
type Recorder interface {
	Record(ctx context.Context, run *models.ExportRun) error
}

// Options configures a [Pipeline].
type Options struct {
	SearchRate float64 // searches per second; zero or less disables limiting
	Recorders  []Recorder
	Logger     *log.Logger
}

// Pipeline exports the queue one track at a time: search for a video, convert it, record
// the outcome on the track.
//
// At most one run is active at a time.
type Pipeline struct {
	queue     Queue
	searcher  services.VideoSearcher
	converter services.Converter
	limiter   *rate.Limiter
	recorders []Recorder
	logger    *log.Logger

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	last    *models.ExportRun
}

// NewPipeline creates a pipeline over q.
func NewPipeline(q Queue, searcher services.VideoSearcher, converter services.Converter, opts Options) *Pipeline {
	limit := rate.Inf
	if opts.SearchRate > 0 {
		limit = rate.Limit(opts.SearchRate)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Pipeline{
		queue:     q,
		searcher:  searcher,
		converter: converter,
		limiter:   rate.NewLimiter(limit, 1),
		recorders: opts.Recorders,
		logger:    shared.WithLogger(logger, "component", "export"),
	}
}

// IsExporting reports whether a run is active.
func (p *Pipeline) IsExporting() bool {
	return p.running.Load()
}

// Cancel stops the active run, if any. It reports whether there was one.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.cancel()
	return true
}

// LastRun returns the summary of the most recent finished run.
func (p *Pipeline) LastRun() *models.ExportRun {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run processes every queued track in order.
//
// Tracks already downloaded are skipped. A failing track is marked as such and the run
// moves on. Cancelling ctx marks the in-flight track "cancelled" and leaves the rest
// untouched. Exactly one completion notice is sent, after the last track.
//
// Run returns an error only when it could not start: [shared.ErrExportInProgress],
// [shared.ErrEmptyQueue] or [shared.ErrNoExportDir].
func (p *Pipeline) Run(ctx context.Context, progress chan<- ProgressUpdate) (*models.ExportRun, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.notify(progress, preconditionNotice(shared.ErrExportInProgress))
		return nil, shared.ErrExportInProgress
	}
	defer p.running.Store(false)

	ids := p.queue.IDs()
	if len(ids) == 0 {
		p.notify(progress, preconditionNotice(shared.ErrEmptyQueue))
		return nil, shared.ErrEmptyQueue
	}
	dir := p.queue.ExportDir()
	if dir == "" {
		p.notify(progress, preconditionNotice(shared.ErrNoExportDir))
		return nil, shared.ErrNoExportDir
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()

	// Queue writes must land even after the run is cancelled.
	writeCtx := context.WithoutCancel(ctx)

	run := &models.ExportRun{
		ID:        shared.GenerateID(),
		ExportDir: dir,
		StartedAt: time.Now(),
		Total:     len(ids),
		Results:   make([]models.TrackResult, 0, len(ids)),
	}

	p.logger.Info("export started", "run", run.ID, "tracks", run.Total, "dir", dir)
	p.sendProgress(progress, startingUpdate(run.Total, dir))

	for i, id := range ids {
		if runCtx.Err() != nil {
			run.Cancelled = true
			break
		}

		track, ok := p.queue.Get(id)
		if !ok {
			p.logger.Debug("track left the queue during the run", "id", id)
			continue
		}

		if track.Status == models.StatusDownloaded {
			run.Skipped++
			run.Results = append(run.Results, models.TrackResult{
				TrackID:    track.ID,
				Title:      track.Title,
				Artist:     track.Artist,
				Status:     track.Status,
				OutputPath: track.OutputPath,
				Skipped:    true,
			})
			continue
		}

		result := p.process(runCtx, writeCtx, step{n: i + 1, total: run.Total}, track, dir, progress)
		run.Results = append(run.Results, result)

		switch result.Status {
		case models.StatusDownloaded:
			run.Downloaded++
		case models.StatusError:
			run.Failed++
		}

		if result.ErrorMessage == cancelledMessage {
			run.Cancelled = true
			break
		}
	}

	run.FinishedAt = time.Now()
	p.record(writeCtx, run)

	p.mu.Lock()
	p.last = run
	p.mu.Unlock()

	p.logger.Info("export finished", "run", run.ID, "downloaded", run.Downloaded,
		"failed", run.Failed, "skipped", run.Skipped, "cancelled", run.Cancelled, "took", run.Duration())
	p.notify(progress, completeNotice(run))
	return run, nil
}

type step struct {
	n, total int
}

// process takes one track through search and conversion. Panics are recovered into an
// error status.
func (p *Pipeline) process(ctx, writeCtx context.Context, s step, track models.Track, dir string, progress chan<- ProgressUpdate) (res models.TrackResult) {
	res = models.TrackResult{TrackID: track.ID, Title: track.Title, Artist: track.Artist}
	phase := SearchVideo

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered panic while exporting", "id", track.ID, "panic", r)
			res = p.fail(writeCtx, s, phase, track, fmt.Sprintf("internal error: %v", r), progress)
		}
	}()

	current, err := p.set(writeCtx, track.ID, func(t *models.Track) {
		t.SetStatus(models.StatusSearchingVideo)
		t.OutputPath, t.OutputFilename = "", ""
	})
	if err != nil {
		return p.writeFailed(s, phase, track, err, progress)
	}

	videoURL := current.VideoURL
	if videoURL == "" {
		p.sendProgress(progress, searchingUpdate(s.n, s.total, current))

		videoURL, err = p.search(ctx, current)
		if err != nil {
			return p.fail(writeCtx, s, phase, current, p.failureMessage(ctx, err), progress)
		}
	} else {
		p.sendProgress(progress, cachedVideoUpdate(s.n, s.total, current))
	}

	if _, err := p.set(writeCtx, track.ID, func(t *models.Track) {
		t.SetStatus(models.StatusVideoFound)
		t.VideoURL = videoURL
	}); err != nil {
		return p.writeFailed(s, phase, track, err, progress)
	}

	phase = Download
	current, err = p.set(writeCtx, track.ID, func(t *models.Track) {
		t.SetStatus(models.StatusDownloading)
	})
	if err != nil {
		return p.writeFailed(s, phase, track, err, progress)
	}
	p.sendProgress(progress, downloadingUpdate(s.n, s.total, current))

	convCtx := services.WithProgress(ctx, func(fraction float64) {
		p.sendProgress(progress, downloadProgressUpdate(s.n, s.total, track.ID, fraction))
	})

	out, err := p.converter.Convert(convCtx, videoURL, current.Metadata(), dir)
	if err != nil {
		return p.fail(writeCtx, s, phase, current, p.failureMessage(ctx, err), progress)
	}

	done, err := p.set(writeCtx, track.ID, func(t *models.Track) {
		t.SetStatus(models.StatusDownloaded)
		t.OutputPath = out.Path
		t.OutputFilename = out.Filename
	})
	if err != nil {
		return p.writeFailed(s, phase, track, err, progress)
	}

	p.logger.Info("track downloaded", "id", track.ID, "path", out.Path, "bytes", out.Size)
	p.notify(progress, successNotice(s.n, s.total, done))

	res.Status = done.Status
	res.OutputPath = done.OutputPath
	return res
}

// search returns the URL of the top result for the track's query.
func (p *Pipeline) search(ctx context.Context, track models.Track) (string, error) {
	query := track.Query()
	if query == "" {
		return "", shared.ErrVideoNotFound
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	videos, err := p.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(videos) == 0 || videos[0].URL == "" {
		return "", shared.ErrVideoNotFound
	}
	return videos[0].URL, nil
}

// failureMessage is the text stored on a failed track.
func (p *Pipeline) failureMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, shared.ErrCancelled) {
		return cancelledMessage
	}
	return err.Error()
}

// fail marks the track as failed and sends its failure notice.
func (p *Pipeline) fail(ctx context.Context, s step, phase Phase, track models.Track, msg string, progress chan<- ProgressUpdate) models.TrackResult {
	failed, err := p.set(ctx, track.ID, func(t *models.Track) {
		t.Fail(msg)
	})
	if err != nil {
		p.logger.Warn("failed to record track failure", "id", track.ID, "error", err)
		failed = track
		failed.Fail(msg)
	}

	p.logger.Warn("track failed", "id", track.ID, "error", msg)
	p.notify(progress, failureNotice(phase, s.n, s.total, failed))

	return models.TrackResult{
		TrackID:      track.ID,
		Title:        track.Title,
		Artist:       track.Artist,
		Status:       models.StatusError,
		ErrorMessage: msg,
	}
}

// writeFailed ends a track whose status could not be stored, usually because it was
// removed from the queue mid-run. The failure is reported like any other.
func (p *Pipeline) writeFailed(s step, phase Phase, track models.Track, err error, progress chan<- ProgressUpdate) models.TrackResult {
	p.logger.Warn("failed to update track", "id", track.ID, "error", err)

	failed := track
	failed.Fail(err.Error())
	p.notify(progress, failureNotice(phase, s.n, s.total, failed))

	return models.TrackResult{
		TrackID:      track.ID,
		Title:        track.Title,
		Artist:       track.Artist,
		Status:       models.StatusError,
		ErrorMessage: failed.ErrorMessage,
	}
}

func (p *Pipeline) set(ctx context.Context, id string, fn func(*models.Track)) (models.Track, error) {
	return p.queue.Update(ctx, id, fn)
}

func (p *Pipeline) record(ctx context.Context, run *models.ExportRun) {
	for _, r := range p.recorders {
		if err := r.Record(ctx, run); err != nil {
			p.logger.Warn("failed to record export run", "run", run.ID, "error", err)
		}
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// notify delivers a notice, waiting up to noticeTimeout for the receiver.
func (p *Pipeline) notify(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	timer := time.NewTimer(noticeTimeout)
	defer timer.Stop()

	select {
	case progress <- update:
	case <-timer.C:
		p.logger.Warn("dropped notice", "notice", update.Notice, "track", update.TrackID)
	}
}

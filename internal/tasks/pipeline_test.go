package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/services"
	"github.com/desertthunder/pulse/internal/shared"
	tu "github.com/desertthunder/pulse/internal/testing"
)

type fixture struct {
	pipeline  *Pipeline
	store     *queue.Store
	state     *tu.MemoryStore
	searcher  *tu.MockSearcher
	converter *tu.MockConverter
	dir       string
}

// newFixture queues tracks and gives every one of them a search hit at videoURL(id).
func newFixture(t *testing.T, tracks ...models.Track) *fixture {
	t.Helper()
	ctx := context.Background()

	state := tu.NewMemoryStore()
	store := queue.NewStore(state, nil)
	if len(tracks) > 0 {
		if _, _, err := store.AddAll(ctx, tracks); err != nil {
			t.Fatalf("failed to queue tracks: %v", err)
		}
	}

	dir := t.TempDir()
	if _, err := store.SetExportDir(ctx, dir); err != nil {
		t.Fatalf("failed to set export dir: %v", err)
	}

	searcher := &tu.MockSearcher{Results: map[string][]models.Video{}, Errs: map[string]error{}}
	for _, tr := range tracks {
		searcher.Results[tr.Query()] = []models.Video{{ID: tr.ID, URL: videoURL(tr.ID)}}
	}
	converter := &tu.MockConverter{Errs: map[string]error{}}

	return &fixture{
		pipeline:  NewPipeline(store, searcher, converter, Options{}),
		store:     store,
		state:     state,
		searcher:  searcher,
		converter: converter,
		dir:       dir,
	}
}

func videoURL(id string) string {
	return services.VideoURL("vid-" + id)
}

// collect runs the pipeline and returns every update it sent.
func (f *fixture) collect(t *testing.T, ctx context.Context) (*models.ExportRun, []ProgressUpdate, error) {
	t.Helper()

	progress := make(chan ProgressUpdate, 256)
	run, err := f.pipeline.Run(ctx, progress)
	close(progress)

	var updates []ProgressUpdate
	for u := range progress {
		updates = append(updates, u)
	}
	return run, updates, err
}

func notices(updates []ProgressUpdate, kind Notice) []ProgressUpdate {
	var out []ProgressUpdate
	for _, u := range updates {
		if u.Notice == kind {
			out = append(out, u)
		}
	}
	return out
}

func mustGet(t *testing.T, s *queue.Store, id string) models.Track {
	t.Helper()
	tr, ok := s.Get(id)
	if !ok {
		t.Fatalf("track %s not in queue", id)
	}
	return tr
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads every track in order", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"), tu.Track("b"), tu.Track("c"))

		run, updates, err := f.collect(t, ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Downloaded != 3 || run.Failed != 0 || run.Skipped != 0 || run.Cancelled {
			t.Errorf("unexpected run summary %+v", run)
		}

		want := []string{videoURL("a"), videoURL("b"), videoURL("c")}
		if strings.Join(f.converter.Calls, ",") != strings.Join(want, ",") {
			t.Errorf("conversions out of order: %v", f.converter.Calls)
		}

		for _, id := range []string{"a", "b", "c"} {
			tr := mustGet(t, f.store, id)
			if tr.Status != models.StatusDownloaded {
				t.Errorf("track %s status %s", id, tr.Status)
			}
			if tr.VideoURL != videoURL(id) {
				t.Errorf("track %s video url %s", id, tr.VideoURL)
			}
			if filepath.Dir(tr.OutputPath) != f.dir || tr.OutputFilename != "Artist "+id+" - Title "+id+".mp3" {
				t.Errorf("track %s output %s %s", id, tr.OutputPath, tr.OutputFilename)
			}
		}

		if n := len(notices(updates, NoticeSuccess)); n != 3 {
			t.Errorf("expected 3 success notices, got %d", n)
		}
		complete := notices(updates, NoticeComplete)
		if len(complete) != 1 {
			t.Fatalf("expected exactly one completion notice, got %d", len(complete))
		}
		if updates[len(updates)-1].Notice != NoticeComplete {
			t.Error("completion notice should be the last update")
		}
	})

	t.Run("re-export is idempotent", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"), tu.Track("b"))

		if _, _, err := f.collect(t, ctx); err != nil {
			t.Fatal(err)
		}
		before := f.store.Tracks()

		run, updates, err := f.collect(t, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.converter.CallCount() != 2 || f.searcher.Calls() != 2 {
			t.Errorf("second run should not convert or search: %d conversions, %d searches",
				f.converter.CallCount(), f.searcher.Calls())
		}
		if run.Skipped != 2 || run.Downloaded != 0 {
			t.Errorf("unexpected second run %+v", run)
		}
		after := f.store.Tracks()
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("track %s changed: %+v -> %+v", before[i].ID, before[i], after[i])
			}
		}
		if n := len(notices(updates, NoticeSuccess)) + len(notices(updates, NoticeFailure)); n != 0 {
			t.Errorf("expected no per-track notices, got %d", n)
		}
	})

	t.Run("failures are isolated", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"), tu.Track("b"), tu.Track("c"))
		f.converter.Errs[videoURL("b")] = errors.New("conversion process failed: yt-dlp exited with code 1")

		run, updates, err := f.collect(t, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if run.Downloaded != 2 || run.Failed != 1 {
			t.Errorf("unexpected summary %+v", run)
		}

		b := mustGet(t, f.store, "b")
		if b.Status != models.StatusError || !strings.Contains(b.ErrorMessage, "code 1") {
			t.Errorf("unexpected failed track %+v", b)
		}
		if c := mustGet(t, f.store, "c"); c.Status != models.StatusDownloaded {
			t.Errorf("track after a failure should still download, got %s", c.Status)
		}

		failures := notices(updates, NoticeFailure)
		if len(failures) != 1 || failures[0].TrackID != "b" {
			t.Errorf("expected one failure notice for b, got %+v", failures)
		}
		if len(notices(updates, NoticeComplete)) != 1 {
			t.Error("expected one completion notice")
		}
	})

	t.Run("track removed mid-run is reported as a failure", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"), tu.Track("b"), tu.Track("c"))
		f.converter.Hook = func(_ context.Context, url string) {
			if url == videoURL("b") {
				if err := f.store.Remove(ctx, "b"); err != nil {
					t.Errorf("failed to remove b: %v", err)
				}
			}
		}

		run, updates, err := f.collect(t, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if run.Downloaded != 2 || run.Failed != 1 {
			t.Errorf("unexpected summary %+v", run)
		}
		if f.store.Contains("b") {
			t.Error("removed track should stay out of the queue")
		}

		failures := notices(updates, NoticeFailure)
		if len(failures) != 1 || failures[0].TrackID != "b" {
			t.Fatalf("expected one failure notice for b, got %+v", failures)
		}
		if !strings.Contains(failures[0].Message, shared.ErrTrackNotFound.Error()) {
			t.Errorf("unexpected failure message %q", failures[0].Message)
		}
	})

	t.Run("search errors and misses", func(t *testing.T) {
		a, b := tu.Track("a"), tu.Track("b")
		f := newFixture(t, a, b, tu.Track("c"))
		delete(f.searcher.Results, a.Query())
		f.searcher.Errs[b.Query()] = fmt.Errorf("%w: proxy returned 500", shared.ErrAPIRequest)

		run, _, err := f.collect(t, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if run.Failed != 2 || run.Downloaded != 1 {
			t.Errorf("unexpected summary %+v", run)
		}
		if got := mustGet(t, f.store, "a"); got.ErrorMessage != "video not found" {
			t.Errorf("expected video not found, got %q", got.ErrorMessage)
		}
		if got := mustGet(t, f.store, "b"); !strings.Contains(got.ErrorMessage, "proxy returned 500") {
			t.Errorf("expected adapter message, got %q", got.ErrorMessage)
		}
		if f.converter.CallCount() != 1 {
			t.Errorf("only c should be converted, got %v", f.converter.Calls)
		}
	})

	t.Run("failed track is retried", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"))
		f.converter.Errs[videoURL("a")] = errors.New("network down")

		if _, _, err := f.collect(t, ctx); err != nil {
			t.Fatal(err)
		}
		delete(f.converter.Errs, videoURL("a"))

		if _, _, err := f.collect(t, ctx); err != nil {
			t.Fatal(err)
		}
		a := mustGet(t, f.store, "a")
		if a.Status != models.StatusDownloaded || a.ErrorMessage != "" {
			t.Errorf("retry should succeed, got %+v", a)
		}
		if f.searcher.Calls() != 1 {
			t.Errorf("retry should reuse the cached video url, got %d searches", f.searcher.Calls())
		}
	})

	t.Run("cached video url skips search", func(t *testing.T) {
		tr := tu.Track("a")
		tr.VideoURL = "https://youtube.com/watch?v=cached"
		f := newFixture(t, tr)

		if _, _, err := f.collect(t, ctx); err != nil {
			t.Fatal(err)
		}
		if f.searcher.Calls() != 0 {
			t.Errorf("expected no searches, got %v", f.searcher.Queries)
		}
		if f.converter.Calls[0] != tr.VideoURL {
			t.Errorf("expected conversion of cached url, got %v", f.converter.Calls)
		}
	})

	t.Run("panics become track errors", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"), tu.Track("b"))
		f.converter.Hook = func(ctx context.Context, url string) {
			if url == videoURL("a") {
				panic("boom")
			}
		}

		run, _, err := f.collect(t, ctx)
		if err != nil {
			t.Fatal(err)
		}
		a := mustGet(t, f.store, "a")
		if a.Status != models.StatusError || !strings.Contains(a.ErrorMessage, "boom") {
			t.Errorf("unexpected panicking track %+v", a)
		}
		if run.Downloaded != 1 || run.Failed != 1 {
			t.Errorf("unexpected summary %+v", run)
		}
	})

	t.Run("statuses are persisted", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"))
		if _, _, err := f.collect(t, ctx); err != nil {
			t.Fatal(err)
		}

		restored := queue.NewStore(f.state, nil)
		if err := restored.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if got := mustGet(t, restored, "a"); got.Status != models.StatusDownloaded {
			t.Errorf("expected persisted downloaded status, got %s", got.Status)
		}
	})
}

func TestPipelinePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue", func(t *testing.T) {
		f := newFixture(t)

		run, updates, err := f.collect(t, ctx)
		if !errors.Is(err, shared.ErrEmptyQueue) || run != nil {
			t.Fatalf("expected ErrEmptyQueue, got %v", err)
		}
		if len(updates) != 1 || updates[0].Notice != NoticePrecondition {
			t.Errorf("expected a single precondition notice, got %+v", updates)
		}
	})

	t.Run("no export dir", func(t *testing.T) {
		store := queue.NewStore(tu.NewMemoryStore(), nil)
		if err := store.Add(ctx, tu.Track("a")); err != nil {
			t.Fatal(err)
		}
		converter := &tu.MockConverter{}
		p := NewPipeline(store, &tu.MockSearcher{}, converter, Options{})

		progress := make(chan ProgressUpdate, 4)
		if _, err := p.Run(ctx, progress); !errors.Is(err, shared.ErrNoExportDir) {
			t.Fatalf("expected ErrNoExportDir, got %v", err)
		}
		if u := <-progress; u.Notice != NoticePrecondition {
			t.Errorf("expected precondition notice, got %+v", u)
		}
		if got := mustGet(t, store, "a"); got.Status != models.StatusIdle {
			t.Errorf("queue should be untouched, got %s", got.Status)
		}
		if converter.CallCount() != 0 {
			t.Error("nothing should be converted")
		}
	})

	t.Run("single flight", func(t *testing.T) {
		f := newFixture(t, tu.Track("a"))
		started := make(chan struct{})
		release := make(chan struct{})
		f.converter.Hook = func(ctx context.Context, url string) {
			close(started)
			<-release
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.pipeline.Run(ctx, nil)
		}()

		<-started
		if !f.pipeline.IsExporting() {
			t.Error("expected IsExporting during a run")
		}
		if _, err := f.pipeline.Run(ctx, nil); !errors.Is(err, shared.ErrExportInProgress) {
			t.Errorf("expected ErrExportInProgress, got %v", err)
		}

		close(release)
		wg.Wait()
		if f.pipeline.IsExporting() {
			t.Error("expected IsExporting to reset")
		}
		if f.pipeline.LastRun() == nil {
			t.Error("expected the finished run to be kept")
		}
	})
}

func TestPipelineCancel(t *testing.T) {
	f := newFixture(t, tu.Track("a"), tu.Track("b"), tu.Track("c"))
	started := make(chan struct{})
	f.converter.Hook = func(ctx context.Context, url string) {
		if url == videoURL("b") {
			close(started)
			<-ctx.Done()
		}
	}

	type outcome struct {
		run     *models.ExportRun
		updates []ProgressUpdate
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		run, updates, err := f.collect(t, context.Background())
		done <- outcome{run, updates, err}
	}()

	<-started
	if !f.pipeline.Cancel() {
		t.Fatal("expected an active run to cancel")
	}

	var out outcome
	select {
	case out = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if !out.run.Cancelled {
		t.Error("run should be marked cancelled")
	}
	if a := mustGet(t, f.store, "a"); a.Status != models.StatusDownloaded {
		t.Errorf("a should stay downloaded, got %s", a.Status)
	}
	if b := mustGet(t, f.store, "b"); b.Status != models.StatusError || b.ErrorMessage != "cancelled" {
		t.Errorf("b should be cancelled, got %+v", b)
	}
	if c := mustGet(t, f.store, "c"); c.Status != models.StatusIdle {
		t.Errorf("c should be untouched, got %s", c.Status)
	}
	if len(notices(out.updates, NoticeComplete)) != 1 {
		t.Error("completion notice should still fire")
	}
	if f.pipeline.Cancel() {
		t.Error("no run should be active")
	}
}

// A conversion process exiting with code 1 fails only its own track.
func TestPipelineProcessFailureScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, tu.Track("one"), tu.Track("two"))
	f.converter.Errs[videoURL("one")] = fmt.Errorf("%w: yt-dlp exited with code 1: ERROR: Video unavailable", shared.ErrProcess)

	progress := make(chan ProgressUpdate, 64)
	run, err := f.pipeline.Run(ctx, progress)
	if err != nil {
		t.Fatal(err)
	}
	close(progress)

	var order []Notice
	for u := range progress {
		if u.IsNotice() {
			order = append(order, u.Notice)
		}
	}
	want := []Notice{NoticeFailure, NoticeSuccess, NoticeComplete}
	if len(order) != len(want) {
		t.Fatalf("expected notices %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("notice %d: got %s, want %s", i, order[i], want[i])
		}
	}

	one := mustGet(t, f.store, "one")
	if one.Status != models.StatusError || !strings.Contains(one.ErrorMessage, "exited with code 1") {
		t.Errorf("unexpected track one %+v", one)
	}
	if one.VideoURL != videoURL("one") {
		t.Error("video url should be cached for the retry")
	}
	if run.Results[0].Status != models.StatusError || run.Results[1].Status != models.StatusDownloaded {
		t.Errorf("unexpected results %+v", run.Results)
	}
}

type recorderFunc func(ctx context.Context, run *models.ExportRun) error

func (f recorderFunc) Record(ctx context.Context, run *models.ExportRun) error {
	return f(ctx, run)
}

func TestPipelineRecorders(t *testing.T) {
	var got []*models.ExportRun
	f := newFixture(t, tu.Track("a"))
	f.pipeline = NewPipeline(f.store, f.searcher, f.converter, Options{
		SearchRate: 100,
		Recorders: []Recorder{
			recorderFunc(func(ctx context.Context, run *models.ExportRun) error {
				return errors.New("disk full")
			}),
			recorderFunc(func(ctx context.Context, run *models.ExportRun) error {
				got = append(got, run)
				return nil
			}),
		},
	})

	run, err := f.pipeline.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != run {
		t.Fatalf("expected the run to reach every recorder, got %d", len(got))
	}
	if run.ID == "" || run.ExportDir != f.dir || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("unexpected run %+v", run)
	}
}

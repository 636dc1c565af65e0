package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nara.lk/portal/internal/globaltime"
	"nara.lk/portal/internal/translation"
)

type stubTranslator struct {
	block   chan struct{}
	started chan struct{}
	err     error
}

func (s *stubTranslator) Translate(ctx context.Context, req translation.Request, onProgress translation.ProgressFunc) (*translation.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if onProgress != nil {
		onProgress(translation.Progress{Completed: 1, Total: 2, Percentage: 50})
	}
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return &translation.Result{Text: req.Text, TargetLang: req.TargetLang, Incomplete: true}, nil
		}
	}
	if onProgress != nil {
		onProgress(translation.Progress{Completed: 2, Total: 2, Percentage: 100})
	}
	return &translation.Result{Text: "translated", SourceLang: "en", TargetLang: req.TargetLang, Succeeded: true}, nil
}

func newTestTracker(t *testing.T, translator Translator, retention time.Duration) *Tracker {
	t.Helper()
	tracker, err := NewTracker(translator, retention, zerolog.Nop())
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(tracker.Close)
	return tracker
}

func TestTrackerRunsJobToCompletion(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &stubTranslator{}, time.Hour)
	job, err := tracker.Submit(translation.Request{Text: "Book chapter", TargetLang: "si", Kind: translation.KindDocument})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.ID == "" || job.Status != StatusRunning {
		t.Fatalf("unexpected submitted job %#v", job)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	finished, err := tracker.Wait(ctx, job.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if finished.Status != StatusCompleted || finished.Result == nil || finished.Result.Text != "translated" {
		t.Fatalf("unexpected finished job %#v", finished)
	}
	if finished.Progress.Percentage != 100 || finished.FinishedAt == nil {
		t.Fatalf("expected final progress, got %#v", finished.Progress)
	}
}

func TestTrackerRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &stubTranslator{}, time.Hour)
	if _, err := tracker.Submit(translation.Request{Text: "", TargetLang: "si"}); !errors.Is(err, translation.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if len(tracker.List()) != 0 {
		t.Fatalf("expected no job to be created")
	}
}

func TestTrackerCancelMarksJobCanceled(t *testing.T) {
	t.Parallel()

	stub := &stubTranslator{block: make(chan struct{}), started: make(chan struct{})}
	tracker := newTestTracker(t, stub, time.Hour)

	job, err := tracker.Submit(translation.Request{Text: "Long book", TargetLang: "ta", Kind: translation.KindDocument})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-stub.started

	running, err := tracker.Get(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if running.Progress.Completed != 1 {
		t.Fatalf("expected in-flight progress, got %#v", running.Progress)
	}

	if _, err := tracker.Cancel(job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	finished, err := tracker.Wait(ctx, job.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if finished.Status != StatusCanceled || finished.Result == nil || !finished.Result.Incomplete {
		t.Fatalf("expected canceled job with partial result, got %#v", finished)
	}
}

func TestTrackerRecordsFailures(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &stubTranslator{err: errors.New("translator broke")}, time.Hour)
	job, err := tracker.Submit(translation.Request{Text: "Abstract", TargetLang: "si"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	finished, err := tracker.Wait(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if finished.Status != StatusFailed || finished.Error != "translator broke" {
		t.Fatalf("expected failed job, got %#v", finished)
	}
}

func TestTrackerUnknownJob(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &stubTranslator{}, time.Hour)
	if _, err := tracker.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := tracker.Cancel("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrackerPrunesFinishedJobsAfterRetention(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)
	defer globaltime.ResetTime()

	tracker := newTestTracker(t, &stubTranslator{}, time.Minute)
	job, err := tracker.Submit(translation.Request{Text: "News item", TargetLang: "si"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := tracker.Wait(context.Background(), job.ID); err != nil {
		t.Fatalf("wait: %v", err)
	}

	globaltime.SetMockTime(start.Add(30 * time.Second))
	if _, err := tracker.Get(job.ID); err != nil {
		t.Fatalf("expected job inside retention window, got %v", err)
	}

	globaltime.SetMockTime(start.Add(2 * time.Minute))
	if _, err := tracker.Get(job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected job to be pruned, got %v", err)
	}
}

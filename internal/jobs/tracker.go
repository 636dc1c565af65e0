package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nara.lk/portal/internal/globaltime"
	"nara.lk/portal/internal/translation"
)

const DefaultRetention = 30 * time.Minute

var ErrNotFound = errors.New("translation job not found")

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

func (s Status) Finished() bool {
	return s != StatusRunning
}

// Translator runs one translation job.
type Translator interface {
	Translate(ctx context.Context, req translation.Request, onProgress translation.ProgressFunc) (*translation.Result, error)
}

// Job is a snapshot of an asynchronous translation.
type Job struct {
	ID         string               `json:"id"`
	Status     Status               `json:"status"`
	Kind       string               `json:"kind"`
	SourceLang string               `json:"source_lang"`
	TargetLang string               `json:"target_lang"`
	Characters int                  `json:"characters"`
	Progress   translation.Progress `json:"progress"`
	Result     *translation.Result  `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

type entry struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Tracker runs translation jobs in the background and keeps their snapshots until
// the retention period after they finish.
type Tracker struct {
	translator Translator
	retention  time.Duration
	logger     zerolog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*entry
}

func NewTracker(translator Translator, retention time.Duration, logger zerolog.Logger) (*Tracker, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		translator: translator,
		retention:  retention,
		logger:     logger,
		baseCtx:    ctx,
		cancelBase: cancel,
		jobs:       make(map[string]*entry),
	}, nil
}

// Submit validates req and starts the job. Invalid input returns an error and creates no job.
func (t *Tracker) Submit(req translation.Request) (Job, error) {
	if err := translation.ValidateRequest(req); err != nil {
		return Job{}, err
	}

	now := globaltime.UTC()
	ctx, cancel := context.WithCancel(t.baseCtx)
	e := &entry{
		job: Job{
			ID:         uuid.NewString(),
			Status:     StatusRunning,
			Kind:       req.Kind.String(),
			SourceLang: req.SourceLang,
			TargetLang: req.TargetLang,
			Characters: len([]rune(req.Text)),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	t.mu.Lock()
	t.pruneLocked(now)
	t.jobs[e.job.ID] = e
	snapshot := e.job
	t.mu.Unlock()

	t.logger.Info().
		Str("job_id", snapshot.ID).
		Str("kind", snapshot.Kind).
		Str("target_lang", snapshot.TargetLang).
		Int("characters", snapshot.Characters).
		Msg("translation job submitted")

	t.wg.Add(1)
	go t.run(ctx, e, req)
	return snapshot, nil
}

func (t *Tracker) run(ctx context.Context, e *entry, req translation.Request) {
	defer t.wg.Done()
	defer close(e.done)
	defer e.cancel()

	result, err := t.translator.Translate(ctx, req, func(p translation.Progress) {
		t.mu.Lock()
		e.job.Progress = p
		e.job.UpdatedAt = globaltime.UTC()
		t.mu.Unlock()
	})

	canceled := ctx.Err() != nil
	finished := globaltime.UTC()

	t.mu.Lock()
	e.job.UpdatedAt = finished
	e.job.FinishedAt = &finished
	switch {
	case err != nil:
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
	case canceled && result != nil && result.Incomplete:
		e.job.Status = StatusCanceled
		e.job.Result = result
	default:
		e.job.Status = StatusCompleted
		e.job.Result = result
	}
	if result != nil {
		e.job.SourceLang = result.SourceLang
	}
	snapshot := e.job
	t.mu.Unlock()

	event := t.logger.Info()
	if err != nil {
		event = t.logger.Warn().Err(err)
	}
	event.
		Str("job_id", snapshot.ID).
		Str("status", string(snapshot.Status)).
		Int("completed", snapshot.Progress.Completed).
		Int("total", snapshot.Progress.Total).
		Msg("translation job finished")
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(globaltime.UTC())
	e, ok := t.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return e.job, nil
}

// Cancel requests cancellation. In-flight provider calls may still complete.
func (t *Tracker) Cancel(id string) (Job, error) {
	t.mu.Lock()
	e, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return Job{}, ErrNotFound
	}
	snapshot := e.job
	t.mu.Unlock()

	if !snapshot.Status.Finished() {
		e.cancel()
		t.logger.Info().Str("job_id", id).Msg("translation job cancel requested")
	}
	return snapshot, nil
}

// Wait blocks until the job finishes or ctx ends.
func (t *Tracker) Wait(ctx context.Context, id string) (Job, error) {
	t.mu.Lock()
	e, ok := t.jobs[id]
	t.mu.Unlock()
	if !ok {
		return Job{}, ErrNotFound
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return e.job, nil
}

// List returns snapshots ordered by creation time, newest first.
func (t *Tracker) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(globaltime.UTC())
	out := make([]Job, 0, len(t.jobs))
	for _, e := range t.jobs {
		out = append(out, e.job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close cancels every running job and waits for them to return.
func (t *Tracker) Close() {
	t.cancelBase()
	t.wg.Wait()
}

func (t *Tracker) pruneLocked(now time.Time) {
	for id, e := range t.jobs {
		if e.job.FinishedAt == nil {
			continue
		}
		if now.Sub(*e.job.FinishedAt) > t.retention {
			delete(t.jobs, id)
		}
	}
}

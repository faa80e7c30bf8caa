// Package runner serializes pipeline runs so that at most one is in flight
// and the most recently started run wins.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/TobiSchelling/sentiscope/internal/database"
	"github.com/TobiSchelling/sentiscope/internal/pipeline"
)

// ErrSuperseded is returned by a run that was cancelled because a newer
// run started.
var ErrSuperseded = errors.New("run superseded by a newer request")

// Pipeline is the work the runner serializes.
type Pipeline interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Load() (*database.Checkpoint, error)
}

// Runner runs one pipeline at a time. Starting a run cancels the one in
// flight; concurrent loads share a single read.
type Runner struct {
	p     Pipeline
	sem   *semaphore.Weighted
	loads singleflight.Group

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// New creates a Runner around p.
func New(p Pipeline) *Runner {
	return &Runner{p: p, sem: semaphore.NewWeighted(1)}
}

// Run cancels any in-flight run, waits for it to finish and then runs in.
// A run cancelled by a newer one returns ErrSuperseded and leaves the
// checkpoint untouched.
func (r *Runner) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel(ErrSuperseded)
	}
	r.seq++
	id := r.seq
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.seq == id {
			r.cancel = nil
		}
		r.mu.Unlock()
	}()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, r.cause(ctx, err)
	}
	defer r.sem.Release(1)

	res, err := r.p.Run(ctx, in)
	if err != nil {
		err = r.cause(ctx, err)
		if errors.Is(err, ErrSuperseded) {
			slog.Info("[Runner] Run superseded", slog.Uint64("seq", id))
		}
		return res, err
	}
	return res, nil
}

// Load returns the saved checkpoint. Concurrent callers share one read.
func (r *Runner) Load() (*database.Checkpoint, error) {
	v, err, _ := r.loads.Do("checkpoint", func() (any, error) {
		return r.p.Load()
	})
	if err != nil {
		return nil, err
	}
	return v.(*database.Checkpoint), nil
}

// cause maps a cancellation caused by a newer run onto ErrSuperseded.
func (r *Runner) cause(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(context.Cause(ctx), ErrSuperseded) {
		return ErrSuperseded
	}
	return err
}

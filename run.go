package sepadoc

import (
	"context"
	"sync"
)

// Progress is published after every record a stage finishes. Completed never decreases within a run.
type Progress struct {
	Stage     Stage
	Completed int
	Total     int
	RecordID  int64
}

// Result is the final outcome of a Run.
type Result struct {
	RunID     string
	Stage     Stage
	Outcome   Outcome
	Completed int
	Failed    int
	Total     int
	// Err is set when Outcome is OutcomeFailed.
	Err error

	// VoucherPath and ArchivePath are set by Send when the voucher and the archive were produced.
	VoucherPath string
	ArchivePath string
}

// Run is the handle on one background stage. Progress values arrive in order and the progress channel is closed
// before Done is closed.
type Run struct {
	ID    string
	Stage Stage

	progress chan Progress
	done     chan struct{}
	cancel   context.CancelFunc

	mu        sync.Mutex
	result    Result
	completed int
	total     int
}

func newRun(id string, stage Stage, total int, cancel context.CancelFunc) *Run {
	return &Run{
		ID:    id,
		Stage: stage,
		// One slot per record plus one so the worker never blocks on a slow observer.
		progress: make(chan Progress, total+1),
		done:     make(chan struct{}),
		cancel:   cancel,
		total:    total,
	}
}

// Progress returns the stream of progress updates. It is closed when the stage stops.
func (r *Run) Progress() <-chan Progress {
	return r.progress
}

// Done is closed once the result is available.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel asks the stage to stop before its next record. A record already being processed is finished.
func (r *Run) Cancel() {
	r.cancel()
}

// Result returns the final result and false while the run is still active.
func (r *Run) Result() (Result, bool) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the run is done or ctx is cancelled. Cancelling ctx does not cancel the run.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-r.done:
		res, _ := r.Result()
		return res, nil
	}
}

// Snapshot returns the counts published so far.
func (r *Run) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Progress{
		Stage:     r.Stage,
		Completed: r.completed,
		Total:     r.total,
	}
}

func (r *Run) publish(p Progress) {
	r.mu.Lock()
	r.completed = p.Completed
	if p.Total > r.total {
		r.total = p.Total
	}
	p.Total = r.total
	r.mu.Unlock()

	select {
	case r.progress <- p:
	default:
		// The buffer holds one update per record, a full buffer means the observer already lags behind and only
		// needs the latest Snapshot.
	}
}

func (r *Run) finish(res Result) {
	close(r.progress)

	r.mu.Lock()
	r.result = res
	r.mu.Unlock()

	r.cancel()
	close(r.done)
}

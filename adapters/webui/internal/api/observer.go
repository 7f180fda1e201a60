package api

import (
	"sync"

	"github.com/luno/sepadoc"
)

// Observer keeps the latest progress of the last stage started through the API. One goroutine per run drains
// its progress.
type Observer struct {
	mu       sync.Mutex
	run      *sepadoc.Run
	progress sepadoc.Progress
	result   *sepadoc.Result
}

func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) Observe(run *sepadoc.Run) {
	o.mu.Lock()
	o.run = run
	o.progress = run.Snapshot()
	o.result = nil
	o.mu.Unlock()

	go func() {
		for p := range run.Progress() {
			o.update(run, func() { o.progress = p })
		}

		<-run.Done()
		res, _ := run.Result()
		o.update(run, func() { o.result = &res })
	}()
}

// update applies fn unless a newer run has replaced run.
func (o *Observer) update(run *sepadoc.Run, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run != run {
		return
	}

	fn()
}

func (o *Observer) Latest() (*sepadoc.Run, sepadoc.Progress, *sepadoc.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.run, o.progress, o.result
}

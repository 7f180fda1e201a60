package sepadoc

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/sepadoc/internal/logger"
)

// RecordSource yields the working set for a payment period. Implementations must report a missing bound with
// ErrDatesNotSpecified, ErrStartDateNotSpecified or ErrEndDateNotSpecified (see DateRange.Validate).
type RecordSource interface {
	Fetch(ctx context.Context, dr DateRange) ([]*Record, error)
}

// Generator produces the document of one record and returns its path.
type Generator interface {
	Generate(ctx context.Context, r *Record) (string, error)
}

// GeneratorFactory builds the Generator of one Generate stage. Configuration problems are returned here, before
// any document is written.
type GeneratorFactory func(ctx context.Context) (Generator, error)

// Deliverer transmits generated documents and prints the voucher of a Send stage.
type Deliverer interface {
	Mode() DeliveryMode
	// Send delivers the document of one record. Any error ends the Send stage.
	Send(ctx context.Context, documentPath string, r *Record) error
	// CreateDeliveryLog prints the voucher listing sent and returns its path.
	CreateDeliveryLog(ctx context.Context, sent []*Record) (string, error)
}

// DelivererFactory builds the Deliverer of one Send stage.
type DelivererFactory func(ctx context.Context) (Deliverer, error)

// Archiver bundles documents and a voucher into one package and returns its path.
type Archiver interface {
	Archive(ctx context.Context, documents []string, voucher string) (string, error)
}

// Notifier publishes pipeline events to an external channel.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Pipeline sequences the Fetch, Generate and Send stages over one working set. Only one stage runs at a time and
// each stage runs in the background, reporting through the Run it returns.
type Pipeline struct {
	source     RecordSource
	generators GeneratorFactory
	deliverers DelivererFactory
	archiver   Archiver
	notifier   Notifier
	hooks      []StateChangeHookFunc
	log        ComponentLogger
	clock      clock.Clock

	mu         sync.Mutex
	state      StageState
	records    []*Record
	pagination Pagination
	active     *Run
}

func New(source RecordSource, generators GeneratorFactory, deliverers DelivererFactory, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.New(os.Stdout, false)
	}

	p := &Pipeline{
		source:     source,
		generators: generators,
		deliverers: deliverers,
		archiver:   o.archiver,
		notifier:   o.notifier,
		hooks:      o.hooks,
		log:        NewComponentLogger(o.logger, "pipeline"),
		clock:      o.clock,
		state:      StageStateIdle,
		pagination: paginate(o.viewportHeight, 0),
	}

	recordStageState(p.state)
	return p
}

// State returns the current state of the pipeline.
func (p *Pipeline) State() StageState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Active returns the running stage, if any.
func (p *Pipeline) Active() (*Run, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.active, p.active != nil
}

// Cancel asks the running stage to stop before its next record. It returns false when no stage is running.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return false
	}

	p.active.Cancel()
	return true
}

type prepareFunc func() (int, error)

type workFunc func(ctx context.Context, run *Run) Result

// start runs prepare and moves the pipeline out of Idle under one lock, then runs work in the background. The run
// context is detached from ctx: only Cancel stops the stage.
func (p *Pipeline) start(ctx context.Context, stage Stage, prepare prepareFunc, work workFunc) (*Run, error) {
	p.mu.Lock()
	if p.state != StageStateIdle {
		state := p.state
		p.mu.Unlock()
		return nil, errors.Wrap(ErrStageInProgress, "", j.MKV{
			"stage": stage.String(),
			"state": state.String(),
		})
	}

	to := stage.activeState()
	err := validateStageTransition(p.state, to)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	total, err := prepare()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := newRun(uuid.NewString(), stage, total, cancel)
	p.state = to
	p.active = run
	p.mu.Unlock()

	recordStageState(to)
	p.runHooks(ctx, []StateChange{{RunID: run.ID, Stage: stage, From: StageStateIdle, To: to}})
	p.log.Debug(ctx, "stage started", MKV{
		"run_id": run.ID,
		"stage":  stage.String(),
		"total":  strconv.Itoa(total),
	})

	started := p.clock.Now()
	go func() {
		res := work(runCtx, run)
		res.RunID = run.ID
		res.Stage = stage
		if res.Total == 0 {
			res.Total = run.Snapshot().Total
		}

		p.finish(runCtx, run, res, started)
	}()

	return run, nil
}

// finish returns the pipeline to Idle through the final state of res, then releases the run. The pipeline stays in
// the stage's active state until hooks and notifiers have returned, and goes Idle only as Done is closed.
func (p *Pipeline) finish(ctx context.Context, run *Run, res Result, started time.Time) {
	ctx = context.WithoutCancel(ctx)
	final := res.Outcome.finalState()

	p.mu.Lock()
	from := p.state
	p.mu.Unlock()

	meta := MKV{
		"run_id":    run.ID,
		"stage":     res.Stage.String(),
		"outcome":   res.Outcome.String(),
		"completed": strconv.Itoa(res.Completed),
		"failed":    strconv.Itoa(res.Failed),
		"total":     strconv.Itoa(res.Total),
	}

	switch res.Outcome {
	case OutcomeFailed:
		meta["kind"] = KindOf(res.Err).String()
		meta["user_message"] = UserMessage(res.Err)
		p.log.Error(ctx, res.Err, meta)
	case OutcomeCancelled:
		p.log.Info(ctx, "stage cancelled", meta)
	case OutcomeNoRecords:
		p.log.Info(ctx, "no records found", meta)
	default:
		p.log.Info(ctx, "stage completed", meta)
	}

	recordStageResult(res, p.clock.Since(started))

	p.runHooks(ctx, []StateChange{
		{RunID: run.ID, Stage: res.Stage, From: from, To: final},
		{RunID: run.ID, Stage: res.Stage, From: final, To: StageStateIdle},
	})

	p.notify(ctx, Event{
		Type:        EventTypeStageFinished,
		RunID:       run.ID,
		Stage:       res.Stage,
		Outcome:     res.Outcome,
		Completed:   res.Completed,
		Failed:      res.Failed,
		Total:       res.Total,
		ArchivePath: res.ArchivePath,
	})

	p.mu.Lock()
	p.state = StageStateIdle
	p.active = nil
	run.finish(res)
	p.mu.Unlock()

	recordStageState(StageStateIdle)
}

// Fetch replaces the working set with the records of dr. An empty result ends with OutcomeNoRecords.
func (p *Pipeline) Fetch(ctx context.Context, dr DateRange) (*Run, error) {
	prepare := func() (int, error) {
		p.records = nil
		p.pagination = paginate(p.pagination.ViewportHeight, 0)
		return 0, nil
	}

	return p.start(ctx, StageFetch, prepare, func(ctx context.Context, run *Run) Result {
		records, err := p.source.Fetch(ctx, dr)
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeCancelled}
		} else if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err}
		}

		working := make([]*Record, 0, len(records))
		for _, r := range records {
			working = append(working, r.clone())
		}

		p.mu.Lock()
		p.records = working
		p.pagination = paginate(p.pagination.ViewportHeight, len(working))
		p.mu.Unlock()

		run.publish(Progress{Stage: StageFetch, Completed: len(working), Total: len(working)})

		if len(working) == 0 {
			return Result{Outcome: OutcomeNoRecords}
		}

		return Result{Outcome: OutcomeCompleted, Completed: len(working), Total: len(working)}
	})
}

// Generate produces the document of every selected record in working set order. Any generator error ends the
// stage. Cancellation is checked before each record.
func (p *Pipeline) Generate(ctx context.Context) (*Run, error) {
	var selected []*Record
	prepare := func() (int, error) {
		if len(p.records) == 0 {
			return 0, ErrNoRecords
		}

		for _, r := range p.records {
			if r.Selected {
				selected = append(selected, r)
			}
		}

		if len(selected) == 0 {
			return 0, ErrNothingSelected
		}

		// Paths always describe this run's documents.
		for _, r := range selected {
			r.DocumentPath = ""
		}

		return len(selected), nil
	}

	return p.start(ctx, StageGenerate, prepare, func(ctx context.Context, run *Run) Result {
		total := len(selected)

		gen, err := p.generators(ctx)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err, Total: total}
		}

		if c, ok := gen.(io.Closer); ok {
			defer c.Close()
		}

		var completed int
		for _, r := range selected {
			if ctx.Err() != nil {
				return Result{Outcome: OutcomeCancelled, Completed: completed, Total: total}
			}

			path, err := gen.Generate(ctx, r.clone())
			if err != nil {
				if ctx.Err() != nil && errors.Is(err, context.Canceled) {
					return Result{Outcome: OutcomeCancelled, Completed: completed, Total: total}
				}

				recordItemError(StageGenerate, err)
				return Result{
					Outcome:   OutcomeFailed,
					Err:       errors.Wrap(err, "", j.MKV{"record_id": r.ID}),
					Completed: completed,
					Failed:    1,
					Total:     total,
				}
			}

			p.setDocument(r, path)
			completed++
			run.publish(Progress{Stage: StageGenerate, Completed: completed, Total: total, RecordID: r.ID})
		}

		return Result{Outcome: OutcomeCompleted, Completed: completed, Total: total}
	})
}

// Send delivers the documents of the selected records that have one. The first delivery error ends the stage. A
// voucher is always printed for the records delivered before the stage stopped, even when there are none, and in
// archive mode those documents and the voucher are then archived.
func (p *Pipeline) Send(ctx context.Context) (*Run, error) {
	var subset []*Record
	prepare := func() (int, error) {
		if len(p.records) == 0 {
			return 0, ErrNoRecords
		}

		for _, r := range p.records {
			if r.Selected && r.HasDocument() {
				subset = append(subset, r)
			}
		}

		if len(subset) == 0 {
			return 0, ErrNothingToSend
		}

		return len(subset), nil
	}

	return p.start(ctx, StageSend, prepare, func(ctx context.Context, run *Run) Result {
		total := len(subset)

		d, err := p.deliverers(ctx)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Err: err, Total: total}
		}

		if d.Mode() == DeliveryModeArchive && p.archiver == nil {
			return Result{Outcome: OutcomeFailed, Err: ErrArchiverNotConfigured, Total: total}
		}

		var (
			processed []*Record
			failed    int
			cancelled bool
			fatal     error
		)

		for _, r := range subset {
			if ctx.Err() != nil {
				cancelled = true
				break
			}

			err := d.Send(ctx, r.DocumentPath, r.clone())
			if err != nil {
				if ctx.Err() != nil && errors.Is(err, context.Canceled) {
					cancelled = true
					break
				}

				failed++
				recordItemError(StageSend, err)
				fatal = errors.Wrap(err, "", j.MKV{"record_id": r.ID})
				break
			}

			processed = append(processed, r)
			p.notify(ctx, Event{
				Type:         EventTypeDocumentSent,
				RunID:        run.ID,
				Stage:        StageSend,
				RecordID:     r.ID,
				DocumentPath: r.DocumentPath,
				Completed:    len(processed),
				Total:        total,
			})
			run.publish(Progress{Stage: StageSend, Completed: len(processed), Total: total, RecordID: r.ID})
		}

		res := Result{Completed: len(processed), Failed: failed, Total: total}

		// The voucher and the archive cover what was delivered, which may be nothing when the stage was cancelled
		// or failed on its first record.
		res.VoucherPath, res.ArchivePath, err = p.closeDelivery(context.WithoutCancel(ctx), d, processed)
		if err != nil && fatal == nil {
			fatal = err
		}

		switch {
		case fatal != nil:
			res.Outcome = OutcomeFailed
			res.Err = fatal
		case cancelled:
			res.Outcome = OutcomeCancelled
		default:
			res.Outcome = OutcomeCompleted
		}

		return res
	})
}

func (p *Pipeline) closeDelivery(ctx context.Context, d Deliverer, processed []*Record) (string, string, error) {
	sent := make([]*Record, 0, len(processed))
	documents := make([]string, 0, len(processed))
	for _, r := range processed {
		sent = append(sent, r.clone())
		documents = append(documents, r.DocumentPath)
	}

	voucher, err := d.CreateDeliveryLog(ctx, sent)
	if err != nil {
		return "", "", err
	}

	if d.Mode() != DeliveryModeArchive {
		return voucher, "", nil
	}

	archive, err := p.archiver.Archive(ctx, documents, voucher)
	if err != nil {
		return voucher, "", err
	}

	return voucher, archive, nil
}

func (p *Pipeline) setDocument(r *Record, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r.DocumentPath = path
}

func (p *Pipeline) notify(ctx context.Context, e Event) {
	if p.notifier == nil {
		return
	}

	e.ID = uuid.NewString()
	e.CreatedAt = p.clock.Now()
	err := p.notifier.Notify(ctx, e)
	if err != nil {
		p.log.Error(ctx, err, MKV{
			"run_id": e.RunID,
			"event":  e.Type.String(),
		})
	}
}

// Records returns a copy of the working set.
func (p *Pipeline) Records() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	return copyRecords(p.records)
}

// Record returns a copy of the record with id.
func (p *Pipeline) Record(id int64) (Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.find(id)
	if err != nil {
		return Record{}, err
	}

	return *r, nil
}

// SetSelected changes the selection of one record. Selection cannot change while a stage is running.
func (p *Pipeline) SetSelected(id int64, selected bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Active() {
		return errors.Wrap(ErrStageInProgress, "", j.MKV{"state": p.state.String()})
	}

	r, err := p.find(id)
	if err != nil {
		return err
	}

	r.Selected = selected
	return nil
}

// SelectAll changes the selection of every record. Selection cannot change while a stage is running.
func (p *Pipeline) SelectAll(selected bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Active() {
		return errors.Wrap(ErrStageInProgress, "", j.MKV{"state": p.state.String()})
	}

	for _, r := range p.records {
		r.Selected = selected
	}

	return nil
}

func (p *Pipeline) find(id int64) (*Record, error) {
	for _, r := range p.records {
		if r.ID == id {
			return r, nil
		}
	}

	return nil, errors.Wrap(ErrRecordNotFound, "", j.MKV{"record_id": id})
}

// Resize recomputes the pagination for a new viewport height.
func (p *Pipeline) Resize(viewportHeight int) Pagination {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pagination = paginate(viewportHeight, len(p.records))
	return p.pagination
}

func (p *Pipeline) Pagination() Pagination {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pagination
}

// Page returns a copy of the records on page (zero based). Pages out of range are empty.
func (p *Pipeline) Page(page int) []Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	start, end := p.pagination.bounds(page)
	return copyRecords(p.records[start:end])
}

func copyRecords(records []*Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}

	return out
}

// RunAll fetches dr, selects every record, generates and sends. It stops at the first stage that does not
// complete and returns that stage's result. Cancelling ctx cancels the running stage.
func (p *Pipeline) RunAll(ctx context.Context, dr DateRange) (Result, error) {
	res, err := p.runAndWait(ctx, func() (*Run, error) { return p.Fetch(ctx, dr) })
	if err != nil || res.Outcome != OutcomeCompleted {
		return res, err
	}

	err = p.SelectAll(true)
	if err != nil {
		return res, err
	}

	res, err = p.runAndWait(ctx, func() (*Run, error) { return p.Generate(ctx) })
	if err != nil || res.Outcome != OutcomeCompleted {
		return res, err
	}

	return p.runAndWait(ctx, func() (*Run, error) { return p.Send(ctx) })
}

func (p *Pipeline) runAndWait(ctx context.Context, start func() (*Run, error)) (Result, error) {
	run, err := start()
	if err != nil {
		return Result{}, err
	}

	res, err := run.Wait(ctx)
	if err != nil {
		run.Cancel()
		res, _ = run.Wait(context.Background())
		return res, err
	}

	return res, nil
}

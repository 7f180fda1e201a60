package sepadoc_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luno/sepadoc"
)

func testRecords(n int) []*sepadoc.Record {
	var records []*sepadoc.Record
	for i := 1; i <= n; i++ {
		records = append(records, sepadoc.NewRecord(int64(i), map[string]sepadoc.Value{
			"client":        sepadoc.StringValue(fmt.Sprintf("Client %d", i)),
			"date_avis":     sepadoc.DateValue(time.Date(2023, time.January, i, 0, 0, 0, 0, time.UTC)),
			"montant_total": sepadoc.DecimalValue(decimal.NewFromInt(int64(i * 10))),
		}))
	}

	return records
}

var january = sepadoc.DateRange{
	Start: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
}

type fakeGenerator struct {
	mu       sync.Mutex
	stamp    string
	calls    int
	onCall   func(call int, r *sepadoc.Record) error
	closed   bool
	released chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, r *sepadoc.Record) (string, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	onCall := g.onCall
	g.mu.Unlock()

	if g.released != nil {
		<-g.released
	}

	if onCall != nil {
		if err := onCall(call, r); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("request_%s_%d.pdf", g.stamp, r.ID), nil
}

func (g *fakeGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	return nil
}

func generatorFactory(g *fakeGenerator) sepadoc.GeneratorFactory {
	return func(ctx context.Context) (sepadoc.Generator, error) {
		return g, nil
	}
}

type fakeDeliverer struct {
	mu       sync.Mutex
	mode     sepadoc.DeliveryMode
	sent     []int64
	vouchers [][]int64
	onSend   func(call int, r *sepadoc.Record) error
	calls    int
}

func (d *fakeDeliverer) Mode() sepadoc.DeliveryMode {
	return d.mode
}

func (d *fakeDeliverer) Send(ctx context.Context, documentPath string, r *sepadoc.Record) error {
	d.mu.Lock()
	d.calls++
	call := d.calls
	onSend := d.onSend
	d.mu.Unlock()

	if onSend != nil {
		if err := onSend(call, r); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, r.ID)
	return nil
}

func (d *fakeDeliverer) CreateDeliveryLog(ctx context.Context, sent []*sepadoc.Record) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []int64
	for _, r := range sent {
		ids = append(ids, r.ID)
	}

	d.vouchers = append(d.vouchers, ids)
	return fmt.Sprintf("voucher_%d.pdf", len(d.vouchers)), nil
}

func delivererFactory(d *fakeDeliverer) sepadoc.DelivererFactory {
	return func(ctx context.Context) (sepadoc.Deliverer, error) {
		return d, nil
	}
}

type fakeArchiver struct {
	mu        sync.Mutex
	documents []string
	voucher   string
}

func (a *fakeArchiver) Archive(ctx context.Context, documents []string, voucher string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.documents = documents
	a.voucher = voucher
	return "archive.zip", nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sepadoc.Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, e sepadoc.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, e)
	return n.err
}

func (n *fakeNotifier) Events() []sepadoc.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]sepadoc.Event(nil), n.events...)
}

func (d *fakeDeliverer) Sent() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]int64(nil), d.sent...)
}

// blockingNotifier holds every Notify call until release is closed.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (n *blockingNotifier) Notify(ctx context.Context, e sepadoc.Event) error {
	select {
	case n.entered <- struct{}{}:
	default:
	}

	<-n.release
	return nil
}

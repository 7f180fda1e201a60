// Package delivery sends generated documents according to the configured delivery mode and prints the voucher of
// every Send stage.
package delivery

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/printer"
)

// Transport transmits one document, for example by mail.
type Transport interface {
	Send(ctx context.Context, documentPath string, r *sepadoc.Record) error
}

// TransportFactory builds the Transport of a Send stage in direct mode.
type TransportFactory func(ctx context.Context) (Transport, error)

// Deliverer implements sepadoc.Deliverer. In archive mode documents are only logged, the archive is built by the
// pipeline once the voucher is printed.
type Deliverer struct {
	mode      sepadoc.DeliveryMode
	transport Transport
	vouchers  *printer.VoucherPrinter
	log       sepadoc.Logger
}

// New reads delivery.mode and builds the voucher printer. transports is only called in direct mode.
func New(ctx context.Context, s *sepadoc.Settings, l sepadoc.Logger, transports TransportFactory,
	opts ...printer.Option,
) (*Deliverer, error) {
	mode, err := sepadoc.ParseDeliveryMode(s.StringOr(sepadoc.KeyDeliveryMode, ""))
	if err != nil {
		return nil, err
	}

	d := &Deliverer{
		mode: mode,
		log:  sepadoc.NewComponentLogger(l, "delivery"),
	}

	if mode == sepadoc.DeliveryModeDirect {
		if transports == nil {
			return nil, errors.Wrap(sepadoc.ErrDeliveryParameterNotDefined, "no transport for direct delivery",
				j.MKV{"mode": mode.String()})
		}

		d.transport, err = transports(ctx)
		if err != nil {
			return nil, err
		}
	}

	d.vouchers, err = printer.NewVoucherPrinter(ctx, s, l, opts...)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// NewFactory returns a DelivererFactory building a Deliverer for every Send stage, so configuration changes are
// picked up between stages.
func NewFactory(s *sepadoc.Settings, l sepadoc.Logger, transports TransportFactory, opts ...printer.Option) sepadoc.DelivererFactory {
	return func(ctx context.Context) (sepadoc.Deliverer, error) {
		return New(ctx, s, l, transports, opts...)
	}
}

func (d *Deliverer) Mode() sepadoc.DeliveryMode {
	return d.mode
}

func (d *Deliverer) Send(ctx context.Context, documentPath string, r *sepadoc.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d.mode == sepadoc.DeliveryModeArchive {
		d.log.Debug(ctx, "document kept for archive", sepadoc.MKV{
			"record_id": r.IDString(),
			"path":      documentPath,
		})
		return nil
	}

	err := d.transport.Send(ctx, documentPath, r)
	if err != nil {
		return err
	}

	d.log.Info(ctx, "document sent", sepadoc.MKV{
		"record_id": r.IDString(),
		"path":      documentPath,
	})
	return nil
}

func (d *Deliverer) CreateDeliveryLog(ctx context.Context, sent []*sepadoc.Record) (string, error) {
	return d.vouchers.Print(ctx, sent)
}

var _ sepadoc.Deliverer = (*Deliverer)(nil)

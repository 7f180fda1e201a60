package printer

import (
	"context"
	"time"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/internal/metrics"
	"github.com/luno/sepadoc/internal/tmpl"
)

// Missing is substituted for a token whose attribute the record lacks.
const Missing = "#NA"

const isoDateTime = "2006-01-02T15:04:05"

// Attribute names read from a payment request record.
const (
	AttrNoticeDate   = "date_avis"
	AttrClient       = "client"
	AttrClientID     = "identifiant_client"
	AttrTotal        = "montant_total"
	AttrPaymentDate  = "date_paiement"
	AttrMissiveID    = "identifiant_missive"
	AttrClientBIC    = "client_bic"
	AttrClientIBAN   = "client_iban"
	voucherAmountKey = "montant_paiement"
)

// tokenBuilder resolves record attributes into token values, falling back to Missing.
type tokenBuilder struct {
	engine *tmpl.Engine
	log    sepadoc.Logger
}

func (b tokenBuilder) missing(ctx context.Context, r *sepadoc.Record, attr string, err error) string {
	b.log.Warn(ctx, err.Error(), sepadoc.MKV{
		"record_id": r.IDString(),
		"attribute": attr,
	})
	metrics.AttributeFallbacks.WithLabelValues(attr).Inc()
	return Missing
}

func (b tokenBuilder) formatted(ctx context.Context, r *sepadoc.Record, attr string) string {
	v, err := r.FormattedAttribute(attr)
	if err != nil {
		return b.missing(ctx, r, attr, err)
	}

	return v
}

func (b tokenBuilder) raw(ctx context.Context, r *sepadoc.Record, attr string) string {
	v, err := r.Attribute(attr)
	if err != nil {
		return b.missing(ctx, r, attr, err)
	}

	return v.Raw()
}

// date renders a date attribute with layout. String attributes holding an ISO date are accepted.
func (b tokenBuilder) date(ctx context.Context, r *sepadoc.Record, attr, layout string) string {
	v, err := r.Attribute(attr)
	if err != nil {
		return b.missing(ctx, r, attr, err)
	}

	if t, err := v.AsDate(); err == nil {
		return t.Format(layout)
	}

	s, err := v.AsString()
	if err != nil {
		return b.missing(ctx, r, attr, err)
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return b.missing(ctx, r, attr, err)
	}

	return t.Format(layout)
}

// RequestTokens are the tokens of the request grid template.
func (b tokenBuilder) RequestTokens(ctx context.Context, r *sepadoc.Record) *tmpl.Tokens {
	t := tmpl.NewTokens()
	for _, attr := range []string{AttrNoticeDate, AttrClient, AttrClientID, AttrTotal, AttrPaymentDate} {
		t.Set(b.engine.Token(attr), b.formatted(ctx, r, attr))
	}

	return t
}

// MissiveTokens are the tokens of the structured missive template.
func (b tokenBuilder) MissiveTokens(ctx context.Context, r *sepadoc.Record) *tmpl.Tokens {
	t := tmpl.NewTokens()
	t.Set(b.engine.Token("MissiveID"), b.formatted(ctx, r, AttrMissiveID))
	t.Set(b.engine.Token("date_avis_iso"), b.date(ctx, r, AttrNoticeDate, isoDateTime))
	t.Set(b.engine.Token("client", "BIC"), b.formatted(ctx, r, AttrClientBIC))
	t.Set(b.engine.Token("client", "IBAN"), b.formatted(ctx, r, AttrClientIBAN))
	t.Set(b.engine.Token(AttrPaymentDate), b.date(ctx, r, AttrPaymentDate, time.DateOnly))
	t.Set(b.engine.Token(AttrClient), b.formatted(ctx, r, AttrClient))
	t.Set(b.engine.Token(AttrTotal), b.raw(ctx, r, AttrTotal))
	return t
}

// VoucherColumns are the column values of the voucher template, one entry per record.
func (b tokenBuilder) VoucherColumns(ctx context.Context, records []*sepadoc.Record) map[string][]string {
	cols := map[string][]string{
		b.engine.Token(AttrNoticeDate):   nil,
		b.engine.Token(AttrClient):       nil,
		b.engine.Token(AttrClientID):     nil,
		b.engine.Token(voucherAmountKey): nil,
	}

	for _, r := range records {
		cols[b.engine.Token(AttrNoticeDate)] = append(cols[b.engine.Token(AttrNoticeDate)], b.formatted(ctx, r, AttrNoticeDate))
		cols[b.engine.Token(AttrClient)] = append(cols[b.engine.Token(AttrClient)], b.formatted(ctx, r, AttrClient))
		cols[b.engine.Token(AttrClientID)] = append(cols[b.engine.Token(AttrClientID)], b.formatted(ctx, r, AttrClientID))
		cols[b.engine.Token(voucherAmountKey)] = append(cols[b.engine.Token(voucherAmountKey)], b.formatted(ctx, r, AttrTotal))
	}

	return cols
}

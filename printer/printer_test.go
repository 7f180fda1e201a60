package printer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/memsource"
	"github.com/luno/sepadoc/internal/xmp"
	"github.com/luno/sepadoc/printer"
)

var now = time.Date(2023, time.April, 1, 12, 0, 0, 0, time.UTC)

const missiveTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Missive>
<Id>#SMURF#MissiveID#</Id>
<Date>#SMURF#date_avis_iso#</Date>
<Bic>#SMURF#client#BIC#</Bic><Iban>#SMURF#client#IBAN#</Iban>
<Client>#SMURF#client#</Client>
<Due>#SMURF#date_paiement#</Due>
<Amount>#SMURF#montant_total#</Amount>
</Missive>
`

func writeSheet(t *testing.T, path string, cells map[string]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for cell, v := range cells {
		jtest.RequireNil(t, f.SetCellStr("Sheet1", cell, v))
	}
	jtest.RequireNil(t, f.SetColWidth("Sheet1", "A", "D", 24))
	jtest.RequireNil(t, f.SaveAs(path))
}

type workspace struct {
	root     string
	settings map[string]sepadoc.Value
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()
	templates := filepath.Join(root, "template")
	jtest.RequireNil(t, os.MkdirAll(templates, 0o755))

	writeSheet(t, filepath.Join(templates, "avis.xlsx"), map[string]string{
		"A1": "Avis de paiement",
		"A2": "Date : #SMURF#date_avis#",
		"B2": "#SMURF#client#",
		"A3": "Client : #SMURF#identifiant_client#",
		"B3": "Montant : #SMURF#montant_total#",
		"A4": "Échéance : #SMURF#date_paiement#",
	})
	writeSheet(t, filepath.Join(templates, "accuse.xlsx"), map[string]string{
		"A1": "Date",
		"B1": "Client",
		"C1": "Identifiant",
		"D1": "Montant",
		"A2": "#SMURF#date_avis#",
		"B2": "#SMURF#client#",
		"C2": "#SMURF#identifiant_client#",
		"D2": "#SMURF#montant_paiement#",
	})
	jtest.RequireNil(t, os.WriteFile(filepath.Join(templates, "sepamail.xml"), []byte(missiveTemplate), 0o644))

	icc := filepath.Join(root, "srgb.icc")
	jtest.RequireNil(t, os.WriteFile(icc, []byte("test colour profile"), 0o644))

	return &workspace{
		root: root,
		settings: map[string]sepadoc.Value{
			sepadoc.KeyTemplateFolder:  sepadoc.StringValue(templates),
			sepadoc.KeyTempFolder:      sepadoc.StringValue(filepath.Join(root, "temp")),
			sepadoc.KeyOutputFolder:    sepadoc.StringValue(filepath.Join(root, "output")),
			sepadoc.KeyLogFolder:       sepadoc.StringValue(filepath.Join(root, "log")),
			sepadoc.KeyRequestTemplate: sepadoc.StringValue("avis.xlsx"),
			sepadoc.KeyMissiveTemplate: sepadoc.StringValue("sepamail.xml"),
			sepadoc.KeyVoucherTemplate: sepadoc.StringValue("accuse.xlsx"),
			sepadoc.KeyColourProfile:   sepadoc.StringValue(icc),
			sepadoc.KeyFont:            sepadoc.StringValue("testdata/DejaVuSansCondensed.ttf"),
		},
	}
}

func (w *workspace) Settings() *sepadoc.Settings {
	return sepadoc.NewSettings(w.settings)
}

func (w *workspace) path(elem ...string) string {
	return filepath.Join(append([]string{w.root}, elem...)...)
}

func paymentRecord(id int64) *sepadoc.Record {
	return sepadoc.NewRecord(id, map[string]sepadoc.Value{
		"date_avis":           sepadoc.DateValue(time.Date(2023, time.March, int(id), 0, 0, 0, 0, time.UTC)),
		"client":              sepadoc.StringValue("ACME & Fils"),
		"identifiant_client":  sepadoc.StringValue("C-0042"),
		"montant_total":       sepadoc.DecimalValue(decimal.RequireFromString("12.5")),
		"date_paiement":       sepadoc.DateValue(time.Date(2023, time.April, 15, 0, 0, 0, 0, time.UTC)),
		"identifiant_missive": sepadoc.StringValue("M-1"),
		"client_bic":          sepadoc.StringValue("AGRIFRPP"),
		"client_iban":         sepadoc.StringValue("FR7630006000011234567890189"),
	})
}

type warnLogger struct {
	sepadoc.NoopLogger

	mu    sync.Mutex
	warns []map[string]string
}

func (l *warnLogger) Warn(_ context.Context, _ string, meta map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.warns = append(l.warns, meta)
}

func (l *warnLogger) Warns() []map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]map[string]string(nil), l.warns...)
}

func readPacket(t *testing.T, path string) []byte {
	t.Helper()

	doc, err := os.ReadFile(path)
	jtest.RequireNil(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	start := bytes.Index(doc, []byte("<?xpacket begin"))
	end := bytes.Index(doc, []byte(`<?xpacket end="w"?>`))
	require.True(t, start >= 0 && end > start)

	return doc[start:end]
}

func TestGenerateDocuments(t *testing.T) {
	ws := newWorkspace(t)
	clock := clock_testing.NewFakeClock(now)

	src := memsource.New([]*sepadoc.Record{paymentRecord(1), paymentRecord(2), paymentRecord(3)})
	p := sepadoc.New(src, printer.NewFactory(ws.Settings(), sepadoc.NoopLogger{}, printer.WithClock(clock)), nil,
		sepadoc.WithLogger(sepadoc.NoopLogger{}))

	ctx := context.Background()
	dr := sepadoc.DateRange{Start: now.AddDate(0, -1, 0), End: now}

	run, err := p.Fetch(ctx, dr)
	jtest.RequireNil(t, err)
	res, err := run.Wait(ctx)
	jtest.RequireNil(t, err)
	require.Equal(t, sepadoc.OutcomeCompleted, res.Outcome)

	run, err = p.Generate(ctx)
	jtest.RequireNil(t, err)
	res, err = run.Wait(ctx)
	jtest.RequireNil(t, err)
	require.Equal(t, sepadoc.OutcomeCompleted, res.Outcome, "%v", res.Err)
	require.Equal(t, 3, res.Completed)

	seen := make(map[string]bool)
	for _, r := range p.Records() {
		want := ws.path("output", "avis_20230401120000_"+r.IDString()+".pdf")
		require.Equal(t, want, r.DocumentPath)
		require.False(t, seen[r.DocumentPath])
		seen[r.DocumentPath] = true

		doc, err := os.ReadFile(r.DocumentPath)
		jtest.RequireNil(t, err)
		require.Contains(t, string(doc), "/S /GTS_PDFA1")
		require.Contains(t, string(doc), "/OutputIntents [")
		require.Contains(t, string(doc), "/Metadata ")
	}

	temp, err := os.ReadDir(ws.path("temp"))
	jtest.RequireNil(t, err)
	require.Empty(t, temp)

	packet := readPacket(t, ws.path("output", "avis_20230401120000_2.pdf"))

	missive, ok := xmp.Property(packet, "xmp:sepamail_missive")
	require.True(t, ok)
	require.Contains(t, missive, "<Id>M-1</Id>")
	require.Contains(t, missive, "<Date>2023-03-02T00:00:00</Date>")
	require.Contains(t, missive, "<Bic>AGRIFRPP</Bic><Iban>FR7630006000011234567890189</Iban>")
	require.Contains(t, missive, "<Client>ACME & Fils</Client>")
	require.Contains(t, missive, "<Due>2023-04-15</Due>")
	require.Contains(t, missive, "<Amount>12.5</Amount>")

	title, ok := xmp.Property(packet, "rdf:li")
	require.True(t, ok)
	require.Equal(t, printer.DocumentTitle, title)

	conformance, ok := xmp.Property(packet, "pdfaid:conformance")
	require.True(t, ok)
	require.Equal(t, "A", conformance)

	signed, ok := xmp.Property(packet, "xmp:sepamail_document.signed")
	require.True(t, ok)
	require.Equal(t, "false", signed)
}

func TestGenerateMissingAttribute(t *testing.T) {
	ws := newWorkspace(t)

	r := paymentRecord(7)
	delete(r.Attributes, "client_iban")
	delete(r.Attributes, "identifiant_missive")

	log := new(warnLogger)
	pr, err := printer.New(context.Background(), ws.Settings(), log,
		printer.WithClock(clock_testing.NewFakeClock(now)))
	jtest.RequireNil(t, err)
	require.Equal(t, "20230401120000", pr.Stamp())

	path, err := pr.Generate(context.Background(), r)
	jtest.RequireNil(t, err)

	missive, ok := xmp.Property(readPacket(t, path), "xmp:sepamail_missive")
	require.True(t, ok)
	require.Contains(t, missive, "<Id>#NA</Id>")
	require.Contains(t, missive, "<Iban>#NA</Iban>")
	require.Contains(t, missive, "<Bic>AGRIFRPP</Bic>")

	require.ElementsMatch(t, []map[string]string{
		{"record_id": "7", "attribute": "identifiant_missive"},
		{"record_id": "7", "attribute": "client_iban"},
	}, log.Warns())
}

func TestGenerateCancelled(t *testing.T) {
	ws := newWorkspace(t)

	pr, err := printer.New(context.Background(), ws.Settings(), sepadoc.NoopLogger{})
	jtest.RequireNil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pr.Generate(ctx, paymentRecord(1))
	jtest.Require(t, context.Canceled, err)
}

func TestNewPrinterConfiguration(t *testing.T) {
	testCases := []struct {
		name   string
		change func(ws *workspace)
		err    error
	}{
		{
			name: "template folder missing",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyTemplateFolder] = sepadoc.StringValue(ws.path("nowhere"))
			},
			err: sepadoc.ErrInvalidTemplatePath,
		},
		{
			name: "template folder is a file",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyTemplateFolder] = sepadoc.StringValue(ws.path("srgb.icc"))
			},
			err: sepadoc.ErrInvalidTemplatePath,
		},
		{
			name: "request template not defined",
			change: func(ws *workspace) {
				delete(ws.settings, sepadoc.KeyRequestTemplate)
			},
			err: sepadoc.ErrRequestTemplateNotDefined,
		},
		{
			name: "request template not found",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyRequestTemplate] = sepadoc.StringValue("missing.xlsx")
			},
			err: sepadoc.ErrRequestTemplateNotFound,
		},
		{
			name: "missive template not defined",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyMissiveTemplate] = sepadoc.StringValue("")
			},
			err: sepadoc.ErrMissiveTemplateNotDefined,
		},
		{
			name: "missive template not found",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyMissiveTemplate] = sepadoc.StringValue("missing.xml")
			},
			err: sepadoc.ErrMissiveTemplateNotFound,
		},
		{
			name: "colour profile not found",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyColourProfile] = sepadoc.StringValue(ws.path("missing.icc"))
			},
			err: sepadoc.ErrColourProfileNotFound,
		},
		{
			name: "font not found",
			change: func(ws *workspace) {
				ws.settings[sepadoc.KeyFont] = sepadoc.StringValue(ws.path("missing.ttf"))
			},
			err: sepadoc.ErrFontNotFound,
		},
		{
			name: "default font missing",
			change: func(ws *workspace) {
				delete(ws.settings, sepadoc.KeyFont)
			},
			err: sepadoc.ErrFontNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ws := newWorkspace(t)
			tc.change(ws)

			_, err := printer.New(context.Background(), ws.Settings(), sepadoc.NoopLogger{})
			jtest.Require(t, tc.err, err)
		})
	}
}

func TestGeneratorFactoryFailsStage(t *testing.T) {
	ws := newWorkspace(t)
	delete(ws.settings, sepadoc.KeyRequestTemplate)

	src := memsource.New([]*sepadoc.Record{paymentRecord(1)})
	p := sepadoc.New(src, printer.NewFactory(ws.Settings(), sepadoc.NoopLogger{}), nil,
		sepadoc.WithLogger(sepadoc.NoopLogger{}))

	ctx := context.Background()
	run, err := p.Fetch(ctx, sepadoc.DateRange{Start: now, End: now})
	jtest.RequireNil(t, err)
	_, err = run.Wait(ctx)
	jtest.RequireNil(t, err)

	run, err = p.Generate(ctx)
	jtest.RequireNil(t, err)
	res, err := run.Wait(ctx)
	jtest.RequireNil(t, err)

	require.Equal(t, sepadoc.OutcomeFailed, res.Outcome)
	require.Equal(t, sepadoc.KindConfiguration, sepadoc.KindOf(res.Err))
	require.Equal(t, "The payment request template is not defined.", sepadoc.UserMessage(res.Err))
}

func TestPrintVoucher(t *testing.T) {
	ws := newWorkspace(t)

	vp, err := printer.NewVoucherPrinter(context.Background(), ws.Settings(), sepadoc.NoopLogger{},
		printer.WithClock(clock_testing.NewFakeClock(now)))
	jtest.RequireNil(t, err)

	path, err := vp.Print(context.Background(), []*sepadoc.Record{paymentRecord(1), paymentRecord(2)})
	jtest.RequireNil(t, err)
	require.Equal(t, ws.path("log", "accuse_20230401120000.pdf"), path)

	doc, err := os.ReadFile(path)
	jtest.RequireNil(t, err)
	require.Contains(t, string(doc), "/S /GTS_PDFA1")
	require.NotContains(t, string(doc), "sepamail_missive")

	_, err = os.Stat(ws.path("temp", "accuse_20230401120000.xlsx"))
	require.True(t, os.IsNotExist(err))
}

func TestVoucherTemplateNotDefined(t *testing.T) {
	ws := newWorkspace(t)
	delete(ws.settings, sepadoc.KeyVoucherTemplate)

	_, err := printer.NewVoucherPrinter(context.Background(), ws.Settings(), sepadoc.NoopLogger{})
	jtest.Require(t, sepadoc.ErrVoucherTemplateNotDefined, err)
}

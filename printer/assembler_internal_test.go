package printer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/luno/sepadoc"
)

const testFont = "testdata/DejaVuSansCondensed.ttf"

type recordingLogger struct {
	sepadoc.NoopLogger

	mu    sync.Mutex
	warns []map[string]string
}

func (l *recordingLogger) Warn(_ context.Context, _ string, meta map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.warns = append(l.warns, meta)
}

func TestPageConfig(t *testing.T) {
	testCases := []struct {
		name     string
		settings map[string]sepadoc.Value
		width    float64
		height   float64
		warns    int
	}{
		{
			name:   "fallback",
			width:  594.72,
			height: 280.8,
		},
		{
			name: "configured in centimetres",
			settings: map[string]sepadoc.Value{
				sepadoc.KeyPDFWidth:  sepadoc.FloatValue(25.4),
				sepadoc.KeyPDFHeight: sepadoc.IntValue(10),
			},
			width:  720,
			height: 10 / 2.54 * 72,
		},
		{
			name: "malformed width",
			settings: map[string]sepadoc.Value{
				sepadoc.KeyPDFWidth:  sepadoc.StringValue("wide"),
				sepadoc.KeyPDFHeight: sepadoc.FloatValue(10),
			},
			width:  594.72,
			height: 280.8,
			warns:  1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log := &recordingLogger{}
			pc := pageConfig(context.Background(), sepadoc.NewSettings(tc.settings), log)

			w, h := pc.Size()
			require.InDelta(t, tc.width, w, 0.001)
			require.InDelta(t, tc.height, h, 0.001)
			require.Len(t, log.warns, tc.warns)
		})
	}
}

func TestCentre(t *testing.T) {
	x, y := centre(594.72, 280.8, 400, 100)
	require.InDelta(t, 97.36, x, 0.001)
	require.InDelta(t, 90.4, y, 0.001)
}

func TestColumnWidthPoints(t *testing.T) {
	require.InDelta(t, 48.0, colWidthPoints(8.43), 0.1)
}

func writeTestSheet(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	jtest.RequireNil(t, f.SetCellStr("Sheet1", "A1", "Montant : 12,50 €"))
	jtest.RequireNil(t, f.SaveAs(path))
}

func TestAssembleKeepsIntermediatesOnFailure(t *testing.T) {
	dir := t.TempDir()
	icc := filepath.Join(dir, "srgb.icc")
	jtest.RequireNil(t, os.WriteFile(icc, []byte("profile"), 0o644))

	sheet := filepath.Join(dir, "avis_1.xlsx")
	writeTestSheet(t, sheet)
	missive := filepath.Join(dir, "sepamail_1.xml")
	jtest.RequireNil(t, os.WriteFile(missive, []byte("<Missive/>"), 0o644))

	a, err := NewAssembler(icc, testFont)
	jtest.RequireNil(t, err)

	_, err = a.Assemble(context.Background(), sheet, missive, filepath.Join(dir, "missing", "avis_1.pdf"), PageConfig{})
	jtest.Require(t, sepadoc.ErrRenderFailed, err)

	for _, p := range []string{sheet, missive} {
		_, err := os.Stat(p)
		jtest.RequireNil(t, err)
	}

	out := filepath.Join(dir, "avis_1.pdf")
	path, err := a.Assemble(context.Background(), sheet, missive, out, PageConfig{})
	jtest.RequireNil(t, err)
	require.Equal(t, out, path)

	for _, p := range []string{sheet, missive, out + ".part"} {
		_, err := os.Stat(p)
		require.True(t, os.IsNotExist(err))
	}
}

var objectPattern = regexp.MustCompile(`(\d{10}) 00000 n `)

func TestConform(t *testing.T) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetXmpMetadata([]byte("<x:xmpmeta/>"))
	pdf.AddPage()

	var buf bytes.Buffer
	jtest.RequireNil(t, pdf.Output(&buf))
	original := buf.Len()

	doc, err := conform(buf.Bytes(), []byte("profile"))
	jtest.RequireNil(t, err)

	update := doc[original:]
	require.Contains(t, string(update), "/S /GTS_PDFA1")
	require.Contains(t, string(update), "/DestOutputProfile")
	require.Contains(t, string(update), "/Type /Catalog")
	require.Contains(t, string(update), "/MarkInfo << /Marked true >>")
	require.Regexp(t, `/StructTreeRoot \d+ 0 R`, string(update))
	require.Contains(t, string(update), "/Type /StructTreeRoot")
	require.Contains(t, string(update), "/Type /StructElem /S /Document")
	require.Regexp(t, `/Metadata \d+ 0 R`, string(update))
	require.Regexp(t, `/Prev \d+`, string(update))
	require.Regexp(t, `/ID \[<[0-9a-f]{32}> <[0-9a-f]{32}>\]`, string(update))
	require.Equal(t, 2, bytes.Count(doc, []byte("startxref")))

	// Every offset of the update points at the start of an object.
	xref := bytes.LastIndex(doc, []byte("\nxref\n"))
	for _, m := range objectPattern.FindAllSubmatch(doc[xref:], -1) {
		off, err := strconv.Atoi(string(m[1]))
		jtest.RequireNil(t, err)
		require.Regexp(t, `^\d+ 0 obj\n`, string(doc[off:off+16]), fmt.Sprintf("offset %d", off))
	}
}

func TestConformRejectsTruncatedDocument(t *testing.T) {
	_, err := conform([]byte("%PDF-1.3\n1 0 obj\n<<>>\nendobj\n"), nil)
	require.Error(t, err)
}

func TestAssembleTaggedWithEmbeddedFont(t *testing.T) {
	dir := t.TempDir()
	icc := filepath.Join(dir, "srgb.icc")
	jtest.RequireNil(t, os.WriteFile(icc, []byte("profile"), 0o644))

	sheet := filepath.Join(dir, "avis_1.xlsx")
	writeTestSheet(t, sheet)
	missive := filepath.Join(dir, "sepamail_1.xml")
	jtest.RequireNil(t, os.WriteFile(missive, []byte("<Missive/>"), 0o644))

	a, err := NewAssembler(icc, testFont)
	jtest.RequireNil(t, err)

	out, err := a.Assemble(context.Background(), sheet, missive, filepath.Join(dir, "avis_1.pdf"), PageConfig{})
	jtest.RequireNil(t, err)

	doc, err := os.ReadFile(out)
	jtest.RequireNil(t, err)

	require.Contains(t, string(doc), "pdfaid:conformance")
	require.Contains(t, string(doc), "/MarkInfo << /Marked true >>")
	require.Contains(t, string(doc), "/Type /StructTreeRoot")
	require.Contains(t, string(doc), "/FontFile2")
	require.NotContains(t, string(doc), "/BaseFont /Helvetica")
}

func TestNewAssemblerResources(t *testing.T) {
	dir := t.TempDir()
	icc := filepath.Join(dir, "srgb.icc")
	jtest.RequireNil(t, os.WriteFile(icc, []byte("profile"), 0o644))

	_, err := NewAssembler(icc, filepath.Join(dir, "arial.ttf"))
	jtest.Require(t, sepadoc.ErrFontNotFound, err)

	_, err = NewAssembler(icc, dir)
	jtest.Require(t, sepadoc.ErrFontNotFound, err)

	_, err = NewAssembler(filepath.Join(dir, "missing.icc"), testFont)
	jtest.Require(t, sepadoc.ErrColourProfileNotFound, err)
}

package printer

import (
	"bytes"
	"context"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/internal/xmp"
)

const (
	// DocumentTitle is the title stamped on every generated document.
	DocumentTitle = "Avis de paiement SEPAmail"
	// Identity is the author, creator and generator of the generated documents.
	Identity = "smurf"

	outputCondition = "sRGB IEC61966-2.1"
	fontFamily      = "body"
	fontSize        = 9
)

// Assembler renders a filled sheet into an archival document with the missive embedded in its metadata.
type Assembler struct {
	icc      []byte
	fontPath string
	clock    clock.Clock
	producer string
}

type AssemblerOption func(a *Assembler)

func WithAssemblerClock(c clock.Clock) AssemblerOption {
	return func(a *Assembler) {
		a.clock = c
	}
}

// NewAssembler loads the sRGB colour profile at iccPath. The TrueType font at fontPath is embedded in every
// document.
func NewAssembler(iccPath, fontPath string, opts ...AssemblerOption) (*Assembler, error) {
	info, err := os.Stat(iccPath)
	if err != nil || info.IsDir() {
		return nil, errors.Wrap(sepadoc.ErrColourProfileNotFound, "", j.MKV{"path": iccPath})
	}

	icc, err := os.ReadFile(iccPath)
	if err != nil {
		return nil, errors.Wrap(sepadoc.ErrColourProfileNotFound, err.Error(), j.MKV{"path": iccPath})
	}

	a := &Assembler{
		icc:      icc,
		fontPath: fontPath,
		clock:    clock.RealClock{},
		producer: "sepadoc",
	}
	for _, opt := range opts {
		opt(a)
	}

	info, err = os.Stat(a.fontPath)
	if err != nil || info.IsDir() {
		return nil, errors.Wrap(sepadoc.ErrFontNotFound, "", j.MKV{"path": a.fontPath})
	}

	return a, nil
}

// Assemble renders the sheet at sheetPath centred on a page sized by page, embeds the content of missivePath and
// writes the document to outputPath. Both intermediate files are deleted once the document is in place and kept
// when anything fails.
func (a *Assembler) Assemble(ctx context.Context, sheetPath, missivePath, outputPath string, page PageConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	missive, err := os.ReadFile(missivePath)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": missivePath})
	}

	return a.assemble(sheetPath, string(missive), outputPath, page, sheetPath, missivePath)
}

// RenderSheet renders the sheet at sheetPath without a missive, as used for delivery vouchers. The sheet is deleted
// once the document is in place.
func (a *Assembler) RenderSheet(ctx context.Context, sheetPath, outputPath string, page PageConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return a.assemble(sheetPath, "", outputPath, page, sheetPath)
}

func (a *Assembler) assemble(sheetPath, missive, outputPath string, page PageConfig, intermediates ...string) (string, error) {
	sheet, err := LoadSheet(sheetPath)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": sheetPath})
	}

	packet, err := xmp.Packet{
		Title:       DocumentTitle,
		Author:      Identity,
		Publisher:   Identity,
		CreatorTool: Identity,
		Producer:    a.producer,
		CreatedAt:   a.clock.Now(),
		Conformance: "A",
		Missive:     missive,
		Signed:      false,
		Generator:   Identity,
	}.Marshal()
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error())
	}

	pdf := a.render(sheet, page)
	pdf.SetXmpMetadata(packet)

	err = a.writeAtomic(pdf, outputPath)
	if err != nil {
		return "", err
	}

	for _, p := range intermediates {
		err := os.Remove(p)
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrap(err, "remove intermediate", j.MKV{"path": p})
		}
	}

	return outputPath, nil
}

// render lays the sheet out on a single page. The returned document carries the document information but neither
// the metadata packet nor the output intent.
func (a *Assembler) render(sheet *Sheet, page PageConfig) *fpdf.Fpdf {
	pw, ph := page.Size()

	orientation := "P"
	if pw > ph {
		orientation = "L"
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	now := a.clock.Now()
	pdf.SetTitle(DocumentTitle, true)
	pdf.SetAuthor(Identity, true)
	pdf.SetCreator(Identity, true)
	pdf.SetProducer(a.producer, true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)

	pdf.AddUTF8Font(fontFamily, "", a.fontPath)
	pdf.SetFont(fontFamily, "", fontSize)

	pdf.AddPage()

	cw, ch := sheet.Width(), sheet.Height()
	ox, oy := centre(pw, ph, cw, ch)

	y := oy
	for row := 0; row < sheet.Grid.NumRows(); row++ {
		x := ox
		for col := 0; col < len(sheet.ColWidths); col++ {
			w := sheet.ColWidths[col]
			if v, ok := sheet.Grid.Cell(row, col); ok && v != "" {
				pdf.SetXY(x, y)
				pdf.CellFormat(w, sheet.RowHeights[row], v, "", 0, "LM", false, 0, "")
			}

			x += w
		}

		y += sheet.RowHeights[row]
	}

	return pdf
}

// writeAtomic completes the document and writes it next to path, then renames it into place so a failed write
// never leaves a partial document at path.
func (a *Assembler) writeAtomic(pdf *fpdf.Fpdf, path string) error {
	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": path})
	}

	doc, err := conform(buf.Bytes(), a.icc)
	if err != nil {
		return errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": path})
	}

	tmp := path + ".part"
	err = os.WriteFile(tmp, doc, 0o644)
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": path})
	}

	err = os.Rename(tmp, path)
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"path": path})
	}

	return nil
}

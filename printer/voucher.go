package printer

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/internal/tmpl"
)

// VoucherPrinter prints the delivery voucher listing the records processed by a Send stage.
type VoucherPrinter struct {
	log       sepadoc.Logger
	tokens    tokenBuilder
	engine    *tmpl.Engine
	assembler *Assembler
	clock     clock.Clock
	page      PageConfig

	templatePath string
	templateBase string
	template     tmpl.Grid
	tempFolder   string
	logFolder    string
}

func NewVoucherPrinter(ctx context.Context, s *sepadoc.Settings, l sepadoc.Logger, opts ...Option) (*VoucherPrinter, error) {
	o := buildOptions(opts)
	log := sepadoc.NewComponentLogger(l, "voucher")

	templateFolder, err := templateFolder(s)
	if err != nil {
		return nil, err
	}

	templatePath, err := templateFile(s, templateFolder, sepadoc.KeyVoucherTemplate,
		sepadoc.ErrVoucherTemplateNotDefined, sepadoc.ErrVoucherTemplateNotFound)
	if err != nil {
		return nil, err
	}

	tempFolder, logFolder, err := workFolders(s, sepadoc.KeyLogFolder, defaultLogFolder)
	if err != nil {
		return nil, err
	}

	assembler, err := newAssembler(s, o)
	if err != nil {
		return nil, err
	}

	sheet, err := LoadSheet(templatePath)
	if err != nil {
		return nil, errors.Wrap(sepadoc.ErrVoucherTemplateNotFound, err.Error(), j.MKV{"path": templatePath})
	}

	engine := newEngine(s)

	return &VoucherPrinter{
		log:          log,
		tokens:       tokenBuilder{engine: engine, log: log},
		engine:       engine,
		assembler:    assembler,
		clock:        o.clock,
		page:         pageConfig(ctx, s, log),
		templatePath: templatePath,
		templateBase: baseName(templatePath),
		template:     sheet.Grid,
		tempFolder:   tempFolder,
		logFolder:    logFolder,
	}, nil
}

// Print writes the voucher for records into the log folder as {voucher template}_{stamp}.pdf.
func (v *VoucherPrinter) Print(ctx context.Context, records []*sepadoc.Record) (string, error) {
	filled := v.engine.ExpandColumns(v.template, v.tokens.VoucherColumns(ctx, records))

	name := v.templateBase + "_" + v.clock.Now().Format(StampLayout)
	sheetPath := filepath.Join(v.tempFolder, name+".xlsx")
	err := FillSheet(v.templatePath, sheetPath, v.template, filled)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error())
	}

	path, err := v.assembler.RenderSheet(ctx, sheetPath, filepath.Join(v.logFolder, name+".pdf"), v.page)
	if err != nil {
		return "", err
	}

	v.log.Debug(ctx, "voucher printed", sepadoc.MKV{
		"records": strconv.Itoa(len(records)),
		"path":    path,
	})

	return path, nil
}

// Package printer turns payment request records into archival documents and prints delivery vouchers.
package printer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/internal/tmpl"
)

const (
	defaultTemplateFolder = "./template"
	defaultTempFolder     = "./temp"
	defaultOutputFolder   = "./output"
	defaultLogFolder      = "./log"
	defaultColourProfile  = "icc/srgb.icc"
	defaultFont           = "font/arial.ttf"

	// StampLayout is the date time stamp used in every generated file name.
	StampLayout = "20060102150405"
)

type options struct {
	clock clock.Clock
}

type Option func(o *options)

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Printer generates the document of one record. A Printer is built for one Generate stage: templates are read once
// and every document of the stage shares the same date time stamp.
type Printer struct {
	log       sepadoc.Logger
	tokens    tokenBuilder
	engine    *tmpl.Engine
	assembler *Assembler
	page      PageConfig

	requestPath  string
	requestBase  string
	request      tmpl.Grid
	missiveBase  string
	missiveLines []string

	tempFolder   string
	outputFolder string
	stamp        string
}

// New validates the template settings and loads both templates.
func New(ctx context.Context, s *sepadoc.Settings, l sepadoc.Logger, opts ...Option) (*Printer, error) {
	o := buildOptions(opts)
	log := sepadoc.NewComponentLogger(l, "printer")

	templateFolder, err := templateFolder(s)
	if err != nil {
		return nil, err
	}

	requestPath, err := templateFile(s, templateFolder, sepadoc.KeyRequestTemplate,
		sepadoc.ErrRequestTemplateNotDefined, sepadoc.ErrRequestTemplateNotFound)
	if err != nil {
		return nil, err
	}

	missivePath, err := templateFile(s, templateFolder, sepadoc.KeyMissiveTemplate,
		sepadoc.ErrMissiveTemplateNotDefined, sepadoc.ErrMissiveTemplateNotFound)
	if err != nil {
		return nil, err
	}

	tempFolder, outputFolder, err := workFolders(s, sepadoc.KeyOutputFolder, defaultOutputFolder)
	if err != nil {
		return nil, err
	}

	assembler, err := newAssembler(s, o)
	if err != nil {
		return nil, err
	}

	request, err := LoadSheet(requestPath)
	if err != nil {
		return nil, errors.Wrap(sepadoc.ErrRequestTemplateNotFound, err.Error(), j.MKV{"path": requestPath})
	}

	missive, err := os.ReadFile(missivePath)
	if err != nil {
		return nil, errors.Wrap(sepadoc.ErrMissiveTemplateNotFound, err.Error(), j.MKV{"path": missivePath})
	}

	engine := newEngine(s)

	return &Printer{
		log:          log,
		tokens:       tokenBuilder{engine: engine, log: log},
		engine:       engine,
		assembler:    assembler,
		page:         pageConfig(ctx, s, log),
		requestPath:  requestPath,
		requestBase:  baseName(requestPath),
		request:      request.Grid,
		missiveBase:  baseName(missivePath),
		missiveLines: splitLines(string(missive)),
		tempFolder:   tempFolder,
		outputFolder: outputFolder,
		stamp:        o.clock.Now().Format(StampLayout),
	}, nil
}

// NewFactory returns a GeneratorFactory building a new Printer for every Generate stage.
func NewFactory(s *sepadoc.Settings, l sepadoc.Logger, opts ...Option) sepadoc.GeneratorFactory {
	return func(ctx context.Context) (sepadoc.Generator, error) {
		return New(ctx, s, l, opts...)
	}
}

// Stamp is the date time stamp shared by the documents of this printer.
func (p *Printer) Stamp() string {
	return p.stamp
}

// Generate fills both templates with the record and assembles its document. The document is named
// {request template}_{stamp}_{record id}.pdf in the output folder.
func (p *Printer) Generate(ctx context.Context, r *sepadoc.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	suffix := "_" + p.stamp + "_" + r.IDString()

	filled := p.engine.SubstituteGrid(p.request, p.tokens.RequestTokens(ctx, r))
	sheetPath := filepath.Join(p.tempFolder, p.requestBase+suffix+".xlsx")
	err := FillSheet(p.requestPath, sheetPath, p.request, filled)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"record_id": r.ID})
	}

	missive := p.engine.SubstituteLines(p.missiveLines, p.tokens.MissiveTokens(ctx, r))
	missivePath := filepath.Join(p.tempFolder, p.missiveBase+suffix+".xml")
	err = os.WriteFile(missivePath, []byte(strings.Join(missive, "\n")+"\n"), 0o644)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrRenderFailed, err.Error(), j.MKV{"record_id": r.ID})
	}

	out := filepath.Join(p.outputFolder, p.requestBase+suffix+".pdf")
	path, err := p.assembler.Assemble(ctx, sheetPath, missivePath, out, p.page)
	if err != nil {
		return "", err
	}

	p.log.Debug(ctx, "document generated", sepadoc.MKV{
		"record_id": r.IDString(),
		"path":      path,
	})

	return path, nil
}

var _ sepadoc.Generator = (*Printer)(nil)

func newEngine(s *sepadoc.Settings) *tmpl.Engine {
	marker := s.StringOr(sepadoc.KeyTokenMarker, tmpl.DefaultMarker)
	return tmpl.New(marker, tmpl.WithPriorityTokens(
		tmpl.Token(marker, AttrClient, "BIC"),
		tmpl.Token(marker, AttrClient, "IBAN"),
	))
}

func newAssembler(s *sepadoc.Settings, o options) (*Assembler, error) {
	return NewAssembler(
		s.StringOr(sepadoc.KeyColourProfile, defaultColourProfile),
		s.StringOr(sepadoc.KeyFont, defaultFont),
		WithAssemblerClock(o.clock),
	)
}

func templateFolder(s *sepadoc.Settings) (string, error) {
	folder := s.StringOr(sepadoc.KeyTemplateFolder, defaultTemplateFolder)

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return "", errors.Wrap(sepadoc.ErrInvalidTemplatePath, "", j.MKV{"path": folder})
	}

	return folder, nil
}

// templateFile resolves the template named by key inside folder. A missing key fails with notDefined, a missing file
// or a directory with notFound.
func templateFile(s *sepadoc.Settings, folder, key string, notDefined, notFound error) (string, error) {
	name := s.StringOr(key, "")
	if name == "" {
		return "", errors.Wrap(notDefined, "", j.MKV{"key": key})
	}

	path := filepath.Join(folder, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", errors.Wrap(notFound, "", j.MKV{"path": path})
	}

	return path, nil
}

// workFolders creates the temp folder and the destination folder named by key.
func workFolders(s *sepadoc.Settings, key, def string) (string, string, error) {
	temp := s.StringOr(sepadoc.KeyTempFolder, defaultTempFolder)
	dest := s.StringOr(key, def)

	for _, folder := range []string{temp, dest} {
		err := os.MkdirAll(folder, 0o755)
		if err != nil {
			return "", "", errors.Wrap(err, "create folder", j.MKV{"path": folder})
		}
	}

	return temp, dest, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}

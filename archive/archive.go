// Package archive bundles the documents of a Send stage and their voucher into one dated zip package.
package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/luno/sepadoc"
)

const (
	// DefaultName prefixes the package name when batch.name is not set.
	DefaultName = "archive_des_demandes_de_règlement"

	defaultTempFolder    = "./temp"
	defaultArchiveFolder = "./archive"
	stampLayout          = "20060102150405"
)

type Archiver struct {
	log           sepadoc.Logger
	clock         clock.Clock
	name          string
	tempFolder    string
	archiveFolder string
}

type Option func(a *Archiver)

func WithClock(c clock.Clock) Option {
	return func(a *Archiver) {
		a.clock = c
	}
}

// New reads batch.name, folder.temp and folder.archive.
func New(s *sepadoc.Settings, l sepadoc.Logger, opts ...Option) *Archiver {
	a := &Archiver{
		log:           sepadoc.NewComponentLogger(l, "archive"),
		clock:         clock.RealClock{},
		name:          s.StringOr(sepadoc.KeyBatchName, DefaultName),
		tempFolder:    s.StringOr(sepadoc.KeyTempFolder, defaultTempFolder),
		archiveFolder: s.StringOr(sepadoc.KeyArchiveFolder, defaultArchiveFolder),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Archive copies documents and voucher into a staging folder, compresses it into {name}_{stamp}.zip in the archive
// folder and removes the staging folder. The package lists the documents in order followed by the voucher. No
// package is written for zero documents.
func (a *Archiver) Archive(ctx context.Context, documents []string, voucher string) (string, error) {
	if len(documents) == 0 {
		return "", nil
	}

	base := a.name + "_" + a.clock.Now().Format(stampLayout)
	staging := filepath.Join(a.tempFolder, base)

	err := os.MkdirAll(staging, 0o755)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrArchiveFailed, err.Error(), j.MKV{"path": staging})
	}
	defer func() {
		err := os.RemoveAll(staging)
		if err != nil {
			a.log.Error(ctx, errors.Wrap(err, "remove staging folder"), sepadoc.MKV{"path": staging})
		}
	}()

	files := documents
	if voucher != "" {
		files = append(append([]string(nil), documents...), voucher)
	}

	var staged []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		dst := filepath.Join(staging, filepath.Base(f))
		err := copyFile(f, dst)
		if err != nil {
			return "", errors.Wrap(sepadoc.ErrArchiveFailed, err.Error(), j.MKV{"path": f})
		}

		staged = append(staged, dst)
	}

	err = os.MkdirAll(a.archiveFolder, 0o755)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrArchiveFailed, err.Error(), j.MKV{"path": a.archiveFolder})
	}

	out := filepath.Join(a.archiveFolder, base+".zip")
	err = a.compress(staged, out)
	if err != nil {
		return "", errors.Wrap(sepadoc.ErrArchiveFailed, err.Error(), j.MKV{"path": out})
	}

	a.log.Info(ctx, "archive written", sepadoc.MKV{"path": out})
	return out, nil
}

// compress writes files into a zip next to out and renames it into place.
func (a *Archiver) compress(files []string, out string) error {
	tmp := out + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	err = writeZip(f, files, a.clock)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	err = os.Rename(tmp, out)
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

func writeZip(w io.Writer, files []string, c clock.Clock) error {
	zw := zip.NewWriter(w)
	for _, path := range files {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     filepath.Base(path),
			Method:   zip.Deflate,
			Modified: c.Now(),
		})
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}

		_, err = io.Copy(entry, src)
		src.Close()
		if err != nil {
			return err
		}
	}

	return zw.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	return err
}

var _ sepadoc.Archiver = (*Archiver)(nil)

package processor

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"

	fixzip "github.com/hidez8891/zip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// zipRemoveDataDescriptors rewrites the container without data descriptor
// records. Some readers choke on them.
func zipRemoveDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return errors.Wrapf(err, "unable to create EPUB: %s", to)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return errors.Wrapf(err, "unable to read EPUB: %s", from)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return errors.Wrapf(err, "unable to copy zip entry: %s", file.Name)
		}
	}
	return nil
}

// writeEPUB zips the temporary directory. The mimetype file always goes
// first and is never compressed.
func (p *Processor) writeEPUB(fname string) error {

	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "unable to create EPUB: %s", fname)
	}
	defer f.Close()

	epub := zip.NewWriter(f)
	defer epub.Close()

	var content bool
	t := time.Now()

	saveFile := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if filepath.ToSlash(path) == filepath.ToSlash(fname) {
			// ignore itself
			return nil
		}
		if content && filepath.ToSlash(filepath.Dir(path)) == filepath.ToSlash(p.tmpDir) {
			// ignore everything in the root directory
			return nil
		}

		rel, err := filepath.Rel(p.tmpDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		var w io.Writer
		if !content {
			if w, err = epub.CreateHeader(&zip.FileHeader{
				Name:     info.Name(),
				Method:   zip.Store,
				Modified: t,
			}); err != nil {
				return err
			}
		} else {
			if w, err = epub.CreateHeader(&zip.FileHeader{
				Name:     rel,
				Method:   zip.Deflate,
				Modified: t,
			}); err != nil {
				return err
			}
		}

		var r io.ReadCloser
		if r, err = os.Open(path); err != nil {
			return err
		}
		defer r.Close()

		if _, err = io.Copy(w, r); err != nil {
			return err
		}
		return nil
	}

	// mimetype should be the first entry in epub
	mt := filepath.Join(p.tmpDir, "mimetype")
	info, err := os.Stat(mt)
	if err != nil {
		return errors.Wrap(err, "unable to find mimetype file")
	}
	if err = saveFile(mt, info, nil); err != nil {
		return errors.Wrap(err, "unable to add mimetype to EPUB")
	}

	content = true

	if err = filepath.Walk(p.tmpDir, saveFile); err != nil {
		return errors.Wrap(err, "unable to add file to EPUB")
	}
	return nil
}

// checkDestination enforces the overwrite policy and makes sure the output
// directory exists.
func (p *Processor) checkDestination(fname string) error {

	if _, err := os.Stat(fname); err == nil {
		if !p.env.Debug && !p.overwrite {
			return errors.Errorf("output already exists: %s", fname)
		}
		p.env.Log.Warn("Overwriting existing output", zap.String("file", fname))
		if err = os.RemoveAll(fname); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(filepath.Dir(fname), 0700)
}

// FinalizeEPUB produces epub file out of previously saved temporary files.
func (p *Processor) FinalizeEPUB(fname string) error {

	if err := p.checkDestination(fname); err != nil {
		return err
	}

	if p.env.Cfg.Doc.FixZip {
		_, tmp := filepath.Split(fname)
		tmp = filepath.Join(p.tmpDir, tmp)

		if err := p.writeEPUB(tmp); err != nil {
			return err
		}
		return zipRemoveDataDescriptors(tmp, fname)
	}
	return p.writeEPUB(fname)
}

// FinalizeXHTML copies transformed documents out of the temporary directory
// into the destination directory.
func (p *Processor) FinalizeXHTML(dname string) error {

	if err := p.checkDestination(dname); err != nil {
		return err
	}

	src := filepath.Join(p.tmpDir, DirContent)
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if p.nodirs {
			rel = filepath.Base(rel)
		}
		to := filepath.Join(dname, rel)
		if err := os.MkdirAll(filepath.Dir(to), 0700); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(to, data, 0644)
	})
}

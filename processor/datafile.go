package processor

import (
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

type dataTransientFlags int

const (
	dataNotForSpine dataTransientFlags = 1 << iota
	dataNotForManifest
)

// dataFile is a single file in the resulting book.
type dataFile struct {
	id        string
	fname     string // path inside the book, always slash separated
	ct        string
	doc       *etree.Document
	data      []byte
	transient dataTransientFlags
}

// flush writes the file under the temporary content directory.
func (f *dataFile) flush(dir string) error {

	path := filepath.Join(dir, filepath.FromSlash(f.fname))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "unable to create directory for %s", f.fname)
	}

	if f.doc != nil {
		return errors.Wrapf(f.doc.WriteToFile(path), "unable to write %s", f.fname)
	}
	return errors.Wrapf(os.WriteFile(path, f.data, 0644), "unable to write %s", f.fname)
}

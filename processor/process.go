// Package processor transforms ThML documents and assembles e-book containers.
package processor

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"thmlconverter/config"
	"thmlconverter/state"
)

// Internal directories of the book container.
const (
	DirContent = "OEBPS"
	DirMeta    = "META-INF"
)

// Processor owns a single conversion: N source documents into one book.
type Processor struct {
	src       string
	dst       string
	nodirs    bool
	overwrite bool
	format    OutputFmt
	env       *state.LocalEnv

	uid    uuid.UUID
	tmpDir string

	docCount int
	book     []*dataFile
	tocs     [][]*TocItem
	meta     *Metadata
	images   []*ImageRef
	fetcher  imageFetcher
}

// NewTHML creates processor for a single book. src is the path conversion
// was requested for (used for output naming), dst the output directory.
func NewTHML(src, dst string, nodirs, overwrite bool, format OutputFmt, env *state.LocalEnv) (*Processor, error) {

	if format != OEpub && format != OXhtml {
		return nil, errors.Errorf("unsupported output format: %s", format)
	}

	tmpDir, err := os.MkdirTemp("", "thmlc-")
	if err != nil {
		return nil, errors.Wrap(err, "unable to create temporary directory")
	}

	p := &Processor{
		src:       src,
		dst:       dst,
		nodirs:    nodirs,
		overwrite: overwrite,
		format:    format,
		env:       env,
		uid:       uuid.New(),
		tmpDir:    tmpDir,
		meta:      NewMetadata(),
		fetcher:   newImageFetcher(env.Cfg.Doc.Images),
	}

	env.Log.Debug("Processor created",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.Stringer("format", format),
		zap.String("tmp", tmpDir),
	)
	return p, nil
}

// AddDocument parses and transforms a single source document, appending it
// to the book in call order. Parse and transformation failures are scoped to
// this document unless they indicate a handler catalogue bug.
func (p *Processor) AddDocument(name string, r io.Reader) error {

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return errors.Wrapf(err, "unable to parse %s", name)
	}

	res, err := NewTransformer(p.env).Transform(doc, true)
	if err != nil {
		return errors.Wrapf(err, "unable to transform %s", name)
	}

	p.docCount++
	p.book = append(p.book, &dataFile{
		id:    fmt.Sprintf("file_%d", p.docCount),
		fname: path.Join(DirContent, fmt.Sprintf("%d.xhtml", p.docCount)),
		ct:    "application/xhtml+xml",
		doc:   res.Doc,
	})
	p.tocs = append(p.tocs, res.TOC)
	p.meta.Merge(res.Meta)
	p.images = append(p.images, res.Images...)

	p.env.Log.Info("Document transformed",
		zap.String("source", name),
		zap.Int("toc entries", len(res.TOC)),
		zap.Int("images", len(res.Images)),
	)
	return nil
}

// Process assembles the book from transformed documents.
func (p *Processor) Process() error {

	if p.docCount == 0 {
		return errors.New("no documents to process")
	}

	steps := []func() error{
		p.fetchImages,
		p.prepareStylesheet,
	}
	if p.format == OEpub {
		steps = append(steps,
			p.generateNCX,
			p.generateOPF,
			p.generateMeta,
		)
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Save flushes assembled book to the temporary directory and returns the
// prepared output path.
func (p *Processor) Save() (string, error) {

	fname, err := p.prepareOutputName()
	if err != nil {
		return "", err
	}

	for _, f := range p.book {
		if err := f.flush(p.tmpDir); err != nil {
			return "", err
		}
	}
	return fname, nil
}

// Clean removes intermediate results unless we are debugging.
func (p *Processor) Clean() error {
	if p.env.Debug {
		p.env.Log.Debug("Keeping intermediate results", zap.String("tmp", p.tmpDir))
		return nil
	}
	return os.RemoveAll(p.tmpDir)
}

// prepareOutputName derives the output path from destination directory,
// naming template and collected metadata.
func (p *Processor) prepareOutputName() (string, error) {

	base := strings.TrimSuffix(filepath.Base(p.src), filepath.Ext(p.src))

	name := base
	if tpl := p.env.Cfg.Doc.FileNameFormat; len(tpl) > 0 {
		var title, author string
		if v, ok := p.meta.First("dc:title"); ok {
			title = v.Value
		}
		if v, ok := p.meta.First("dc:creator"); ok {
			author = v.Value
		}
		expanded, err := expandTemplate("output-name", tpl, Values{
			Title:      title,
			Author:     author,
			SourceFile: base,
			SourceDir:  filepath.Dir(p.src),
			Format:     p.format.String(),
		})
		if err != nil {
			return "", errors.Wrap(err, "unable to prepare output name")
		}
		if len(expanded) > 0 {
			name = expanded
		}
	}

	if p.env.Cfg.Doc.FileNameTransliterate {
		name = slug.Make(name)
	}
	name = config.CleanFileName(name)

	if p.format == OEpub {
		name += ".epub"
	}
	return filepath.Join(p.dst, name), nil
}

package processor

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"thmlconverter/static"
)

// identifier returns the package unique identifier: the first collected
// dc:identifier, or the generated book UUID when the source had none.
func (p *Processor) identifier() (id, value string) {
	if v, ok := p.meta.First("dc:identifier"); ok {
		id = v.Attrs["id"]
		if len(id) == 0 {
			id = "id0"
		}
		return id, v.Value
	}
	return "bookuuid", p.uid.URN()
}

// prepareStylesheet adds the CSS (custom or built-in) to the book and links
// it from every content document.
func (p *Processor) prepareStylesheet() error {

	var data []byte
	var err error
	if fname := p.env.Cfg.Doc.Stylesheet; len(fname) > 0 {
		if !filepath.IsAbs(fname) && len(p.env.Cfg.Path) > 0 {
			fname = filepath.Join(p.env.Cfg.Path, fname)
		}
		data, err = os.ReadFile(fname)
		if err != nil {
			return errors.Wrapf(err, "unable to read stylesheet %s", fname)
		}
	} else {
		data, err = static.Asset("stylesheet.css")
		if err != nil {
			return errors.Wrap(err, "unable to get built-in stylesheet")
		}
	}

	for _, f := range p.book {
		if f.doc == nil || f.ct != "application/xhtml+xml" {
			continue
		}
		root := f.doc.Root()
		head := root.SelectElement("head")
		if head == nil {
			head = etree.NewElement("head")
			root.InsertChildAt(0, head)
		}
		link := head.CreateElement("link")
		link.CreateAttr("rel", "stylesheet")
		link.CreateAttr("type", "text/css")
		link.CreateAttr("href", "stylesheet.css")
	}

	p.book = append(p.book, &dataFile{
		id:        "style",
		fname:     path.Join(DirContent, "stylesheet.css"),
		ct:        "text/css",
		data:      data,
		transient: dataNotForSpine,
	})
	return nil
}

// generateNCX builds the navigation map: all per-document TOC forests in
// spine order with globally sequential play order.
func (p *Processor) generateNCX() error {

	to := etree.NewDocument()
	to.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	to.CreateDirective(`DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd"`)

	ncx := to.CreateElement("ncx")
	ncx.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")
	addMeta := func(name, content string) {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", name)
		meta.CreateAttr("content", content)
	}

	title := "Untitled"
	if v, ok := p.meta.First("dc:title"); ok {
		title = v.Value
	}
	docTitle := ncx.CreateElement("docTitle")
	docTitle.CreateElement("text").SetText(title)

	navMap := ncx.CreateElement("navMap")

	playOrder, maxDepth := 0, 0
	var addPoints func(parent *etree.Element, src string, items []*TocItem, level int)
	addPoints = func(parent *etree.Element, src string, items []*TocItem, level int) {
		if level > maxDepth {
			maxDepth = level
		}
		for _, item := range items {
			playOrder++
			np := parent.CreateElement("navPoint")
			np.CreateAttr("id", fmt.Sprintf("navpoint-%d", playOrder))
			np.CreateAttr("playOrder", fmt.Sprintf("%d", playOrder))
			label := np.CreateElement("navLabel")
			label.CreateElement("text").SetText(item.Title)
			content := np.CreateElement("content")
			content.CreateAttr("src", src+"#"+item.ID)
			addPoints(np, src, item.Children, level+1)
		}
	}
	for i, toc := range p.tocs {
		// content documents are relative to the NCX inside DirContent
		addPoints(navMap, path.Base(p.book[i].fname), toc, 1)
	}

	_, uidValue := p.identifier()
	addMeta("dtb:uid", uidValue)
	addMeta("dtb:depth", fmt.Sprintf("%d", maxDepth))
	addMeta("dtb:totalPageCount", "0")
	addMeta("dtb:maxPageNumber", "0")

	to.Indent(2)
	p.book = append(p.book, &dataFile{
		id:        "ncx",
		fname:     path.Join(DirContent, "toc.ncx"),
		ct:        "application/x-dtbncx+xml",
		doc:       to,
		transient: dataNotForSpine,
	})
	return nil
}

// opfMetaAttrs is the attribute set passed through to package metadata.
var opfMetaAttrs = map[string]bool{
	"id":          true,
	"opf:file-as": true,
	"opf:role":    true,
}

// generateOPF builds the package document: metadata mapped from collected
// bibliographic fields, manifest and spine over everything in the book.
func (p *Processor) generateOPF() error {

	to := etree.NewDocument()
	to.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	idID, idValue := p.identifier()

	pkg := to.CreateElement("package")
	pkg.CreateAttr("version", "2.0")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	pkg.CreateAttr("xmlns:opf", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("unique-identifier", idID)

	meta := pkg.CreateElement("metadata")

	addField := func(name, value string, attrs map[string]string) {
		e := meta.CreateElement(name)
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.CreateAttr(k, attrs[k])
		}
		e.SetText(value)
	}

	hasIdentifier := false
	for _, name := range p.meta.Names() {
		switch name {
		case "dc:creator":
			// merged per role below
		case "dc:language":
			for _, v := range p.meta.Values(name) {
				addField(name, p.normalizeLanguage(v.Value), nil)
			}
		case "dc:identifier":
			for i, v := range p.meta.Values(name) {
				id := v.Attrs["id"]
				if len(id) == 0 {
					id = fmt.Sprintf("id%d", i)
				}
				addField(name, v.Value, map[string]string{"id": id})
			}
			hasIdentifier = true
		default:
			for _, v := range p.meta.Values(name) {
				attrs := make(map[string]string)
				for k, val := range v.Attrs {
					if opfMetaAttrs[k] {
						attrs[k] = val
					}
				}
				addField(name, v.Value, attrs)
			}
		}
	}
	if !hasIdentifier {
		addField("dc:identifier", idValue, map[string]string{"id": idID})
	}

	for _, c := range p.mergeCreators() {
		addField("dc:creator", c.Value, c.Attrs)
	}

	manifest := pkg.CreateElement("manifest")
	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")

	for _, f := range p.book {
		if f.transient&dataNotForManifest != 0 {
			continue
		}
		item := manifest.CreateElement("item")
		item.CreateAttr("id", f.id)
		item.CreateAttr("href", strings.TrimPrefix(f.fname, DirContent+"/"))
		item.CreateAttr("media-type", f.ct)

		if f.transient&dataNotForSpine == 0 {
			ref := spine.CreateElement("itemref")
			ref.CreateAttr("idref", f.id)
			ref.CreateAttr("linear", "yes")
		}
	}

	to.Indent(2)
	p.book = append(p.book, &dataFile{
		id:        "opf",
		fname:     path.Join(DirContent, "content.opf"),
		ct:        "application/oebps-package+xml",
		doc:       to,
		transient: dataNotForSpine | dataNotForManifest,
	})
	return nil
}

// mergeCreators folds collected creator values into one entry per role,
// combining the "file-as" and "short-form" schemes the way package metadata
// expects them.
func (p *Processor) mergeCreators() []MetaValue {

	short := make(map[string]string)
	fileAs := make(map[string]string)
	for _, v := range p.meta.Values("dc:creator") {
		role := mapCreatorRole(v.Attrs["sub"], p.env)
		switch v.Attrs["scheme"] {
		case "file-as":
			fileAs[role] = v.Value
		case "short-form":
			short[role] = v.Value
		}
	}

	roles := make([]string, 0, len(short)+len(fileAs))
	for role := range short {
		roles = append(roles, role)
	}
	for role := range fileAs {
		if _, ok := short[role]; !ok {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)

	res := make([]MetaValue, 0, len(roles))
	for _, role := range roles {
		c, cFileAs := short[role], fileAs[role]
		if len(c) == 0 {
			c = cFileAs
		}
		if len(cFileAs) == 0 {
			cFileAs = c
		}
		res = append(res, MetaValue{
			Value: c,
			Attrs: map[string]string{"opf:file-as": cFileAs, "opf:role": role},
		})
	}
	return res
}

// normalizeLanguage maps collected language values to canonical BCP 47 tags.
func (p *Processor) normalizeLanguage(value string) string {
	tag, err := language.Parse(value)
	if err != nil {
		p.env.Log.Warn("Unable to recognize document language", zap.String("language", value))
		p.env.Rpt.Add(rptBadLanguage, value)
		return value
	}
	p.env.Log.Debug("Document language",
		zap.Stringer("tag", tag),
		zap.String("name", display.English.Languages().Name(tag)))
	return tag.String()
}

// generateMeta adds container files: OCF locator and mimetype.
func (p *Processor) generateMeta() error {

	to := etree.NewDocument()
	to.CreateProcInst("xml", `version="1.0"`)

	container := to.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")
	rootfile := container.CreateElement("rootfiles").CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(DirContent, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")
	to.Indent(2)

	p.book = append(p.book,
		&dataFile{
			id:        "container",
			fname:     path.Join(DirMeta, "container.xml"),
			ct:        "text/xml",
			doc:       to,
			transient: dataNotForSpine | dataNotForManifest,
		},
		&dataFile{
			id:        "mimetype",
			fname:     "mimetype",
			ct:        "text/plain",
			data:      []byte("application/epub+zip"),
			transient: dataNotForSpine | dataNotForManifest,
		},
	)
	return nil
}

package processor

import (
	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"thmlconverter/state"
)

// ErrConfiguration marks fatal handler catalogue contradictions - bugs in
// the catalogue rather than bad input. They always abort the conversion.
var ErrConfiguration = errors.New("handler catalogue misconfiguration")

const xhtmlDoctype = `DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd"`

// Transformer converts one parsed source tree into an XHTML tree. Each
// instance owns a fresh handler catalogue and is good for any number of
// documents - per-document state lives in docContext, created per run.
type Transformer struct {
	env      *state.LocalEnv
	handlers []handler
	fallback handler
}

// NewTransformer creates transformer with the full handler catalogue.
func NewTransformer(env *state.LocalEnv) *Transformer {
	return &Transformer{
		env:      env,
		handlers: catalogue(),
		fallback: unwrap("*"),
	}
}

// Result is everything one document transformation produces.
type Result struct {
	Doc    *etree.Document
	Root   *etree.Element
	TOC    []*TocItem
	Meta   *Metadata
	Images []*ImageRef
}

// Transform rewrites the source tree. With full set the output is a complete
// standalone document (XML declaration, doctype, namespace), otherwise a bare
// fragment.
func (t *Transformer) Transform(doc *etree.Document, full bool) (*Result, error) {

	in := doc.Root()
	if in == nil {
		return nil, errors.New("document has no root element")
	}

	ctx := newDocContext(t.env)

	// temporary holder, stripped again below
	holder := etree.NewElement("root")
	if err := t.descend(ctx, in, holder); err != nil {
		return nil, err
	}

	children := holder.ChildElements()
	if len(children) != 1 {
		return nil, errors.Wrapf(ErrConfiguration, "expected single document root, got %d elements", len(children))
	}
	root := children[0]

	for _, h := range t.handlers {
		if f, ok := h.(finalizer); ok {
			if err := f.finalize(ctx, root); err != nil {
				return nil, err
			}
		}
	}

	holder.RemoveChild(root)

	out := etree.NewDocument()
	if full {
		out.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
		out.CreateDirective(xhtmlDoctype)
		root.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	}
	out.SetRoot(root)

	return &Result{
		Doc:    out,
		Root:   root,
		TOC:    ctx.tocItems,
		Meta:   ctx.meta,
		Images: ctx.images,
	}, nil
}

// descend processes one input node and recurses into its children.
//
// All matching handlers run; when none match the universal fallback unwraps
// the node with a warning. After the run two consistency rules hold: descend
// flags of all handlers must agree, and when descending exactly one handler
// must have produced a destination parent. Violations are catalogue bugs and
// abort the conversion.
func (t *Transformer) descend(ctx *docContext, from, outputParent *etree.Element) error {

	type outcome struct {
		descend bool
		parent  *etree.Element
	}

	var results []outcome
	matched := false
	for _, h := range t.handlers {
		if !h.match(from) {
			continue
		}
		matched = true
		d, p := h.transform(ctx, from, outputParent)
		results = append(results, outcome{d, p})
	}
	if !matched {
		ctx.warnUnhandled(from)
		d, p := t.fallback.transform(ctx, from, outputParent)
		results = append(results, outcome{d, p})
	}

	shouldDescend := false
	for _, r := range results {
		if r.descend {
			shouldDescend = true
			break
		}
	}
	if !shouldDescend {
		return nil
	}
	for _, r := range results {
		if !r.descend {
			return errors.Wrapf(ErrConfiguration, "handlers disagree on descend for <%s> at %s", from.Tag, from.GetPath())
		}
	}

	var parent *etree.Element
	for _, r := range results {
		if r.parent == nil {
			continue
		}
		if parent != nil {
			return errors.Wrapf(ErrConfiguration, "ambiguous destination for children of <%s> at %s", from.Tag, from.GetPath())
		}
		parent = r.parent
	}
	if parent == nil {
		return errors.Wrapf(ErrConfiguration, "no destination for children of <%s> at %s", from.Tag, from.GetPath())
	}

	for _, child := range from.ChildElements() {
		if err := t.descend(ctx, child, parent); err != nil {
			return err
		}
	}
	return nil
}

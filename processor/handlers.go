package processor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// handler is a single unit of transformation logic. transform converts one
// input node into zero or one output node appended under outputParent and
// reports whether the dispatcher should descend into input children and, if
// so, which output node receives them. Handlers are stateless - everything
// accumulated across the document lives in docContext.
type handler interface {
	match(from *etree.Element) bool
	transform(ctx *docContext, from, outputParent *etree.Element) (descend bool, newParent *etree.Element)
}

// finalizer is implemented by handlers that need a structural pass after the
// whole document has been descended. Finalizers run in catalogue order.
type finalizer interface {
	finalize(ctx *docContext, root *etree.Element) error
}

// matcher combines a tag name test (or universal wildcard) with an optional
// attribute predicate.
type matcher struct {
	tag  string
	pred func(from *etree.Element) bool
}

func (m matcher) match(from *etree.Element) bool {
	if m.tag != "*" && m.tag != from.Tag {
		return false
	}
	if m.pred != nil {
		return m.pred(from)
	}
	return true
}

// Per-attribute policy for rename-and-filter handlers.
type attrAction int

const (
	attrCopy attrAction = iota
	attrDrop
)

// mergeAttrs combines allow-lists, later tables winning.
func mergeAttrs(tables ...map[string]attrAction) map[string]attrAction {
	res := make(map[string]attrAction)
	for _, t := range tables {
		for k, v := range t {
			res[k] = v
		}
	}
	return res
}

// baseAttrs is the default attribute policy shared by most element mappings.
var baseAttrs = map[string]attrAction{
	"style": attrDrop, // often just causes problems
	"id":    attrCopy,
	"class": attrCopy,
	"lang":  attrCopy,
	"title": attrCopy,
	"dir":   attrCopy,
}

// divAttrs drops the structural bookkeeping attributes of ThML divisions.
var divAttrs = mergeAttrs(baseAttrs, map[string]attrAction{
	"n":          attrDrop,
	"shorttitle": attrDrop,
	"title":      attrDrop,
	"progress":   attrDrop,
	"type":       attrDrop,
	"filebreak":  attrDrop,
	"prev":       attrDrop,
	"next":       attrDrop,
})

var tableAttrs = mergeAttrs(baseAttrs, map[string]attrAction{
	"align":       attrCopy,
	"valign":      attrCopy,
	"border":      attrCopy,
	"cellspacing": attrCopy,
	"cellpadding": attrCopy,
	"rowspan":     attrCopy,
	"colspan":     attrCopy,
	"width":       attrCopy,
})

// mapHandler renames a node, copies through allow-listed attributes and
// injects fixed ones. Unknown attributes are dropped with a warning, never
// silently.
type mapHandler struct {
	matcher
	to    string
	allow map[string]attrAction
	add   [][2]string
}

func (h *mapHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	e := outputParent.CreateElement(h.to)
	if t := from.Text(); len(t) > 0 {
		e.SetText(t)
	}
	if t := from.Tail(); len(t) > 0 {
		e.SetTail(t)
	}
	for _, a := range from.Attr {
		key := a.FullKey()
		action, ok := h.allow[key]
		if !ok {
			ctx.warnAttr(key, from)
			continue
		}
		if action == attrCopy {
			e.CreateAttr(key, a.Value)
		}
	}
	for _, kv := range h.add {
		e.CreateAttr(kv[0], kv[1])
	}
	return true, e
}

func mapTo(from, to string, allow map[string]attrAction, add ...[2]string) *mapHandler {
	return &mapHandler{matcher: matcher{tag: from}, to: to, allow: allow, add: add}
}

func mapToIf(from, to string, allow map[string]attrAction, pred func(*etree.Element) bool) *mapHandler {
	return &mapHandler{matcher: matcher{tag: from, pred: pred}, to: to, allow: allow}
}

// unwrapHandler discards the node itself but keeps its text, tail and
// children, splicing them into the current output parent.
type unwrapHandler struct {
	matcher
}

func (h *unwrapHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	appendText(outputParent, from.Text())
	appendText(outputParent, from.Tail())
	return true, outputParent
}

func unwrap(tag string) *unwrapHandler {
	return &unwrapHandler{matcher{tag: tag}}
}

// deleteHandler drops the node and all descendants, preserving tail text at
// the deletion point.
type deleteHandler struct {
	matcher
}

func (h *deleteHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	appendText(outputParent, from.Tail())
	return false, nil
}

func remove(tag string) *deleteHandler {
	return &deleteHandler{matcher{tag: tag}}
}

func removeIf(tag string, pred func(*etree.Element) bool) *deleteHandler {
	return &deleteHandler{matcher{tag: tag, pred: pred}}
}

// readHandler consumes no content of its own but lets the dispatcher descend
// into children reusing the same output parent.
type readHandler struct {
	matcher
}

func (h *readHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	return true, outputParent
}

func read(tag string) *readHandler {
	return &readHandler{matcher{tag: tag}}
}

// divHandler maps a ThML division and, when the source carries a title,
// registers a TOC entry anchored at the produced node.
type divHandler struct {
	mapHandler
}

func (h *divHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	descend, node := h.mapHandler.transform(ctx, from, outputParent)
	if node != nil && from.SelectAttr("title") != nil {
		ctx.registerTOC(node, getAttrValue(from, "title"))
	}
	return descend, node
}

func div(from string) *divHandler {
	return &divHandler{mapHandler{matcher: matcher{tag: from}, to: "div", allow: divAttrs}}
}

// anchorHandler reduces same-document references to bare fragments.
type anchorHandler struct {
	mapHandler
}

func (h *anchorHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	descend, node := h.mapHandler.transform(ctx, from, outputParent)
	if node != nil {
		if href := getAttrValue(node, "href"); len(href) > 0 {
			if u, err := url.Parse(href); err == nil && len(u.Host) == 0 && len(u.Fragment) > 0 {
				// strip query and path, only want the fragment
				node.CreateAttr("href", "#"+u.Fragment)
			}
		}
	}
	return descend, node
}

func anchor() *anchorHandler {
	return &anchorHandler{mapHandler{
		matcher: matcher{tag: "a"},
		to:      "a",
		allow:   mergeAttrs(baseAttrs, map[string]attrAction{"href": attrCopy, "name": attrCopy}),
	}}
}

// imgHandler maps images and registers references for the fetch-and-cache
// step that runs after descent. The engine itself never touches the network.
type imgHandler struct {
	mapHandler
}

func (h *imgHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	descend, node := h.mapHandler.transform(ctx, from, outputParent)
	if node != nil && ctx.collectImages {
		if src := getAttrValue(node, "src"); len(src) > 0 {
			ctx.images = append(ctx.images, &ImageRef{node: node, src: src})
		}
	}
	return descend, node
}

func img() *imgHandler {
	return &imgHandler{mapHandler{
		matcher: matcher{tag: "img"},
		to:      "img",
		allow:   mergeAttrs(baseAttrs, map[string]attrAction{"src": attrCopy, "alt": attrCopy, "height": attrCopy, "width": attrCopy}),
	}}
}

// lineHandler maps poetry lines to spans and appends an explicit break to
// each one after the document is complete.
type lineHandler struct {
	mapHandler
}

func (h *lineHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	descend, node := h.mapHandler.transform(ctx, from, outputParent)
	if node != nil {
		ctx.lines = append(ctx.lines, node)
	}
	return descend, node
}

func (h *lineHandler) finalize(ctx *docContext, root *etree.Element) error {
	// break must appear right at the end of the line, after any children
	for _, node := range ctx.lines {
		node.CreateElement("br")
	}
	return nil
}

func line() *lineHandler {
	return &lineHandler{mapHandler{
		matcher: matcher{tag: "l"},
		to:      "span",
		allow:   baseAttrs,
		add:     [][2]string{{"class", "line"}},
	}}
}

// fixPassageRef normalizes dotted passage references ("Gen.1.1") into the
// spaced form lookup services expect.
func fixPassageRef(ref string) string {
	// TODO expand osisRef book abbreviations
	return strings.ReplaceAll(ref, ".", " ")
}

// scripRefHandler turns scripture references into external lookup links
// built from the "passage" attribute.
type scripRefHandler struct {
	mapHandler
}

func (h *scripRefHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	descend, node := h.mapHandler.transform(ctx, from, outputParent)
	if node == nil {
		return descend, node
	}
	passage := getAttrValue(from, "passage")
	if len(passage) == 0 {
		ctx.warn(rptMissingField, "passage", "Scripture reference without passage",
			zap.String("path", from.GetPath()))
		node.CreateAttr("href", "#")
		return descend, node
	}
	href := fmt.Sprintf(ctx.scripRefURL, url.PathEscape(fixPassageRef(passage)))
	if !govalidator.IsRequestURL(href) {
		ctx.warn(rptMissingField, "scripref_url", "Scripture lookup URL is not valid",
			zap.String("url", href))
		href = "#"
	}
	node.CreateAttr("href", href)
	return descend, node
}

func scripRef() *scripRefHandler {
	return &scripRefHandler{mapHandler{
		matcher: matcher{tag: "scripRef"},
		to:      "a",
		allow: mergeAttrs(baseAttrs, map[string]attrAction{
			"passage": attrDrop,
			"parsed":  attrDrop,
			"version": attrDrop,
			"osisRef": attrDrop,
		}),
	}}
}

// dcHandler collects bibliographic fields from children of the metadata
// block and injects the document title during finalization.
type dcHandler struct{}

func (h *dcHandler) match(from *etree.Element) bool {
	p := from.Parent()
	return p != nil && p.Tag == "DC"
}

func (h *dcHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {
	if t := from.Text(); len(t) > 0 {
		ctx.meta.Add(metaFieldName(from.Tag), t, attrMap(from))
	}
	return false, nil
}

func (h *dcHandler) finalize(ctx *docContext, root *etree.Element) error {
	// title element is required for output validity
	if v, ok := ctx.meta.First("dc:title"); ok {
		if head := root.SelectElement("head"); head != nil {
			head.CreateElement("title").SetText(v.Value)
		}
	}
	return nil
}

// catalogue builds the ordered handler set. All elements are matched
// explicitly, even the ones identical in source and output, so anything
// unexpected surfaces as a fallback warning instead of leaking through.
func catalogue() []handler {
	return []handler{
		// ThML structure
		mapTo("ThML", "html", nil),
		mapTo("ThML.head", "head", nil),
		mapTo("ThML.body", "body", nil),
		div("div1"),
		div("div2"),
		div("div3"),
		div("div4"),
		div("div5"),
		mapTo("verse", "div", mergeAttrs(baseAttrs, map[string]attrAction{"type": attrDrop}), [2]string{"class", "verse"}),
		mapTo("scripCom", "div", mergeAttrs(baseAttrs, map[string]attrAction{
			"parsed":  attrDrop,
			"osisRef": attrDrop,
			"passage": attrDrop,
			"type":    attrDrop,
		}), [2]string{"class", "scripCom"}),
		mapTo("scripture", "blockquote", mergeAttrs(baseAttrs, map[string]attrAction{
			"passage": attrDrop,
			"parsed":  attrDrop,
			"osisRef": attrDrop,
		})),
		line(),
		scripRef(),
		mapTo("pb", "br", mergeAttrs(baseAttrs, map[string]attrAction{"n": attrDrop, "href": attrDrop})),
		&noteHandler{},
		mapTo("name", "span", baseAttrs),
		mapTo("attr", "span", baseAttrs),

		unwrap("unclear"),
		unwrap("added"),
		remove("deleted"),
		remove("insertIndex"),

		// HTML header
		mapTo("title", "title", nil),
		remove("link"),
		remove("script"),
		mapToIf("style", "style", map[string]attrAction{"type": attrCopy}, func(e *etree.Element) bool {
			return getAttrValue(e, "type") == "text/css"
		}),
		removeIf("style", func(e *etree.Element) bool {
			return getAttrValue(e, "type") == "text/xcss"
		}),

		// HTML block
		mapTo("p", "p", baseAttrs),
		mapTo("div", "div", baseAttrs),
		mapTo("h1", "h1", baseAttrs),
		mapTo("h2", "h2", baseAttrs),
		mapTo("h3", "h3", baseAttrs),
		mapTo("h4", "h4", baseAttrs),
		mapTo("h5", "h5", baseAttrs),
		mapTo("h6", "h6", baseAttrs),
		mapTo("table", "table", tableAttrs),
		mapTo("tbody", "tbody", tableAttrs),
		mapTo("thead", "thead", tableAttrs),
		mapTo("colgroup", "colgroup", tableAttrs),
		mapTo("col", "col", tableAttrs),
		mapTo("tr", "tr", tableAttrs),
		mapTo("td", "td", tableAttrs),
		mapTo("th", "th", tableAttrs),
		mapTo("br", "br", baseAttrs),
		img(),
		mapTo("ul", "ul", baseAttrs),
		mapTo("ol", "ol", baseAttrs),
		mapTo("li", "li", baseAttrs),
		mapTo("blockquote", "blockquote", baseAttrs),
		mapTo("address", "address", baseAttrs),
		mapTo("hr", "hr", baseAttrs),
		mapTo("pre", "pre", baseAttrs),

		// HTML inline
		anchor(),
		mapTo("b", "b", baseAttrs),
		mapTo("i", "i", baseAttrs),
		mapTo("em", "em", baseAttrs),
		mapTo("small", "small", baseAttrs),
		mapTo("strong", "strong", baseAttrs),
		mapTo("span", "span", baseAttrs),
		mapTo("sub", "sub", baseAttrs),
		mapTo("sup", "sup", baseAttrs),
		mapTo("abbr", "abbr", baseAttrs),
		mapTo("cite", "cite", baseAttrs),

		// bibliographic metadata
		read("DC"),
		read("electronicEdInfo"),
		&dcHandler{},

		remove("generalInfo"),
		remove("comments"),
		remove("printSourceInfo"),
		remove("publisherID"),
		remove("authorID"),
		remove("bookID"),
		remove("version"),
		remove("series"),
		remove("editorialComments"),
		remove("revisionHistory"),
		remove("status"),
	}
}

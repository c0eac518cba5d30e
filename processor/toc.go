package processor

import (
	"fmt"

	"github.com/beevik/etree"
)

// TocItem is a single entry in the document's table of contents forest.
type TocItem struct {
	Title    string
	ID       string
	Children []*TocItem
}

// Equal compares items structurally.
func (t *TocItem) Equal(other *TocItem) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Title != other.Title || t.ID != other.ID || len(t.Children) != len(other.Children) {
		return false
	}
	for i, c := range t.Children {
		if !c.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// EqualToc compares TOC forests structurally.
func EqualToc(a, b []*TocItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// registerTOC creates a TOC item anchored at the produced output node. The
// anchor id is the author-supplied one when present, generated otherwise.
// Parent item is found by walking the OUTPUT ancestry, which at this point
// contains exactly the nodes produced before the current one - input nesting
// does not matter after unwrapping.
func (ctx *docContext) registerTOC(out *etree.Element, title string) {

	ctx.tocCount++

	id := getAttrValue(out, "id")
	if len(id) == 0 {
		id = fmt.Sprintf("_auto_%d", ctx.tocCount)
	}
	out.CreateAttr("id", id)

	item := &TocItem{Title: title, ID: id}

	var parent *TocItem
	for n := out.Parent(); n != nil; n = n.Parent() {
		if it, ok := ctx.tocNodes[n]; ok {
			parent = it
			break
		}
	}
	if parent == nil {
		ctx.tocItems = append(ctx.tocItems, item)
	} else {
		parent.Children = append(parent.Children, item)
	}
	ctx.tocNodes[out] = item
}

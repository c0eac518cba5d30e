package processor

import (
	"github.com/beevik/etree"
)

// addText appends to the character data following the element's opening tag.
func addText(e *etree.Element, text string) {
	if len(text) == 0 {
		return
	}
	if t := e.Text(); len(t) > 0 {
		e.SetText(t + text)
	} else {
		e.SetText(text)
	}
}

// addTail appends to the character data following the element's closing tag.
func addTail(e *etree.Element, tail string) {
	if len(tail) == 0 {
		return
	}
	if t := e.Tail(); len(t) > 0 {
		e.SetTail(t + tail)
	} else {
		e.SetTail(tail)
	}
}

// appendText adds text to the trailing content position of parent: to the tail
// of the last element child when there is one, otherwise to parent's own text.
// Existing content is never overwritten.
func appendText(parent *etree.Element, text string) {
	if len(text) == 0 {
		return
	}
	if children := parent.ChildElements(); len(children) > 0 {
		addTail(children[len(children)-1], text)
	} else {
		addText(parent, text)
	}
}

// getAttrValue returns value of requested element attribute or empty string.
func getAttrValue(e *etree.Element, key string) string {
	return e.SelectAttrValue(key, "")
}

// attrMap copies element attributes into a plain map.
func attrMap(e *etree.Element) map[string]string {
	if len(e.Attr) == 0 {
		return nil
	}
	res := make(map[string]string, len(e.Attr))
	for _, a := range e.Attr {
		res[a.FullKey()] = a.Value
	}
	return res
}

package processor

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// noteRec pairs an inline anchor already placed in the output with a note
// body awaiting relocation. Sequence numbers are assigned in document order,
// starting at 1 per document.
type noteRec struct {
	seq    int
	anchor *etree.Element
	body   *etree.Element
}

// noteHandler extracts inline notes into anchor/back-reference pairs. The
// note body is not placed into the tree during descent - finalize relocates
// all bodies into per-container notes sections.
type noteHandler struct{}

func (h *noteHandler) match(from *etree.Element) bool {
	return from.Tag == "note"
}

func (h *noteHandler) transform(ctx *docContext, from, outputParent *etree.Element) (bool, *etree.Element) {

	num := len(ctx.notes) + 1

	noteID := getAttrValue(from, "id")
	if len(noteID) == 0 {
		noteID = fmt.Sprintf("_note_%d", num)
	}

	body := etree.NewElement("div")
	body.CreateAttr("id", noteID)
	body.CreateAttr("class", "note")

	anchorID := fmt.Sprintf("_noteref_%d", num)
	anchor := outputParent.CreateElement("a")
	anchor.CreateAttr("href", "#"+noteID)
	anchor.CreateAttr("id", anchorID)
	if t := from.Tail(); len(t) > 0 {
		anchor.SetTail(t)
	}
	anchor.CreateElement("sup").SetText(fmt.Sprintf("[%d]", num))

	// back-reference first, the note's own text follows it
	back := body.CreateElement("a")
	back.CreateAttr("href", "#"+anchorID)
	back.SetText(fmt.Sprintf("[^%d]", num))
	back.SetTail(" " + from.Text())

	ctx.notes = append(ctx.notes, &noteRec{seq: num, anchor: anchor, body: body})

	// note markup has to end up inside the body, not inline
	return true, body
}

func (h *noteHandler) finalize(ctx *docContext, root *etree.Element) error {

	sections := make(map[*etree.Element]*etree.Element)

	for _, rec := range ctx.notes {
		container := nearestContainer(rec.anchor)
		if container == nil {
			if ctx.strictNotes {
				return errors.Errorf("no container for footnote %d at %s", rec.seq, rec.anchor.GetPath())
			}
			ctx.warn(rptOrphanedNote, fmt.Sprintf("[%d]", rec.seq),
				"No container found to place footnote, dropping note body",
				zap.Int("note", rec.seq), zap.String("path", rec.anchor.GetPath()))
			continue
		}
		section, ok := sections[container]
		if !ok {
			section = container.CreateElement("div")
			section.CreateAttr("class", "notes")
			sections[container] = section
		}
		section.AddChild(rec.body)
	}
	return nil
}

// nearestContainer returns the closest output ancestor eligible to host a
// notes section.
func nearestContainer(node *etree.Element) *etree.Element {
	for n := node.Parent(); n != nil; n = n.Parent() {
		if n.Tag == "div" {
			return n
		}
	}
	return nil
}

package processor

import (
	"strings"
	"testing"

	"thmlconverter/config"
)

func TestNoteRelocation(t *testing.T) {

	in := `<ThML><div1><p>Peter<note>a <i>complete</i> idiot</note> said...</p></div1></ThML>`
	out, _ := transformString(t, testEnv(), in)

	expected := `<html><div>` +
		`<p>Peter<a href="#_note_1" id="_noteref_1"><sup>[1]</sup></a> said...</p>` +
		`<div class="notes">` +
		`<div id="_note_1" class="note"><a href="#_noteref_1">[^1]</a> a <i>complete</i> idiot</div>` +
		`</div>` +
		`</div></html>`
	if out != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n[%s]\nGOT:\n[%s]", expected, out)
	}
	t.Logf("OK - %s", t.Name())
}

func TestNoteNumbering(t *testing.T) {

	in := `<ThML><div1><p>one<note>first</note></p><p>two<note>second</note></p></div1></ThML>`
	out, _ := transformString(t, testEnv(), in)

	// anchors and bodies share strictly increasing numbers, all bodies of one
	// container end up in a single notes section in sequence order
	expected := `<html><div>` +
		`<p>one<a href="#_note_1" id="_noteref_1"><sup>[1]</sup></a></p>` +
		`<p>two<a href="#_note_2" id="_noteref_2"><sup>[2]</sup></a></p>` +
		`<div class="notes">` +
		`<div id="_note_1" class="note"><a href="#_noteref_1">[^1]</a> first</div>` +
		`<div id="_note_2" class="note"><a href="#_noteref_2">[^2]</a> second</div>` +
		`</div>` +
		`</div></html>`
	if out != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n[%s]\nGOT:\n[%s]", expected, out)
	}
	t.Logf("OK - %s", t.Name())
}

func TestNoteNearestContainer(t *testing.T) {

	in := `<ThML><div1><div2><p>x<note>inner</note></p></div2></div1></ThML>`
	out, _ := transformString(t, testEnv(), in)

	// the notes section belongs to the nearest enclosing container
	if !strings.Contains(out, `<div><p>x<a href="#_note_1" id="_noteref_1"><sup>[1]</sup></a></p><div class="notes">`) {
		t.Fatalf("BAD RESULT: note body should be placed in the nearest container:\n%s", out)
	}
	t.Logf("OK - %s", t.Name())
}

func TestNoteKeepsAuthorId(t *testing.T) {

	in := `<ThML><div1><p>x<note id="n12">text</note></p></div1></ThML>`
	out, _ := transformString(t, testEnv(), in)

	for i, part := range []string{
		`<a href="#n12" id="_noteref_1"><sup>[1]</sup></a>`,
		`<div id="n12" class="note">`,
	} {
		if !strings.Contains(out, part) {
			t.Fatalf("BAD RESULT for part %d, missing [%s] in:\n%s", i, part, out)
		}
	}
	t.Logf("OK - %s", t.Name())
}

func TestNoteWithoutContainer(t *testing.T) {

	env := testEnv()
	in := `<ThML><p>x<note>lost</note></p></ThML>`
	out, _ := transformString(t, env, in)

	// no enclosing container - the body is dropped, the anchor stays
	expected := `<html><p>x<a href="#_note_1" id="_noteref_1"><sup>[1]</sup></a></p></html>`
	if out != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n[%s]\nGOT:\n[%s]", expected, out)
	}
	if env.Rpt.Count("orphaned note") != 1 {
		t.Fatalf("BAD RESULT: orphaned note should have been reported once, got %d", env.Rpt.Count("orphaned note"))
	}
	t.Logf("OK - %s", t.Name())
}

func TestNoteStrictMode(t *testing.T) {

	env := testEnv()
	env.Cfg = &config.Config{}
	env.Cfg.Doc.StrictNotes = true

	tr := NewTransformer(env)
	doc := newTestDoc(t, `<ThML><p>x<note>lost</note></p></ThML>`)
	if _, err := tr.Transform(doc, false); err == nil {
		t.Fatalf("BAD RESULT: strict mode should fail on an orphaned note")
	}
	t.Logf("OK - %s", t.Name())
}

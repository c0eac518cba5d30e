package processor

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"thmlconverter/state"
)

func testEnv() *state.LocalEnv {
	env := state.NewLocalEnv()
	env.Log = zap.NewNop()
	return env
}

func newTestDoc(t *testing.T, in string) *etree.Document {
	t.Helper()

	doc := etree.NewDocument()
	if err := doc.ReadFromString(in); err != nil {
		t.Fatalf("unable to parse test input [%s]: %v", in, err)
	}
	return doc
}

func transformString(t *testing.T, env *state.LocalEnv, in string) (string, *Result) {
	t.Helper()

	doc := newTestDoc(t, in)
	res, err := NewTransformer(env).Transform(doc, false)
	if err != nil {
		t.Fatalf("unable to transform [%s]: %v", in, err)
	}
	out, err := res.Doc.WriteToString()
	if err != nil {
		t.Fatalf("unable to serialize result for [%s]: %v", in, err)
	}
	return strings.TrimSpace(out), res
}

func TestTransformElements(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`<ThML></ThML>`, `<html/>`},
		{`<ThML>Hello</ThML>`, `<html>Hello</html>`},
		{`<ThML><p>Hello</p></ThML>`, `<html><p>Hello</p></html>`},
		{`<ThML>Some <deleted>deleted</deleted>text</ThML>`, `<html>Some text</html>`},
		{`<ThML>Some <b>not deleted text</b> and <deleted>deleted</deleted>text</ThML>`, `<html>Some <b>not deleted text</b> and text</html>`},
		{`<ThML>Some <deleted><b>really deleted</b></deleted>text</ThML>`, `<html>Some text</html>`},
		{`<ThML>Some <added>added</added> text</ThML>`, `<html>Some added text</html>`},
		{`<ThML><added>Some added text</added></ThML>`, `<html>Some added text</html>`},
		{`<ThML>Some <b>bold</b> and <added>added</added> text</ThML>`, `<html>Some <b>bold</b> and added text</html>`},
		{`<ThML>Some <added>added <b>and bold</b> text</added></ThML>`, `<html>Some added <b>and bold</b> text</html>`},
		{`<ThML><l>A line</l></ThML>`, `<html><span class="line">A line<br/></span></html>`},
		{`<ThML><ThML.head><title>The Title</title></ThML.head></ThML>`, `<html><head><title>The Title</title></head></html>`},
		{`<ThML><style type="text/css">foo</style></ThML>`, `<html><style type="text/css">foo</style></html>`},
		{`<ThML><style type="text/xcss">foo</style></ThML>`, `<html/>`},
	}

	for i, c := range cases {
		res, _ := transformString(t, testEnv(), c.in)
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestTransformDivisions(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`<ThML><div1><div2>Some text</div2>And more</div1></ThML>`, `<html><div><div>Some text</div>And more</div></html>`},
		{`<ThML><verse>line</verse></ThML>`, `<html><div class="verse">line</div></html>`},
		{`<ThML><scripCom type="x">comment</scripCom></ThML>`, `<html><div class="scripCom">comment</div></html>`},
	}

	for i, c := range cases {
		res, _ := transformString(t, testEnv(), c.in)
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestTransformAttributes(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{`<ThML><p id="foo">Hi</p></ThML>`, `<html><p id="foo">Hi</p></html>`},
		{`<ThML><pb n="ii" id="i"/></ThML>`, `<html><br id="i"/></html>`},
		{`<ThML><p bogus="x">Hi</p></ThML>`, `<html><p>Hi</p></html>`},
		{`<ThML><p style="color: red" class="intro">Hi</p></ThML>`, `<html><p class="intro">Hi</p></html>`},
		{`<ThML><td align="left" rowspan="2">x</td></ThML>`, `<html><td align="left" rowspan="2">x</td></html>`},
		{`<ThML><a href="http://example.com/page#sec">x</a></ThML>`, `<html><a href="http://example.com/page#sec">x</a></html>`},
		{`<ThML><a href="page.html?q=1#sec">x</a></ThML>`, `<html><a href="#sec">x</a></html>`},
	}

	for i, c := range cases {
		res, _ := transformString(t, testEnv(), c.in)
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestTransformFallback(t *testing.T) {

	env := testEnv()
	res, _ := transformString(t, env, `<ThML>Some <foobar>odd markup</foobar> here</ThML>`)

	expected := `<html>Some odd markup here</html>`
	if res != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n[%s]\nGOT:\n[%s]", expected, res)
	}
	if env.Rpt.Count("unhandled tag") != 1 {
		t.Fatalf("BAD RESULT: fallback should have been reported once, got %d", env.Rpt.Count("unhandled tag"))
	}
	t.Logf("OK - %s", t.Name())
}

func TestDispatcherConsistency(t *testing.T) {

	transform := func(handlers []handler, in string) error {
		tr := &Transformer{env: testEnv(), handlers: handlers, fallback: unwrap("*")}
		_, err := tr.Transform(newTestDoc(t, in), false)
		return err
	}

	// descend flags of all matching handlers must agree
	err := transform(
		[]handler{mapTo("Root", "div", nil), read("x"), remove("x")},
		`<Root><x>1</x></Root>`)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("BAD RESULT: expected configuration error for disagreeing descend flags, got %v", err)
	}

	// only one handler may produce a destination for children
	err = transform(
		[]handler{mapTo("Root", "div", nil), mapTo("x", "a", nil), mapTo("x", "b", nil)},
		`<Root><x>1</x></Root>`)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("BAD RESULT: expected configuration error for ambiguous destination, got %v", err)
	}

	// mutually exclusive attribute predicates on the same tag are fine
	err = transform(
		[]handler{
			mapTo("Root", "div", nil),
			mapToIf("x", "a", nil, func(e *etree.Element) bool { return getAttrValue(e, "type") == "one" }),
			mapToIf("x", "b", nil, func(e *etree.Element) bool { return getAttrValue(e, "type") == "two" }),
		},
		`<Root><x type="one">1</x><x type="two">2</x></Root>`)
	if err != nil {
		t.Fatalf("BAD RESULT: exclusive predicates should not conflict: %v", err)
	}

	t.Logf("OK - %s", t.Name())
}

func TestTransformFullDocument(t *testing.T) {

	env := testEnv()
	doc := newTestDoc(t, `<ThML><ThML.head><title>T</title></ThML.head><ThML.body><p>x</p></ThML.body></ThML>`)
	res, err := NewTransformer(env).Transform(doc, true)
	if err != nil {
		t.Fatal(err)
	}
	out, err := res.Doc.WriteToString()
	if err != nil {
		t.Fatal(err)
	}

	for i, part := range []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`,
		`xmlns="http://www.w3.org/1999/xhtml"`,
	} {
		if !strings.Contains(out, part) {
			t.Fatalf("BAD RESULT for part %d, missing [%s] in:\n%s", i, part, out)
		}
	}
	t.Logf("OK - %s", t.Name())
}

package processor

import (
	"testing"

	"github.com/beevik/etree"
)

func TestAppendText(t *testing.T) {

	cases := []struct {
		in   string
		text string
		out  string
	}{
		{`<p/>`, "abc", `<p>abc</p>`},
		{`<p>x</p>`, "abc", `<p>xabc</p>`},
		{`<p>x<b>y</b></p>`, "abc", `<p>x<b>y</b>abc</p>`},
		{`<p>x<b>y</b>z</p>`, "abc", `<p>x<b>y</b>zabc</p>`},
		{`<p>x</p>`, "", `<p>x</p>`},
	}

	for i, c := range cases {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(c.in); err != nil {
			t.Fatalf("unable to parse case %d: %v", i, err)
		}
		appendText(doc.Root(), c.text)
		res, err := doc.WriteToString()
		if err != nil {
			t.Fatalf("unable to serialize case %d: %v", i, err)
		}
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestParseFmtString(t *testing.T) {

	cases := []struct {
		in  string
		out OutputFmt
	}{
		{"epub", OEpub},
		{"xhtml", OXhtml},
		{"mobi", UnsupportedOutputFmt},
		{"", UnsupportedOutputFmt},
	}

	for i, c := range cases {
		if got := ParseFmtString(c.in); got != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, got)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

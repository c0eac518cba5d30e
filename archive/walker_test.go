package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func createTestArchive(t *testing.T, names []string) string {
	t.Helper()

	fname := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	for _, name := range names {
		out, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := out.Write([]byte("content of " + name)); err != nil {
			t.Fatal(err)
		}
	}
	return fname
}

func TestWalk(t *testing.T) {

	names := []string{"a.thml", "books/b.thml", "books/c.xml", "other/readme.txt"}
	arch := createTestArchive(t, names)

	cases := []struct {
		pattern string
		out     []string
	}{
		{"", names},
		{"books/", []string{"books/b.thml", "books/c.xml"}},
		{"missing/", nil},
	}

	for i, c := range cases {
		var got []string
		err := Walk(arch, c.pattern, func(archive string, f *zip.File) error {
			got = append(got, f.Name)
			return nil
		})
		if err != nil {
			t.Fatalf("walk failed for case %d: %v", i, err)
		}
		if len(got) != len(c.out) {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n%v\nGOT:\n%v", i, c.out, got)
		}
		for j := range got {
			if got[j] != c.out[j] {
				t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n%v\nGOT:\n%v", i, c.out, got)
			}
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

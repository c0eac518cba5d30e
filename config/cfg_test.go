package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildConfigDefaults(t *testing.T) {

	conf, err := BuildConfig()
	if err != nil {
		t.Fatalf("unable to build default configuration: %v", err)
	}

	if conf.Logger.Level != "info" || conf.Logger.Destination != "stderr" || conf.Logger.Mode != "production" {
		t.Fatalf("BAD RESULT: unexpected logger defaults: %+v", conf.Logger)
	}
	if conf.Doc.Images.TimeoutSec != 30 {
		t.Fatalf("BAD RESULT: unexpected image timeout default: %d", conf.Doc.Images.TimeoutSec)
	}
	if len(conf.Doc.ScripRefURL) == 0 {
		t.Fatal("BAD RESULT: scripture lookup URL default is empty")
	}
	if len(conf.Path) != 0 {
		t.Fatalf("BAD RESULT: defaults should not set configuration path, got %q", conf.Path)
	}
	t.Logf("OK - %s", t.Name())
}

func TestBuildConfigMerge(t *testing.T) {

	dir := t.TempDir()

	toml := filepath.Join(dir, "first.toml")
	if err := os.WriteFile(toml, []byte("[document]\nfilename_format = \"{{.Title}}\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	yaml := filepath.Join(dir, "second.yaml")
	if err := os.WriteFile(yaml, []byte("logger:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := BuildConfig(toml, yaml)
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}

	// both overrides applied, untouched defaults survive
	if conf.Doc.FileNameFormat != "{{.Title}}" {
		t.Fatalf("BAD RESULT: filename format not merged: %q", conf.Doc.FileNameFormat)
	}
	if conf.Logger.Level != "debug" {
		t.Fatalf("BAD RESULT: logger level not merged: %q", conf.Logger.Level)
	}
	if conf.Doc.Images.TimeoutSec != 30 {
		t.Fatalf("BAD RESULT: default lost in merge: %d", conf.Doc.Images.TimeoutSec)
	}
	if conf.Path != dir {
		t.Fatalf("BAD RESULT: configuration path %q, expected %q", conf.Path, dir)
	}
	t.Logf("OK - %s", t.Name())
}

func TestBuildConfigUnsupported(t *testing.T) {

	dir := t.TempDir()
	bad := filepath.Join(dir, "conf.ini")
	if err := os.WriteFile(bad, []byte("x=1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := BuildConfig(bad); err == nil {
		t.Fatal("BAD RESULT: unsupported format should fail")
	}
	t.Logf("OK - %s", t.Name())
}

func TestCleanFileName(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		{"simple", "simple"},
		{`bad:"name"`, "badname"},
		{`a/b\c`, "abc"},
		{"<>:*?|", "_bad_file_name_"},
		{"keep spaces.epub", "keep spaces.epub"},
	}

	for i, c := range cases {
		if got := CleanFileName(c.in); got != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i, c.out, got)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

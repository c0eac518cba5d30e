package reporter

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestReport(t *testing.T) {

	r := NewReport()
	if !r.Empty() {
		t.Fatal("BAD RESULT: new report should be empty")
	}

	r.Add("unhandled tag", "foobar")
	r.Add("unhandled tag", "foobar")
	r.Add("unhandled tag", "bazzz")
	r.Add("orphaned note", "[1]")

	if r.Empty() {
		t.Fatal("BAD RESULT: report should not be empty")
	}
	if got := r.Count("unhandled tag"); got != 3 {
		t.Fatalf("BAD RESULT: expected 3 occurrences, got %d", got)
	}
	if got := r.Count("nothing here"); got != 0 {
		t.Fatalf("BAD RESULT: expected 0 occurrences, got %d", got)
	}

	cats := r.Categories()
	if len(cats) != 2 || cats[0] != "orphaned note" || cats[1] != "unhandled tag" {
		t.Fatalf("BAD RESULT: categories %v", cats)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("unable to marshal report: %v", err)
	}
	var decoded map[string]map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unable to unmarshal report: %v", err)
	}
	if decoded["unhandled tag"]["foobar"] != 2 {
		t.Fatalf("BAD RESULT: unexpected dump %s", string(data))
	}

	// nil report is usable, nothing gets recorded
	var nr *Report
	nr.Add("x", "y")
	if !nr.Empty() {
		t.Fatal("BAD RESULT: nil report should stay empty")
	}

	r.Dump(zap.NewNop())
	t.Logf("OK - %s", t.Name())
}

// Package reporter accumulates conversion diagnostics for the final summary.
package reporter

import (
	"encoding/json"
	"sort"

	"go.uber.org/zap"
)

// Report counts recoverable problems encountered during conversion, keyed by
// category ("unhandled tag", "unknown attribute", ...) and offending detail
// (usually a tag or attribute name).
// NOTE: not to be used concurrently!
type Report struct {
	counts map[string]map[string]int
}

// NewReport creates initialized empty report.
func NewReport() *Report {
	return &Report{counts: make(map[string]map[string]int)}
}

// Add registers single occurrence of a problem.
func (r *Report) Add(category, detail string) {
	if r == nil {
		return
	}
	c, ok := r.counts[category]
	if !ok {
		c = make(map[string]int)
		r.counts[category] = c
	}
	c[detail]++
}

// Empty is true when nothing has been reported.
func (r *Report) Empty() bool {
	return r == nil || len(r.counts) == 0
}

// Categories returns all recorded categories, sorted.
func (r *Report) Categories() []string {
	res := make([]string, 0, len(r.counts))
	for c := range r.counts {
		res = append(res, c)
	}
	sort.Strings(res)
	return res
}

// Count returns total number of occurrences recorded for a category.
func (r *Report) Count(category string) int {
	var total int
	for _, n := range r.counts[category] {
		total += n
	}
	return total
}

// MarshalJSON makes report suitable for file dumps.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.counts)
}

// Dump logs per-category summary of everything recorded.
func (r *Report) Dump(log *zap.Logger) {
	for _, c := range r.Categories() {
		details := r.counts[c]
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.Info("Conversion diagnostics",
			zap.String("category", c),
			zap.Int("count", r.Count(c)),
			zap.Strings("details", keys),
		)
	}
}

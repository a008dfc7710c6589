// Package attribution maps changed lines to the functions whose declared
// ranges contain them.
package attribution

import (
	"sort"

	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// Record accumulates the changed lines attributed to one function name within
// one file of one commit. Lines from every hunk and every duplicate-name
// variant merge into the same record: a function is touched once per commit,
// not once per overload.
type Record struct {
	Path    string
	Name    string
	added   map[int]struct{}
	removed map[int]struct{}
}

// newRecord creates an empty record for a file + function name pair.
func newRecord(path, name string) *Record {
	return &Record{
		Path:    path,
		Name:    name,
		added:   map[int]struct{}{},
		removed: map[int]struct{}{},
	}
}

// addLines merges attributed line numbers into the record.
func (r *Record) addLines(added, removed []int) {
	for _, line := range added {
		r.added[line] = struct{}{}
	}

	for _, line := range removed {
		r.removed[line] = struct{}{}
	}
}

// AddedLines returns the attributed post-image line numbers, sorted.
func (r *Record) AddedLines() []int {
	return sortedLines(r.added)
}

// RemovedLines returns the attributed pre-image line numbers, sorted.
func (r *Record) RemovedLines() []int {
	return sortedLines(r.removed)
}

// Empty reports whether the record carries no attributed lines.
func (r *Record) Empty() bool {
	return len(r.added) == 0 && len(r.removed) == 0
}

func sortedLines(set map[int]struct{}) []int {
	lines := make([]int, 0, len(set))
	for line := range set {
		lines = append(lines, line)
	}

	sort.Ints(lines)

	return lines
}

// Result is the attribution outcome for one commit. Records are ordered by
// file path, then function name, so output is reproducible regardless of
// extraction completion order.
type Result struct {
	CommitID gitlib.Hash
	Records  []*Record
	// TouchedFunctionCount is the number of non-empty records, the primary
	// per-commit statistic.
	TouchedFunctionCount int
}

// NewResult creates an empty result for the given commit.
func NewResult(commit gitlib.Hash) *Result {
	return &Result{CommitID: commit}
}

// Append folds a file's records into the result.
func (r *Result) Append(records []*Record) {
	for _, rec := range records {
		if rec.Empty() {
			continue
		}

		r.Records = append(r.Records, rec)
		r.TouchedFunctionCount++
	}
}

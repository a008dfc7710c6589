// Package aggregate folds per-commit attribution results into process-wide
// histograms and a compact change index.
package aggregate

import (
	"sort"

	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
)

// FunctionIndex is the compact per-commit change index:
// commit id -> file -> function -> added line numbers.
type FunctionIndex map[string]map[string]map[string][]int

// State is the running aggregate over a commit walk. It is purely additive:
// a folded result is never revisited or revised. Merge makes the type safe
// for the parallel-commit scale-out where each worker folds into its own
// State.
type State struct {
	// FunctionsChanged maps a touched-function count to the commits that
	// touched exactly that many functions, in fold order.
	FunctionsChanged map[int][]string
	// NoFunctionChange maps a file extension to the set of commits that
	// changed files of that extension while touching zero functions overall.
	NoFunctionChange map[string]map[string]struct{}
	// Index is the optional change index, nil unless requested.
	Index FunctionIndex
}

// NewState creates an empty aggregate. When trackIndex is set, the per-commit
// change index is retained for external reporting.
func NewState(trackIndex bool) *State {
	state := &State{
		FunctionsChanged: map[int][]string{},
		NoFunctionChange: map[string]map[string]struct{}{},
	}

	if trackIndex {
		state.Index = FunctionIndex{}
	}

	return state
}

// Fold merges one commit's attribution result into the aggregate.
// pendingExtensions lists the extensions of the commit's changed files that
// produced no attribution (wrong language, extractor failure, or eligible but
// matching zero functions); they register only when the commit touched zero
// functions across all its files. countInHistogram is false for commits
// excluded from the histogram (e.g. a skipped root commit) whose index data
// should still be retained.
func (s *State) Fold(result *attribution.Result, pendingExtensions []string, countInHistogram bool) {
	commit := result.CommitID.String()

	s.foldIndex(result)

	if !countInHistogram {
		return
	}

	s.FunctionsChanged[result.TouchedFunctionCount] = append(
		s.FunctionsChanged[result.TouchedFunctionCount], commit)

	if result.TouchedFunctionCount > 0 {
		return
	}

	for _, ext := range pendingExtensions {
		set := s.NoFunctionChange[ext]
		if set == nil {
			set = map[string]struct{}{}
			s.NoFunctionChange[ext] = set
		}

		set[commit] = struct{}{}
	}
}

// foldIndex records added lines per file and function for the commit.
func (s *State) foldIndex(result *attribution.Result) {
	if s.Index == nil {
		return
	}

	for _, rec := range result.Records {
		added := rec.AddedLines()
		if len(added) == 0 {
			continue
		}

		commit := result.CommitID.String()

		files := s.Index[commit]
		if files == nil {
			files = map[string]map[string][]int{}
			s.Index[commit] = files
		}

		functions := files[rec.Path]
		if functions == nil {
			functions = map[string][]int{}
			files[rec.Path] = functions
		}

		functions[rec.Name] = append(functions[rec.Name], added...)
	}
}

// Merge folds another aggregate into this one. Histogram sums and commit-id
// set unions are associative and order-independent, so partial states from
// parallel workers can merge in any order.
func (s *State) Merge(other *State) {
	for count, commits := range other.FunctionsChanged {
		s.FunctionsChanged[count] = append(s.FunctionsChanged[count], commits...)
	}

	for ext, commits := range other.NoFunctionChange {
		set := s.NoFunctionChange[ext]
		if set == nil {
			set = map[string]struct{}{}
			s.NoFunctionChange[ext] = set
		}

		for commit := range commits {
			set[commit] = struct{}{}
		}
	}

	if s.Index != nil && other.Index != nil {
		for commit, files := range other.Index {
			s.Index[commit] = files
		}
	}
}

// Histogram returns commits-per-touched-function-count.
func (s *State) Histogram() map[int]int {
	histogram := make(map[int]int, len(s.FunctionsChanged))
	for count, commits := range s.FunctionsChanged {
		histogram[count] = len(commits)
	}

	return histogram
}

// HistogramKeys returns the touched-function counts present, sorted.
func (s *State) HistogramKeys() []int {
	keys := make([]int, 0, len(s.FunctionsChanged))
	for count := range s.FunctionsChanged {
		keys = append(keys, count)
	}

	sort.Ints(keys)

	return keys
}

// ExtensionHistogram returns commits-per-extension for files that changed
// without any function being touched.
func (s *State) ExtensionHistogram() map[string]int {
	histogram := make(map[string]int, len(s.NoFunctionChange))
	for ext, commits := range s.NoFunctionChange {
		histogram[ext] = len(commits)
	}

	return histogram
}

// Extensions returns the extensions present in the no-function histogram, sorted.
func (s *State) Extensions() []string {
	exts := make([]string, 0, len(s.NoFunctionChange))
	for ext := range s.NoFunctionChange {
		exts = append(exts, ext)
	}

	sort.Strings(exts)

	return exts
}

// CommitsSeen returns the total number of commits folded into the histogram.
func (s *State) CommitsSeen() int {
	total := 0
	for _, commits := range s.FunctionsChanged {
		total += len(commits)
	}

	return total
}

// LocIndex collapses the change index to commit -> total added line count.
func (s *State) LocIndex() map[string]int {
	if s.Index == nil {
		return nil
	}

	loc := make(map[string]int, len(s.Index))

	for commit, files := range s.Index {
		total := 0

		for _, functions := range files {
			for _, lines := range functions {
				total += len(lines)
			}
		}

		loc[commit] = total
	}

	return loc
}

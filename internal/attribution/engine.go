package attribution

import (
	"log/slog"
	"sort"

	"github.com/Sumatoshi-tech/diffanalyze/internal/symbols"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// Engine attributes hunk line changes to function symbols. It is stateless
// across files; records are owned by the caller's per-commit result.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an attribution engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{logger: logger}
}

// sideLines holds the non-blank changed lines of one hunk side and their span.
type sideLines struct {
	lines []int
	start int
	end   int
}

// collectSide gathers the non-blank lines of one side of a hunk.
// Blank and whitespace-only lines carry no attributable content.
func collectSide(hunk gitlib.Hunk, side gitlib.ChangeSide) sideLines {
	collected := sideLines{}

	for _, lc := range hunk.Lines {
		if lc.Side != side || lc.Blank {
			continue
		}

		if len(collected.lines) == 0 || lc.Line < collected.start {
			collected.start = lc.Line
		}

		if lc.Line > collected.end {
			collected.end = lc.Line
		}

		collected.lines = append(collected.lines, lc.Line)
	}

	return collected
}

// matchVariants attributes one side of a hunk against every variant of a
// function name. Two tests run and their results are unioned:
//
//  1. exact containment of each changed line in a variant's range;
//  2. interval overlap of the hunk's changed span with the variant's range,
//     which catches whole-function insertions and deletions where no single
//     line number straddles the stored boundaries.
//
// A variant with no known end extends to end-of-file.
func matchVariants(side sideLines, variants []symbols.Symbol, fileLines int) []int {
	if len(side.lines) == 0 {
		return nil
	}

	matched := map[int]struct{}{}

	for _, variant := range variants {
		end := variant.EffectiveEnd(fileLines)

		for _, line := range side.lines {
			if line >= variant.StartLine && line <= end {
				matched[line] = struct{}{}
			}
		}

		if spanOverlaps(side.start, side.end, variant.StartLine, end) {
			for _, line := range side.lines {
				matched[line] = struct{}{}
			}
		}
	}

	return sortedLines(matched)
}

// spanOverlaps implements the whole-hunk interval test: either span endpoint
// inside the function range, or the function range entirely inside the span.
func spanOverlaps(changeStart, changeEnd, fnStart, fnEnd int) bool {
	if changeStart >= fnStart && changeStart <= fnEnd {
		return true
	}

	if changeEnd >= fnStart && changeEnd <= fnEnd {
		return true
	}

	return fnStart >= changeStart && fnEnd <= changeEnd
}

// AttributeFile maps the hunks of one changed file to function change
// records. oldTable serves OLD-side lines, newTable serves NEW-side lines;
// the missing side of an added or deleted file is an empty table. Returned
// records are non-empty and ordered by function name.
func (e *Engine) AttributeFile(path string, hunks []gitlib.Hunk, oldTable, newTable *symbols.Table) []*Record {
	if oldTable == nil {
		oldTable = symbols.EmptyTable()
	}

	if newTable == nil {
		newTable = symbols.EmptyTable()
	}

	names := unionNames(oldTable, newTable)
	records := map[string]*Record{}

	for _, hunk := range hunks {
		newSide := collectSide(hunk, gitlib.NewSide)
		oldSide := collectSide(hunk, gitlib.OldSide)

		for _, name := range names {
			added := matchVariants(newSide, newTable.Variants(name), newTable.FileLines)
			removed := matchVariants(oldSide, oldTable.Variants(name), oldTable.FileLines)

			if len(added) == 0 && len(removed) == 0 {
				continue
			}

			rec := records[name]
			if rec == nil {
				rec = newRecord(path, name)
				records[name] = rec
			}

			rec.addLines(added, removed)
		}
	}

	ordered := make([]*Record, 0, len(records))
	for _, name := range names {
		if rec := records[name]; rec != nil {
			ordered = append(ordered, rec)
		}
	}

	return ordered
}

// unionNames merges the function names of both file versions, sorted.
func unionNames(oldTable, newTable *symbols.Table) []string {
	seen := map[string]struct{}{}

	for name := range oldTable.Functions {
		seen[name] = struct{}{}
	}

	for name := range newTable.Functions {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

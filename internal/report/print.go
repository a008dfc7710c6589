// Package report renders attribution output: per-commit console printing,
// aggregate summaries, JSON/YAML serialization and HTML plots.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// PrintMode selects the console output format for per-commit results.
type PrintMode string

const (
	// PrintFull prints file, function and line indices per record.
	PrintFull PrintMode = "full"
	// PrintSimple prints one "file,function,line" row per attributed line.
	PrintSimple PrintMode = "simple"
	// PrintOnlyFn prints each touched function name once.
	PrintOnlyFn PrintMode = "only-fn"
	// PrintFunctions prints "file,function[,commit]" rows.
	PrintFunctions PrintMode = "functions"
)

// ErrUnknownPrintMode is returned for an unrecognized print mode string.
var ErrUnknownPrintMode = errors.New("unknown print mode")

// ParsePrintMode validates a print mode string.
func ParsePrintMode(s string) (PrintMode, error) {
	switch PrintMode(s) {
	case PrintFull, PrintSimple, PrintOnlyFn, PrintFunctions:
		return PrintMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected full, simple, only-fn or functions)", ErrUnknownPrintMode, s)
	}
}

// Printer writes per-commit attribution results to a console stream.
// color handles TTY detection and NO_COLOR itself.
type Printer struct {
	Out       io.Writer
	Mode      PrintMode
	OnlyAdded bool
	WithHash  bool

	fileColor *color.Color
	fnColor   *color.Color
	seenFns   map[string]struct{}
}

// NewPrinter creates a printer for the given mode.
func NewPrinter(out io.Writer, mode PrintMode, onlyAdded, withHash bool) *Printer {
	return &Printer{
		Out:       out,
		Mode:      mode,
		OnlyAdded: onlyAdded,
		WithHash:  withHash,
		fileColor: color.New(color.FgBlue),
		fnColor:   color.New(color.FgGreen),
		seenFns:   map[string]struct{}{},
	}
}

// commitDateLayout matches git log's default date rendering.
const commitDateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// PrintHeader renders the commit identity ahead of the full-mode records.
// The other modes embed commit identity in their own rows.
func (p *Printer) PrintHeader(commit gitlib.Hash, author gitlib.Signature, message string) {
	if p.Mode != PrintFull {
		return
	}

	fmt.Fprintf(p.Out, "commit %s\n", commit)
	fmt.Fprintf(p.Out, "Author: %s <%s>\n", author.Name, author.Email)
	fmt.Fprintf(p.Out, "Date:   %s\n", author.When.Format(commitDateLayout))

	if summary := firstLine(message); summary != "" {
		fmt.Fprintf(p.Out, "\n    %s\n", summary)
	}

	fmt.Fprintln(p.Out)
}

// firstLine returns the summary line of a commit message.
func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")

	return strings.TrimSpace(line)
}

// PrintResult renders one commit's attribution according to the mode.
func (p *Printer) PrintResult(result *attribution.Result) {
	switch p.Mode {
	case PrintSimple:
		p.printSimple(result)
	case PrintFunctions:
		p.printFunctions(result)
	case PrintOnlyFn:
		p.printOnlyFn(result)
	case PrintFull:
		p.printFull(result)
	}
}

// printFull prints each record with its added and removed line indices.
func (p *Printer) printFull(result *attribution.Result) {
	for _, rec := range result.Records {
		fmt.Fprintf(p.Out, "%s: In function %s\n",
			p.fileColor.Sprint(rec.Path), p.fnColor.Sprint(rec.Name))

		commit := result.CommitID.String()

		added := rec.AddedLines()
		if len(added) > 0 {
			fmt.Fprintf(p.Out, "Patch %s has added lines (new line indices): %v\n", commit, added)
		}

		removed := rec.RemovedLines()
		if len(removed) > 0 {
			fmt.Fprintf(p.Out, "Patch %s has removed lines (rem line indices): %v\n", commit, removed)
		}
	}

	if result.TouchedFunctionCount == 0 {
		fmt.Fprintln(p.Out, "No relevant changes detected.")
	}

	fmt.Fprintln(p.Out)
}

// printSimple prints sorted "file,function,line" rows under a commit header.
func (p *Printer) printSimple(result *attribution.Result) {
	fmt.Fprintf(p.Out, "# Commit: %s\n", result.CommitID)

	for _, rec := range result.Records {
		lines := rec.AddedLines()
		if !p.OnlyAdded {
			lines = mergeSorted(lines, rec.RemovedLines())
		}

		for _, line := range lines {
			fmt.Fprintf(p.Out, "%s,%s,%d\n",
				p.fileColor.Sprint(rec.Path), p.fnColor.Sprint(rec.Name), line)
		}
	}
}

// printFunctions prints "file,function[,commit]" rows.
func (p *Printer) printFunctions(result *attribution.Result) {
	for _, rec := range result.Records {
		if p.OnlyAdded && len(rec.AddedLines()) == 0 {
			continue
		}

		row := rec.Path + "," + rec.Name
		if p.WithHash {
			row += "," + result.CommitID.String()
		}

		fmt.Fprintln(p.Out, row)
	}
}

// printOnlyFn prints each function name once across the whole run.
func (p *Printer) printOnlyFn(result *attribution.Result) {
	for _, rec := range result.Records {
		if _, seen := p.seenFns[rec.Name]; seen {
			continue
		}

		p.seenFns[rec.Name] = struct{}{}

		fmt.Fprintln(p.Out, p.fnColor.Sprint(rec.Name))
	}
}

// mergeSorted merges two sorted line slices, deduplicated.
func mergeSorted(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.Ints(merged)

	deduped := merged[:0]

	for i, line := range merged {
		if i == 0 || line != merged[i-1] {
			deduped = append(deduped, line)
		}
	}

	return deduped
}

// Package symbols builds per-file function symbol tables by driving an
// external ctags process and parsing its JSON output.
package symbols

import (
	"bytes"
	"sort"
)

// Kind distinguishes the symbol kinds consumed from the extractor.
type Kind int

const (
	// KindFunction is a function definition, the only attribution target.
	KindFunction Kind = iota
	// KindPrototype is a declaration. Tracked so it is never misclassified
	// as a definition, but never a target of attribution.
	KindPrototype
)

// UnknownEnd marks a symbol whose end line the extractor did not report.
const UnknownEnd = 0

// Symbol is one named range reported by the extractor.
type Symbol struct {
	Name      string
	Kind      Kind
	StartLine int
	// EndLine is UnknownEnd when the extractor omitted it. Overlap logic then
	// degrades the range to end-of-file.
	EndLine int
}

// EffectiveEnd returns the symbol's end line, substituting fileLines when the
// extractor did not report one.
func (s Symbol) EffectiveEnd(fileLines int) int {
	if s.EndLine == UnknownEnd {
		return fileLines
	}

	return s.EndLine
}

// Contains reports whether line falls inside the symbol's range, with the
// unknown-end degradation applied.
func (s Symbol) Contains(line, fileLines int) bool {
	return line >= s.StartLine && line <= s.EffectiveEnd(fileLines)
}

// Table is the symbol table of one file version. Functions sharing a name
// (overloads, static redefinitions) are kept as an ordered collection per
// name, never collapsed into a single entry.
type Table struct {
	// Functions maps a name to every definition carrying it, in extractor
	// output order.
	Functions map[string][]Symbol
	// Prototypes maps a name to its declarations. Diagnostics only.
	Prototypes map[string][]Symbol
	// FileLines is the line count of the file, the fallback bound for
	// symbols without a known end.
	FileLines int
	// Degraded lists function names whose end line had to be degraded to
	// end-of-file.
	Degraded []string
}

// EmptyTable returns a table with no symbols, used for the missing side of
// added or deleted files.
func EmptyTable() *Table {
	return &Table{
		Functions:  map[string][]Symbol{},
		Prototypes: map[string][]Symbol{},
	}
}

// NewTable assembles a table from extractor symbols and the file contents the
// extractor saw.
func NewTable(syms []Symbol, content []byte) *Table {
	table := EmptyTable()
	table.FileLines = countLines(content)

	for _, sym := range syms {
		switch sym.Kind {
		case KindFunction:
			table.Functions[sym.Name] = append(table.Functions[sym.Name], sym)
			if sym.EndLine == UnknownEnd {
				table.Degraded = append(table.Degraded, sym.Name)
			}
		case KindPrototype:
			table.Prototypes[sym.Name] = append(table.Prototypes[sym.Name], sym)
		}
	}

	return table
}

// Names returns the function names in the table, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Functions))
	for name := range t.Functions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Variants returns every definition with the given name.
func (t *Table) Variants(name string) []Symbol {
	return t.Functions[name]
}

// countLines counts the lines of a file, treating a missing trailing newline
// as a final line.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	count := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		count++
	}

	return count
}

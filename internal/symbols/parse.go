package symbols

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// tagEntry mirrors one line of ctags --output-format=json.
type tagEntry struct {
	Type string `json:"_type"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
	End  int    `json:"end"`
}

// ctags kind names for the consumed entries.
const (
	kindNameFunction  = "function"
	kindNamePrototype = "prototype"
)

// ParseTags parses ctags JSON-lines output into symbols, keeping only
// function definitions and prototypes. Entries of other kinds (members,
// typedefs, ...) are dropped.
func ParseTags(output []byte) ([]Symbol, error) {
	var symbols []Symbol

	for lineNo, line := range bytes.Split(output, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var entry tagEntry

		err := json.Unmarshal(line, &entry)
		if err != nil {
			return nil, fmt.Errorf("parse ctags output line %d: %w", lineNo+1, err)
		}

		if entry.Type != "" && entry.Type != "tag" {
			continue
		}

		sym, ok := symbolFromEntry(entry)
		if ok {
			symbols = append(symbols, sym)
		}
	}

	return symbols, nil
}

// symbolFromEntry converts a tag entry to a Symbol when its kind is consumed.
func symbolFromEntry(entry tagEntry) (Symbol, bool) {
	var kind Kind

	switch entry.Kind {
	case kindNameFunction:
		kind = KindFunction
	case kindNamePrototype:
		kind = KindPrototype
	default:
		return Symbol{}, false
	}

	if entry.Name == "" || entry.Line <= 0 {
		return Symbol{}, false
	}

	end := entry.End
	if end < entry.Line {
		end = UnknownEnd
	}

	return Symbol{
		Name:      entry.Name,
		Kind:      kind,
		StartLine: entry.Line,
		EndLine:   end,
	}, true
}

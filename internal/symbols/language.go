package symbols

import (
	"path"
	"strings"

	"github.com/src-d/enry/v2"
)

// NoExtension is the bucket for files without an extension (README, NEWS, ...).
const NoExtension = "none"

// defaultLanguages are the languages the ctags invocation supports.
var defaultLanguages = map[string]bool{
	"C":   true,
	"C++": true,
}

// LanguageGate decides which files are eligible for symbol extraction.
// Ineligible files are short-circuited before any extractor invocation.
type LanguageGate struct {
	languages map[string]bool
}

// NewLanguageGate builds a gate for the given language names. An empty list
// falls back to the extractor's supported set (C, C++).
func NewLanguageGate(languages []string) *LanguageGate {
	if len(languages) == 0 {
		return &LanguageGate{languages: defaultLanguages}
	}

	set := make(map[string]bool, len(languages))
	for _, lang := range languages {
		set[lang] = true
	}

	return &LanguageGate{languages: set}
}

// Eligible reports whether the file can be fed to the extractor, along with
// the detected language.
func (g *LanguageGate) Eligible(filename string, content []byte) (string, bool) {
	lang := enry.GetLanguage(path.Base(filename), content)

	return lang, g.languages[lang]
}

// Extension returns the file's extension bucket for the
// no-function-change-by-extension histogram.
func Extension(filename string) string {
	base := path.Base(filename)

	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return NoExtension
	}

	return base[idx:]
}

package symbols

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Sentinel errors for the extractor.
var (
	// ErrExtractorUnavailable means no ctags executable is resolvable.
	// Surfaced at startup and fatal; never retried per file.
	ErrExtractorUnavailable = errors.New("no universalctags or ctags executable found in PATH")
	// ErrExtractorFailed means the extractor process failed for one file.
	// Recoverable: the file is treated as carrying no function data.
	ErrExtractorFailed = errors.New("symbol extraction failed")
)

// DefaultTimeout bounds a single extractor invocation. A hang or crash is an
// ErrExtractorFailed for that file, not a fatal condition.
const DefaultTimeout = 30 * time.Second

// extractorNames are the executable names probed in order.
var extractorNames = []string{"universalctags", "ctags"}

// LocateExtractor finds the ctags executable in PATH.
func LocateExtractor() (string, error) {
	for _, name := range extractorNames {
		path, err := exec.LookPath(name)
		if err == nil {
			return path, nil
		}
	}

	return "", ErrExtractorUnavailable
}

// ResolveExtractor verifies a configured extractor path (or command name) and
// falls back to the PATH probe when none is configured. A configured path that
// does not resolve is ErrExtractorUnavailable at startup, not a per-file
// failure later.
func ResolveExtractor(configured string) (string, error) {
	if configured == "" {
		return LocateExtractor()
	}

	path, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("%w: configured extractor %q: %v", ErrExtractorUnavailable, configured, err)
	}

	return path, nil
}

// Extractor invokes ctags on file contents and builds symbol tables.
type Extractor struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates an extractor around the given ctags executable.
// A zero timeout falls back to DefaultTimeout.
func NewExtractor(path string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{path: path, timeout: timeout, logger: logger}
}

// Extract runs ctags over the given file contents and returns the resulting
// symbol table. The filename only supplies the extension for the extractor's
// language detection; contents are written to a temp file that is removed on
// every exit path.
func (e *Extractor) Extract(ctx context.Context, content []byte, filename string) (*Table, error) {
	tmp, err := os.CreateTemp("", "diffanalyze-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(content)

	closeErr := tmp.Close()

	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	if closeErr != nil {
		return nil, fmt.Errorf("close temp file: %w", closeErr)
	}

	output, err := e.run(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	syms, err := ParseTags(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractorFailed, filename, err)
	}

	table := NewTable(syms, content)
	for _, name := range table.Degraded {
		e.logger.Warn("function end line unknown, degrading to end of file",
			"file", filename, "function", name)
	}

	return table, nil
}

// run executes ctags with the invocation the attribution pipeline depends on:
// function definitions and prototypes for C and C++, line and end fields,
// JSON output.
func (e *Extractor) run(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path,
		"--quiet=yes",
		"--C-kinds=fp",
		"--C++-kinds=fp",
		"--fields=+ne",
		"--languages=C,C++",
		"--output-format=json",
		path,
	)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrExtractorFailed, err, bytes.TrimSpace(stderr.Bytes()))
	}

	if stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrExtractorFailed, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.Bytes(), nil
}

// Path returns the resolved extractor executable path.
func (e *Extractor) Path() string {
	return e.path
}

package history

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
	"github.com/Sumatoshi-tech/diffanalyze/internal/symbols"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

const cSource = "#include <stdio.h>\n\nint main(void) {\n\tprintf(\"hi\");\n\treturn 0;\n}\n"

// fakeSource serves canned diffs and contents keyed by commit and path.
type fakeSource struct {
	changes  map[gitlib.Hash][]gitlib.FileChange
	contents map[string][]byte
	errs     map[string]error
}

func (f *fakeSource) DiffCommits(_ context.Context, child, _ gitlib.Hash, _ *regexp.Regexp) ([]gitlib.FileChange, error) {
	return f.changes[child], nil
}

func (f *fakeSource) ContentsAt(_ context.Context, commit gitlib.Hash, path string) ([]byte, error) {
	key := commit.Short() + ":" + path
	if err := f.errs[key]; err != nil {
		return nil, err
	}

	return f.contents[key], nil
}

// fakeBuilder returns a fixed table per filename, or an error.
type fakeBuilder struct {
	tables map[string]*symbols.Table
	errs   map[string]error
}

func (f *fakeBuilder) Extract(_ context.Context, _ []byte, filename string) (*symbols.Table, error) {
	if err := f.errs[filename]; err != nil {
		return nil, err
	}

	if table := f.tables[filename]; table != nil {
		return table, nil
	}

	return symbols.EmptyTable(), nil
}

func newTestRunner(source *fakeSource, builder *fakeBuilder, state *aggregate.State) *Runner {
	return &Runner{
		Source:    source,
		Extractor: builder,
		Gate:      symbols.NewLanguageGate(nil),
		Engine:    attribution.NewEngine(nil),
		State:     state,
	}
}

func mainTable() *symbols.Table {
	return symbols.NewTable([]symbols.Symbol{
		{Name: "main", Kind: symbols.KindFunction, StartLine: 3, EndLine: 6},
	}, []byte(cSource))
}

func TestRunnerAttributesModifiedFile(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{
				Path:   "main.c",
				Status: gitlib.StatusModified,
				Hunks: []gitlib.Hunk{{
					Lines: []gitlib.LineChange{{Side: gitlib.NewSide, Line: 4}},
				}},
			}},
		},
		contents: map[string][]byte{
			child.Short() + ":main.c":  []byte(cSource),
			parent.Short() + ":main.c": []byte(cSource),
		},
	}

	builder := &fakeBuilder{tables: map[string]*symbols.Table{"main.c": mainTable()}}
	state := aggregate.NewState(false)

	var seen []*attribution.Result

	runner := newTestRunner(source, builder, state)
	runner.OnCommit = func(result *attribution.Result) {
		seen = append(seen, result)
	}

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 1}, state.Histogram())

	require.Len(t, seen, 1)
	require.Len(t, seen[0].Records, 1)
	assert.Equal(t, "main", seen[0].Records[0].Name)
	assert.Equal(t, []int{4}, seen[0].Records[0].AddedLines())
}

func TestRunnerIneligibleFileFeedsExtensionHistogram(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{
				Path:   "README.md",
				Status: gitlib.StatusModified,
				Hunks: []gitlib.Hunk{{
					Lines: []gitlib.LineChange{{Side: gitlib.NewSide, Line: 1}},
				}},
			}},
		},
		contents: map[string][]byte{
			child.Short() + ":README.md":  []byte("# Title\n\nUpdated prose.\n"),
			parent.Short() + ":README.md": []byte("# Title\n"),
		},
	}

	state := aggregate.NewState(false)
	runner := newTestRunner(source, &fakeBuilder{}, state)

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 1}, state.Histogram())
	assert.Equal(t, map[string]int{".md": 1}, state.ExtensionHistogram())
}

func TestRunnerExtractorFailureSkipsFile(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{
				Path:   "main.c",
				Status: gitlib.StatusModified,
				Hunks: []gitlib.Hunk{{
					Lines: []gitlib.LineChange{{Side: gitlib.NewSide, Line: 4}},
				}},
			}},
		},
		contents: map[string][]byte{
			child.Short() + ":main.c":  []byte(cSource),
			parent.Short() + ":main.c": []byte(cSource),
		},
	}

	builder := &fakeBuilder{errs: map[string]error{"main.c": symbols.ErrExtractorFailed}}
	state := aggregate.NewState(false)
	runner := newTestRunner(source, builder, state)

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	// The failed file carries no function data; the commit lands in the
	// zero-touch bucket with its extension registered.
	assert.Equal(t, map[int]int{0: 1}, state.Histogram())
	assert.Equal(t, map[string]int{".c": 1}, state.ExtensionHistogram())
}

func TestRunnerUnsupportedFileSkipped(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{Path: "logo.png", Status: gitlib.StatusUnsupported}},
		},
	}

	state := aggregate.NewState(false)
	runner := newTestRunner(source, &fakeBuilder{}, state)

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 1}, state.Histogram())
	assert.Empty(t, state.ExtensionHistogram())
}

func TestRunnerSkipInitialExcludesRootFromHistogram(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{
				Path:   "main.c",
				Status: gitlib.StatusAdded,
				Hunks: []gitlib.Hunk{{
					Lines: []gitlib.LineChange{{Side: gitlib.NewSide, Line: 4}},
				}},
			}},
		},
		contents: map[string][]byte{
			child.Short() + ":main.c": []byte(cSource),
		},
	}

	builder := &fakeBuilder{tables: map[string]*symbols.Table{"main.c": mainTable()}}
	state := aggregate.NewState(true)
	runner := newTestRunner(source, builder, state)
	runner.SkipInitial = true

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: gitlib.EmptyTreeHash}})
	require.NoError(t, err)

	assert.Zero(t, state.CommitsSeen())
	assert.Len(t, state.Index, 1)
}

func TestRunnerDeletedFileUsesOldContents(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{
				Path:   "main.c",
				Status: gitlib.StatusDeleted,
				Hunks: []gitlib.Hunk{{
					Lines: []gitlib.LineChange{{Side: gitlib.OldSide, Line: 4}},
				}},
			}},
		},
		contents: map[string][]byte{
			parent.Short() + ":main.c": []byte(cSource),
		},
	}

	builder := &fakeBuilder{tables: map[string]*symbols.Table{"main.c": mainTable()}}
	state := aggregate.NewState(false)

	var seen []*attribution.Result

	runner := newTestRunner(source, builder, state)
	runner.OnCommit = func(result *attribution.Result) {
		seen = append(seen, result)
	}

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	require.Len(t, seen[0].Records, 1)
	assert.Equal(t, []int{4}, seen[0].Records[0].RemovedLines())
	assert.Empty(t, seen[0].Records[0].AddedLines())
}

func TestRunnerSubmoduleEntrySkipped(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{Path: "vendor/dep", Status: gitlib.StatusModified}},
		},
		errs: map[string]error{
			child.Short() + ":vendor/dep": gitlib.ErrUnsupportedEntry,
		},
	}

	state := aggregate.NewState(false)
	runner := newTestRunner(source, &fakeBuilder{}, state)

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 1}, state.Histogram())
}

func TestRunnerContentLoadErrorIsFatal(t *testing.T) {
	t.Parallel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")
	loadErr := errors.New("object store corrupted")

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {{Path: "main.c", Status: gitlib.StatusModified}},
		},
		errs: map[string]error{
			child.Short() + ":main.c": loadErr,
		},
	}

	runner := newTestRunner(source, &fakeBuilder{}, aggregate.NewState(false))

	err := runner.Run(context.Background(), []CommitPair{{Child: child, Parent: parent}})
	require.ErrorIs(t, err, loadErr)
}

// cancellingBuilder aborts the run while extraction for a commit is still in
// flight, the way an interrupt lands between two extractor processes.
type cancellingBuilder struct {
	cancel  context.CancelFunc
	trigger string
	tables  map[string]*symbols.Table
}

func (c *cancellingBuilder) Extract(_ context.Context, _ []byte, filename string) (*symbols.Table, error) {
	if filename == c.trigger {
		c.cancel()

		return nil, symbols.ErrExtractorFailed
	}

	return c.tables[filename], nil
}

func TestRunnerCancelledMidCommitDiscardsPartialResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	child := gitlib.NewHash("aa")
	parent := gitlib.NewHash("bb")

	change := func(path string) gitlib.FileChange {
		return gitlib.FileChange{
			Path:   path,
			Status: gitlib.StatusModified,
			Hunks: []gitlib.Hunk{{
				Lines: []gitlib.LineChange{{Side: gitlib.NewSide, Line: 4}},
			}},
		}
	}

	source := &fakeSource{
		changes: map[gitlib.Hash][]gitlib.FileChange{
			child: {change("a.c"), change("b.c")},
		},
		contents: map[string][]byte{
			child.Short() + ":a.c":  []byte(cSource),
			parent.Short() + ":a.c": []byte(cSource),
			child.Short() + ":b.c":  []byte(cSource),
			parent.Short() + ":b.c": []byte(cSource),
		},
	}

	builder := &cancellingBuilder{
		cancel:  cancel,
		trigger: "b.c",
		tables:  map[string]*symbols.Table{"a.c": mainTable()},
	}

	state := aggregate.NewState(false)

	var folded int

	runner := newTestRunner(source, &fakeBuilder{}, state)
	runner.Extractor = builder
	runner.OnCommit = func(*attribution.Result) {
		folded++
	}

	err := runner.Run(ctx, []CommitPair{{Child: child, Parent: parent}})
	require.ErrorIs(t, err, context.Canceled)

	// The partial commit never reaches the aggregate or the printers.
	assert.Empty(t, state.Histogram())
	assert.Zero(t, folded)
}

func TestRunnerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newTestRunner(&fakeSource{}, &fakeBuilder{}, aggregate.NewState(false))

	err := runner.Run(ctx, []CommitPair{{Child: gitlib.NewHash("aa"), Parent: gitlib.NewHash("bb")}})
	require.ErrorIs(t, err, context.Canceled)
}

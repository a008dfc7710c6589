package history

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
	"github.com/Sumatoshi-tech/diffanalyze/internal/symbols"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// Source is the read surface of the version-control layer the runner needs.
// *gitlib.Repository satisfies it.
type Source interface {
	DiffCommits(ctx context.Context, child, parent gitlib.Hash, pathFilter *regexp.Regexp) ([]gitlib.FileChange, error)
	ContentsAt(ctx context.Context, commit gitlib.Hash, path string) ([]byte, error)
}

// TableBuilder turns file contents into a symbol table.
// *symbols.Extractor satisfies it.
type TableBuilder interface {
	Extract(ctx context.Context, content []byte, filename string) (*symbols.Table, error)
}

// defaultWorkers bounds concurrent extractor processes per commit.
const defaultWorkers = 4

// Runner walks commit pairs sequentially: each commit's diff, symbol
// extraction and attribution complete before the next commit starts, since
// the aggregate folds incrementally. Symbol extraction for independent files
// within one commit fans out over a bounded worker pool; results fold back
// in path order so output is reproducible.
type Runner struct {
	Source     Source
	Extractor  TableBuilder
	Gate       *symbols.LanguageGate
	Engine     *attribution.Engine
	State      *aggregate.State
	PathFilter *regexp.Regexp
	Workers    int
	// SkipInitial excludes root commits from the histogram (their diff
	// against the empty tree can be very large).
	SkipInitial bool
	Logger      *slog.Logger
	// OnCommit, when set, observes each fully attributed commit before it is
	// folded. Used by the console printers.
	OnCommit func(*attribution.Result)
}

// Run processes the pairs in order. A cancelled context aborts between
// commits: the in-flight commit's partial results are discarded, never
// folded, so the aggregate stays consistent up to the last finished commit.
func (r *Runner) Run(ctx context.Context, pairs []CommitPair) error {
	for _, pair := range pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, pendingExts, err := r.processPair(ctx, pair)
		if err != nil {
			return err
		}

		countInHistogram := !(r.SkipInitial && pair.Parent.IsEmptyTree())

		r.State.Fold(result, pendingExts, countInHistogram)

		if r.OnCommit != nil {
			r.OnCommit(result)
		}
	}

	return nil
}

// fileJob is one eligible file with both version contents loaded.
type fileJob struct {
	change     gitlib.FileChange
	oldContent []byte
	newContent []byte
}

// fileTables is the extraction outcome for one file.
type fileTables struct {
	oldTable *symbols.Table
	newTable *symbols.Table
	err      error
}

// processPair attributes one commit pair. The returned extensions are the
// buckets of files that produced no attribution; the aggregate registers
// them only when the whole commit touched zero functions.
func (r *Runner) processPair(ctx context.Context, pair CommitPair) (*attribution.Result, []string, error) {
	changes, err := r.Source.DiffCommits(ctx, pair.Child, pair.Parent, r.PathFilter)
	if err != nil {
		return nil, nil, err
	}

	result := attribution.NewResult(pair.Child)
	pending := newExtensionSet()

	jobs, err := r.loadEligibleFiles(ctx, pair, changes, pending)
	if err != nil {
		return nil, nil, err
	}

	tables := r.extractTables(ctx, jobs)

	// A cancellation during extraction fails the remaining files; folding what
	// did finish would merge a partial commit. Discard it instead.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i, job := range jobs {
		if tables[i].err != nil {
			// Per-file extractor failure: the file carries no function data
			// for this commit.
			r.logger().Warn("symbol extraction failed, skipping file",
				"commit", pair.Child.Short(), "file", job.change.Path, "error", tables[i].err)
			pending.add(symbols.Extension(job.change.Path))

			continue
		}

		records := r.Engine.AttributeFile(job.change.Path, job.change.Hunks, tables[i].oldTable, tables[i].newTable)
		if len(records) == 0 {
			pending.add(symbols.Extension(job.change.Path))
		}

		result.Append(records)
	}

	return result, pending.ordered, nil
}

// loadEligibleFiles loads both version contents for each changed file and
// applies the language gate. Ineligible files are short-circuited into the
// extension bookkeeping before any extractor invocation.
func (r *Runner) loadEligibleFiles(
	ctx context.Context,
	pair CommitPair,
	changes []gitlib.FileChange,
	pending *extensionSet,
) ([]fileJob, error) {
	var jobs []fileJob

	for _, change := range changes {
		if change.Status == gitlib.StatusUnsupported {
			r.logger().Warn("unsupported file skipped",
				"commit", pair.Child.Short(), "file", change.Path)

			continue
		}

		job, err := r.loadFileContents(ctx, pair, change)
		if err != nil {
			if errors.Is(err, gitlib.ErrUnsupportedEntry) {
				r.logger().Warn("unsupported tree entry skipped",
					"commit", pair.Child.Short(), "file", change.Path)

				continue
			}

			return nil, err
		}

		probe := job.newContent
		if probe == nil {
			probe = job.oldContent
		}

		lang, eligible := r.Gate.Eligible(change.Path, probe)
		if !eligible {
			r.logger().Debug("language not eligible for attribution",
				"file", change.Path, "language", lang)
			pending.add(symbols.Extension(change.Path))

			continue
		}

		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].change.Path < jobs[j].change.Path
	})

	return jobs, nil
}

// loadFileContents fetches the pre- and post-image contents of a change.
func (r *Runner) loadFileContents(ctx context.Context, pair CommitPair, change gitlib.FileChange) (fileJob, error) {
	job := fileJob{change: change}

	if change.Status != gitlib.StatusDeleted {
		content, err := r.Source.ContentsAt(ctx, pair.Child, change.Path)
		if err != nil {
			return fileJob{}, err
		}

		job.newContent = content
	}

	if change.Status != gitlib.StatusAdded && !pair.Parent.IsEmptyTree() {
		oldPath := change.OldPath
		if oldPath == "" {
			oldPath = change.Path
		}

		content, err := r.Source.ContentsAt(ctx, pair.Parent, oldPath)
		if err != nil {
			return fileJob{}, err
		}

		job.oldContent = content
	}

	return job, nil
}

// extractTables builds both symbol tables for every job, fanning the
// extractor invocations out over a bounded worker pool. The returned slice
// is indexed like jobs, so folding stays deterministic.
func (r *Runner) extractTables(ctx context.Context, jobs []fileJob) []fileTables {
	tables := make([]fileTables, len(jobs))

	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup

	for i := range jobs {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			tables[i] = r.extractOne(ctx, jobs[i])
		}(i)
	}

	wg.Wait()

	return tables
}

// extractOne builds the pre- and post-image tables for a single file. The
// missing side of an added or deleted file gets an empty table.
func (r *Runner) extractOne(ctx context.Context, job fileJob) fileTables {
	out := fileTables{oldTable: symbols.EmptyTable(), newTable: symbols.EmptyTable()}

	if job.newContent != nil {
		table, err := r.Extractor.Extract(ctx, job.newContent, job.change.Path)
		if err != nil {
			out.err = err

			return out
		}

		out.newTable = table
	}

	if job.oldContent != nil {
		oldPath := job.change.OldPath
		if oldPath == "" {
			oldPath = job.change.Path
		}

		table, err := r.Extractor.Extract(ctx, job.oldContent, oldPath)
		if err != nil {
			out.err = err

			return out
		}

		out.oldTable = table
	}

	return out
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}

	return r.Logger
}

// extensionSet collects extension buckets, deduplicated, in first-seen order.
type extensionSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newExtensionSet() *extensionSet {
	return &extensionSet{seen: map[string]struct{}{}}
}

func (s *extensionSet) add(ext string) {
	if _, ok := s.seen[ext]; ok {
		return
	}

	s.seen[ext] = struct{}{}
	s.ordered = append(s.ordered, ext)
}

package gitlib

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// initialChangeCapacity is the initial capacity for file change slices.
const initialChangeCapacity = 16

// FileStatus classifies a changed file within a commit diff.
type FileStatus int

const (
	// StatusAdded means the file exists only in the child commit.
	StatusAdded FileStatus = iota
	// StatusModified means the file exists on both sides.
	StatusModified
	// StatusDeleted means the file exists only in the parent commit.
	StatusDeleted
	// StatusRenamed means the file moved; hunks refer to the new path.
	StatusRenamed
	// StatusUnsupported marks binary files and submodule entries. They carry
	// no line changes and are excluded from attribution.
	StatusUnsupported
)

// String returns the human-readable status tag.
func (s FileStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ChangeSide tells which image a changed line belongs to.
type ChangeSide int

const (
	// OldSide lines use the pre-image numbering (removals).
	OldSide ChangeSide = iota
	// NewSide lines use the post-image numbering (additions).
	NewSide
)

// LineChange is one changed line from one hunk.
type LineChange struct {
	Side  ChangeSide
	Line  int
	Blank bool // whitespace-only content, excluded from attribution
}

// Hunk is a contiguous block of changed lines with zero context.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []LineChange
}

// FileChange holds the exploded hunks of one changed file.
type FileChange struct {
	// Path is the path used for attribution: the new path, or the old path
	// for deletions.
	Path string
	// OldPath is set when it differs from Path (renames, deletions).
	OldPath string
	Status  FileStatus
	Hunks   []Hunk
}

// DiffCommits computes a zero-context diff between a commit and its comparison
// parent. The empty-tree sentinel as parent yields pure-addition changes, so
// root commits share the regular code path. When pathFilter is non-nil, files
// whose attribution path does not match are dropped before line explosion.
func (r *Repository) DiffCommits(ctx context.Context, child, parent Hash, pathFilter *regexp.Regexp) ([]FileChange, error) {
	newTree, err := r.commitTree(ctx, child)
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	var oldNative *git2go.Tree

	if !parent.IsEmptyTree() {
		oldTree, treeErr := r.commitTree(ctx, parent)
		if treeErr != nil {
			return nil, treeErr
		}
		defer oldTree.Free()

		oldNative = oldTree.Native()
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	opts.ContextLines = 0

	diff, err := r.repo.DiffTreeToTree(oldNative, newTree.Native(), &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	defer func() {
		_ = diff.Free()
	}()

	findOpts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff find options: %w", err)
	}

	err = diff.FindSimilar(&findOpts)
	if err != nil {
		return nil, fmt.Errorf("detect renames: %w", err)
	}

	return explodeDiff(diff, pathFilter)
}

// commitTree resolves the tree of the given commit.
func (r *Repository) commitTree(ctx context.Context, hash Hash) (*Tree, error) {
	commit, err := r.LookupCommit(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	return commit.Tree()
}

// explodeDiff walks a libgit2 diff and turns every hunk line into a LineChange.
func explodeDiff(diff *git2go.Diff, pathFilter *regexp.Regexp) ([]FileChange, error) {
	changes := make([]FileChange, 0, initialChangeCapacity)

	noopHunk := func(git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
		return func(git2go.DiffLine) error { return nil }, nil
	}

	fileCallback := func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		change, keep := classifyDelta(delta, pathFilter)
		if !keep {
			return noopHunk, nil
		}

		changes = append(changes, change)
		idx := len(changes) - 1

		if change.Status == StatusUnsupported {
			return noopHunk, nil
		}

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			changes[idx].Hunks = append(changes[idx].Hunks, Hunk{
				OldStart: hunk.OldStart,
				OldLines: hunk.OldLines,
				NewStart: hunk.NewStart,
				NewLines: hunk.NewLines,
			})
			hunkIdx := len(changes[idx].Hunks) - 1

			return func(line git2go.DiffLine) error {
				lc, ok := classifyLine(line)
				if ok {
					hunks := changes[idx].Hunks
					hunks[hunkIdx].Lines = append(hunks[hunkIdx].Lines, lc)
				}

				return nil
			}, nil
		}, nil
	}

	err := diff.ForEach(fileCallback, git2go.DiffDetailLines)
	if err != nil {
		return nil, fmt.Errorf("diff foreach: %w", err)
	}

	return changes, nil
}

// classifyDelta maps a libgit2 delta to a FileChange shell. The second return
// is false when the delta is filtered out entirely.
func classifyDelta(delta git2go.DiffDelta, pathFilter *regexp.Regexp) (FileChange, bool) {
	change := FileChange{Path: delta.NewFile.Path, OldPath: delta.OldFile.Path}

	switch delta.Status {
	case git2go.DeltaAdded:
		change.Status = StatusAdded
		change.OldPath = ""
	case git2go.DeltaDeleted:
		change.Status = StatusDeleted
		change.Path = delta.OldFile.Path
	case git2go.DeltaModified:
		change.Status = StatusModified
	case git2go.DeltaRenamed, git2go.DeltaCopied:
		change.Status = StatusRenamed
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaTypeChange, git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return FileChange{}, false
	}

	if change.OldPath == change.Path {
		change.OldPath = ""
	}

	if delta.Flags&git2go.DiffFlagBinary != 0 || isSubmodule(delta) {
		change.Status = StatusUnsupported
	}

	if pathFilter != nil && !pathFilter.MatchString(change.Path) {
		return FileChange{}, false
	}

	return change, true
}

// isSubmodule reports whether either side of the delta is a gitlink entry.
func isSubmodule(delta git2go.DiffDelta) bool {
	const gitlinkMode = uint16(git2go.FilemodeCommit)

	return delta.OldFile.Mode == gitlinkMode || delta.NewFile.Mode == gitlinkMode
}

// classifyLine converts a libgit2 diff line to a LineChange. Context lines and
// EOF markers are dropped.
func classifyLine(line git2go.DiffLine) (LineChange, bool) {
	blank := strings.TrimSpace(line.Content) == ""

	switch line.Origin {
	case git2go.DiffLineAddition:
		return LineChange{Side: NewSide, Line: line.NewLineno, Blank: blank}, true
	case git2go.DiffLineDeletion:
		return LineChange{Side: OldSide, Line: line.OldLineno, Blank: blank}, true
	case git2go.DiffLineContext, git2go.DiffLineContextEOFNL,
		git2go.DiffLineAddEOFNL, git2go.DiffLineDelEOFNL,
		git2go.DiffLineFileHdr, git2go.DiffLineHunkHdr, git2go.DiffLineBinary:
		return LineChange{}, false
	default:
		return LineChange{}, false
	}
}

// DiffContents computes the same zero-context hunk records from two raw file
// contents without touching the object store. It backs unit tests and callers
// that hold contents but no blob pair.
func DiffContents(oldData, newData []byte) []Hunk {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lineIndex := dmp.DiffLinesToChars(string(oldData), string(newData))
	edits := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineIndex)

	var (
		hunks   []Hunk
		current *Hunk
	)

	oldLine, newLine := 1, 1

	flush := func() {
		if current != nil {
			hunks = append(hunks, *current)
			current = nil
		}
	}

	open := func() *Hunk {
		if current == nil {
			current = &Hunk{OldStart: oldLine, NewStart: newLine}
		}

		return current
	}

	for _, edit := range edits {
		lines := splitLines(edit.Text)

		switch edit.Type {
		case diffmatchpatch.DiffEqual:
			flush()

			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffDelete:
			hunk := open()
			for _, text := range lines {
				hunk.Lines = append(hunk.Lines, LineChange{Side: OldSide, Line: oldLine, Blank: strings.TrimSpace(text) == ""})
				hunk.OldLines++
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			hunk := open()
			for _, text := range lines {
				hunk.Lines = append(hunk.Lines, LineChange{Side: NewSide, Line: newLine, Blank: strings.TrimSpace(text) == ""})
				hunk.NewLines++
				newLine++
			}
		}
	}

	flush()

	return hunks
}

// splitLines splits text into lines, dropping the empty remainder after a
// trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

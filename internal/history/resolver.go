// Package history resolves commit ranges and drives the per-commit
// attribution pipeline over them.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// ErrRangeEmpty is returned when the end revision of an explicit range is not
// an ancestor of the start revision.
var ErrRangeEmpty = errors.New("empty commit range")

// CommitPair is one step of the walk: a commit and its comparison parent.
// Root commits pair with the empty-tree sentinel so deletion/addition logic
// stays uniform downstream.
type CommitPair struct {
	Child  gitlib.Hash
	Parent gitlib.Hash
}

// Resolver produces ordered commit pair sequences from revision specs.
type Resolver struct {
	repo *gitlib.Repository
}

// NewResolver creates a resolver over the given repository.
func NewResolver(repo *gitlib.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// FullHistory returns every commit reachable from HEAD in topological order,
// newest first.
func (r *Resolver) FullHistory(ctx context.Context) ([]CommitPair, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, err
	}

	return r.walkPairs(ctx, head, gitlib.ZeroHash(), git2go.SortTopological)
}

// Range returns the commits between end (exclusive) and start (inclusive) in
// chronological-forward order, oldest first. Returns ErrRangeEmpty when end
// is not an ancestor of start.
func (r *Resolver) Range(ctx context.Context, startRev, endRev string) ([]CommitPair, error) {
	start, err := r.repo.RevparseCommit(startRev)
	if err != nil {
		return nil, err
	}

	end, err := r.repo.RevparseCommit(endRev)
	if err != nil {
		return nil, err
	}

	ancestor, err := r.repo.DescendantOf(start, end)
	if err != nil {
		return nil, err
	}

	if !ancestor {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrRangeEmpty, endRev, startRev)
	}

	return r.walkPairs(ctx, start, end, git2go.SortTime|git2go.SortReverse)
}

// LastN returns pairs for the N commits preceding and including startRev,
// newest first. The sequence stops early at a root commit.
func (r *Resolver) LastN(ctx context.Context, startRev string, n int) ([]CommitPair, error) {
	pairs := make([]CommitPair, 0, n)

	for i := range n {
		hash, err := r.repo.RevparseCommit(startRev + "~" + strconv.Itoa(i))
		if err != nil {
			if i > 0 && errors.Is(err, gitlib.ErrRevisionNotFound) {
				// Walked past the root commit.
				break
			}

			return nil, err
		}

		pair, err := r.pairFor(ctx, hash)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, pair)
	}

	return pairs, nil
}

// walkPairs runs a revision walk from start and pairs each visited commit
// with its comparison parent. A non-zero hide marks that commit and its
// ancestors as uninteresting.
func (r *Resolver) walkPairs(_ context.Context, start, hide gitlib.Hash, sorting git2go.SortType) ([]CommitPair, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, err
	}
	defer walk.Free()

	err = walk.Push(start)
	if err != nil {
		return nil, err
	}

	if !hide.IsZero() {
		err = walk.Hide(hide)
		if err != nil {
			return nil, err
		}
	}

	walk.Sorting(sorting)

	var pairs []CommitPair

	err = walk.Iterate(func(commit *gitlib.Commit) bool {
		pairs = append(pairs, CommitPair{
			Child:  commit.Hash(),
			Parent: commit.ComparisonParent(),
		})
		commit.Free()

		return true
	})
	if err != nil {
		return nil, err
	}

	return pairs, nil
}

// pairFor builds the pair for a single commit hash.
func (r *Resolver) pairFor(ctx context.Context, hash gitlib.Hash) (CommitPair, error) {
	commit, err := r.repo.LookupCommit(ctx, hash)
	if err != nil {
		return CommitPair{}, err
	}
	defer commit.Free()

	return CommitPair{Child: hash, Parent: commit.ComparisonParent()}, nil
}

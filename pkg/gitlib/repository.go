package gitlib

import (
	"context"
	"errors"
	"fmt"
	"os"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors for repository access.
var (
	// ErrRevisionNotFound is returned when a revision string does not resolve.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrRepositoryAccess is returned when a repository cannot be cloned or opened,
	// including credential failure after the retry.
	ErrRepositoryAccess = errors.New("repository access failed")
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// CredentialPrompter supplies a username and password for a remote URL.
// It is consulted once when an anonymous clone fails.
type CredentialPrompter interface {
	Prompt(url string) (username, password string, err error)
}

// CloneRepository clones url into path as a bare repository. If the anonymous
// clone fails, the prompter (when non-nil) is asked for credentials and the
// clone is retried once. A second failure is fatal.
func CloneRepository(url, path string, prompter CredentialPrompter) (*Repository, error) {
	repo, err := git2go.Clone(url, path, &git2go.CloneOptions{Bare: true})
	if err == nil {
		return &Repository{repo: repo, path: path}, nil
	}

	if prompter == nil {
		return nil, fmt.Errorf("%w: clone %s: %v", ErrRepositoryAccess, url, err)
	}

	username, password, promptErr := prompter.Prompt(url)
	if promptErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryAccess, promptErr)
	}

	credCallback := func(string, string, git2go.CredentialType) (*git2go.Credential, error) {
		cred, credErr := git2go.NewCredentialUserpassPlaintext(username, password)
		if credErr != nil {
			return nil, fmt.Errorf("build credential: %w", credErr)
		}

		return cred, nil
	}

	repo, err = git2go.Clone(url, path, &git2go.CloneOptions{
		Bare: true,
		FetchOptions: git2go.FetchOptions{
			RemoteCallbacks: git2go.RemoteCallbacks{CredentialsCallback: credCallback},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clone %s: %v", ErrRepositoryAccess, url, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// OpenOrClone opens uri when it is a local repository path, otherwise clones
// it into cloneDir.
func OpenOrClone(uri, cloneDir string, prompter CredentialPrompter) (*Repository, error) {
	info, statErr := os.Stat(uri)
	if statErr == nil && info.IsDir() {
		return OpenRepository(uri)
	}

	return CloneRepository(uri, cloneDir, prompter)
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// RevparseCommit resolves a revision string to a commit hash.
// Returns ErrRevisionNotFound when the revision does not resolve.
func (r *Repository) RevparseCommit(rev string) (Hash, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q: %v", ErrRevisionNotFound, rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q does not name a commit: %v", ErrRevisionNotFound, rev, err)
	}
	defer peeled.Free()

	return HashFromOid(peeled.Id()), nil
}

// DescendantOf reports whether commit is a descendant of ancestor.
func (r *Repository) DescendantOf(commit, ancestor Hash) (bool, error) {
	descendant, err := r.repo.DescendantOf(commit.ToOid(), ancestor.ToOid())
	if err != nil {
		return false, fmt.Errorf("descendant check: %w", err)
	}

	return descendant, nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(_ context.Context, hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}

	return &Blob{blob: blob}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// Walk creates a new revision walker.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// ContentsAt returns the raw contents of path in the tree of the given commit.
// A submodule entry at path yields ErrUnsupportedEntry.
func (r *Repository) ContentsAt(ctx context.Context, commit Hash, path string) ([]byte, error) {
	c, err := r.LookupCommit(ctx, commit)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if err != nil {
		return nil, fmt.Errorf("entry %q at %s: %w", path, commit.Short(), err)
	}

	if !entry.IsBlob() {
		return nil, fmt.Errorf("%w: %q at %s", ErrUnsupportedEntry, path, commit.Short())
	}

	blob, err := r.LookupBlob(ctx, entry.Hash())
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	contents := make([]byte, len(blob.Contents()))
	copy(contents, blob.Contents())

	return contents, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
)

// GitBackend reads objects out of a git repository cloned into memory. It
// suits teams that keep expectation suites under version control: the
// builder reads suites straight from the repo while writes stay with the
// normal review flow. The backend is read-only; Put and Delete return
// ErrReadOnly.
type GitBackend struct {
	mu         sync.Mutex
	Name       string             // name of the store this backend serves
	URL        *url.URL           // git repository URL
	Branch     string             // branch to clone; the remote default when empty
	Path       string             // directory inside the repository keys resolve under
	Auth       *githttp.BasicAuth // optional basic auth for private repositories
	fs         billy.Filesystem   // in-memory clone of the worktree
	repository *git.Repository
}

// NewGitBackend creates a backend for the repository at rawURL.
func NewGitBackend(name, rawURL, branch, dir string) (*GitBackend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse git url: %w", err)
	}
	return &GitBackend{Name: name, URL: u, Branch: branch, Path: dir}, nil
}

// GetName returns the name of the store this backend serves.
func (g *GitBackend) GetName() string {
	return g.Name
}

// ensureClone clones the repository into the in-memory filesystem on first
// use. Callers must hold the mutex.
func (g *GitBackend) ensureClone(ctx context.Context) error {
	if g.fs != nil {
		return nil
	}
	fs := memfs.New()
	logrus.Debugf("cloning %s into memory", g.URL.String())
	options := &git.CloneOptions{URL: g.URL.String(), Auth: g.Auth}
	if g.Branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		options.SingleBranch = true
	}
	repository, err := git.CloneContext(ctx, memory.NewStorage(), fs, options)
	if err != nil {
		return fmt.Errorf("clone %s: %w", g.URL, err)
	}
	g.fs = fs
	g.repository = repository
	return nil
}

// Refresh pulls the latest changes into the clone, cloning first if
// needed.
func (g *GitBackend) Refresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fs == nil {
		return g.ensureClone(ctx)
	}
	worktree, err := g.repository.Worktree()
	if err != nil {
		return err
	}
	options := &git.PullOptions{Auth: g.Auth}
	if g.Branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		options.SingleBranch = true
		options.Force = true
	}
	err = worktree.PullContext(ctx, options)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		logrus.Debug("clone already up to date")
		return nil
	}
	return err
}

func (g *GitBackend) filePath(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return path.Join(g.Path, key.String()), nil
}

// Get reads the file for the key out of the clone.
func (g *GitBackend) Get(ctx context.Context, key Key) ([]byte, error) {
	p, err := g.filePath(key)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureClone(ctx); err != nil {
		return nil, err
	}
	file, err := g.fs.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer func(file billy.File) {
		if err := file.Close(); err != nil {
			logrus.WithError(err).Debug("error closing file")
		}
	}(file)
	return io.ReadAll(file)
}

// Put returns ErrReadOnly: suites in git change through the review flow,
// not through this backend.
func (g *GitBackend) Put(context.Context, Key, []byte) error {
	return ErrReadOnly
}

// Delete returns ErrReadOnly.
func (g *GitBackend) Delete(context.Context, Key) error {
	return ErrReadOnly
}

// List walks the clone under the prefix and returns the keys found,
// sorted.
func (g *GitBackend) List(ctx context.Context, prefix Key) ([]Key, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureClone(ctx); err != nil {
		return nil, err
	}
	root := g.Path
	if len(prefix) > 0 {
		p, err := g.filePath(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}
	keys := []Key{}
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := g.fs.ReadDir(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, entry := range entries {
			p := path.Join(dir, entry.Name())
			if entry.IsDir() {
				if entry.Name() == ".git" {
					continue
				}
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(p, g.Path), "/")
			key := Key(strings.Split(rel, "/"))
			if key.Validate() != nil {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns the repository URL; individual files have no stable
// address across git hosts.
func (g *GitBackend) GetURL(Key) *url.URL {
	return g.URL
}

package store

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// FilesystemBackend stores objects as files under a base directory. It is
// the default Data Docs target: sites built into it can be opened straight
// from the browser via file:// URLs.
type FilesystemBackend struct {
	Name    string // name of the store this backend serves
	BaseDir string // directory all keys resolve under
}

// NewFilesystemBackend creates a backend rooted at baseDir, creating the
// directory if needed.
func NewFilesystemBackend(name, baseDir string) (*FilesystemBackend, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &FilesystemBackend{Name: name, BaseDir: abs}, nil
}

// GetName returns the name of the store this backend serves.
func (f *FilesystemBackend) GetName() string {
	return f.Name
}

func (f *FilesystemBackend) path(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(f.BaseDir, filepath.Join([]string(key)...)), nil
}

// Get reads the file for the key.
func (f *FilesystemBackend) Get(_ context.Context, key Key) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put writes the file for the key. The write goes to a temp file in the
// same directory followed by a rename, so readers never observe a partially
// written page.
func (f *FilesystemBackend) Put(_ context.Context, key Key, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes the file for the key and prunes directories left empty.
func (f *FilesystemBackend) Delete(_ context.Context, key Key) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	// Best effort cleanup of now-empty parents up to the base dir.
	for dir := filepath.Dir(p); dir != f.BaseDir; dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// List walks the tree under the prefix and returns the keys found, sorted.
func (f *FilesystemBackend) List(_ context.Context, prefix Key) ([]Key, error) {
	root := f.BaseDir
	if len(prefix) > 0 {
		p, err := f.path(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}
	keys := []Key{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(f.BaseDir, p)
		if err != nil {
			return err
		}
		key := Key(strings.Split(filepath.ToSlash(rel), "/"))
		if key.Validate() != nil {
			logrus.Debugf("skipping unlistable path %q", rel)
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns the file:// URL of the object.
func (f *FilesystemBackend) GetURL(key Key) *url.URL {
	p, err := f.path(key)
	if err != nil {
		return nil
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
}

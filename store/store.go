// Package store provides tuple-keyed storage backends for validation
// artifacts and generated Data Docs. A backend is selected at runtime from
// configuration; callers depend only on the Backend interface so local
// filesystem, cloud object storage, and database targets are
// interchangeable.
package store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when no object exists for the given key.
	ErrNotFound = errors.New("object not found")

	// ErrReadOnly is returned by write operations on read-only backends.
	ErrReadOnly = errors.New("backend is read-only")

	// ErrNotSupported is returned when a backend cannot implement an
	// operation at all, e.g. listing over plain HTTP.
	ErrNotSupported = errors.New("operation not supported")

	// ErrInvalidKey is returned for keys that cannot be mapped onto the
	// backend's namespace.
	ErrInvalidKey = errors.New("invalid key")
)

// Key addresses one object in a store as a tuple of path segments, e.g.
// {"validations", "orders.warning", "20230814T063000Z-nightly"}.
type Key []string

// Validate checks that every segment is usable as a path element on all
// backends. Separators and parent references are rejected so a key can
// never escape the store's base directory, bucket prefix, or table scope.
func (k Key) Validate() error {
	if len(k) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, segment := range k {
		if segment == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidKey, k.String())
		}
		if segment == "." || segment == ".." {
			return fmt.Errorf("%w: relative segment in %q", ErrInvalidKey, k.String())
		}
		if strings.ContainsAny(segment, `/\`) {
			return fmt.Errorf("%w: separator in segment %q", ErrInvalidKey, segment)
		}
	}
	return nil
}

// String renders the key in its canonical slash-joined form.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// ParseKey splits a slash-joined key back into its tuple form.
func ParseKey(s string) (Key, error) {
	k := Key(strings.Split(strings.Trim(s, "/"), "/"))
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// HasPrefix reports whether the key starts with the given prefix tuple.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, segment := range prefix {
		if k[i] != segment {
			return false
		}
	}
	return true
}

// Backend is a pluggable persistence target for tuple-keyed objects. All
// implementations are safe for concurrent use.
type Backend interface {
	// GetName returns the configured name of the store, used in logs and
	// the docs server routes.
	GetName() string

	// Get returns the object bytes or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores the object bytes, overwriting any previous value.
	Put(ctx context.Context, key Key, data []byte) error

	// Delete removes the object or returns ErrNotFound.
	Delete(ctx context.Context, key Key) error

	// List returns the keys under the given prefix, sorted. A nil prefix
	// lists everything. The result is empty, never an error, when nothing
	// matches.
	List(ctx context.Context, prefix Key) ([]Key, error)

	// GetURL returns the externally reachable URL of the object, or nil
	// when the backend has no addressable form.
	GetURL(key Key) *url.URL
}

// Refresher is implemented by backends that cache remote state and can be
// told to re-synchronize, e.g. the git backend pulling its clone.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ContentTypeForKey maps an object key to the Content-Type published
// alongside it. Cloud-hosted Data Docs only render in a browser when HTML
// and CSS objects carry their real types instead of binary/octet-stream.
// The docs server uses the same mapping when serving objects back out of a
// store.
func ContentTypeForKey(key Key) string {
	if len(key) == 0 {
		return "application/octet-stream"
	}
	name := key[len(key)-1]
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".json", ".ipynb":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// joinObjectKey joins an optional object prefix with the key segments into
// the flat name used by bucket stores.
func joinObjectKey(prefix string, key Key) string {
	parts := make([]string, 0, len(key)+1)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, key...)
	return strings.Join(parts, "/")
}

// splitObjectKey inverts joinObjectKey, returning false when the flat name
// does not live under the prefix.
func splitObjectKey(prefix, name string) (Key, bool) {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		if !strings.HasPrefix(name, prefix+"/") {
			return nil, false
		}
		name = strings.TrimPrefix(name, prefix+"/")
	}
	key := Key(strings.Split(name, "/"))
	if key.Validate() != nil {
		return nil, false
	}
	return key, true
}

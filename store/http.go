package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// HTTPBackend reads objects from a remote HTTP server, e.g. suites published
// behind an internal web server or another team's Data Docs site. The backend
// is read-only; Put and Delete return ErrReadOnly. Plain HTTP has no listing
// protocol, so List returns ErrNotSupported.
type HTTPBackend struct {
	Name    string       // name of the store this backend serves
	BaseURL *url.URL     // URL all keys resolve under
	APIKey  string       // optional API key sent as the X-API-Key header
	Client  *http.Client // HTTP client; http.DefaultClient when nil
}

// NewHTTPBackend creates a backend for objects under rawURL.
func NewHTTPBackend(name, rawURL, apiKey string) (*HTTPBackend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &HTTPBackend{Name: name, BaseURL: u, APIKey: apiKey}, nil
}

// GetName returns the name of the store this backend serves.
func (h *HTTPBackend) GetName() string {
	return h.Name
}

func (h *HTTPBackend) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

// Get fetches the object over HTTP. A 404 maps to ErrNotFound so callers see
// the same behavior as on every other backend.
func (h *HTTPBackend) Get(ctx context.Context, key Key) ([]byte, error) {
	u := h.GetURL(key)
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if h.APIKey != "" {
		request.Header.Set("X-API-Key", h.APIKey)
	}
	resp, err := h.client().Do(request)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Put returns ErrReadOnly: the server behind the base URL owns its contents.
func (h *HTTPBackend) Put(context.Context, Key, []byte) error {
	return ErrReadOnly
}

// Delete returns ErrReadOnly.
func (h *HTTPBackend) Delete(context.Context, Key) error {
	return ErrReadOnly
}

// List returns ErrNotSupported: plain HTTP exposes no listing protocol.
func (h *HTTPBackend) List(context.Context, Key) ([]Key, error) {
	return nil, ErrNotSupported
}

// GetURL returns the object URL under the base URL.
func (h *HTTPBackend) GetURL(key Key) *url.URL {
	if key.Validate() != nil {
		return nil
	}
	u := *h.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + key.String()
	return &u
}

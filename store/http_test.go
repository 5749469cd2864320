package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPBackend(t *testing.T) {
	// Serve a single suite document, guarded by an API key.
	testData := `{"suite_name": "orders.warning"}`
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/suites/orders.warning.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(testData))
	}))
	defer testServer.Close()

	backend, err := NewHTTPBackend("shared-suites", testServer.URL+"/suites", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if backend.GetName() != "shared-suites" {
		t.Errorf("unexpected name %q", backend.GetName())
	}

	ctx := context.Background()
	data, err := backend.Get(ctx, Key{"orders.warning.json"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != testData {
		t.Errorf("expected %q, got %q", testData, data)
	}

	// Missing objects map to the shared ErrNotFound.
	if _, err := backend.Get(ctx, Key{"missing.json"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// A wrong key is a plain error, not ErrNotFound.
	backend.APIKey = "wrong"
	if _, err := backend.Get(ctx, Key{"orders.warning.json"}); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestHTTPBackendReadOnly(t *testing.T) {
	backend, err := NewHTTPBackend("shared", "https://docs.example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := backend.Put(ctx, Key{"index.html"}, nil); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := backend.Delete(ctx, Key{"index.html"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if _, err := backend.List(ctx, nil); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}

	u := backend.GetURL(Key{"site", "index.html"})
	if u.String() != "https://docs.example.com/site/index.html" {
		t.Errorf("unexpected url %q", u)
	}
}

package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestKeyValidate(t *testing.T) {
	testCases := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{name: "single segment", key: Key{"index.html"}},
		{name: "nested segments", key: Key{"validations", "orders.warning", "20230814T063000Z-nightly.json"}},
		{name: "empty key", key: Key{}, wantErr: true},
		{name: "empty segment", key: Key{"a", "", "b"}, wantErr: true},
		{name: "dot segment", key: Key{"."}, wantErr: true},
		{name: "parent segment", key: Key{"a", ".."}, wantErr: true},
		{name: "slash in segment", key: Key{"a/b"}, wantErr: true},
		{name: "backslash in segment", key: Key{`a\b`}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.key.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("expectations/orders.warning.json")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(key, Key{"expectations", "orders.warning.json"}) {
		t.Errorf("unexpected key %v", key)
	}

	// Leading and trailing slashes are trimmed, not segments.
	key, err = ParseKey("/index.html")
	if err != nil {
		t.Fatal(err)
	}
	if key.String() != "index.html" {
		t.Errorf("unexpected key %q", key)
	}

	if _, err := ParseKey("a/../b"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := ParseKey(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestKeyHasPrefix(t *testing.T) {
	key := Key{"validations", "orders.warning", "run.json"}
	if !key.HasPrefix(Key{"validations"}) {
		t.Error("expected prefix match")
	}
	if !key.HasPrefix(Key{"validations", "orders.warning"}) {
		t.Error("expected prefix match")
	}
	if key.HasPrefix(Key{"expectations"}) {
		t.Error("unexpected prefix match")
	}
	if key.HasPrefix(Key{"validations", "orders.warning", "run.json", "extra"}) {
		t.Error("prefix longer than key must not match")
	}
}

func TestContentTypeForKey(t *testing.T) {
	testCases := []struct {
		key      Key
		expected string
	}{
		{key: Key{"index.html"}, expected: "text/html; charset=utf-8"},
		{key: Key{"static", "style.css"}, expected: "text/css; charset=utf-8"},
		{key: Key{"suite.json"}, expected: "application/json"},
		{key: Key{"edit.ipynb"}, expected: "application/json"},
		{key: Key{"logo.svg"}, expected: "image/svg+xml"},
		{key: Key{"archive.bin"}, expected: "application/octet-stream"},
	}
	for _, tc := range testCases {
		t.Run(tc.key.String(), func(t *testing.T) {
			if got := ContentTypeForKey(tc.key); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestJoinSplitObjectKey(t *testing.T) {
	key := Key{"expectations", "orders.warning.json"}

	// Prefixes join the same with or without a trailing slash.
	for _, prefix := range []string{"data_docs", "data_docs/", "/data_docs"} {
		if got := joinObjectKey(prefix, key); got != "data_docs/expectations/orders.warning.json" {
			t.Errorf("prefix %q: unexpected object name %q", prefix, got)
		}
	}
	if got := joinObjectKey("", key); got != "expectations/orders.warning.json" {
		t.Errorf("unexpected object name %q", got)
	}

	back, ok := splitObjectKey("data_docs", "data_docs/expectations/orders.warning.json")
	if !ok || !reflect.DeepEqual(back, key) {
		t.Errorf("unexpected round trip %v %v", back, ok)
	}

	// Objects outside the prefix belong to someone else.
	if _, ok := splitObjectKey("data_docs", "other/index.html"); ok {
		t.Error("expected no key for an object outside the prefix")
	}
}

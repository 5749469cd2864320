package store

import (
	"context"
	"errors"
	"testing"
)

func TestS3BackendURL(t *testing.T) {
	testCases := []struct {
		name     string
		backend  *S3Backend
		expected string
	}{
		{
			name:     "virtual hosted",
			backend:  &S3Backend{Bucket: "data-docs.example.com"},
			expected: "https://data-docs.example.com.s3.amazonaws.com/index.html",
		},
		{
			name:     "regional virtual hosted",
			backend:  &S3Backend{Bucket: "data-docs.example.com", Region: "eu-west-1"},
			expected: "https://data-docs.example.com.s3.eu-west-1.amazonaws.com/index.html",
		},
		{
			name:     "custom endpoint path style",
			backend:  &S3Backend{Bucket: "docs", Endpoint: "http://localhost:9000", PathStyle: true},
			expected: "http://localhost:9000/docs/index.html",
		},
		{
			name:     "prefixed",
			backend:  &S3Backend{Bucket: "docs", Prefix: "team/site", Endpoint: "http://localhost:9000"},
			expected: "http://localhost:9000/docs/team/site/index.html",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.backend.GetURL(Key{"index.html"})
			if u == nil || u.String() != tc.expected {
				t.Errorf("expected %q, got %v", tc.expected, u)
			}
		})
	}
}

func TestS3BackendInvalidKey(t *testing.T) {
	backend := &S3Backend{Name: "s3", Bucket: "docs"}
	if _, err := backend.Get(context.Background(), Key{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := backend.Put(context.Background(), Key{"a/b"}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := backend.Delete(context.Background(), Key{".."}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

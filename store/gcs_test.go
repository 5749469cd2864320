package store

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/fullstorydev/emulators/storage/gcsemu"
)

// newEmulatedGCS starts an in-memory GCS server and returns a client pointed
// at it, the way the docs publisher is tested without real cloud access.
func newEmulatedGCS(t *testing.T, bucket string) *storage.Client {
	t.Helper()
	svr, err := gcsemu.NewServer("127.0.0.1:9023", gcsemu.Options{})
	if err != nil {
		t.Fatalf("error starting in-memory storage server: %s", err)
	}
	t.Cleanup(svr.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", "http://127.0.0.1:9023")

	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		t.Fatalf("error creating storage client: %s", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.Bucket(bucket).Create(ctx, "test-project", nil); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	return client
}

func TestGCSBackend(t *testing.T) {
	client := newEmulatedGCS(t, "test-bucket")
	backend := &GCSBackend{
		Name:   "cloud-docs",
		Bucket: "test-bucket",
		Prefix: "data_docs",
		Client: client,
	}
	testBackendCRUD(t, backend)
}

func TestGCSBackendURL(t *testing.T) {
	backend := &GCSBackend{Name: "cloud-docs", Bucket: "data-docs.example.com", Prefix: "shared"}
	u := backend.GetURL(Key{"index.html"})
	expected := "https://storage.googleapis.com/data-docs.example.com/shared/index.html"
	if u.String() != expected {
		t.Errorf("expected %q, got %q", expected, u.String())
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBackend stores objects in a Google Cloud Storage bucket under an
// optional key prefix. A pre-built client can be injected, which is how
// tests point the backend at an emulator.
type GCSBackend struct {
	Name       string          // name of the store this backend serves
	Bucket     string          // GCS bucket name
	Prefix     string          // key prefix all objects live under
	Anonymous  bool            // skip authentication, for public buckets and emulators
	Client     *storage.Client // GCS client instance; lazily built when nil
	clientOnce sync.Once       // ensures the client is initialized only once
	clientErr  error           // stores the error from client initialization
}

// client returns the GCS client, building it on first use when one was not
// injected.
func (g *GCSBackend) client(ctx context.Context) (*storage.Client, error) {
	if g.Client != nil {
		return g.Client, nil
	}
	g.clientOnce.Do(func() {
		var opts []option.ClientOption
		if g.Anonymous {
			opts = append(opts, option.WithoutAuthentication())
		}
		g.Client, g.clientErr = storage.NewClient(ctx, opts...)
	})
	if g.clientErr != nil {
		return nil, g.clientErr
	}
	return g.Client, nil
}

// GetName returns the name of the store this backend serves.
func (g *GCSBackend) GetName() string {
	return g.Name
}

func (g *GCSBackend) object(ctx context.Context, key Key) (*storage.ObjectHandle, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Bucket(g.Bucket).Object(joinObjectKey(g.Prefix, key)), nil
}

// Get reads the object from the bucket.
func (g *GCSBackend) Get(ctx context.Context, key Key) ([]byte, error) {
	obj, err := g.object(ctx, key)
	if err != nil {
		return nil, err
	}
	reader, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Put uploads the object with its content type so published HTML renders
// in browsers.
func (g *GCSBackend) Put(ctx context.Context, key Key, data []byte) error {
	obj, err := g.object(ctx, key)
	if err != nil {
		return err
	}
	writer := obj.NewWriter(ctx)
	writer.ContentType = ContentTypeForKey(key)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		logrus.WithError(err).Debug("error closing object writer")
		return err
	}
	return nil
}

// Delete removes the object or returns ErrNotFound.
func (g *GCSBackend) Delete(ctx context.Context, key Key) error {
	obj, err := g.object(ctx, key)
	if err != nil {
		return err
	}
	err = obj.Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

// List iterates the bucket under the prefix and returns the keys found,
// sorted.
func (g *GCSBackend) List(ctx context.Context, prefix Key) ([]Key, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	full := joinObjectKey(g.Prefix, prefix)
	if full != "" {
		full += "/"
	}
	keys := []Key{}
	it := client.Bucket(g.Bucket).Objects(ctx, &storage.Query{Prefix: full})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		key, ok := splitObjectKey(g.Prefix, attrs.Name)
		if !ok {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns the public object URL on storage.googleapis.com.
func (g *GCSBackend) GetURL(key Key) *url.URL {
	return &url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + g.Bucket + "/" + joinObjectKey(g.Prefix, key),
	}
}

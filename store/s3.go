package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// S3Backend stores objects in an Amazon S3 bucket under an optional key
// prefix. Endpoint, path-style addressing, and static credentials cover
// S3-compatible services such as MinIO and LocalStack.
type S3Backend struct {
	Name       string     // name of the store this backend serves
	Bucket     string     // S3 bucket name
	Prefix     string     // key prefix all objects live under
	Region     string     // AWS region of the bucket
	Endpoint   string     // optional custom endpoint for S3-compatible services
	PathStyle  bool       // force path-style addressing (required by most S3-compatibles)
	AccessKey  string     // optional static credential pair; the default
	SecretKey  string     // AWS chain is used when empty
	Client     *s3.Client // S3 client instance; lazily built when nil
	clientOnce sync.Once  // ensures the client is initialized only once
	clientErr  error      // stores the error from client initialization
}

// client returns the S3 client, building it from the environment on first
// use when one was not injected.
func (s *S3Backend) client(ctx context.Context) (*s3.Client, error) {
	if s.Client != nil {
		return s.Client, nil
	}
	s.clientOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if s.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s.Region))
		}
		if s.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.clientErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		s.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if s.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.Endpoint)
			}
			o.UsePathStyle = s.PathStyle
		})
	})
	if s.clientErr != nil {
		return nil, s.clientErr
	}
	return s.Client, nil
}

// GetName returns the name of the store this backend serves.
func (s *S3Backend) GetName() string {
	return s.Name
}

// Get reads the object from the bucket.
func (s *S3Backend) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(joinObjectKey(s.Prefix, key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

// Put uploads the object. The content type is derived from the key so
// published HTML renders in browsers instead of downloading.
func (s *S3Backend) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(joinObjectKey(s.Prefix, key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentTypeForKey(key)),
	})
	if err != nil {
		logrus.WithError(err).Debug("error uploading object")
		return err
	}
	return nil
}

// Delete removes the object. S3 deletes are silent on missing keys, so the
// object is headed first to keep ErrNotFound semantics consistent across
// backends.
func (s *S3Backend) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	name := aws.String(joinObjectKey(s.Prefix, key))
	if _, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.Bucket), Key: name}); err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.Bucket), Key: name})
	return err
}

// List pages through the bucket under the prefix and returns the keys
// found, sorted.
func (s *S3Backend) List(ctx context.Context, prefix Key) ([]Key, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	full := joinObjectKey(s.Prefix, prefix)
	if full != "" {
		full += "/"
	}
	keys := []Key{}
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(full),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, object := range page.Contents {
			key, ok := splitObjectKey(s.Prefix, aws.ToString(object.Key))
			if !ok {
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns the public object URL: the virtual-hosted AWS form by
// default, or the endpoint path-style form for S3-compatible services.
func (s *S3Backend) GetURL(key Key) *url.URL {
	name := joinObjectKey(s.Prefix, key)
	if s.Endpoint != "" {
		u, err := url.Parse(s.Endpoint)
		if err != nil {
			return nil
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + s.Bucket + "/" + name
		return u
	}
	host := s.Bucket + ".s3.amazonaws.com"
	if s.Region != "" {
		host = s.Bucket + ".s3." + s.Region + ".amazonaws.com"
	}
	return &url.URL{Scheme: "https", Host: host, Path: "/" + name}
}

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"driftline/internal/domain"
)

var _ Store = (*GCSStore)(nil)

// GCSStore reads a landing zone on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore builds a GCS-backed store. With an empty keyFilePath the client
// falls back to application-default credentials.
func NewGCSStore(ctx context.Context, keyFilePath string) (*GCSStore, error) {
	var opts []option.ClientOption
	if keyFilePath != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, keyFilePath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// ListFolders returns the immediate child folder names under prefix, sorted.
func (s *GCSStore) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	prefix = normalizePrefix(prefix)

	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var folders []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list folders under gs://%s/%s: %w", bucket, prefix, err)
		}
		// Synthetic folder entries carry Prefix and an empty Name.
		if attrs.Prefix == "" {
			continue
		}
		if name := folderName(prefix, attrs.Prefix); name != "" {
			folders = append(folders, name)
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ListObjects returns the objects directly under prefix, sorted by key.
func (s *GCSStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	prefix = normalizePrefix(prefix)

	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under gs://%s/%s: %w", bucket, prefix, err)
		}
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		objects = append(objects, Object{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get opens an object for reading. The caller closes the returned reader.
func (s *GCSStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.ErrNotFound("object gs://%s/%s not found", bucket, key)
		}
		return nil, fmt.Errorf("get gs://%s/%s: %w", bucket, key, err)
	}
	return r, nil
}

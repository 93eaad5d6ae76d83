// Package objectstore abstracts the landing zones that producers drop CSV
// files into. Backends exist for S3-compatible storage, Google Cloud Storage
// and Azure Blob Storage; a Resolver picks the backend for a bucket URL.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"driftline/internal/domain"
)

// Object is a single stored file discovered under a landing prefix.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store lists and reads landing-zone objects. Prefixes use "/" separators;
// ListFolders and ListObjects return only direct children of the prefix.
type Store interface {
	ListFolders(ctx context.Context, bucket, prefix string) ([]string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Supported bucket URL schemes.
const (
	SchemeS3    = "s3"
	SchemeGCS   = "gs"
	SchemeAzure = "azblob"
)

// Location identifies the backend scheme and bucket of a landing URL.
type Location struct {
	Scheme string
	Bucket string
}

// ParseBucketURL splits a dataset bucket URL into backend scheme and bucket
// name. Supported forms:
//
//	s3://my-bucket
//	gs://my-bucket
//	azblob://my-container
//	my-bucket          (bare names default to S3)
//
// A path component is rejected; the dataset prefix is configured separately.
func ParseBucketURL(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("empty bucket URL")
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeS3, Bucket: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse bucket URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case SchemeS3, SchemeGCS, SchemeAzure:
	default:
		return Location{}, fmt.Errorf("unsupported bucket scheme %q in %q", u.Scheme, raw)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("empty bucket in %q", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return Location{}, fmt.Errorf("bucket URL %q must not carry a path, set the dataset prefix instead", raw)
	}
	return Location{Scheme: u.Scheme, Bucket: u.Host}, nil
}

// Resolver maps dataset bucket URLs to whichever backends are configured.
// Backends left nil are treated as not configured.
type Resolver struct {
	stores map[string]Store
}

// NewResolver builds a resolver over the configured backends.
func NewResolver(s3, gcs, azure Store) *Resolver {
	return &Resolver{stores: map[string]Store{
		SchemeS3:    s3,
		SchemeGCS:   gcs,
		SchemeAzure: azure,
	}}
}

// Resolve returns the backend store and bare bucket name for a bucket URL.
// An unknown scheme or an unconfigured backend is a validation error so the
// admin API can report it against the dataset.
func (r *Resolver) Resolve(bucketURL string) (Store, string, error) {
	loc, err := ParseBucketURL(bucketURL)
	if err != nil {
		return nil, "", domain.ErrValidation("invalid bucket URL: %v", err)
	}
	store := r.stores[loc.Scheme]
	if store == nil {
		return nil, "", domain.ErrValidation("bucket %q needs the %s landing backend, which is not configured", bucketURL, loc.Scheme)
	}
	return store, loc.Bucket, nil
}

// normalizePrefix ensures a non-empty prefix ends with "/" so listings only
// match whole path segments.
func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// folderName converts a common-prefix entry ("orders/2024-01-02-00-00-00/")
// into the bare folder segment ("2024-01-02-00-00-00").
func folderName(prefix, entry string) string {
	return strings.TrimSuffix(strings.TrimPrefix(entry, prefix), "/")
}

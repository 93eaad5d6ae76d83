package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"driftline/internal/domain"
)

var _ Store = (*S3Store)(nil)

// s3API is the slice of the S3 client the store uses. Tests substitute a fake.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads a landing zone on S3 or S3-compatible storage.
type S3Store struct {
	client s3API
}

// S3Options configures the S3 landing backend.
type S3Options struct {
	Region   string
	KeyID    string
	Secret   string
	Endpoint string // optional, for S3-compatible providers
}

// NewS3Store builds an S3Store with static credentials. When Endpoint is set
// the client switches to path-style addressing, which MinIO and most other
// S3-compatible providers require.
func NewS3Store(opts S3Options) *S3Store {
	sdkOpts := s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
	}
	if opts.Endpoint != "" {
		sdkOpts.BaseEndpoint = aws.String(opts.Endpoint)
		sdkOpts.UsePathStyle = true
	}
	return &S3Store{client: s3.New(sdkOpts)}
}

// ListFolders returns the immediate child folder names under prefix, sorted.
func (s *S3Store) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	prefix = normalizePrefix(prefix)

	var folders []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list folders under s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, cp := range out.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			if name := folderName(prefix, *cp.Prefix); name != "" {
				folders = append(folders, name)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(folders)
	return folders, nil
}

// ListObjects returns the objects directly under prefix, sorted by key.
// Zero-byte folder-marker keys (ending in "/") are skipped.
func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	prefix = normalizePrefix(prefix)

	var objects []Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects under s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			o := Object{Key: *obj.Key}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get opens an object for reading. The caller closes the returned body.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, domain.ErrNotFound("object s3://%s/%s not found", bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

package objectstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"driftline/internal/domain"
)

var _ Store = (*AzureStore)(nil)

// AzureStore reads a landing zone on Azure Blob Storage. Bucket names map to
// containers. Only account-key authentication is supported.
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore builds a store over https://<account>.blob.core.windows.net
// using shared-key credentials.
func NewAzureStore(accountName, accountKey string) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureStore{client: client}, nil
}

// ListFolders returns the immediate child folder names under prefix, sorted.
func (s *AzureStore) ListFolders(ctx context.Context, bucket, prefix string) ([]string, error) {
	prefix = normalizePrefix(prefix)

	pager := s.client.ServiceClient().NewContainerClient(bucket).
		NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{Prefix: &prefix})

	var folders []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list folders under azblob://%s/%s: %w", bucket, prefix, err)
		}
		for _, p := range page.Segment.BlobPrefixes {
			if p.Name == nil {
				continue
			}
			if name := folderName(prefix, *p.Name); name != "" {
				folders = append(folders, name)
			}
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ListObjects returns the blobs directly under prefix, sorted by key.
func (s *AzureStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	prefix = normalizePrefix(prefix)

	pager := s.client.ServiceClient().NewContainerClient(bucket).
		NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{Prefix: &prefix})

	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects under azblob://%s/%s: %w", bucket, prefix, err)
		}
		for _, b := range page.Segment.BlobItems {
			if b.Name == nil || strings.HasSuffix(*b.Name, "/") {
				continue
			}
			o := Object{Key: *b.Name}
			if b.Properties != nil {
				if b.Properties.ContentLength != nil {
					o.Size = *b.Properties.ContentLength
				}
				if b.Properties.LastModified != nil {
					o.LastModified = *b.Properties.LastModified
				}
			}
			objects = append(objects, o)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get opens a blob for reading. The caller closes the returned body.
func (s *AzureStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, domain.ErrNotFound("object azblob://%s/%s not found", bucket, key)
		}
		return nil, fmt.Errorf("get azblob://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

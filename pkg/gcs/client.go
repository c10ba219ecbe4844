package gcs

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type Uploader interface {
	Upload(ctx context.Context, fs afero.Fs, localPath, object string) (string, error)
}

type PrefixLister interface {
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
}

type Client struct {
	storageClient *storage.Client
	config        Config
}

func NewClient(ctx context.Context, c Config, opts ...option.ClientOption) (*Client, error) {
	storageClient, err := storage.NewClient(ctx, append(c.ClientOptions(), opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCS storage client")
	}

	return &Client{storageClient: storageClient, config: c}, nil
}

func (c *Client) Close() error {
	return c.storageClient.Close()
}

// Upload copies a local file into the bucket and returns its gs:// URI.
func (c *Client) Upload(ctx context.Context, fs afero.Fs, localPath, object string) (string, error) {
	localFile, err := fs.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open the local file %s", localPath)
	}
	defer localFile.Close()

	writer := c.storageClient.Bucket(c.config.BucketName).Object(object).NewWriter(ctx)
	writer.ContentType = "text/csv"

	if _, err := io.Copy(writer, localFile); err != nil {
		_ = writer.Close()
		return "", errors.Wrapf(err, "failed to copy %s to GCS object %s", localPath, object)
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close GCS writer for %s", object)
	}

	return c.config.URI(object), nil
}

// ListPrefixes returns the "directories" directly below prefix, each ending with "/".
func (c *Client) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	it := c.storageClient.Bucket(c.config.BucketName).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var prefixes []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list gs://%s/%s", c.config.BucketName, prefix)
		}
		if attrs.Prefix != "" {
			prefixes = append(prefixes, attrs.Prefix)
		}
	}

	return prefixes, nil
}

// UnloadedTables lists the tables that are unloaded into the bucket below prefix, one
// directory per table.
func UnloadedTables(ctx context.Context, lister PrefixLister, prefix string) ([]string, error) {
	prefixes, err := lister.ListPrefixes(ctx, prefix)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		tables = append(tables, strings.ToUpper(path.Base(strings.TrimSuffix(p, "/"))))
	}

	return tables, nil
}

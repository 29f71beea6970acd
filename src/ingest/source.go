package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

const bucketScheme = "gs://"

// ParseBucketURI splits gs://bucket/object into its parts.
func ParseBucketURI(path string) (bucket string, object string, ok bool) {
	if !strings.HasPrefix(path, bucketScheme) {
		return "", "", false
	}
	bucket, object, found := strings.Cut(strings.TrimPrefix(path, bucketScheme), "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// IsNotFound reports whether err means the log does not exist, locally or
// in a bucket.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}

// bucketObjectReader closes the object reader and, when the client was
// created for this read only, the client too.
type bucketObjectReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *bucketObjectReader) Close() error {
	err := r.Reader.Close()
	if r.client != nil {
		if closeErr := r.client.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func (li *LogIngester) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, bucketScheme) {
		return li.openBucketObject(ctx, path)
	}
	return os.Open(path)
}

func (li *LogIngester) openBucketObject(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, object, ok := ParseBucketURI(path)
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	client := li.bucketClient
	var ownedClient *storage.Client
	if client == nil {
		var err error
		client, err = storage.NewClient(ctx, li.clientOptions...)
		if err != nil {
			return nil, err
		}
		ownedClient = client
	}

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if ownedClient != nil {
			ownedClient.Close()
		}
		return nil, err
	}
	return &bucketObjectReader{Reader: reader, client: ownedClient}, nil
}

package general

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"capyviz/src/datamodels"
)

// StorageClientOptions returns the client options for storageConfig. A custom
// endpoint is taken to be an emulator and skips authentication.
func StorageClientOptions(storageConfig datamodels.StorageConfig) []option.ClientOption {
	if storageConfig.Endpoint == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(storageConfig.Endpoint),
		option.WithoutAuthentication(),
	}
}

// ObjectPath joins a bucket prefix and the base name of a local file.
func ObjectPath(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}

// CopyFileToBucket uploads the file at localPath to bucketName/objectPath.
func CopyFileToBucket(ctx context.Context, client *storage.Client, localPath, bucketName, objectPath string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	writer := client.Bucket(bucketName).Object(objectPath).NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"

	written, err := io.Copy(writer, file)
	if err != nil {
		writer.Close()
		return written, err
	}

	if err := writer.Close(); err != nil {
		return written, err
	}

	return written, nil
}

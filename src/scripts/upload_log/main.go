package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"capyviz/src/config"
	"capyviz/src/datamodels"
	"capyviz/src/utils/general"
)

// upload_log copies a local Capybot log into the configured bucket and
// prints the gs:// path to point log.path at.
func main() {
	if len(os.Args) != 2 {
		slog.Error("Usage: upload_log <capybot.log>")
		os.Exit(1)
	}

	_ = godotenv.Load()
	capyvizConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	objectURI, err := uploadLog(context.Background(), os.Args[1], capyvizConfig.StorageConfig)
	if err != nil {
		slog.Error("Failed to upload log", "error", err)
		os.Exit(1)
	}
	fmt.Println(objectURI)
}

// uploadLog returns the gs:// URI the log was written to. The storage client
// is closed before it returns, whatever the outcome.
func uploadLog(ctx context.Context, localPath string, storageConfig datamodels.StorageConfig) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("log file is not readable: %w", err)
	}
	if storageConfig.Bucket == "" {
		return "", fmt.Errorf("storage.bucket is not configured")
	}

	client, err := storage.NewClient(ctx, general.StorageClientOptions(storageConfig)...)
	if err != nil {
		return "", fmt.Errorf("failed to create storage client: %w", err)
	}
	defer client.Close()

	objectPath := general.ObjectPath(storageConfig.Prefix, localPath)
	written, err := general.CopyFileToBucket(ctx, client, localPath, storageConfig.Bucket, objectPath)
	if err != nil {
		return "", err
	}

	slog.Info("Uploaded log", "bytes", written, "object", objectPath)
	return fmt.Sprintf("gs://%s/%s", storageConfig.Bucket, objectPath), nil
}

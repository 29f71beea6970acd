package general

import (
	"path/filepath"
	"testing"

	"capyviz/src/datamodels"
)

func TestGetCurrentFilepath(t *testing.T) {
	path := GetCurrentFilepath()
	if path == "" {
		t.Error("Expected non-empty filepath")
	}
	if !filepath.IsAbs(path) {
		t.Error("Expected absolute path")
	}
}

func TestGetCurrentDir(t *testing.T) {
	dir := GetCurrentDir()
	if filepath.Base(dir) != "utils" {
		t.Errorf("Expected parent of general, got %s", dir)
	}
}

func TestObjectPath(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		localPath string
		want      string
	}{
		{"No prefix", "", "/var/log/capybot.log", "capybot.log"},
		{"Prefix", "runs/2024", "capybot.log", "runs/2024/capybot.log"},
		{"Trailing slash", "runs/", "./logs/capybot.log", "runs/capybot.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectPath(tt.prefix, tt.localPath); got != tt.want {
				t.Errorf("ObjectPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSystemUsage(t *testing.T) {
	report := GetSystemUsage()
	for _, key := range []string{"num_cpu", "num_goroutine", "memory_usage"} {
		if report[key] == "" {
			t.Errorf("Expected %s in report", key)
		}
	}
}

func TestStorageClientOptions(t *testing.T) {
	if opts := StorageClientOptions(datamodels.StorageConfig{Bucket: "logs"}); len(opts) != 0 {
		t.Errorf("Expected no options, got %d", len(opts))
	}
	opts := StorageClientOptions(datamodels.StorageConfig{Bucket: "logs", Endpoint: "http://localhost:4443/storage/v1/"})
	if len(opts) != 2 {
		t.Errorf("Expected endpoint and auth options, got %d", len(opts))
	}
}

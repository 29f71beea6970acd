package general

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func GetCurrentFilepath() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filename)
}

func GetCurrentDir() string {
	return filepath.Dir(GetCurrentFilepath())
}

// ListEnvVars logs the CAPYVIZ_ and CONFIG_PATH variables at debug level.
func ListEnvVars() {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "CAPYVIZ_") || strings.HasPrefix(env, "CONFIG_PATH=") {
			slog.Debug("Environment variable", "env", env)
		}
	}
}

func GetSystemUsage() map[string]string {
	report := make(map[string]string)

	report["num_cpu"] = fmt.Sprintf("%d", runtime.NumCPU())
	report["num_goroutine"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	memoryUsage := runtime.MemStats{}
	runtime.ReadMemStats(&memoryUsage)
	report["memory_usage"] = fmt.Sprintf("%d", memoryUsage.Alloc)
	report["memory_heap_inuse"] = fmt.Sprintf("%d", memoryUsage.HeapInuse)

	return report
}

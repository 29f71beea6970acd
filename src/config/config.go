package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"capyviz/src/datamodels"
	"capyviz/src/utils/errors"
	"capyviz/src/utils/general"
)

const envPrefix = "CAPYVIZ"

// Load reads the config file named by CONFIG_PATH, falling back to
// config.local.yaml at the repository root. Any key can be overridden with
// a CAPYVIZ_ environment variable, e.g. CAPYVIZ_LOG_PATH.
func Load() (*datamodels.CapyvizConfig, error) {
	// read config path from env var
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		currentDir := general.GetCurrentDir()
		// go up two levels to the repository root
		configPath = filepath.Join(currentDir, "..", "..", "config.local.yaml")
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*datamodels.CapyvizConfig, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", configPath)
	}
	return unmarshal(v)
}

// LoadDefaults builds a config from defaults and environment only.
func LoadDefaults() (*datamodels.CapyvizConfig, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.path", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.health_endpoint", "/health")
	v.SetDefault("server.dataset_endpoint", "/dataset")
	v.SetDefault("server.summary_endpoint", "/summary")
	v.SetDefault("server.ws_endpoint", "/ws")

	// Capybot charts redraw once per second
	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", time.Second)

	v.SetDefault("metrics_writer.ws_writer", true)
	v.SetDefault("metrics_writer.file_writer", false)
	v.SetDefault("metrics_writer.file_path", "")
	v.SetDefault("metrics_writer.file_format", string(datamodels.FormatJSON))

	v.SetDefault("analysis.imbalance_delta", datamodels.DefaultImbalanceDelta)
	v.SetDefault("analysis.arbitrage_limit", datamodels.DefaultArbitrageLimit)

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.endpoint", "")
}

func unmarshal(v *viper.Viper) (*datamodels.CapyvizConfig, error) {
	var capyvizConfig datamodels.CapyvizConfig
	if err := v.Unmarshal(&capyvizConfig); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return &capyvizConfig, nil
}

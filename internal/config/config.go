// Package config loads service configuration from an optional YAML file and
// applies PATHODEX_* environment overrides on top. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pathodex/internal/blob"
	"pathodex/internal/core"
)

// Config is the resolved service configuration.
type Config struct {
	ListenAddr  string  `yaml:"listen_addr"`
	DatasetPath string  `yaml:"dataset_path"`
	LogLevel    string  `yaml:"log_level"`
	TraceLog    string  `yaml:"trace_log"` // JSON-lines span log, empty disables tracing
	Storage     Storage `yaml:"storage"`
	Blob        Blob    `yaml:"blob"`
}

// Storage selects and parameterizes the persistent store.
type Storage struct {
	Driver      core.StorageDriver `yaml:"driver"`
	SQLitePath  string             `yaml:"sqlite_path"`
	PostgresDSN string             `yaml:"postgres_dsn"`
}

// Blob selects and parameterizes the artifact store.
type Blob struct {
	Driver blob.Driver `yaml:"driver"`
	FSRoot string      `yaml:"fs_root"`
	S3     S3          `yaml:"s3"`
}

// S3 holds the S3-compatible blob settings.
type S3 struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		DatasetPath: "diseases.csv",
		LogLevel:    "info",
		Storage: Storage{
			Driver:     core.StorageSQLite,
			SQLitePath: "pathodex.db",
		},
		Blob: Blob{
			Driver: blob.DriverFilesystem,
			FSRoot: "blobdata",
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is non-empty or PATHODEX_CONFIG is set), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PATHODEX_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("blob: unknown driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob: s3 driver requires a bucket")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "PATHODEX_LISTEN_ADDR")
	setString(&cfg.DatasetPath, "PATHODEX_DATASET")
	setString(&cfg.LogLevel, "PATHODEX_LOG_LEVEL")
	setString(&cfg.TraceLog, "PATHODEX_TRACE_LOG")

	if v := strings.TrimSpace(os.Getenv("PATHODEX_STORAGE_DRIVER")); v != "" {
		cfg.Storage.Driver = core.StorageDriver(v)
	}
	setString(&cfg.Storage.SQLitePath, "PATHODEX_SQLITE_PATH")
	setString(&cfg.Storage.PostgresDSN, "PATHODEX_POSTGRES_DSN")

	if v := strings.TrimSpace(os.Getenv("PATHODEX_BLOB_DRIVER")); v != "" {
		cfg.Blob.Driver = blob.Driver(v)
	}
	setString(&cfg.Blob.FSRoot, "PATHODEX_BLOB_FS_ROOT")
	setString(&cfg.Blob.S3.Region, "PATHODEX_S3_REGION")
	setString(&cfg.Blob.S3.Bucket, "PATHODEX_S3_BUCKET")
	setString(&cfg.Blob.S3.Endpoint, "PATHODEX_S3_ENDPOINT")
	if v := strings.TrimSpace(os.Getenv("PATHODEX_S3_PATH_STYLE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Blob.S3.PathStyle = parsed
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

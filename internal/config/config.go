package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
)

// Config holds the collectfs server configuration.
type Config struct {
	Server      ServerConfig       `json:"server" yaml:"server"`
	Auth        AuthConfig         `json:"auth" yaml:"auth"`
	Store       StoreConfig        `json:"store" yaml:"store"`
	NATS        NATSConfig         `json:"nats" yaml:"nats"`
	Worker      WorkerConfig       `json:"worker" yaml:"worker"`
	Backends    []BackendConfig    `json:"backends" yaml:"backends"`
	Collections []CollectionConfig `json:"collections" yaml:"collections"`
	Logger      logger.Config      `json:"logger" yaml:"logger"`
}

type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr"`
	MaxUploadSize int64  `json:"max_upload_size" yaml:"max_upload_size"`
}

// AuthConfig enables bearer-token verification. An empty secret runs the
// server without authentication and every caller is anonymous.
type AuthConfig struct {
	Secret string `json:"secret" yaml:"secret"`
	// Anonymous, when non-empty, is the principal assigned to requests
	// no token identified, letting access rules name it explicitly.
	Anonymous string `json:"anonymous" yaml:"anonymous"`
}

// StoreConfig selects the metadata store.
type StoreConfig struct {
	// Driver is "memory" or "redis".
	Driver string      `json:"driver" yaml:"driver"`
	Redis  RedisConfig `json:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// NATSConfig wires the sync bridge and the record event publisher.
// An empty URL disables both.
type NATSConfig struct {
	URL string `json:"url" yaml:"url"`
}

type WorkerConfig struct {
	Lanes           int    `json:"lanes" yaml:"lanes"`
	QueueSize       int    `json:"queue_size" yaml:"queue_size"`
	MaxAttempts     int    `json:"max_attempts" yaml:"max_attempts"`
	SweepIntervalMS int    `json:"sweep_interval_ms" yaml:"sweep_interval_ms"`
	SpoolDir        string `json:"spool_dir" yaml:"spool_dir"`
}

// BackendConfig declares one storage backend. Kind selects the adapter
// and only the matching sub-section is read.
type BackendConfig struct {
	Name string            `json:"name" yaml:"name"`
	Kind string            `json:"kind" yaml:"kind"` // "disk", "s3", "memory"
	Disk DiskBackendConfig `json:"disk" yaml:"disk"`
	S3   S3BackendConfig   `json:"s3" yaml:"s3"`
}

type DiskBackendConfig struct {
	Root  string `json:"root" yaml:"root"`
	FSync bool   `json:"fsync" yaml:"fsync"`
}

type S3BackendConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// CollectionConfig declares one collection over named backends. The
// backend list fixes placement order: downloads prefer earlier entries.
type CollectionConfig struct {
	Name              string              `json:"name" yaml:"name"`
	Backends          []string            `json:"backends" yaml:"backends"`
	Filter            *domain.FilterRules `json:"filter" yaml:"filter"`
	Access            AccessConfig        `json:"access" yaml:"access"`
	PartialCopyRemove bool                `json:"partial_copy_remove" yaml:"partial_copy_remove"`
	ChunkSize         int                 `json:"chunk_size" yaml:"chunk_size"`
}

// AccessConfig lists policy entries per operation. An entry is "anyone",
// "authenticated", "!<principal>" to deny one principal, or a principal
// name to allow it. An empty list denies the operation outright.
type AccessConfig struct {
	Insert   []string `json:"insert" yaml:"insert"`
	Update   []string `json:"update" yaml:"update"`
	Remove   []string `json:"remove" yaml:"remove"`
	Download []string `json:"download" yaml:"download"`
	Fetch    []string `json:"fetch" yaml:"fetch"`
}

// DefaultConfig returns a single-node development profile: in-memory
// metadata, one local disk backend, one open collection.
func DefaultConfig() *Config {
	openAccess := []string{"anyone"}

	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			MaxUploadSize: 512 * 1024 * 1024, // 512MB
		},
		Store: StoreConfig{
			Driver: "memory",
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Worker: WorkerConfig{
			SweepIntervalMS: 30000,
			SpoolDir:        filepath.Join(os.TempDir(), "collectfs-spool"),
		},
		Backends: []BackendConfig{
			{Name: "disk", Kind: "disk", Disk: DiskBackendConfig{Root: "./data"}},
		},
		Collections: []CollectionConfig{
			{
				Name:     "files",
				Backends: []string{"disk"},
				Access: AccessConfig{
					Insert:   openAccess,
					Update:   openAccess,
					Remove:   openAccess,
					Download: openAccess,
					Fetch:    openAccess,
				},
			},
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		// An explicit path must exist; the implicit per-env path may not,
		// in which case the development defaults apply.
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

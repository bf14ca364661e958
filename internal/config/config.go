package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by ApplyDefaults when a field is left empty.
const (
	DefaultMode            = "poll"
	DefaultIntervalSeconds = 5
	DefaultBaseline        = "empty"
	DefaultLogLimit        = 100
	DefaultQueue           = "mirror.updated"
)

// Config represents the main configuration for bizmirror.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Store      StoreConfig      `toml:"store"`
	Mirror     MirrorConfig     `toml:"mirror"`
	Replicas   []ReplicaConfig  `toml:"replicas"`
	Encryption EncryptionConfig `toml:"encryption"`
	Notify     NotifyConfig     `toml:"notify"`
}

// StoreConfig locates the SQLite snapshot store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// MirrorConfig controls change detection and the JSON output directory.
type MirrorConfig struct {
	OutputDir       string   `toml:"output_dir"`
	Mode            string   `toml:"mode"`             // "poll" (default) or "notify"
	IntervalSeconds int      `toml:"interval_seconds"` // polling period, must be positive
	Baseline        string   `toml:"baseline"`         // "empty" (default) or "live"
	LogLimit        int      `toml:"log_limit"`        // entries kept in change_log.json
	AtomicWrites    bool     `toml:"atomic_writes"`
	ExcludeTables   []string `toml:"exclude_tables"` // glob patterns
}

// Interval returns the polling period as a duration.
func (m MirrorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// ReplicaConfig represents configuration for a replica destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ReplicaConfig struct {
	Type    string `toml:"type"` // "memory", "s3", or "filesystem"
	Name    string `toml:"name"`
	Encrypt bool   `toml:"encrypt"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for replica encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "envelope"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NotifyConfig selects where "mirror updated" events go.
type NotifyConfig struct {
	Type  string `toml:"type"`          // "none" (default) or "amqp"
	URL   string `toml:"url,omitempty"` // falls back to RABBITMQ_URL, then AMQP_URL
	Queue string `toml:"queue,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default paths.
func NewConfig(baseDir string) *Config {
	cfg := &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store:   StoreConfig{Path: filepath.Join(baseDir, "business.db")},
		Mirror: MirrorConfig{
			OutputDir: filepath.Join(baseDir, "json_auto"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "bizmirror.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "bizmirror.key"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.Mirror.Mode == "" {
		c.Mirror.Mode = DefaultMode
	}
	if c.Mirror.IntervalSeconds == 0 {
		c.Mirror.IntervalSeconds = DefaultIntervalSeconds
	}
	if c.Mirror.Baseline == "" {
		c.Mirror.Baseline = DefaultBaseline
	}
	if c.Mirror.LogLimit == 0 {
		c.Mirror.LogLimit = DefaultLogLimit
	}
	if c.Notify.Type == "" {
		c.Notify.Type = "none"
	}
	if c.Notify.Type == "amqp" && c.Notify.Queue == "" {
		c.Notify.Queue = DefaultQueue
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Mirror.OutputDir == "" {
		return fmt.Errorf("mirror.output_dir is required")
	}
	switch c.Mirror.Mode {
	case "poll", "notify":
	default:
		return fmt.Errorf("unknown mirror.mode: %q", c.Mirror.Mode)
	}
	if c.Mirror.IntervalSeconds <= 0 {
		return fmt.Errorf("mirror.interval_seconds must be positive, got %d", c.Mirror.IntervalSeconds)
	}
	switch c.Mirror.Baseline {
	case "empty", "live":
	default:
		return fmt.Errorf("unknown mirror.baseline: %q", c.Mirror.Baseline)
	}
	if c.Mirror.LogLimit < 0 {
		return fmt.Errorf("mirror.log_limit must not be negative, got %d", c.Mirror.LogLimit)
	}

	names := make(map[string]bool, len(c.Replicas))
	for i, r := range c.Replicas {
		if r.Name == "" {
			return fmt.Errorf("replicas[%d]: name is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("replicas[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true
	}

	switch c.Notify.Type {
	case "none", "amqp":
	default:
		return fmt.Errorf("unknown notify.type: %q", c.Notify.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

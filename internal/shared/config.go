package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultConfigPath is where the CLI looks for configuration when no --config flag is given.
const DefaultConfigPath = "loomops.toml"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	FolderID        string        `toml:"folder_id"`
	CredentialsFile string        `toml:"credentials_file"`
	WorkspaceURL    string        `toml:"workspace_url"`
	Paths           PathsConfig   `toml:"paths"`
	Browser         BrowserConfig `toml:"browser"`
	Upload          UploadConfig  `toml:"upload"`
	Embed           EmbedConfig   `toml:"embed"`
	Sync            SyncConfig    `toml:"sync"`
	Drive           DriveConfig   `toml:"drive"`
}

// PathsConfig locates the on-disk state shared between runs.
type PathsConfig struct {
	StagingDir string `toml:"staging_dir"`
	Ledger     string `toml:"ledger"`
	Session    string `toml:"session"`
	LogFile    string `toml:"log_file"`
}

// BrowserConfig controls the automated browser.
type BrowserConfig struct {
	Headless  bool   `toml:"headless"`
	UserAgent string `toml:"user_agent"`
}

// UploadConfig holds the upload retry and monitoring budgets.
type UploadConfig struct {
	MaxAttempts              int `toml:"max_attempts"`
	PollIntervalSeconds      int `toml:"poll_interval_seconds"`
	StuckThresholdSeconds    int `toml:"stuck_threshold_seconds"`
	AttemptCeilingSeconds    int `toml:"attempt_ceiling_seconds"`
	ProcessingTimeoutSeconds int `toml:"processing_timeout_seconds"`
}

// EmbedConfig holds the embed extraction budgets.
type EmbedConfig struct {
	MaxAttempts      int `toml:"max_attempts"`
	LifetimeAttempts int `toml:"lifetime_attempts"`
}

// SyncConfig controls the workspace listing crawl.
type SyncConfig struct {
	StaleScrollLimit int `toml:"stale_scroll_limit"`
	ScrollSettleMS   int `toml:"scroll_settle_ms"`
}

// DriveConfig controls requests made against the storage provider.
type DriveConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

func (u UploadConfig) PollInterval() time.Duration {
	return time.Duration(u.PollIntervalSeconds) * time.Second
}

func (u UploadConfig) StuckThreshold() time.Duration {
	return time.Duration(u.StuckThresholdSeconds) * time.Second
}

func (u UploadConfig) AttemptCeiling() time.Duration {
	return time.Duration(u.AttemptCeilingSeconds) * time.Second
}

func (u UploadConfig) ProcessingTimeout() time.Duration {
	return time.Duration(u.ProcessingTimeoutSeconds) * time.Second
}

func (s SyncConfig) ScrollSettle() time.Duration {
	return time.Duration(s.ScrollSettleMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadOrDefault loads the config at path, falling back to [DefaultConfig] when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, ErrMissingConfig) {
		return DefaultConfig(), nil
	}
	return config, err
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports budgets that would stall or disable the pipeline.
func (c *Config) Validate() error {
	var problems []string
	if c.Upload.MaxAttempts < 1 {
		problems = append(problems, "upload.max_attempts must be at least 1")
	}
	if c.Upload.PollIntervalSeconds < 1 {
		problems = append(problems, "upload.poll_interval_seconds must be at least 1")
	}
	if c.Upload.StuckThresholdSeconds < c.Upload.PollIntervalSeconds {
		problems = append(problems, "upload.stuck_threshold_seconds must not be shorter than the poll interval")
	}
	if c.Upload.AttemptCeilingSeconds < c.Upload.StuckThresholdSeconds {
		problems = append(problems, "upload.attempt_ceiling_seconds must not be shorter than the stuck threshold")
	}
	if c.Embed.MaxAttempts < 1 {
		problems = append(problems, "embed.max_attempts must be at least 1")
	}
	if c.Embed.LifetimeAttempts < c.Embed.MaxAttempts {
		problems = append(problems, "embed.lifetime_attempts must not be lower than embed.max_attempts")
	}
	if c.Sync.StaleScrollLimit < 1 {
		problems = append(problems, "sync.stale_scroll_limit must be at least 1")
	}
	if c.Paths.StagingDir == "" || c.Paths.Ledger == "" || c.Paths.Session == "" {
		problems = append(problems, "paths.staging_dir, paths.ledger and paths.session are required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// SaveConfig atomically writes the configuration to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := WriteFileAtomic(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

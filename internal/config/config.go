// Package config loads whence configuration from .whence/config.toml with
// environment-variable overrides.
package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the complete whence configuration.
type Config struct {
	Version int `json:"version" toml:"version" mapstructure:"version"`

	Backend BackendConfig `json:"backend" toml:"backend" mapstructure:"backend"`
	Index   IndexConfig   `json:"index" toml:"index" mapstructure:"index"`
	Limits  LimitsConfig  `json:"limits" toml:"limits" mapstructure:"limits"`
	Store   StoreConfig   `json:"store" toml:"store" mapstructure:"store"`
	Logging LoggingConfig `json:"logging" toml:"logging" mapstructure:"logging"`
}

// BackendConfig selects the reasoning backend. The credential itself never
// lives in the file; only the name of the environment variable holding it.
type BackendConfig struct {
	Provider      string `json:"provider" toml:"provider" mapstructure:"provider"`
	Model         string `json:"model" toml:"model" mapstructure:"model"`
	BaseURL       string `json:"baseUrl" toml:"baseUrl" mapstructure:"baseUrl"`
	CredentialEnv string `json:"credentialEnv" toml:"credentialEnv" mapstructure:"credentialEnv"`
	MaxTokens     int    `json:"maxTokens" toml:"maxTokens" mapstructure:"maxTokens"`
	TimeoutMs     int    `json:"timeoutMs" toml:"timeoutMs" mapstructure:"timeoutMs"`
}

// Credential resolves the API key from the configured environment variable.
func (b BackendConfig) Credential() string {
	if b.CredentialEnv == "" {
		return ""
	}
	return os.Getenv(b.CredentialEnv)
}

// IndexConfig locates the SCIP reference index.
type IndexConfig struct {
	ScipPath string `json:"scipPath" toml:"scipPath" mapstructure:"scipPath"`
}

// LimitsConfig bounds evidence gathering and prompt rendering.
type LimitsConfig struct {
	ContextLines       int `json:"contextLines" toml:"contextLines" mapstructure:"contextLines"`
	SampleCap          int `json:"sampleCap" toml:"sampleCap" mapstructure:"sampleCap"`
	MaxCommits         int `json:"maxCommits" toml:"maxCommits" mapstructure:"maxCommits"`
	MaxDiffBytes       int `json:"maxDiffBytes" toml:"maxDiffBytes" mapstructure:"maxDiffBytes"`
	HistoryOutputBytes int `json:"historyOutputBytes" toml:"historyOutputBytes" mapstructure:"historyOutputBytes"`
	HistoryTimeoutMs   int `json:"historyTimeoutMs" toml:"historyTimeoutMs" mapstructure:"historyTimeoutMs"`
}

// StoreConfig controls the analysis journal.
type StoreConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" toml:"path" mapstructure:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			Provider:      "anthropic",
			Model:         "claude-3-5-sonnet-20240620",
			CredentialEnv: "ANTHROPIC_API_KEY",
			MaxTokens:     1024,
			TimeoutMs:     45000,
		},
		Index: IndexConfig{
			ScipPath: "index.scip",
		},
		Limits: LimitsConfig{
			ContextLines:       6,
			SampleCap:          10,
			MaxCommits:         20,
			MaxDiffBytes:       4096,
			HistoryOutputBytes: 10 * 1024 * 1024,
			HistoryTimeoutMs:   30000,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    ".whence/journal.db",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .whence/config.toml under repoRoot.
// A missing file yields the defaults; WHENCE_* environment variables
// override individual keys either way.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("backend.provider", defaults.Backend.Provider)
	v.SetDefault("backend.model", defaults.Backend.Model)
	v.SetDefault("backend.credentialEnv", defaults.Backend.CredentialEnv)
	v.SetDefault("backend.maxTokens", defaults.Backend.MaxTokens)
	v.SetDefault("backend.timeoutMs", defaults.Backend.TimeoutMs)
	v.SetDefault("index.scipPath", defaults.Index.ScipPath)
	v.SetDefault("limits.contextLines", defaults.Limits.ContextLines)
	v.SetDefault("limits.sampleCap", defaults.Limits.SampleCap)
	v.SetDefault("limits.maxCommits", defaults.Limits.MaxCommits)
	v.SetDefault("limits.maxDiffBytes", defaults.Limits.MaxDiffBytes)
	v.SetDefault("limits.historyOutputBytes", defaults.Limits.HistoryOutputBytes)
	v.SetDefault("limits.historyTimeoutMs", defaults.Limits.HistoryTimeoutMs)
	v.SetDefault("store.enabled", defaults.Store.Enabled)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(repoRoot, ".whence"))

	v.SetEnvPrefix("WHENCE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigPath returns the config file location under repoRoot.
func ConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".whence", "config.toml")
}

const configHeader = `# whence configuration
# The backend credential is read from the environment variable named by
# backend.credentialEnv; it is never stored in this file.

`

// WriteDefault writes a commented default config file, creating .whence/ if
// needed. Refuses to overwrite an existing file.
func WriteDefault(repoRoot string) (string, error) {
	path := ConfigPath(repoRoot)
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	body, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, append([]byte(configHeader), body...), 0o644)
}

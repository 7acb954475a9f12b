package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lawchat-terminal/internal/models"
)

const (
	DefaultConfigDir  = ".lawchat-terminal"
	DefaultConfigFile = "config.yaml"

	// BackendURLEnv overrides backend.base_url when set
	BackendURLEnv = "LAWCHAT_BACKEND_URL"

	HistorySourceTalks   = "talks"
	HistorySourceRecords = "records"
)

// Config represents the application configuration
type Config struct {
	Backend BackendConfig                   `yaml:"backend"`
	Chat    ChatConfig                      `yaml:"chat"`
	Roles   map[models.Role]models.RoleInfo `yaml:"roles"`
	Cache   CacheConfig                     `yaml:"cache"`
	Log     LogConfig                       `yaml:"log"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`

	// RequestTimeoutSeconds bounds the non-streaming calls (new id, history).
	// Reply streams are never cut by it.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

type ChatConfig struct {
	WelcomeMessage string `yaml:"welcome_message"`
	Placeholder    string `yaml:"placeholder"`
	ResetDelayMs   int    `yaml:"reset_delay_ms"`
	ResetMessage   string `yaml:"reset_message"`

	// HistorySource selects the history endpoint: "talks" or "records"
	HistorySource string `yaml:"history_source"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // empty means <config dir>/cache
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty means <config dir>/logs
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:               "http://127.0.0.1:8000",
			RequestTimeoutSeconds: 30,
		},
		Chat: ChatConfig{
			WelcomeMessage: "欢迎来到法律法规知识问答系统！",
			Placeholder:    "请输入内容",
			ResetDelayMs:   200,
			ResetMessage:   "This is a mock reset message.",
			HistorySource:  HistorySourceTalks,
		},
		Roles: models.DefaultRoles(),
		Cache: CacheConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RequestTimeout returns the timeout for non-streaming backend calls
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// ResetDelay returns how long the reset affordance waits before replacing the last message
func (c *Config) ResetDelay() time.Duration {
	return time.Duration(c.Chat.ResetDelayMs) * time.Millisecond
}

// Role returns display metadata for role, falling back to the defaults
func (c *Config) Role(role models.Role) models.RoleInfo {
	if info, ok := c.Roles[role]; ok && info.Name != "" {
		return info
	}
	return models.DefaultRoles()[role]
}

// GetConfigDir returns the directory holding config, cache and logs
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, DefaultConfigFile), nil
}

// CacheDir resolves the badger cache directory
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cache"), nil
}

// LogDir resolves the log file directory
func (c *Config) LogDir() (string, error) {
	if c.Log.Dir != "" {
		return c.Log.Dir, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "logs"), nil
}

// Load loads the configuration from the default path, creating it if missing
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path, creating a default file if it doesn't exist
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveTo(cfg, configPath); err != nil {
			// The app still works with defaults when the config dir is read-only
			return cfg.withEnv(), nil
		}
		return cfg.withEnv(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so partial files keep sensible values
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg = cfg.withEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) withEnv() *Config {
	if v := strings.TrimSpace(os.Getenv(BackendURLEnv)); v != "" {
		c.Backend.BaseURL = v
	}
	return c
}

// Save saves the configuration to the default path
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, configPath)
}

// SaveTo saves the configuration to path
func SaveTo(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := validateBaseURL(c.Backend.BaseURL); err != nil {
		return err
	}

	if c.Backend.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("backend.request_timeout_seconds must be positive, got %d", c.Backend.RequestTimeoutSeconds)
	}

	if c.Chat.ResetDelayMs < 0 {
		return fmt.Errorf("chat.reset_delay_ms must not be negative, got %d", c.Chat.ResetDelayMs)
	}

	switch c.Chat.HistorySource {
	case HistorySourceTalks, HistorySourceRecords:
	default:
		return fmt.Errorf("chat.history_source must be %q or %q, got %q",
			HistorySourceTalks, HistorySourceRecords, c.Chat.HistorySource)
	}

	for role := range c.Roles {
		if !role.Valid() {
			return fmt.Errorf("roles: unknown role %q", role)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url must include a host, got %q", raw)
	}
	return nil
}

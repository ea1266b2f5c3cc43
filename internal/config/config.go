// internal/config/config.go
//
// This package handles configuration and the ~/.birdwatcher home directory.
// The first launch writes a commented config.yaml that users can edit.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HomeDirName is the directory created under the user's home.
	HomeDirName = ".birdwatcher"

	// HomeEnv overrides the home directory location.
	HomeEnv = "BIRDWATCHER_HOME"

	defaultDatabase      = "birdwatcher.db"
	defaultHistoryFile   = "history"
	defaultLogLevel      = "info"
	defaultThreads       = 10
	defaultHTTPTimeout   = 15 * time.Second
	defaultHTTPRetries   = 2
	defaultSocialBaseURL = "https://api.twitter.com"
)

const defaultConfigYAML = `# birdwatcher configuration
version: 1

# SQLite database file. Relative paths resolve against this directory.
database: birdwatcher.db

# Command history for the interactive prompt.
history_file: history

# debug, info, warn or error. Logs are written to logs/birdwatcher.log.
log_level: info

# Default worker pool size for modules that fan work out.
threads: 10

http:
  timeout: 15s
  retries: 2
  # Leave empty to rotate through the built-in browser user agents.
  user_agents: []

social:
  base_url: https://api.twitter.com
  # Bearer token for the social API. BIRDWATCHER_SOCIAL_TOKEN overrides it.
  bearer_token: ""
`

// HTTPConfig tunes the outbound HTTP client.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	UserAgents []string      `yaml:"user_agents,omitempty"`
}

// SocialConfig points the social API client at a server.
type SocialConfig struct {
	BaseURL     string `yaml:"base_url"`
	BearerToken string `yaml:"bearer_token"`
}

// Settings models ~/.birdwatcher/config.yaml.
type Settings struct {
	Version     int          `yaml:"version"`
	Database    string       `yaml:"database"`
	HistoryFile string       `yaml:"history_file"`
	LogLevel    string       `yaml:"log_level"`
	Threads     int          `yaml:"threads"`
	HTTP        HTTPConfig   `yaml:"http"`
	Social      SocialConfig `yaml:"social"`
}

// Config holds the runtime configuration for birdwatcher.
type Config struct {
	// HomeDir is ~/.birdwatcher unless overridden.
	HomeDir string

	Settings Settings
}

// DefaultHome resolves the home directory from BIRDWATCHER_HOME or the
// user's home directory.
func DefaultHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user home: %w", err)
	}
	return filepath.Join(userHome, HomeDirName), nil
}

// InitHome creates the home directory structure.
//
// Structure created:
// ~/.birdwatcher/
// ├── config.yaml
// ├── logs/     <- zap log files
// └── spool/    <- default location for relative spool files
func InitHome(home string) error {
	dirs := []string{
		home,
		filepath.Join(home, "logs"),
		filepath.Join(home, "spool"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureConfigFile(filepath.Join(home, "config.yaml"))
}

// Load reads config.yaml from home and applies environment overrides.
func Load(home string) (*Config, error) {
	abs, err := filepath.Abs(home)
	if err != nil {
		return nil, fmt.Errorf("config: resolve home: %w", err)
	}
	cfg := &Config{HomeDir: abs, Settings: defaultSettings()}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.HomeDir, "config.yaml")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// SpoolDir returns the directory relative spool paths resolve against.
func (c *Config) SpoolDir() string {
	return filepath.Join(c.HomeDir, "spool")
}

// DatabasePath returns the absolute SQLite file path.
func (c *Config) DatabasePath() string {
	return c.Settings.Database
}

// HistoryPath returns the absolute prompt history path.
func (c *Config) HistoryPath() string {
	return c.Settings.HistoryFile
}

// Threads returns the default worker pool size.
func (c *Config) Threads() int {
	return c.Settings.Threads
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	return c.Settings.LogLevel
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadSettings() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultSettings()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := parsed.applyEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.HomeDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Settings = parsed
	return nil
}

func defaultSettings() Settings {
	return Settings{
		Version:     1,
		Database:    defaultDatabase,
		HistoryFile: defaultHistoryFile,
		LogLevel:    defaultLogLevel,
		Threads:     defaultThreads,
		HTTP: HTTPConfig{
			Timeout: defaultHTTPTimeout,
			Retries: defaultHTTPRetries,
		},
		Social: SocialConfig{BaseURL: defaultSocialBaseURL},
	}
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if strings.TrimSpace(s.Database) == "" {
		s.Database = defaultDatabase
	}
	if strings.TrimSpace(s.HistoryFile) == "" {
		s.HistoryFile = defaultHistoryFile
	}
	if strings.TrimSpace(s.LogLevel) == "" {
		s.LogLevel = defaultLogLevel
	}
	if s.Threads == 0 {
		s.Threads = defaultThreads
	}
	if s.HTTP.Timeout == 0 {
		s.HTTP.Timeout = defaultHTTPTimeout
	}
	if strings.TrimSpace(s.Social.BaseURL) == "" {
		s.Social.BaseURL = defaultSocialBaseURL
	}
}

func (s *Settings) normalize(home string) {
	s.Database = resolvePath(home, s.Database)
	s.HistoryFile = resolvePath(home, s.HistoryFile)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.Social.BaseURL = strings.TrimRight(strings.TrimSpace(s.Social.BaseURL), "/")
	s.Social.BearerToken = strings.TrimSpace(s.Social.BearerToken)
	agents := s.HTTP.UserAgents[:0]
	for _, ua := range s.HTTP.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			agents = append(agents, ua)
		}
	}
	s.HTTP.UserAgents = agents
}

func (s *Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if s.Threads < 1 {
		return fmt.Errorf("threads must be >= 1")
	}
	if s.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must be >= 0")
	}
	if s.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	if _, err := url.ParseRequestURI(s.Social.BaseURL); err != nil {
		return fmt.Errorf("social.base_url: %w", err)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "~/") {
		if userHome, err := os.UserHomeDir(); err == nil {
			trimmed = filepath.Join(userHome, trimmed[2:])
		}
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

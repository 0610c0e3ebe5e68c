// Package config provides configuration management for the focusflow tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultTimeout        = 10 * time.Minute
	DefaultOutputFormat   = OutputFormatText
	DefaultConfigDir      = ".focusflow"
	DefaultConfigFile     = "config.yaml"
	DefaultServerAddr     = ":8080"
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultChatModel      = "gemini-2.0-flash"
	DefaultWhisperURL     = "https://api.openai.com"
	DefaultWhisperModel   = "whisper-1"
	DefaultWhisperRetries = 3
	DefaultRedisTTL       = 7 * 24 * time.Hour
	DefaultReportTable    = "meeting_reports"
	DefaultWatchWorkers   = 2
)

// GeminiConfig selects the embedding and summarization models.
type GeminiConfig struct {
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature,omitempty"`
	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// WhisperConfig points at an OpenAI-compatible transcription API.
type WhisperConfig struct {
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Retries  int           `yaml:"retries"`
}

// RedisConfig enables the embedding cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// DatabaseConfig enables the Postgres report store when URL is set.
type DatabaseConfig struct {
	URL   string `yaml:"url,omitempty"`
	Table string `yaml:"table"`
}

// Enabled reports whether a database URL is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds `focusflow serve` settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// WatchConfig holds `focusflow watch` settings.
type WatchConfig struct {
	Workers int `yaml:"workers"`
}

// CLIConfig holds the configuration settings.
type CLIConfig struct {
	// Timeout bounds one analysis, external calls included.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Analysis analysis.Config `yaml:"analysis"`
	Gemini   GeminiConfig    `yaml:"gemini"`
	Whisper  WhisperConfig   `yaml:"whisper"`
	Redis    RedisConfig     `yaml:"redis"`
	Database DatabaseConfig  `yaml:"database"`
	Server   ServerConfig    `yaml:"server"`
	Watch    WatchConfig     `yaml:"watch"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Analysis:     analysis.DefaultConfig(),
		Gemini: GeminiConfig{
			EmbeddingModel: DefaultEmbeddingModel,
			ChatModel:      DefaultChatModel,
		},
		Whisper: WhisperConfig{
			URL:     DefaultWhisperURL,
			Model:   DefaultWhisperModel,
			Retries: DefaultWhisperRetries,
		},
		Redis:    RedisConfig{TTL: DefaultRedisTTL},
		Database: DatabaseConfig{Table: DefaultReportTable},
		Server:   ServerConfig{Addr: DefaultServerAddr},
		Watch:    WatchConfig{Workers: DefaultWatchWorkers},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $FOCUSFLOW_CONFIG_DIR if set, otherwise ~/.focusflow
func ConfigDir() (string, error) {
	if dir := os.Getenv("FOCUSFLOW_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.focusflow/config.yaml or $FOCUSFLOW_CONFIG_DIR/config.yaml)
// 3. Environment variables (FOCUSFLOW_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFile loads the defaults and the config file without the environment
// overlay. Commands that write the file back start from this.
func LoadFile() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}
	return cfg, nil
}

// loadFromFile decodes the YAML file over the current values; keys absent
// from the file keep their defaults.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// envKeys maps environment variables onto Set keys.
var envKeys = map[string]string{
	"FOCUSFLOW_TIMEOUT":                "timeout",
	"FOCUSFLOW_OUTPUT_FORMAT":          "output_format",
	"FOCUSFLOW_DEBUG":                  "debug",
	"FOCUSFLOW_THRESHOLD":              "analysis.threshold",
	"FOCUSFLOW_WINDOW_SECONDS":         "analysis.window_seconds",
	"FOCUSFLOW_BATCH_SIZE":             "analysis.batch_size",
	"FOCUSFLOW_BALANCE_SCORE":          "analysis.balance_score",
	"FOCUSFLOW_GEMINI_EMBEDDING_MODEL": "gemini.embedding_model",
	"FOCUSFLOW_GEMINI_CHAT_MODEL":      "gemini.chat_model",
	"FOCUSFLOW_GEMINI_BASE_URL":        "gemini.base_url",
	"FOCUSFLOW_WHISPER_URL":            "whisper.url",
	"FOCUSFLOW_WHISPER_MODEL":          "whisper.model",
	"FOCUSFLOW_WHISPER_LANGUAGE":       "whisper.language",
	"FOCUSFLOW_REDIS_ADDR":             "redis.addr",
	"FOCUSFLOW_REDIS_PASSWORD":         "redis.password",
	"FOCUSFLOW_REDIS_TTL":              "redis.ttl",
	"FOCUSFLOW_DATABASE_URL":           "database.url",
	"FOCUSFLOW_DATABASE_TABLE":         "database.table",
	"FOCUSFLOW_SERVER_ADDR":            "server.addr",
	"FOCUSFLOW_WATCH_WORKERS":          "watch.workers",
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) error {
	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if err := cfg.Set(envKeys[name], v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Keys lists the settable configuration keys.
func Keys() []string {
	keys := make([]string, 0, len(envKeys)+1)
	for _, k := range envKeys {
		keys = append(keys, k)
	}
	keys = append(keys, "server.allowed_origins")
	sort.Strings(keys)
	return keys
}

// Set assigns one dotted configuration key from its string form.
func (c *CLIConfig) Set(key, value string) error {
	var err error
	switch key {
	case "timeout":
		c.Timeout, err = time.ParseDuration(value)
	case "output_format":
		format := OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		c.OutputFormat = format
	case "debug":
		c.Debug, err = strconv.ParseBool(value)
	case "analysis.threshold":
		c.Analysis.Threshold, err = strconv.ParseFloat(value, 64)
	case "analysis.window_seconds":
		c.Analysis.WindowSeconds, err = strconv.ParseFloat(value, 64)
	case "analysis.batch_size":
		c.Analysis.BatchSize, err = strconv.Atoi(value)
	case "analysis.balance_score":
		c.Analysis.BalanceScore, err = strconv.ParseFloat(value, 64)
	case "gemini.embedding_model":
		c.Gemini.EmbeddingModel = value
	case "gemini.chat_model":
		c.Gemini.ChatModel = value
	case "gemini.base_url":
		c.Gemini.BaseURL = value
	case "whisper.url":
		c.Whisper.URL = value
	case "whisper.model":
		c.Whisper.Model = value
	case "whisper.language":
		c.Whisper.Language = value
	case "redis.addr":
		c.Redis.Addr = value
	case "redis.password":
		c.Redis.Password = value
	case "redis.ttl":
		c.Redis.TTL, err = time.ParseDuration(value)
	case "database.url":
		c.Database.URL = value
	case "database.table":
		c.Database.Table = value
	case "server.addr":
		c.Server.Addr = value
	case "server.allowed_origins":
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	case "watch.workers":
		c.Watch.Workers, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if c.Gemini.EmbeddingModel == "" || c.Gemini.ChatModel == "" {
		return fmt.Errorf("gemini.embedding_model and gemini.chat_model are required")
	}

	if c.Whisper.Retries < 0 {
		return fmt.Errorf("whisper.retries must not be negative")
	}

	if c.Redis.Enabled() && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive")
	}

	if c.Database.Table == "" {
		return fmt.Errorf("database.table is required")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Watch.Workers <= 0 {
		return fmt.Errorf("watch.workers must be positive")
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

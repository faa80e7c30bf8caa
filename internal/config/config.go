package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Classifier Classifier `yaml:"classifier"`
	Text       Text       `yaml:"text"`
	Features   Features   `yaml:"features"`
	Prompt     Prompt     `yaml:"prompt"`
	Cache      Cache      `yaml:"cache"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// Classifier configures the external text-completion service.
type Classifier struct {
	Provider    string        `yaml:"provider"`
	API         string        `yaml:"api"`
	Model       string        `yaml:"model"`
	OllamaURL   string        `yaml:"ollama_url"`
	OllamaModel string        `yaml:"ollama_model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	// Calls per second to the provider; 0 means no limit.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type Text struct {
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

type Features struct {
	Order string `yaml:"order"`
}

type Prompt struct {
	Suffix string `yaml:"suffix"`
}

type Cache struct {
	ValkeyAddr     string        `yaml:"valkey_addr"`
	ValkeyPassword string        `yaml:"valkey_password"`
	TTL            time.Duration `yaml:"ttl"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for sentiscope.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "sentiscope")
}

// DataDir returns the XDG data directory for sentiscope.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "sentiscope")
}

// LoadEnv loads .env files from the working directory and the config
// directory. Variables already set in the environment win.
func LoadEnv() {
	for _, path := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := gotenv.Load(path); err != nil {
			slog.Warn("[Config] Failed to load env file", slog.String("path", path), slog.Any("error", err))
		}
	}
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/sentiscope/config.yaml > ./config.yaml.
// An empty path with a nil error means no file exists and the embedded
// defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// embedded defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		slog.Warn("[Config] No config file found, using built-in defaults. Run 'sentiscope init' to create one")
		return parse(DefaultConfigYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Classifier: Classifier{
			Provider:    "openai",
			API:         "completions",
			Model:       "gpt-3.5-turbo-instruct",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "qwen2.5:7b",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   100,
			Temperature: 0.5,
			Timeout:     60 * time.Second,
		},
		Features: Features{Order: "lexical"},
		Cache:    Cache{TTL: 24 * time.Hour},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// APIKey returns the credential named by api_key_env.
func (c Classifier) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CheckpointPath is the fixed location of the checkpoint database.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.GetDataDir(), "breakpoint.db")
}

// SlogLevel maps logging.level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

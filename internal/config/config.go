// Package config handles reading and writing .consultprep/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .consultprep/config.yaml.
type Config struct {
	Version     int               `yaml:"version"`
	Candidate   CandidateConfig   `yaml:"candidate"`
	Interviewer InterviewerConfig `yaml:"interviewer"`
	History     HistoryConfig     `yaml:"history"`
	Server      ServerConfig      `yaml:"server"`
	LogLevel    string            `yaml:"log_level"` // "debug" | "info" | "warn" | "error"
}

// CandidateConfig describes the person practising.
type CandidateConfig struct {
	Name string `yaml:"name"`
}

// InterviewerConfig selects and tunes the response generator.
type InterviewerConfig struct {
	Provider     string      `yaml:"provider"` // "rules" | "gemini" | "azure"
	Model        string      `yaml:"model"`
	Timeout      int         `yaml:"timeout"`       // seconds
	ContextTurns int         `yaml:"context_turns"` // rolling window sent to the model
	Seed         int64       `yaml:"seed"`          // 0 means time-seeded
	Azure        AzureConfig `yaml:"azure"`

	// API keys come from the environment only and are never written out.
	GeminiAPIKey string `yaml:"-"`
	AzureAPIKey  string `yaml:"-"`
}

// AzureConfig locates an Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
}

// HistoryConfig tunes the dashboard aggregates.
type HistoryConfig struct {
	MinutesPerCase int `yaml:"minutes_per_case"`
	TrendWindow    int `yaml:"trend_window"`
}

// ServerConfig controls `consultprep serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SessionTTL is how many idle minutes an unfinished API session is kept.
	SessionTTL int `yaml:"session_ttl_minutes"`
}

// Provider names.
const (
	ProviderRules  = "rules"
	ProviderGemini = "gemini"
	ProviderAzure  = "azure"
)

// Environment variables read by ApplyEnv.
const (
	EnvGeminiKey  = "GEMINI_API_KEY"
	EnvAzureKey   = "AZURE_OPENAI_API_KEY"
	EnvAzureURL   = "AZURE_OPENAI_ENDPOINT"
	EnvProvider   = "CONSULTPREP_PROVIDER"
	EnvCandidate  = "CONSULTPREP_CANDIDATE"
	EnvServerAddr = "CONSULTPREP_ADDR"
	EnvLogLevel   = "CONSULTPREP_LOG_LEVEL"
)

// Dir is the state directory relative to the workspace root.
const Dir = ".consultprep"

const configFile = "config.yaml"

// ReadConfig reads .consultprep/config.yaml from the given directory.
// dir is the workspace root (not .consultprep/ itself). A missing file
// yields DefaultConfig; a malformed one is an error. Fields absent from
// the file keep their default values.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, Dir, configFile)

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .consultprep/config.yaml in the given directory.
// Creates the .consultprep/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, Dir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Interviewer: InterviewerConfig{
			Provider:     ProviderRules,
			Model:        "gemini-2.5-flash",
			Timeout:      10,
			ContextTurns: 10,
		},
		History: HistoryConfig{
			MinutesPerCase: 30,
			TrendWindow:    10,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			SessionTTL: 120,
		},
		LogLevel: "info",
	}
}

// ApplyEnv overlays environment overrides onto cfg. getenv is usually
// os.Getenv. Setting a provider key without choosing a provider selects
// that provider.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvGeminiKey); v != "" {
		c.Interviewer.GeminiAPIKey = v
	}
	if v := getenv(EnvAzureKey); v != "" {
		c.Interviewer.AzureAPIKey = v
	}
	if v := getenv(EnvAzureURL); v != "" {
		c.Interviewer.Azure.Endpoint = v
	}
	if v := getenv(EnvCandidate); v != "" {
		c.Candidate.Name = v
	}
	if v := getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := getenv(EnvProvider); v != "" {
		c.Interviewer.Provider = strings.ToLower(strings.TrimSpace(v))
		return
	}
	if c.Interviewer.Provider == ProviderRules || c.Interviewer.Provider == "" {
		switch {
		case c.Interviewer.GeminiAPIKey != "":
			c.Interviewer.Provider = ProviderGemini
		case c.Interviewer.AzureAPIKey != "" && c.Interviewer.Azure.Endpoint != "":
			c.Interviewer.Provider = ProviderAzure
		}
	}
}

// TimeoutDuration returns the generator timeout as a time.Duration.
func (ic InterviewerConfig) TimeoutDuration() time.Duration {
	if ic.Timeout <= 0 {
		return 0
	}
	return time.Duration(ic.Timeout) * time.Second
}

// SessionTTLDuration returns the idle session expiry as a time.Duration.
func (sc ServerConfig) SessionTTLDuration() time.Duration {
	if sc.SessionTTL <= 0 {
		return 0
	}
	return time.Duration(sc.SessionTTL) * time.Minute
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.Interviewer.Provider {
	case ProviderRules, ProviderGemini, ProviderAzure:
	default:
		return fmt.Errorf("unknown interviewer provider %q", c.Interviewer.Provider)
	}
	if c.Interviewer.ContextTurns < 0 {
		return fmt.Errorf("interviewer.context_turns must not be negative")
	}
	if c.History.MinutesPerCase < 0 || c.History.TrendWindow < 0 {
		return fmt.Errorf("history settings must not be negative")
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("server.session_ttl_minutes must not be negative")
	}
	return nil
}

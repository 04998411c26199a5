package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tathagata1/Pipegent/logging"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// DefaultFile is looked up in the working directory when no path is given.
	DefaultFile = "pipegent.toml"

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
)

// Config represents the complete Pipegent configuration.
type Config struct {
	OpenAI    OpenAIConfig    `toml:"openai"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Planner   LLMConfig       `toml:"planner_llm"`
	Executor  LLMConfig       `toml:"executor_llm"`
	Agent     AgentConfig     `toml:"agent"`
	Logging   LoggingConfig   `toml:"logging"`
	CLI       CLIConfig       `toml:"cli"`
}

// OpenAIConfig holds OpenAI client settings.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// AnthropicConfig holds Anthropic client settings.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
}

// LLMConfig selects and tunes the model used for one role.
type LLMConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	Temperature *float64 `toml:"temperature"`
	// RequestsPerMinute paces calls to the model; 0 disables pacing.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// AgentConfig controls orchestration.
type AgentConfig struct {
	MaxSteps int `toml:"max_steps"`
	// PluginDirs are scanned for plugin units. Empty means the bundled plugins.
	PluginDirs []string `toml:"plugin_dirs"`
	ScratchDir string   `toml:"scratch_dir"`
	// ContextFile is the history file. Empty means a fresh
	// context_history_<id>.json inside ScratchDir.
	ContextFile  string `toml:"context_file"`
	SpeechTool   string `toml:"speech_tool"`
	WatchContext bool   `toml:"watch_context"`
	// SQLiteRoot confines the sqlite_query plugin.
	SQLiteRoot string `toml:"sqlite_root"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// CLIConfig controls the interactive read loop.
type CLIConfig struct {
	Prompt         string `toml:"prompt"`
	RenderMarkdown bool   `toml:"render_markdown"`
	// HistoryFile keeps input history across sessions. Empty selects
	// <user config dir>/pipegent/chat_history; "none" disables it.
	HistoryFile string `toml:"history_file"`
}

// HistoryPath resolves HistoryFile. It returns "" when history is disabled
// or no user config directory is available.
func (c CLIConfig) HistoryPath() string {
	switch strings.TrimSpace(c.HistoryFile) {
	case "none":
		return ""
	case "":
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		return filepath.Join(dir, "pipegent", "chat_history")
	default:
		return c.HistoryFile
	}
}

func float64Ptr(v float64) *float64 { return &v }

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderAnthropic {
		return defaultAnthropicModel
	}
	return defaultOpenAIModel
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := baseConfig()
	cfg.Planner.Model = DefaultModel(cfg.Planner.Provider)
	cfg.Executor.Model = DefaultModel(cfg.Executor.Provider)
	return cfg
}

// baseConfig is Default without model names. Files are decoded over it so
// the model can follow a provider chosen in the file.
func baseConfig() *Config {
	return &Config{
		Planner: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: float64Ptr(0.2),
		},
		Executor: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: float64Ptr(0.0),
		},
		Agent: AgentConfig{
			MaxSteps:   5,
			ScratchDir: "tempstore",
			SpeechTool: "speech",
			SQLiteRoot: ".",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    "logs",
		},
		CLI: CLIConfig{
			Prompt: "You: ",
		},
	}
}

// Load resolves, decodes, overrides and validates the configuration.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("PIPEGENT_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultFile
		}
	}

	cfg := baseConfig()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg. Keys the schema does not
// know are reported as validation errors.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}

	var errs ValidationErrors
	for _, key := range md.Undecoded() {
		errs = append(errs, ValidationError{Field: key.String(), Message: "unknown key"})
	}
	if len(errs) > 0 {
		return fmt.Errorf("config file %s: %w", path, errs)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() error {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if key := os.Getenv("PIPEGENT_OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Anthropic.APIKey = key
	}
	if model := os.Getenv("PIPEGENT_PLANNER_MODEL"); model != "" {
		c.Planner.Model = model
	}
	if model := os.Getenv("PIPEGENT_EXECUTOR_MODEL"); model != "" {
		c.Executor.Model = model
	}
	if level := os.Getenv("PIPEGENT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if raw := os.Getenv("PIPEGENT_MAX_STEPS"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return ValidationErrors{{Field: "PIPEGENT_MAX_STEPS", Message: fmt.Sprintf("not an integer: %q", raw)}}
		}
		c.Agent.MaxSteps = n
	}
	return nil
}

// SetDefaults fills fields left empty by the file.
func (c *Config) SetDefaults() {
	d := baseConfig()

	c.Planner.setDefaults(d.Planner)
	c.Executor.setDefaults(d.Executor)

	if c.Agent.ScratchDir == "" {
		c.Agent.ScratchDir = d.Agent.ScratchDir
	}
	if c.Agent.SpeechTool == "" {
		c.Agent.SpeechTool = d.Agent.SpeechTool
	}
	if c.Agent.SQLiteRoot == "" {
		c.Agent.SQLiteRoot = d.Agent.SQLiteRoot
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = d.Logging.Dir
	}
	if c.CLI.Prompt == "" {
		c.CLI.Prompt = d.CLI.Prompt
	}
}

func (l *LLMConfig) setDefaults(d LLMConfig) {
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))
	if l.Provider == "" {
		l.Provider = d.Provider
	}
	if l.Model == "" {
		l.Model = DefaultModel(l.Provider)
	}
	if l.Temperature == nil {
		l.Temperature = float64Ptr(*d.Temperature)
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidationErrors when
// anything is wrong.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateLLM("planner_llm", c.Planner)...)
	errs = append(errs, c.validateLLM("executor_llm", c.Executor)...)

	if c.Agent.MaxSteps < 1 {
		errs = append(errs, ValidationError{Field: "agent.max_steps", Message: "must be at least 1"})
	}
	if strings.TrimSpace(c.Agent.SpeechTool) == "" {
		errs = append(errs, ValidationError{Field: "agent.speech_tool", Message: "must not be empty"})
	}
	if strings.TrimSpace(c.Agent.ScratchDir) == "" {
		errs = append(errs, ValidationError{Field: "agent.scratch_dir", Message: "must not be empty"})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("must be text or json, got %q", c.Logging.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateLLM(section string, l LLMConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, ValidationError{Field: "openai.api_key", Message: fmt.Sprintf("required by %s", section)})
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			errs = append(errs, ValidationError{Field: "anthropic.api_key", Message: fmt.Sprintf("required by %s", section)})
		}
	default:
		errs = append(errs, ValidationError{Field: section + ".provider", Message: fmt.Sprintf("unsupported provider %q", l.Provider)})
	}

	if l.Model == "" {
		errs = append(errs, ValidationError{Field: section + ".model", Message: "must not be empty"})
	}
	if l.Temperature != nil && (*l.Temperature < 0 || *l.Temperature > 2) {
		errs = append(errs, ValidationError{Field: section + ".temperature", Message: "must be between 0 and 2"})
	}
	if l.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: section + ".requests_per_minute", Message: "must not be negative"})
	}
	return errs
}

// IsValidationError reports whether err carries ValidationErrors.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

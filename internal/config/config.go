package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultProvider     = "openai"
	DefaultModel        = "gpt-4o-mini"
	DefaultMaxSteps     = 8
	DefaultTimeout      = 120 * time.Second
	DefaultMaxTokens    = 1024
	DefaultToolTimeout  = 10
	DefaultToolMaxBytes = 30 * 1024
)

// Limits controls tool execution bounds.
type Limits struct {
	ToolTimeoutSeconds int `mapstructure:"tool_timeout_seconds"`
	ToolMaxBytes       int `mapstructure:"tool_max_bytes"`
}

// Config holds runtime configuration values.
type Config struct {
	Provider     string
	Model        string
	MaxSteps     int
	Timeout      time.Duration
	MaxTokens    int
	Temperature  *float64
	SystemPrompt string
	Quiet        bool
	JSON         bool
	Verbose      bool
	NoStream     bool
	NoTools      bool
	Persist      bool
	BaseURL      string
	HTTPReferer  string
	Title        string
	Limits       Limits
}

type rawConfig struct {
	Provider     string   `mapstructure:"provider"`
	Model        string   `mapstructure:"model"`
	MaxSteps     int      `mapstructure:"max_steps"`
	Timeout      string   `mapstructure:"timeout"`
	MaxTokens    int      `mapstructure:"max_tokens"`
	Temperature  *float64 `mapstructure:"temperature"`
	SystemPrompt string   `mapstructure:"system_prompt"`
	Quiet        bool     `mapstructure:"quiet"`
	JSON         bool     `mapstructure:"json"`
	Verbose      bool     `mapstructure:"verbose"`
	NoStream     bool     `mapstructure:"no_stream"`
	NoTools      bool     `mapstructure:"no_tools"`
	Persist      bool     `mapstructure:"persist"`
	BaseURL      string   `mapstructure:"base_url"`
	HTTPReferer  string   `mapstructure:"http_referer"`
	Title        string   `mapstructure:"title"`
	Limits       Limits   `mapstructure:"limits"`
}

// Load resolves configuration from defaults, config files, env, and flags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OMNICHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_steps", DefaultMaxSteps)
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("system_prompt", "")
	v.SetDefault("quiet", false)
	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("no_stream", false)
	v.SetDefault("no_tools", false)
	v.SetDefault("persist", false)
	v.SetDefault("base_url", "")
	v.SetDefault("limits.tool_timeout_seconds", DefaultToolTimeout)
	v.SetDefault("limits.tool_max_bytes", DefaultToolMaxBytes)

	if cmd != nil {
		_ = v.BindPFlag("provider", cmd.Flags().Lookup("provider"))
		_ = v.BindPFlag("model", cmd.Flags().Lookup("model"))
		_ = v.BindPFlag("max_steps", cmd.Flags().Lookup("max-steps"))
		_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
		_ = v.BindPFlag("max_tokens", cmd.Flags().Lookup("max-tokens"))
		_ = v.BindPFlag("system_prompt", cmd.Flags().Lookup("system"))
		_ = v.BindPFlag("quiet", cmd.Flags().Lookup("quiet"))
		_ = v.BindPFlag("json", cmd.Flags().Lookup("json"))
		_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
		_ = v.BindPFlag("no_stream", cmd.Flags().Lookup("no-stream"))
		_ = v.BindPFlag("no_tools", cmd.Flags().Lookup("no-tools"))
		_ = v.BindPFlag("persist", cmd.Flags().Lookup("persist"))
		_ = v.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
	}

	if seconds := os.Getenv("OMNICHAT_TIMEOUT_SECONDS"); seconds != "" {
		v.Set("timeout", seconds+"s")
	}

	if err := loadConfigFile(v); err != nil {
		return Config{}, err
	}

	var raw rawConfig
	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &raw})
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, err
	}

	timeout := DefaultTimeout
	if raw.Timeout != "" {
		parsed, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		timeout = parsed
	}

	cfg := Config{
		Provider:     strings.ToLower(raw.Provider),
		Model:        raw.Model,
		MaxSteps:     raw.MaxSteps,
		Timeout:      timeout,
		MaxTokens:    raw.MaxTokens,
		Temperature:  raw.Temperature,
		SystemPrompt: raw.SystemPrompt,
		Quiet:        raw.Quiet,
		JSON:         raw.JSON,
		Verbose:      raw.Verbose,
		NoStream:     raw.NoStream,
		NoTools:      raw.NoTools,
		Persist:      raw.Persist,
		BaseURL:      raw.BaseURL,
		HTTPReferer:  raw.HTTPReferer,
		Title:        raw.Title,
		Limits:       raw.Limits,
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens < 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Limits.ToolTimeoutSeconds <= 0 {
		cfg.Limits.ToolTimeoutSeconds = DefaultToolTimeout
	}
	if cfg.Limits.ToolMaxBytes <= 0 {
		cfg.Limits.ToolMaxBytes = DefaultToolMaxBytes
	}

	return cfg, nil
}

// Credentials resolves the API key and base URL for a provider from its
// native environment variables, falling back to the configured base URL.
func (c Config) Credentials(provider string) (apiKey, baseURL string) {
	baseURL = c.BaseURL
	switch provider {
	case "openai", "openrouter", "openai-compatible":
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		}
		if baseURL == "" {
			baseURL = os.Getenv("OPENAI_BASE_URL")
		}
	case "anthropic":
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if baseURL == "" {
			baseURL = os.Getenv("ANTHROPIC_BASE_URL")
		}
	case "ollama", "local":
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
	}
	return apiKey, baseURL
}

func loadConfigFile(v *viper.Viper) error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	base := filepath.Join(configDir, "omnichat")
	candidates := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}

// Package config loads runtime configuration with viper: built-in defaults,
// an optional smartdraw.yaml, then SMARTDRAW_* environment variables.
// The binary runs locally without any configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

// Config holds runtime configuration for smartdraw.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	LLM     LLMConfig     `mapstructure:"llm"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Mindmap MindmapConfig `mapstructure:"mindmap"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 0 keeps SSE streams open
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig is the server default provider, used when neither the request
// nor an active profile supplies one.
type LLMConfig struct {
	Kind      string        `mapstructure:"kind"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MindmapConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

const (
	envPrefix  = "SMARTDRAW"
	configName = "smartdraw"
)

var defaults = map[string]any{
	"http.host":             "0.0.0.0",
	"http.port":             8080,
	"http.read_timeout":     "15s",
	"http.write_timeout":    "0s",
	"http.idle_timeout":     "60s",
	"log.level":             "info",
	"log.format":            "json",
	"db.path":               "smartdraw.db",
	"llm.kind":              "openai",
	"llm.base_url":          "",
	"llm.api_key":           "",
	"llm.model":             "",
	"llm.max_tokens":        64000,
	"llm.timeout":           "5m",
	"cors.allowed_origins":  []string{"*"},
	"mindmap.max_depth":     32,
	"breaker.max_requests":  2,
	"breaker.interval":      "60s",
	"breaker.timeout":       "30s",
	"breaker.failure_ratio": 0.6,
	"breaker.min_requests":  5,
	"tracing.otlp_endpoint": "",
}

// Load reads configuration. When path is empty, smartdraw.yaml is looked up
// in the working directory and ./config; a missing file is not an error.
// An explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// allow environment variables like SMARTDRAW_LLM_BASE_URL
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port %d out of range", c.HTTP.Port)
	}
	if c.Mindmap.MaxDepth <= 0 {
		return fmt.Errorf("config: mindmap.max_depth must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("config: llm.max_tokens must be positive")
	}
	if c.LLM.Kind != "" {
		if _, err := llm.ParseProviderKind(c.LLM.Kind); err != nil {
			return fmt.Errorf("config: llm.kind: %w", err)
		}
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// ServerLLM returns the server default provider and whether every field
// needed to call it is set.
func (c Config) ServerLLM() (llm.ProviderConfig, bool) {
	kind, err := llm.ParseProviderKind(c.LLM.Kind)
	if err != nil {
		return llm.ProviderConfig{}, false
	}
	pc := llm.ProviderConfig{Kind: kind, BaseURL: c.LLM.BaseURL, APIKey: c.LLM.APIKey, Model: c.LLM.Model}
	return pc, pc.Complete()
}

// BreakerSettings converts the breaker section for the llm package.
func (c Config) BreakerSettings() llm.BreakerConfig {
	return llm.BreakerConfig{
		MaxRequests:  c.Breaker.MaxRequests,
		Interval:     c.Breaker.Interval,
		Timeout:      c.Breaker.Timeout,
		FailureRatio: c.Breaker.FailureRatio,
		MinRequests:  c.Breaker.MinRequests,
	}
}

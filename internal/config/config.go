package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MiB is one mebibyte.
const MiB = 1 << 20

// Config is the effective service configuration.
type Config struct {
	Port           string `mapstructure:"port" yaml:"port"`
	UploadDir      string `mapstructure:"upload_dir" yaml:"upload_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	DatabaseDriver       string `mapstructure:"database_driver" yaml:"database_driver"`
	DatabaseURL          string `mapstructure:"database_url" yaml:"database_url"`
	DatabaseMaxOpenConns int    `mapstructure:"database_max_open_conns" yaml:"database_max_open_conns"`

	LLMProvider      string `mapstructure:"llm_provider" yaml:"llm_provider"`
	LLMModel         string `mapstructure:"llm_model" yaml:"llm_model"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaModel      string `mapstructure:"ollama_model" yaml:"ollama_model"`
	LLMTimeoutSec    int    `mapstructure:"llm_timeout_sec" yaml:"llm_timeout_sec"`
	LLMMaxConcurrent int64  `mapstructure:"llm_max_concurrent" yaml:"llm_max_concurrent"`

	SuggestionModel       string  `mapstructure:"suggestion_model" yaml:"suggestion_model"`
	InsightModel          string  `mapstructure:"insight_model" yaml:"insight_model"`
	SuggestionTemperature float64 `mapstructure:"suggestion_temperature" yaml:"suggestion_temperature"`
	SuggestionMaxTokens   int     `mapstructure:"suggestion_max_tokens" yaml:"suggestion_max_tokens"`
	InsightTemperature    float64 `mapstructure:"insight_temperature" yaml:"insight_temperature"`
	InsightMaxTokens      int     `mapstructure:"insight_max_tokens" yaml:"insight_max_tokens"`

	ChartsPerUpload  int  `mapstructure:"charts_per_upload" yaml:"charts_per_upload"`
	EagerInsights    bool `mapstructure:"eager_insights" yaml:"eager_insights"`
	EssentialMinRows int  `mapstructure:"essential_min_rows" yaml:"essential_min_rows"`

	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	LogDebug    bool     `mapstructure:"log_debug" yaml:"log_debug"`
}

// LLMTimeout returns the bound on a single model call.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// ActiveModel returns the model name used by the configured provider.
func (c *Config) ActiveModel() string {
	if c.LLMProvider == "ollama" {
		return c.OllamaModel
	}
	return c.LLMModel
}

// Load reads configuration from defaults, an optional YAML file, .env and
// the environment. Precedence: env > config file > defaults. Variables use
// the AUTOVIZ_ prefix; OPENAI_API_KEY, DATABASE_URL and PORT are honored
// when the prefixed form is unset.
func Load(cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTOVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8001")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("max_upload_bytes", 16*MiB)
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "file:autoviz.db")
	v.SetDefault("database_max_open_conns", 10)
	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_model", "gpt-3.5-turbo")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_model", "llama3.2")
	v.SetDefault("llm_timeout_sec", 30)
	v.SetDefault("llm_max_concurrent", 4)
	v.SetDefault("suggestion_model", "")
	v.SetDefault("insight_model", "")
	v.SetDefault("suggestion_temperature", 0.7)
	v.SetDefault("suggestion_max_tokens", 300)
	v.SetDefault("insight_temperature", 0.2)
	v.SetDefault("insight_max_tokens", 200)
	v.SetDefault("charts_per_upload", 3)
	v.SetDefault("eager_insights", true)
	v.SetDefault("essential_min_rows", 2)
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log_debug", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if os.Getenv("AUTOVIZ_DATABASE_URL") == "" {
		if u := os.Getenv("DATABASE_URL"); u != "" {
			c.DatabaseURL = u
			if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
				c.DatabaseDriver = "postgres"
			}
		}
	}
	if os.Getenv("AUTOVIZ_PORT") == "" {
		if p := os.Getenv("PORT"); p != "" {
			c.Port = p
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "ollama", "none":
	default:
		return fmt.Errorf("unknown llm_provider %q (want openai, ollama or none)", c.LLMProvider)
	}
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown database_driver %q (want sqlite3 or postgres)", c.DatabaseDriver)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.LLMTimeoutSec <= 0 {
		return fmt.Errorf("llm_timeout_sec must be positive")
	}
	if c.LLMMaxConcurrent <= 0 {
		c.LLMMaxConcurrent = 1
	}
	if c.DatabaseMaxOpenConns <= 0 {
		c.DatabaseMaxOpenConns = 1
	}
	if c.ChartsPerUpload < 0 {
		c.ChartsPerUpload = 0
	}
	return nil
}

// Dump writes c as YAML with secrets redacted.
func Dump(w io.Writer, c *Config) error {
	redacted := *c
	if redacted.OpenAIAPIKey != "" {
		redacted.OpenAIAPIKey = "<redacted>"
	}
	if strings.Contains(redacted.DatabaseURL, "@") {
		redacted.DatabaseURL = redactURL(redacted.DatabaseURL)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// redactURL hides the user info of a connection URL.
func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || scheme+3 > at {
		return u
	}
	return u[:scheme+3] + "<redacted>" + u[at:]
}

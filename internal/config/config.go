// Package config loads application configuration from config.yaml and the
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp" mapstructure:"whatsapp"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Brain     BrainConfig     `yaml:"brain" mapstructure:"brain"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OpenAIConfig holds OpenAI API settings (alternate provider).
type OpenAIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// WhatsAppConfig selects and configures the outbound messaging provider.
type WhatsAppConfig struct {
	Provider           string `yaml:"provider" mapstructure:"provider"` // ultramsg | 360dialog | twilio
	UltramsgInstance   string `yaml:"ultramsg_instance" mapstructure:"ultramsg_instance"`
	UltramsgToken      string `yaml:"ultramsg_token" mapstructure:"ultramsg_token"`
	DialogAPIKey       string `yaml:"dialog_api_key" mapstructure:"dialog_api_key"`
	TwilioAccountSID   string `yaml:"twilio_account_sid" mapstructure:"twilio_account_sid"`
	TwilioAuthToken    string `yaml:"twilio_auth_token" mapstructure:"twilio_auth_token"`
	TwilioFromNumber   string `yaml:"twilio_from_number" mapstructure:"twilio_from_number"`
	DefaultCountryCode string `yaml:"default_country_code" mapstructure:"default_country_code"`
}

// RateLimitConfig caps outbound model calls.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" mapstructure:"per_minute"`
	PerHour   int `yaml:"per_hour" mapstructure:"per_hour"`
}

// CacheConfig tunes the decision cache.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	TTLHours int  `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	Capacity int  `yaml:"capacity" mapstructure:"capacity"`
}

// RedisConfig is accepted for forward compatibility with a shared decision
// cache tier; the current cache is in-process and these settings are only
// reported at startup.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// BrainConfig configures the autonomous decision layer.
type BrainConfig struct {
	Mode      string `yaml:"mode" mapstructure:"mode"` // passive | advisory | supervised | autonomous | full_auto
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int    `yaml:"port" mapstructure:"port"`
	AllowedOrigins string `yaml:"allowed_origins" mapstructure:"allowed_origins"` // CSV
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Origins parses the AllowedOrigins CSV into a slice, dropping empties.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads configuration from file and environment. Missing secrets are
// not an error here: components degrade individually when unconfigured.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Canonical env names from the hosted deployment, alongside the
	// PULSE_-prefixed forms.
	bindings := map[string][]string{
		"anthropic.key":          {"ANTHROPIC_API_KEY"},
		"openai.key":             {"OPENAI_API_KEY"},
		"openai.model":           {"OPENAI_MODEL"},
		"openai.temperature":     {"OPENAI_TEMPERATURE"},
		"openai.max_tokens":      {"OPENAI_MAX_TOKENS"},
		"openai.timeout_secs":    {"OPENAI_TIMEOUT"},
		"store.database_url":     {"DATABASE_URL"},
		"whatsapp.provider":      {"WHATSAPP_PROVIDER"},
		"rate_limit.per_minute":  {"RATE_LIMIT_PER_MINUTE"},
		"rate_limit.per_hour":    {"RATE_LIMIT_PER_HOUR"},
		"cache.ttl_hours":        {"CACHE_TTL"},
		"cache.enabled":          {"CACHE_ENABLED"},
		"redis.addr":             {"REDIS_ADDR"},
		"redis.password":         {"REDIS_PASSWORD"},
		"redis.db":               {"REDIS_DB"},
		"log.level":              {"LOG_LEVEL"},
		"log.format":             {"LOG_FORMAT"},
		"server.allowed_origins": {"ALLOWED_ORIGINS"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.timeout_secs", 30)
	v.SetDefault("whatsapp.provider", "ultramsg")
	v.SetDefault("whatsapp.default_country_code", "+43")
	v.SetDefault("rate_limit.per_minute", 30)
	v.SetDefault("rate_limit.per_hour", 500)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("brain.mode", "supervised")
	v.SetDefault("brain.batch_size", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

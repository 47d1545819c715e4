package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	AuctionMethod AuctionMethodConfig `yaml:"auctionmethod" mapstructure:"auctionmethod"`
	Enrich        EnrichConfig        `yaml:"enrich" mapstructure:"enrich"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	WebSearch bool   `yaml:"web_search" mapstructure:"web_search"`
}

// AuctionMethodConfig holds AuctionMethod API credentials.
type AuctionMethodConfig struct {
	Domain    string  `yaml:"domain" mapstructure:"domain"`
	Email     string  `yaml:"email" mapstructure:"email"`
	Password  string  `yaml:"password" mapstructure:"password"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// EnrichConfig configures the enrichment loop.
type EnrichConfig struct {
	PaceSecs          int  `yaml:"pace_secs" mapstructure:"pace_secs"`
	PaceFirst         bool `yaml:"pace_first" mapstructure:"pace_first"`
	TimeoutSecs       int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitWaitSecs int  `yaml:"ratelimit_wait_secs" mapstructure:"ratelimit_wait_secs"`
	RateLimitCapSecs  int  `yaml:"ratelimit_cap_secs" mapstructure:"ratelimit_cap_secs"`
}

// Pace returns the inter-request delay as a duration.
func (c EnrichConfig) Pace() time.Duration { return time.Duration(c.PaceSecs) * time.Second }

// Timeout returns the per-request timeout as a duration.
func (c EnrichConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// RateLimitWait returns the default rate-limit wait as a duration.
func (c EnrichConfig) RateLimitWait() time.Duration {
	return time.Duration(c.RateLimitWaitSecs) * time.Second
}

// RateLimitCap returns the rate-limit wait ceiling as a duration.
func (c EnrichConfig) RateLimitCap() time.Duration {
	return time.Duration(c.RateLimitCapSecs) * time.Second
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Redacted returns a copy with secrets replaced, for display.
func (c Config) Redacted() Config {
	out := c
	if out.Anthropic.Key != "" {
		out.Anthropic.Key = "<redacted>"
	}
	if out.AuctionMethod.Password != "" {
		out.AuctionMethod.Password = "<redacted>"
	}
	return out
}

// Validate checks the fields a command mode depends on. Modes: "enrich"
// needs the Anthropic key and sane pacing, "push" needs AuctionMethod
// credentials, "serve" needs both plus a port.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkEnrich := func() {
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Anthropic.MaxTokens < 1 {
			problems = append(problems, "anthropic.max_tokens must be >= 1")
		}
		if c.Enrich.PaceSecs < 0 {
			problems = append(problems, "enrich.pace_secs must be >= 0")
		}
		if c.Enrich.TimeoutSecs < 1 {
			problems = append(problems, "enrich.timeout_secs must be >= 1")
		}
	}
	checkPush := func() {
		if c.AuctionMethod.Domain == "" {
			problems = append(problems, "auctionmethod.domain is required")
		}
		if c.AuctionMethod.Email == "" {
			problems = append(problems, "auctionmethod.email is required")
		}
		if c.AuctionMethod.Password == "" {
			problems = append(problems, "auctionmethod.password is required")
		}
	}

	switch mode {
	case "enrich":
		checkEnrich()
	case "push":
		checkPush()
	case "serve":
		checkEnrich()
		checkPush()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOTSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.web_search", true)
	v.SetDefault("auctionmethod.rate_limit", 2.0)
	v.SetDefault("enrich.pace_secs", 15)
	v.SetDefault("enrich.pace_first", false)
	v.SetDefault("enrich.timeout_secs", 120)
	v.SetDefault("enrich.ratelimit_wait_secs", 60)
	v.SetDefault("enrich.ratelimit_cap_secs", 120)

	// Read config file (optional)
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

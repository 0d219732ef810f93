package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "PIPELINE"

// Config holds the settings for executing a pipeline.
type Config struct {
	// BufferSize is the capacity of each channel between stages.
	BufferSize int `mapstructure:"buffer_size" validate:"min=1"`
	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`
	// LogFormat selects JSON lines or human readable console output.
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`
}

// DefaultConfig returns the settings used by Execute.
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 1,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// LoadConfig reads the configuration file at path, applies PIPELINE_*
// environment overrides and validates the result. An empty path loads the
// defaults and the environment only.
func LoadConfig(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("buffer_size", def.BufferSize)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("pipeline: failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("pipeline: failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration can be used to execute a pipeline.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("pipeline: nil config")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("pipeline: invalid config: %w", err)
	}
	return nil
}

// NewLogger returns a logger writing to w at the configured level and format.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(c.LogFormat) == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

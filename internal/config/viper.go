// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "STATEMENT"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
		BOM       bool   `mapstructure:"bom" yaml:"bom"`
	} `mapstructure:"csv" yaml:"csv"`

	Extraction struct {
		LineThreshold      float64 `mapstructure:"line_threshold" yaml:"line_threshold"`
		LooseLineThreshold float64 `mapstructure:"loose_line_threshold" yaml:"loose_line_threshold"`
		DumpTextChars      int     `mapstructure:"dump_text_chars" yaml:"dump_text_chars"`
	} `mapstructure:"extraction" yaml:"extraction"`

	AI struct {
		Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
		Model             string `mapstructure:"model" yaml:"model"`
		RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
		TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		BatchSize         int    `mapstructure:"batch_size" yaml:"batch_size"`
		RoundPauseMS      int    `mapstructure:"round_pause_ms" yaml:"round_pause_ms"`
		FallbackCategory  string `mapstructure:"fallback_category" yaml:"fallback_category"`
		APIKey            string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Data struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
		User      string `mapstructure:"user" yaml:"user"`
	} `mapstructure:"data" yaml:"data"`

	Metrics struct {
		Textfile string `mapstructure:"textfile" yaml:"textfile"`
	} `mapstructure:"metrics" yaml:"metrics"`
}

// InitializeConfig loads the configuration, lowest priority first: defaults,
// config.yaml, STATEMENT_* environment variables. When configFile is set it
// replaces the search path and must exist.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.statement-csv")
		v.AddConfigPath(".statement-csv")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configFile != "":
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		case !errors.As(err, &notFound):
			fmt.Fprintf(os.Stderr, "Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. The API key keeps its conventional unprefixed name
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.bom", true)

	v.SetDefault("extraction.line_threshold", reflow.DefaultThreshold)
	v.SetDefault("extraction.loose_line_threshold", reflow.LooseThreshold)
	v.SetDefault("extraction.dump_text_chars", 3000)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", categorizer.DefaultGeminiModel)
	v.SetDefault("ai.requests_per_minute", 10)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.batch_size", categorizer.DefaultBatchSize)
	v.SetDefault("ai.round_pause_ms", int(categorizer.DefaultRoundPause.Milliseconds()))
	v.SetDefault("ai.fallback_category", models.CategoryOther)

	v.SetDefault("data.directory", "")
	v.SetDefault("data.user", "default")

	v.SetDefault("metrics.textfile", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len([]rune(config.CSV.Delimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	if config.Extraction.LineThreshold <= 0 {
		return fmt.Errorf("extraction.line_threshold must be positive, got: %g", config.Extraction.LineThreshold)
	}
	if config.Extraction.LooseLineThreshold <= 0 {
		return fmt.Errorf("extraction.loose_line_threshold must be positive, got: %g", config.Extraction.LooseLineThreshold)
	}
	if config.Extraction.DumpTextChars < 0 {
		return fmt.Errorf("extraction.dump_text_chars cannot be negative, got: %d", config.Extraction.DumpTextChars)
	}

	// A missing API key is not an error: the classification reports the
	// service as unavailable and falls back to the local rules.
	if config.AI.RequestsPerMinute < 0 || config.AI.RequestsPerMinute > 1000 {
		return fmt.Errorf("ai.requests_per_minute must be between 0 and 1000, got: %d", config.AI.RequestsPerMinute)
	}
	if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
		return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
	}
	if config.AI.BatchSize < 1 || config.AI.BatchSize > 50 {
		return fmt.Errorf("ai.batch_size must be between 1 and 50, got: %d", config.AI.BatchSize)
	}
	if config.AI.RoundPauseMS < 0 || config.AI.RoundPauseMS > 60000 {
		return fmt.Errorf("ai.round_pause_ms must be between 0 and 60000, got: %d", config.AI.RoundPauseMS)
	}
	if !models.IsValidCategory(config.AI.FallbackCategory) {
		return fmt.Errorf("ai.fallback_category must be one of %s, got: %s",
			strings.Join(models.AllCategories, ", "), config.AI.FallbackCategory)
	}

	if strings.TrimSpace(config.Data.User) == "" {
		return fmt.Errorf("data.user cannot be empty")
	}

	return nil
}

// Delimiter returns the CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	return []rune(c.CSV.Delimiter)[0]
}

// Validate checks the configuration again, after command-line overrides.
func (c *Config) Validate() error {
	return validateConfig(c)
}

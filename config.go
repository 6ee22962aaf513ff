package sharding

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LogConfig holds logging configuration options for the sharding package.
// It controls log verbosity, formatting, and output destination.
type LogConfig struct {
	// Level determines the verbosity of logging (0=Error, 1=Info, 2=Debug, 3=Trace)
	Level LogLevel `yaml:"level" toml:"level"`

	// ShowTime controls whether log entries include timestamps
	ShowTime bool `yaml:"show_time" toml:"show_time"`

	// Format specifies the log format (currently only "text" is supported)
	Format string `yaml:"format,omitempty" toml:"format"`

	// Output determines where logs are written: "stdout", "stderr", or a file path
	Output string `yaml:"output,omitempty" toml:"output"`

	// UseLogrum enables the logrus based logger instead of the standard logger
	UseLogrum bool `yaml:"use_logrum" toml:"use_logrum"`

	LogrumOptions LogrumOptions `yaml:"logrum_options" toml:"logrum_options"`
}

// LogrumOptions holds configuration options specific to the logrus logger.
type LogrumOptions struct {
	// AppName is added to every entry as the "app" field
	AppName string `yaml:"app_name" toml:"app_name"`

	// IncludeCaller adds the caller information to log entries
	IncludeCaller bool `yaml:"include_caller" toml:"include_caller"`

	TimestampFormat string `yaml:"timestamp_format" toml:"timestamp_format"`
}

// ParserConfig selects how statements are parsed.
type ParserConfig struct {
	// Dialect is one of generic, mysql, oracle, sqlserver, postgresql. Empty
	// means the dialect is derived from the data sources.
	Dialect string `yaml:"dialect,omitempty" toml:"dialect"`

	// StrictGrammar validates every statement against a full grammar for the
	// dialect before routing (PostgreSQL, MySQL and generic only).
	StrictGrammar bool `yaml:"strict_grammar" toml:"strict_grammar"`
}

// Key generator types.
const (
	KeyGeneratorIncrement = "increment"
	KeyGeneratorSnowflake = "snowflake"
	KeyGeneratorUUID      = "uuid"
)

// KeyGeneratorConfig selects the default generator for auto-increment columns.
type KeyGeneratorConfig struct {
	Type string `yaml:"type" toml:"type"`

	// Node is the snowflake node id, 0-1023.
	Node int64 `yaml:"node" toml:"node"`
}

// ShardingConfig holds all configuration settings for the sharding package.
// Sharding rules themselves are built in code with NewShardingRule.
type ShardingConfig struct {
	Logging      LogConfig          `yaml:"logging" toml:"logging"`
	Parser       ParserConfig       `yaml:"parser" toml:"parser"`
	KeyGenerator KeyGeneratorConfig `yaml:"key_generator" toml:"key_generator"`
}

// DefaultConfig provides the defaults used when no configuration file is
// found or a setting is missing from it.
func DefaultConfig() *ShardingConfig {
	return &ShardingConfig{
		Logging: LogConfig{
			Level:     LogLevelInfo,
			ShowTime:  true,
			Format:    "text",
			Output:    "stdout",
			UseLogrum: false,
			LogrumOptions: LogrumOptions{
				AppName:         "sqlshard",
				IncludeCaller:   false,
				TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			},
		},
		KeyGenerator: KeyGeneratorConfig{
			Type: KeyGeneratorIncrement,
		},
	}
}

var (
	// globalConfig holds the active configuration instance.
	globalConfig = DefaultConfig()
)

// LoadConfigFromFile loads configuration from a YAML or TOML file; files
// ending in .toml are read as TOML. If path is empty, common locations are
// searched and defaults are kept when nothing is found.
func LoadConfigFromFile(path string) error {
	if path == "" {
		possiblePaths := []string{
			"sharding.yml",
			"sharding.yaml",
			"sharding.toml",
			filepath.Join(os.Getenv("HOME"), ".config", "sharding.yml"),
			filepath.Join(os.Getenv("HOME"), ".config", "sharding.toml"),
			"/etc/sharding.yml",
		}

		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			log.Printf("No configuration file found in standard locations, using defaults")
			return nil
		}
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("config path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("config file is empty: %s", path)
	}

	config := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	SetConfig(config)
	log.Printf("Successfully loaded configuration from %s", path)
	return nil
}

// validateConfig ensures the loaded configuration has valid values
func validateConfig(config *ShardingConfig) error {
	if config.Logging.Level < LogLevelError || config.Logging.Level > LogLevelTrace {
		return fmt.Errorf("invalid log level: %d (must be between %d and %d)",
			config.Logging.Level, LogLevelError, LogLevelTrace)
	}

	if config.Logging.Format != "" && config.Logging.Format != "text" {
		return fmt.Errorf("unsupported log format: %s (only 'text' is supported)",
			config.Logging.Format)
	}

	if config.Logging.Output != "stdout" && config.Logging.Output != "stderr" {
		dir := filepath.Dir(config.Logging.Output)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("log file directory does not exist: %s", dir)
		}
		f, err := os.OpenFile(config.Logging.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("cannot write to log file: %w", err)
		}
		f.Close()
	}

	if config.Parser.Dialect != "" {
		if _, err := ParseDialect(config.Parser.Dialect); err != nil {
			return err
		}
	}

	switch config.KeyGenerator.Type {
	case "", KeyGeneratorIncrement, KeyGeneratorUUID:
	case KeyGeneratorSnowflake:
		if config.KeyGenerator.Node < 0 || config.KeyGenerator.Node > 1023 {
			return fmt.Errorf("snowflake node must be between 0 and 1023, got %d", config.KeyGenerator.Node)
		}
	default:
		return fmt.Errorf("unknown key generator type: %s", config.KeyGenerator.Type)
	}
	return nil
}

// GetConfig returns the current configuration.
func GetConfig() *ShardingConfig {
	return globalConfig
}

// SetLogLevel sets the log level programmatically.
func SetLogLevel(level LogLevel) {
	globalConfig.Logging.Level = level
	DefaultLogLevel = level
	GetLogger().SetLevel(level)
}

// SetConfig replaces all current settings with config.
func SetConfig(config *ShardingConfig) {
	globalConfig = config
	DefaultLogLevel = config.Logging.Level
	configureLogger()
}

// configureLogger sets up the global logger from the logging configuration.
func configureLogger() {
	if globalConfig.Logging.UseLogrum {
		configureLogrumLogger(globalConfig.Logging)
	} else {
		configureStandardLogger(globalConfig.Logging)
	}
}

// NewConfiguredRouter creates a Router using the parser settings of the
// active configuration.
func NewConfiguredRouter(rule *ShardingRule) (*Router, error) {
	return NewRouter(rule, GetConfig().Parser)
}

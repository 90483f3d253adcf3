// Package config loads paqman settings from defaults, an optional YAML file,
// PAQMAN_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paqman/pkg/engine"
	"paqman/pkg/fault"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "paqman"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "paqman"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. PAQMAN_METHOD.
	EnvPrefix = "PAQMAN"
)

// Keys of the settings, as used in the config file.
const (
	KeyMethod    = "method"
	KeyChunkSize = "chunk_size"
	KeyVerify    = "verify"
	KeyProgress  = "progress"
	KeyLogLevel  = "log_level"
)

// Config holds the resolved settings.
type Config struct {
	Method    string `mapstructure:"method"`
	ChunkSize int    `mapstructure:"chunk_size"`
	Verify    bool   `mapstructure:"verify"`
	Progress  bool   `mapstructure:"progress"`
	LogLevel  string `mapstructure:"log_level"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFilePath names a config file to use exclusively. It must exist.
	ConfigFilePath string
	// ConfigDirPath replaces the user config directory in the search path.
	ConfigDirPath string
	// Flags are bound by key name with '_' spelled '-' (log_level is
	// --log-level). Only flags set on the command line override other sources.
	Flags *pflag.FlagSet
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() *Config {
	return &Config{
		Method:    engine.DefaultMethod.String(),
		ChunkSize: engine.DefaultChunkSize,
		Verify:    true,
		Progress:  false,
		LogLevel:  "info",
	}
}

// Dir returns the user config directory for paqman: $XDG_CONFIG_HOME/paqman,
// or ~/.config/paqman when XDG_CONFIG_HOME is unset.
func Dir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// Load resolves the settings and returns them with the path of the config
// file that was read, or "" when none was.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyMethod, defaults.Method)
	v.SetDefault(KeyChunkSize, defaults.ChunkSize)
	v.SetDefault(KeyVerify, defaults.Verify)
	v.SetDefault(KeyProgress, defaults.Progress)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range []string{KeyMethod, KeyChunkSize, KeyVerify, KeyProgress, KeyLogLevel} {
			flag := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, "", fmt.Errorf("bind flag %s: %w", flag.Name, err)
			}
		}
	}

	resolvedPath, err := readConfigFile(v, opts)
	if err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fault.Validation("parse config", resolvedPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// readConfigFile loads the explicit config file, or the first paqman.yaml
// found in the config directory or the working directory. Finding none is
// not an error.
func readConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return "", fault.Open("load config", opts.ConfigFilePath, err)
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return "", fault.Validation("load config", opts.ConfigFilePath, err)
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(cfgDir)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fault.Validation("load config", v.ConfigFileUsed(), err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate checks every setting and reports the first bad one as a
// validation error.
func (c *Config) Validate() error {
	if _, err := engine.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.ChunkSize < 1 || c.ChunkSize > engine.MaxRecordSize {
		return fault.Validation("check config", KeyChunkSize,
			fmt.Errorf("chunk size %d out of range 1-%d", c.ChunkSize, engine.MaxRecordSize))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fault.Validation("check config", KeyLogLevel, err)
	}
	return nil
}

// MethodValue returns the configured method. Validate must have succeeded.
func (c *Config) MethodValue() engine.Method {
	m, _ := engine.ParseMethod(c.Method)
	return m
}

// Level returns the configured log level. Validate must have succeeded.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Package config loads the nxshell configuration.
//
// Values are resolved, lowest priority first, from built-in defaults, the user
// config file ($XDG_CONFIG_HOME/nxshell/config.yaml or an explicit path),
// NXSHELL_* environment variables and finally command-line flags bound through
// Loader.BindFlag.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MaxHistorySize bounds the persisted line history.
const MaxHistorySize = 100

// Config is the resolved shell configuration.
type Config struct {
	Connect  ConnectConfig  `mapstructure:"connect" yaml:"connect"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Keyring  KeyringConfig  `mapstructure:"keyring" yaml:"keyring"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	// Editor overrides $VISUAL and $EDITOR for the edit command.
	Editor string `mapstructure:"editor" yaml:"editor,omitempty"`
}

// ConnectConfig holds connect command defaults.
type ConnectConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password,omitempty"`
	DefaultPath string `mapstructure:"default_path" yaml:"default_path"`
	Repository  string `mapstructure:"repository" yaml:"repository,omitempty"`
}

// HTTPConfig holds transport settings.
type HTTPConfig struct {
	// Timeout of a single request; zero waits forever.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OutputConfig holds output formatting settings.
type OutputConfig struct {
	// Format is one of pretty, json, yaml.
	Format  string   `mapstructure:"format" yaml:"format"`
	Color   bool     `mapstructure:"color" yaml:"color"`
	Schemas []string `mapstructure:"schemas" yaml:"schemas,omitempty"`
}

// HistoryConfig holds line history settings.
type HistoryConfig struct {
	File string `mapstructure:"file" yaml:"file"`
	Size int    `mapstructure:"size" yaml:"size"`
}

// ProgressConfig controls the request spinner.
type ProgressConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// KeyringConfig controls password storage in the OS keyring.
type KeyringConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Service string `mapstructure:"service" yaml:"service"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Loader resolves configuration from all sources.
type Loader struct {
	appName    string
	envPrefix  string
	configFile string
	v          *viper.Viper
}

// NewLoader creates a loader for the named application.
func NewLoader(appName string) *Loader {
	l := &Loader{
		appName:   appName,
		envPrefix: strings.ToUpper(strings.ReplaceAll(appName, "-", "_")),
		v:         viper.New(),
	}
	l.setDefaults()
	return l
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("connect.host", "http://localhost:8080/nuxeo/")
	l.v.SetDefault("connect.username", "Administrator")
	l.v.SetDefault("connect.password", "Administrator")
	l.v.SetDefault("connect.default_path", "/")
	l.v.SetDefault("connect.repository", "default")
	l.v.SetDefault("http.timeout", "0s")
	l.v.SetDefault("output.format", "pretty")
	l.v.SetDefault("output.color", true)
	l.v.SetDefault("output.schemas", []string{"dublincore"})
	l.v.SetDefault("history.file", filepath.Join(xdg.StateHome, l.appName, "history"))
	l.v.SetDefault("history.size", MaxHistorySize)
	l.v.SetDefault("progress.enabled", true)
	l.v.SetDefault("keyring.enabled", true)
	l.v.SetDefault("keyring.service", l.appName)
	l.v.SetDefault("log.level", "info")
}

// SetConfigFile forces an explicit config file.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// ConfigPath returns the config file that Load reads.
func (l *Loader) ConfigPath() string {
	if l.configFile != "" {
		return l.configFile
	}
	if custom := os.Getenv(l.envPrefix + "_CONFIG"); custom != "" {
		return custom
	}
	return filepath.Join(xdg.ConfigHome, l.appName, "config.yaml")
}

// BindFlag makes a command-line flag override key when it was set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("cannot bind %s: flag is nil", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()

	path := l.ConfigPath()
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The user config file is optional unless it was requested explicitly.
		if !errors.As(err, &notFound) && !(os.IsNotExist(err) && l.configFile == "") {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Save writes cfg as YAML to the config file path.
func (l *Loader) Save(cfg *Config) error {
	path := l.ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	l := NewLoader("nxshell")
	var cfg Config
	// Defaults alone always decode.
	_ = l.v.Unmarshal(&cfg)
	cfg.normalize()
	return &cfg
}

func (c *Config) normalize() {
	if c.History.Size <= 0 || c.History.Size > MaxHistorySize {
		c.History.Size = MaxHistorySize
	}
	c.Output.Format = strings.ToLower(c.Output.Format)
	switch c.Output.Format {
	case "pretty", "json", "yaml":
	default:
		c.Output.Format = "pretty"
	}
	if c.Connect.DefaultPath == "" {
		c.Connect.DefaultPath = "/"
	}
}

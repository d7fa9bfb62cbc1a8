package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IRCMUC"

// Channel is a room joined automatically once the session is ready
type Channel struct {
	Name string `mapstructure:"name" yaml:"name"`
	Key  string `mapstructure:"key" yaml:"key,omitempty"`
}

// Config holds all client configuration
type Config struct {
	Nick     string `mapstructure:"nick" yaml:"nick"`
	Username string `mapstructure:"username" yaml:"username"`
	IRCName  string `mapstructure:"irc_name" yaml:"irc_name"`

	Server             string `mapstructure:"server" yaml:"server"`
	Port               int    `mapstructure:"port" yaml:"port"`
	ServerPass         string `mapstructure:"server_pass" yaml:"server_pass"`
	UseTLS             bool   `mapstructure:"use_tls" yaml:"use_tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	AutoNickChange     bool   `mapstructure:"auto_nick_change" yaml:"auto_nick_change"`

	Channels []Channel `mapstructure:"channels" yaml:"channels"`

	ConnectTimeout   time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	JoinTimeout      time.Duration `mapstructure:"join_timeout" yaml:"join_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`

	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// Default returns a configuration with the adapter's reference timings.
func Default() Config {
	return Config{
		Nick:             "ircmuc",
		Username:         "ircmuc",
		IRCName:          "ircmuc multi-user chat client",
		Server:           "irc.libera.chat",
		Port:             6667,
		AutoNickChange:   true,
		ConnectTimeout:   30 * time.Second,
		JoinTimeout:      10 * time.Second,
		OperationTimeout: 5 * time.Second,
		LogLevel:         "info",
	}
}

// Load reads a YAML configuration file and applies IRCMUC_* environment
// overrides on top of it. A missing file is not an error; defaults and the
// environment are used instead.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("nick", def.Nick)
	v.SetDefault("username", "")
	v.SetDefault("irc_name", def.IRCName)
	v.SetDefault("server", def.Server)
	v.SetDefault("port", def.Port)
	v.SetDefault("server_pass", def.ServerPass)
	v.SetDefault("use_tls", def.UseTLS)
	v.SetDefault("insecure_skip_verify", def.InsecureSkipVerify)
	v.SetDefault("auto_nick_change", def.AutoNickChange)
	v.SetDefault("connect_timeout", def.ConnectTimeout)
	v.SetDefault("join_timeout", def.JoinTimeout)
	v.SetDefault("operation_timeout", def.OperationTimeout)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}

	return &cfg, nil
}

// Validate reports the first configuration problem found, if any.
func (c *Config) Validate() error {
	switch {
	case c.Nick == "":
		return errors.New("nick is required")
	case c.Server == "":
		return errors.New("server is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.JoinTimeout <= 0:
		return errors.New("join_timeout must be positive")
	case c.OperationTimeout <= 0:
		return errors.New("operation_timeout must be positive")
	case c.ConnectTimeout <= 0:
		return errors.New("connect_timeout must be positive")
	}
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channels[%d]: name is required", i)
		}
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories as needed. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

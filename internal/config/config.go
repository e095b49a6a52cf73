// Package config holds the runtime configuration of the chromectl command,
// merged from defaults, an optional config file and CHROMECTL_* env vars.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	// Host of the remote debugging endpoint
	Host string `mapstructure:"host" yaml:"host"`
	// Port of the remote debugging endpoint
	Port string `mapstructure:"port" yaml:"port"`

	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// BrowserConfig controls how the browser process is launched.
type BrowserConfig struct {
	// Bin is the browser executable, empty means auto-detect
	Bin string `mapstructure:"bin" yaml:"bin"`
	// UserDataDir is the profile directory, empty means a fresh temp profile
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	// Headless runs the browser without a window
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// Leakless kills the browser when chromectl dies
	Leakless bool `mapstructure:"leakless" yaml:"leakless"`
}

// LoggerConfig controls the zap logger.
type LoggerConfig struct {
	// Level is debug, info, warn or error
	Level string `mapstructure:"level" yaml:"level"`
	// Format is console or json
	Format string `mapstructure:"format" yaml:"format"`
	// LogFile enables an additional rotated JSON file sink
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`       // megabytes
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"` // files
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`         // days
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the baseline values on v, file and env override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", "9222")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.leakless", true)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
}

// Load reads the optional config file, binds the env and unmarshals. A
// missing config file is fine, a malformed one is not.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("chromectl")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix("CHROMECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ControlURL is the http url of the remote debugging endpoint
func (c Config) ControlURL() string {
	return "http://" + net.JoinHostPort(c.Host, c.Port)
}

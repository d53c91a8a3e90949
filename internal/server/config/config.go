package config

import (
	"errors"
	"fmt"
	"net"

	"ipbeacon/internal/logging"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName is used for config search paths
const AppName = "ipbeacon"

// Config represents server configuration
type Config struct {
	Server ServerConfig   `mapstructure:"server"`
	Log    logging.Config `mapstructure:"log"`
}

// ServerConfig represents the HTTP listener settings
type ServerConfig struct {
	// Bind is the listen address
	Bind string `mapstructure:"bind"`
	// Port is the listen port
	Port int `mapstructure:"port"`
	// IPFile is the path the push transport writes the address to
	IPFile string `mapstructure:"ip_file"`
}

// Address returns the bind address in host:port form
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// BindFlags registers the server CLI flags
func BindFlags(fs *pflag.FlagSet) {
	fs.Int("port", 0, "Port to listen on")
	fs.String("bind", "", "Address to bind to")
	fs.String("ip-file", "", "Path to the IP file")
}

// LoadConfig loads the server configuration from an optional file, with
// CLI flags taking precedence
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("server")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/" + AppName)
		v.AddConfigPath("/etc/" + AppName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyFlags(&config, fs)
	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyFlags overrides file values with flags that were set
func applyFlags(config *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	if fs.Changed("port") {
		config.Server.Port, _ = fs.GetInt("port")
	}
	if fs.Changed("bind") {
		config.Server.Bind, _ = fs.GetString("bind")
	}
	if fs.Changed("ip-file") {
		config.Server.IPFile, _ = fs.GetString("ip-file")
	}
}

// setDefaults sets default values if not specified
func setDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Bind == "" {
		config.Server.Bind = "0.0.0.0"
	}
	if config.Server.IPFile == "" {
		config.Server.IPFile = "/var/www/html/myip.txt"
	}
	config.Log.SetDefaults()
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Server.Port)
	}
	if net.ParseIP(config.Server.Bind) == nil {
		return fmt.Errorf("invalid bind address: %s", config.Server.Bind)
	}
	return config.Log.Validate()
}

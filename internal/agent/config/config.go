package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ipbeacon/internal/agent/pusher"
	"ipbeacon/internal/logging"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName is used for config and cache search paths
const AppName = "ipbeacon"

// Config represents agent configuration
type Config struct {
	Agent AgentConfig    `mapstructure:"agent"`
	Log   logging.Config `mapstructure:"log"`
}

// AgentConfig represents the polling and push settings
type AgentConfig struct {
	// Server is the push destination, user@host[:port]
	Server string `mapstructure:"server"`
	// RemotePath is the file the server host serves the address from
	RemotePath string `mapstructure:"remote_path"`
	// Interval between poll cycles. Config files take a duration
	// string ("300s") or a bare number of seconds
	Interval time.Duration `mapstructure:"interval"`
	// CacheFile records the last successfully pushed address
	CacheFile string `mapstructure:"cache_file"`
	// SSHKey is an optional private-key path
	SSHKey string `mapstructure:"ssh_key"`
	// KnownHosts is the host-key verification file
	KnownHosts string `mapstructure:"known_hosts"`
	// InsecureHostKey disables host-key verification (security trade-off)
	InsecureHostKey bool `mapstructure:"insecure_host_key"`
	// Once runs a single cycle instead of looping
	Once bool `mapstructure:"once"`
	// Providers are the external address-echo services tried in order
	Providers []string `mapstructure:"providers"`
}

// BindFlags registers the agent CLI flags
func BindFlags(fs *pflag.FlagSet) {
	fs.String("server", "", "Push destination (user@host[:port]), required")
	fs.String("remote-path", "", "Remote path for the address file")
	fs.Int("interval", 0, "Check interval in seconds")
	fs.String("cache-file", "", "Local cache file for the last pushed address")
	fs.String("ssh-key", "", "Path to SSH private key for authentication")
	fs.String("known-hosts", "", "Path to the SSH known_hosts file")
	fs.Bool("insecure-host-key", false, "Disable SSH host key checking (NOT RECOMMENDED)")
	fs.Bool("once", false, "Run one cycle and exit")
}

// LoadConfig loads the agent configuration from an optional file, with
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
		v.SetConfigName("agent")
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

	// A bare number for agent.interval means seconds, matching --interval
	if raw := v.GetString("agent.interval"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			v.Set("agent.interval", (time.Duration(secs) * time.Second).String())
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyFlags(&config, fs)

	if err := setDefaults(&config); err != nil {
		return nil, err
	}

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
	if fs.Changed("server") {
		config.Agent.Server, _ = fs.GetString("server")
	}
	if fs.Changed("remote-path") {
		config.Agent.RemotePath, _ = fs.GetString("remote-path")
	}
	if fs.Changed("interval") {
		seconds, _ := fs.GetInt("interval")
		config.Agent.Interval = time.Duration(seconds) * time.Second
	}
	if fs.Changed("cache-file") {
		config.Agent.CacheFile, _ = fs.GetString("cache-file")
	}
	if fs.Changed("ssh-key") {
		config.Agent.SSHKey, _ = fs.GetString("ssh-key")
	}
	if fs.Changed("known-hosts") {
		config.Agent.KnownHosts, _ = fs.GetString("known-hosts")
	}
	if fs.Changed("insecure-host-key") {
		config.Agent.InsecureHostKey, _ = fs.GetBool("insecure-host-key")
	}
	if fs.Changed("once") {
		config.Agent.Once, _ = fs.GetBool("once")
	}
}

// setDefaults sets default values if not specified
func setDefaults(config *Config) error {
	if config.Agent.RemotePath == "" {
		config.Agent.RemotePath = "/var/www/html/myip.txt"
	}

	if config.Agent.Interval == 0 {
		config.Agent.Interval = 300 * time.Second
	}

	if config.Agent.CacheFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory for cache file: %w", err)
		}
		config.Agent.CacheFile = filepath.Join(home, ".config", AppName, "cached_ip")
	}

	config.Log.SetDefaults()

	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Agent.Server == "" {
		return fmt.Errorf("server destination is required")
	}
	if _, _, _, err := pusher.ParseDestination(config.Agent.Server); err != nil {
		return err
	}

	if config.Agent.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1 second")
	}

	for _, provider := range config.Agent.Providers {
		u, err := url.ParseRequestURI(provider)
		if err != nil {
			return fmt.Errorf("invalid provider URL %s: %w", provider, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("provider URL %s must use HTTP(S) protocol", provider)
		}
	}

	return config.Log.Validate()
}

// Package config loads deskwire configuration from YAML files and
// DESKWIRE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	// Home holds the option store and default log files.
	Home       string           `mapstructure:"home"`
	Log        LogConfig        `mapstructure:"log"`
	Rendezvous RendezvousConfig `mapstructure:"rendezvous"`
	Session    SessionConfig    `mapstructure:"session"`
	Store      StoreConfig      `mapstructure:"store"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// RendezvousConfig selects the rendezvous server and negotiation options.
type RendezvousConfig struct {
	Hosts []string `mapstructure:"hosts"`
	// Scheme is ws, wss or tcp.
	Scheme       string `mapstructure:"scheme"`
	CustomServer string `mapstructure:"custom_server"`
	// Key is the licence key sent to the server. When set it is also the
	// trust anchor for host keys.
	Key            string        `mapstructure:"key"`
	Token          string        `mapstructure:"token"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// SessionConfig tunes the session engine.
type SessionConfig struct {
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	QueueInterval time.Duration `mapstructure:"queue_interval"`
	MyID          string        `mapstructure:"my_id"`
	MyName        string        `mapstructure:"my_name"`
}

// StoreConfig selects the option store backend.
type StoreConfig struct {
	// Driver is file or sqlite.
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	// Passphrase, when set, seals remembered credentials at rest.
	Passphrase string `mapstructure:"passphrase"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	home := ".deskwire"
	if h, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(h, ".deskwire")
	}
	return &Config{
		Home: home,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "deskwire.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Rendezvous: RendezvousConfig{
			Hosts:          []string{"rs-sg.rustdesk.com", "rs-cn.rustdesk.com", "rs-us.rustdesk.com"},
			Scheme:         "ws",
			ProbeTimeout:   3 * time.Second,
			ConnectTimeout: 12 * time.Second,
		},
		Session: SessionConfig{
			ReadTimeout:   12 * time.Second,
			FlushInterval: time.Millisecond,
			QueueInterval: time.Millisecond,
			MyID:          "web",
			MyName:        "web",
		},
		Store: StoreConfig{Driver: "file"},
	}
}

// Load reads configuration from path when non-empty, otherwise from
// DESKWIRE_CONFIG or deskwire.yaml in ., ./configs and ~/.deskwire.
// Environment variables use the prefix DESKWIRE with `.` and `-` replaced
// by `_`, e.g. DESKWIRE_RENDEZVOUS_CUSTOM_SERVER.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DESKWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", cfg.Home)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("rendezvous.hosts", cfg.Rendezvous.Hosts)
	v.SetDefault("rendezvous.scheme", cfg.Rendezvous.Scheme)
	v.SetDefault("rendezvous.custom_server", cfg.Rendezvous.CustomServer)
	v.SetDefault("rendezvous.key", cfg.Rendezvous.Key)
	v.SetDefault("rendezvous.token", cfg.Rendezvous.Token)
	v.SetDefault("rendezvous.probe_timeout", cfg.Rendezvous.ProbeTimeout)
	v.SetDefault("rendezvous.connect_timeout", cfg.Rendezvous.ConnectTimeout)
	v.SetDefault("session.read_timeout", cfg.Session.ReadTimeout)
	v.SetDefault("session.flush_interval", cfg.Session.FlushInterval)
	v.SetDefault("session.queue_interval", cfg.Session.QueueInterval)
	v.SetDefault("session.my_id", cfg.Session.MyID)
	v.SetDefault("session.my_name", cfg.Session.MyName)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.passphrase", cfg.Store.Passphrase)

	if path == "" {
		path = os.Getenv("DESKWIRE_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("deskwire")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".deskwire"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Rendezvous.Scheme = strings.ToLower(strings.TrimSpace(c.Rendezvous.Scheme))
	switch c.Rendezvous.Scheme {
	case "":
		c.Rendezvous.Scheme = "ws"
	case "ws", "wss", "tcp":
	default:
		return fmt.Errorf("invalid rendezvous.scheme: %q", c.Rendezvous.Scheme)
	}
	var hosts []string
	for _, h := range c.Rendezvous.Hosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 && c.Rendezvous.CustomServer == "" {
		return errors.New("rendezvous.hosts is empty and no custom_server is set")
	}
	c.Rendezvous.Hosts = hosts
	c.Rendezvous.CustomServer = strings.TrimSpace(c.Rendezvous.CustomServer)

	if c.Session.ReadTimeout < 0 {
		return fmt.Errorf("invalid session.read_timeout: %s", c.Session.ReadTimeout)
	}
	if c.Session.MyID == "" {
		c.Session.MyID = "web"
	}
	if c.Session.MyName == "" {
		c.Session.MyName = c.Session.MyID
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "":
		c.Store.Driver = "file"
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid store.driver: %q", c.Store.Driver)
	}
	if strings.HasPrefix(c.Home, "~/") {
		if h, err := os.UserHomeDir(); err == nil {
			c.Home = filepath.Join(h, c.Home[2:])
		}
	}
	return nil
}

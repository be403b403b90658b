// Package config loads and validates the engine's configuration from the
// recognized-options table (spec.md §6), backed by viper so the same
// values can come from file, environment, or flags, and hot-reload the
// file on change via fsnotify.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProfileEntry is one element of the profile[] option: a policy file to
// load plus its enable/remote flags.
type ProfileEntry struct {
	File     string `mapstructure:"file"`
	Enabled  bool   `mapstructure:"enabled"`
	Remote   bool   `mapstructure:"remote"`
	PolicyID string `mapstructure:"policy_id"`
}

// Config is the fully validated engine configuration.
type Config struct {
	Enabled         bool
	ScanOnStart     bool
	Interval        time.Duration
	ScanDay         int
	ScanWday        int
	ScanTime        string
	SkipNFS         bool
	CommandsTimeout time.Duration
	RemoteCommands  bool
	// RequestDBInterval is the jitter upper bound for dumps, already
	// converted from the configured minutes to seconds and clamped to
	// Interval (§9(a), §6).
	RequestDBInterval time.Duration
	Profiles          []ProfileEntry

	SinkEndpoint string
	SinkModule   string
	SinkQueue    string
	MaxEPS       int

	IntakeSocketPath string
}

// Load reads configuration from path (if non-empty) plus environment
// variables prefixed SCA_, applies defaults, and validates/clamps the
// bounded fields.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("sca")
	v.AutomaticEnv()

	v.SetDefault("enabled", true)
	v.SetDefault("scan_on_start", false)
	v.SetDefault("interval", 21600) // 6h, matching the original's default
	v.SetDefault("scan_day", 0)
	v.SetDefault("scan_wday", -1)
	v.SetDefault("scan_time", "")
	v.SetDefault("skip_nfs", false)
	v.SetDefault("commands_timeout", 30)
	v.SetDefault("remote_commands", false)
	v.SetDefault("request_db_interval", 5) // minutes
	v.SetDefault("sink_endpoint", "")
	v.SetDefault("sink_module", "sca")
	v.SetDefault("sink_queue", "hot")
	v.SetDefault("max_eps", 100)
	v.SetDefault("intake_socket_path", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return build(v)
}

// Watch re-reads the config file on change and invokes onChange with the
// newly validated Config. path must name a concrete config file.
func Watch(path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("config reload failed, keeping previous configuration", "error", err)
			return
		}
		logger.Info("configuration reloaded", "path", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func build(v *viper.Viper) (*Config, error) {
	interval := time.Duration(v.GetInt("interval")) * time.Second

	commandsTimeout := v.GetInt("commands_timeout")
	if commandsTimeout < 1 || commandsTimeout > 300 {
		return nil, fmt.Errorf("commands_timeout must be in [1,300], got %d", commandsTimeout)
	}

	requestDBMinutes := v.GetInt("request_db_interval")
	if requestDBMinutes < 1 || requestDBMinutes > 60 {
		return nil, fmt.Errorf("request_db_interval must be in [1,60] minutes, got %d", requestDBMinutes)
	}
	requestDBInterval := time.Duration(requestDBMinutes) * time.Minute
	if requestDBInterval > interval {
		requestDBInterval = interval
	}

	var profiles []ProfileEntry
	if err := v.UnmarshalKey("profile", &profiles); err != nil {
		return nil, fmt.Errorf("parsing profile[]: %w", err)
	}

	return &Config{
		Enabled:           v.GetBool("enabled"),
		ScanOnStart:       v.GetBool("scan_on_start"),
		Interval:          interval,
		ScanDay:           v.GetInt("scan_day"),
		ScanWday:          v.GetInt("scan_wday"),
		ScanTime:          v.GetString("scan_time"),
		SkipNFS:           v.GetBool("skip_nfs"),
		CommandsTimeout:   time.Duration(commandsTimeout) * time.Second,
		RemoteCommands:    v.GetBool("remote_commands"),
		RequestDBInterval: requestDBInterval,
		Profiles:          profiles,
		SinkEndpoint:      v.GetString("sink_endpoint"),
		SinkModule:        v.GetString("sink_module"),
		SinkQueue:         v.GetString("sink_queue"),
		MaxEPS:            v.GetInt("max_eps"),
		IntakeSocketPath:  v.GetString("intake_socket_path"),
	}, nil
}

// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the top-level `metaconfig.toml` shape, per SPEC_FULL.md §2:
// "socket dir override, config process command line, env passthrough,
// keybind fallback table."
type Config struct {
	// Socket configuration
	Socket SocketConfig `mapstructure:"socket"`

	// ConfigProcess describes the external configuration script/binary the
	// compositor spawns on startup and on reload.
	ConfigProcess ConfigProcessConfig `mapstructure:"config_process"`

	// Input configuration
	Input InputConfig `mapstructure:"input"`

	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Binds is the fallback bind table the built-in configuration registers
	// when it runs: under --no-config, when no config process command is
	// set, and after the config process exits.
	Binds []BindFallback `mapstructure:"binds"`
}

// SocketConfig controls where the control-plane unix socket is created.
type SocketConfig struct {
	// Dir overrides the socket directory, per spec.md §4.8's
	// "preferDir" precedence slot; empty means fall through to
	// $XDG_RUNTIME_DIR then os.TempDir().
	Dir string `mapstructure:"dir"`
}

// ConfigProcessConfig describes the child configuration process.
type ConfigProcessConfig struct {
	Command []string `mapstructure:"command"`
	// Env lists additional "KEY=VALUE" entries passed through to the
	// config process beyond PINNACLE_GRPC_SOCKET, which is always set.
	Env []string `mapstructure:"env"`
}

// InputConfig contains input handling settings, applied through the
// control plane's Input service once a wire backend is attached.
type InputConfig struct {
	RepeatRateHz  int32   `mapstructure:"repeat_rate_hz"`
	RepeatDelayMs int32   `mapstructure:"repeat_delay_ms"`
	PointerAccel  float64 `mapstructure:"pointer_accel"`
	KeyboardLayout string `mapstructure:"keyboard_layout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BindFallback is one entry of the keybind fallback table used when no
// configuration process registers binds (spec.md §9's "built-in
// configuration").
type BindFallback struct {
	Keysym string `mapstructure:"keysym"`
	Mods   string `mapstructure:"mods"` // e.g. "super+shift"
	Action string `mapstructure:"action"`
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Socket: SocketConfig{
			Dir: "",
		},
		ConfigProcess: ConfigProcessConfig{
			Command: nil,
			Env:     nil,
		},
		Input: InputConfig{
			RepeatRateHz:   25,
			RepeatDelayMs:  600,
			PointerAccel:   0,
			KeyboardLayout: "us",
		},
		Log: LogConfig{
			Level: "info",
		},
		Binds: []BindFallback{
			{Keysym: "q", Mods: "super+shift", Action: "quit"},
			{Keysym: "r", Mods: "super+shift", Action: "reload_config"},
		},
	}

	// Global config instance
	cfg *Config
)

// Init initializes the configuration system, searching the paths
// SPEC_FULL.md §2 names: `PINNACLE_CONFIG_DIR`, `XDG_CONFIG_HOME`,
// `$HOME/.config`, then the current directory.
func Init() error {
	viper.SetConfigName("metaconfig")
	viper.SetConfigType("toml")

	if dir := os.Getenv("PINNACLE_CONFIG_DIR"); dir != "" {
		viper.AddConfigPath(dir)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "pinnacle"))
	} else if home := os.Getenv("HOME"); home != "" {
		viper.AddConfigPath(filepath.Join(home, ".config", "pinnacle"))
	}
	viper.AddConfigPath(".") // Current directory (lowest priority)

	// Set defaults
	viper.SetDefault("socket", DefaultConfig.Socket)
	viper.SetDefault("config_process", DefaultConfig.ConfigProcess)
	viper.SetDefault("input", DefaultConfig.Input)
	viper.SetDefault("log", DefaultConfig.Log)
	viper.SetDefault("binds", DefaultConfig.Binds)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal config
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// InitFromDir is Init with an explicit search directory, for the
// --config-dir CLI flag of spec.md §9, taking precedence over
// PINNACLE_CONFIG_DIR.
func InitFromDir(dir string) error {
	if dir != "" {
		if err := os.Setenv("PINNACLE_CONFIG_DIR", dir); err != nil {
			return fmt.Errorf("set PINNACLE_CONFIG_DIR: %w", err)
		}
	}
	return Init()
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if dir := os.Getenv("PINNACLE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "metaconfig.toml")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pinnacle", "metaconfig.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "metaconfig.toml"
	}
	return filepath.Join(home, ".config", "pinnacle", "metaconfig.toml")
}

// UpdateSocket updates the socket configuration and persists it.
func UpdateSocket(socketCfg SocketConfig) error {
	viper.Set("socket", socketCfg)
	Get().Socket = socketCfg
	return Save()
}

// UpdateConfigProcess updates the configuration-process command line and
// persists it.
func UpdateConfigProcess(procCfg ConfigProcessConfig) error {
	viper.Set("config_process", procCfg)
	Get().ConfigProcess = procCfg
	return Save()
}

// WatchForChanges arms viper's fsnotify-backed config watch on whatever
// file ReadInConfig found, feeding edits to metaconfig.toml (or the bind
// fallback table inside it) into the same reload path a config-process
// crash takes, per spec.md §9. onChange runs on the fsnotify goroutine; it
// is the caller's job to hop back onto the state loop before touching
// compositor state. A no-op if no config file was found by Init.
func WatchForChanges(onChange func(fsnotify.Event)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg = &Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return // stale edit mid-write; keep the last good config
		}
		onChange(e)
	})
	viper.WatchConfig()
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		viper.Reset()
		os.Unsetenv("PINNACLE_CONFIG_DIR")

		err := Init()
		if err != nil {
			t.Errorf("Init() failed: %v", err)
		}

		config := Get()
		if config == nil {
			t.Error("Get() returned nil after Init()")
		}

		if config.Log.Level != "info" {
			t.Errorf("expected default log level %q, got %q", "info", config.Log.Level)
		}
		if config.Input.RepeatRateHz != 25 {
			t.Errorf("expected default repeat rate 25, got %d", config.Input.RepeatRateHz)
		}
		if len(config.Binds) != len(DefaultConfig.Binds) {
			t.Errorf("expected %d default bind fallback entries, got %d", len(DefaultConfig.Binds), len(config.Binds))
		}
	})

	t.Run("handles invalid TOML gracefully", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "pinnacle-test-*")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(tmpDir)

		invalidTOML := `[socket
dir = "/tmp"`
		if err := os.WriteFile(filepath.Join(tmpDir, "metaconfig.toml"), []byte(invalidTOML), 0644); err != nil {
			t.Fatal(err)
		}

		oldWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(oldWd)

		viper.Reset()
		os.Unsetenv("PINNACLE_CONFIG_DIR")

		err = Init()
		if err == nil {
			t.Skip("config file not found in test environment, skipping invalid TOML test")
		} else if !strings.Contains(err.Error(), "parsing") && !strings.Contains(err.Error(), "toml") {
			t.Errorf("expected a parsing error, got: %v", err)
		}
	})
}

func TestConfigPathResolution(t *testing.T) {
	tests := []struct {
		name         string
		setupEnv     func() func()
		expectedPath string
	}{
		{
			name: "HOME only",
			setupEnv: func() func() {
				originalHome := os.Getenv("HOME")
				originalXDG := os.Getenv("XDG_CONFIG_HOME")
				originalDir := os.Getenv("PINNACLE_CONFIG_DIR")
				os.Setenv("HOME", "/home/testuser")
				os.Unsetenv("XDG_CONFIG_HOME")
				os.Unsetenv("PINNACLE_CONFIG_DIR")
				return func() {
					os.Setenv("HOME", originalHome)
					os.Setenv("XDG_CONFIG_HOME", originalXDG)
					os.Setenv("PINNACLE_CONFIG_DIR", originalDir)
				}
			},
			expectedPath: "/home/testuser/.config/pinnacle/metaconfig.toml",
		},
		{
			name: "XDG_CONFIG_HOME overrides HOME",
			setupEnv: func() func() {
				originalXDG := os.Getenv("XDG_CONFIG_HOME")
				originalDir := os.Getenv("PINNACLE_CONFIG_DIR")
				os.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
				os.Unsetenv("PINNACLE_CONFIG_DIR")
				return func() {
					os.Setenv("XDG_CONFIG_HOME", originalXDG)
					os.Setenv("PINNACLE_CONFIG_DIR", originalDir)
				}
			},
			expectedPath: "/custom/xdg/pinnacle/metaconfig.toml",
		},
		{
			name: "PINNACLE_CONFIG_DIR overrides everything",
			setupEnv: func() func() {
				originalDir := os.Getenv("PINNACLE_CONFIG_DIR")
				os.Setenv("PINNACLE_CONFIG_DIR", "/explicit/dir")
				return func() {
					os.Setenv("PINNACLE_CONFIG_DIR", originalDir)
				}
			},
			expectedPath: "/explicit/dir/metaconfig.toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := tt.setupEnv()
			defer cleanup()

			viper.Reset()

			path := GetConfigPath()
			if path != tt.expectedPath {
				t.Errorf("expected path %s, got %s", tt.expectedPath, path)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "pinnacle-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	configs := map[string]string{
		"current": `[log]
level = "current-dir"`,
		"user": `[log]
level = "user-config"`,
	}

	currentConfig := filepath.Join(tmpDir, "metaconfig.toml")
	userConfigDir := filepath.Join(tmpDir, ".config", "pinnacle")
	os.MkdirAll(userConfigDir, 0755)

	os.WriteFile(currentConfig, []byte(configs["current"]), 0644)
	os.WriteFile(filepath.Join(userConfigDir, "metaconfig.toml"), []byte(configs["user"]), 0644)

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", originalHome)

	t.Run("current directory takes precedence", func(t *testing.T) {
		viper.Reset()
		viper.SetConfigName("metaconfig")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(userConfigDir)

		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("failed to read config: %v", err)
		}

		level := viper.GetString("log.level")
		if level != "current-dir" {
			t.Errorf("expected current-dir config, got %s", level)
		}
	})

	t.Run("user config used when no current dir config", func(t *testing.T) {
		os.Remove(currentConfig)

		viper.Reset()
		viper.SetConfigName("metaconfig")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(userConfigDir)

		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("failed to read config: %v", err)
		}

		level := viper.GetString("log.level")
		if level != "user-config" {
			t.Errorf("expected user-config, got %s", level)
		}
	})
}

func TestWatchForChangesFiresOnEdit(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "metaconfig.toml")
	if err := os.WriteFile(configPath, []byte("[log]\nlevel = \"info\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	viper.Reset()
	os.Setenv("PINNACLE_CONFIG_DIR", tmpDir)
	defer os.Unsetenv("PINNACLE_CONFIG_DIR")

	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	changed := make(chan fsnotify.Event, 1)
	WatchForChanges(func(e fsnotify.Event) {
		select {
		case changed <- e:
		default:
		}
	})

	if err := os.WriteFile(configPath, []byte("[log]\nlevel = \"debug\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		if Get().Log.Level != "debug" {
			t.Errorf("expected reloaded level %q, got %q", "debug", Get().Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WatchForChanges callback did not fire after config edit")
	}
}

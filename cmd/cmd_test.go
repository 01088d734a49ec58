package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// executeCommand runs root with args, capturing stdout, mirroring the
// teacher's cmd/config_test.go helper.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestSocketPathPrintsAResolvedPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_RUNTIME_DIR", tmpDir)
	t.Setenv("PINNACLE_CONFIG_DIR", "")
	viper.Reset()

	out, err := executeCommand(rootCmd, "socket-path")
	if err != nil {
		t.Fatalf("socket-path failed: %v", err)
	}
	want := filepath.Join(tmpDir, "pinnacle-grpc.sock") + "\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestConfigDirPrintsResolvedPathWithoutInit(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("PINNACLE_CONFIG_DIR", "")
	viper.Reset()

	out, err := executeCommand(rootCmd, "config-dir")
	if err != nil {
		t.Fatalf("config-dir failed: %v", err)
	}
	want := filepath.Join(tmpDir, ".config", "pinnacle", "metaconfig.toml") + "\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/pinnacle/internal/config"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var configDirInit bool

var configDirCmd = &cobra.Command{
	Use:   "config-dir",
	Short: "Print (or initialize) the metaconfig discovery path",
	Long: `config-dir prints the path pinnacle will read metaconfig.toml from,
following the same PINNACLE_CONFIG_DIR / XDG_CONFIG_HOME / $HOME/.config
precedence the compositor uses at startup.`,
	RunE: runConfigDir,
}

func init() {
	configDirCmd.Flags().BoolVar(&configDirInit, "init", false,
		"interactively pick a config directory and create a default metaconfig.toml there")
}

func runConfigDir(cmd *cobra.Command, args []string) error {
	if !configDirInit {
		cmd.Println(config.GetConfigPath())
		return nil
	}

	dir, err := promptConfigDir()
	if err != nil {
		return fmt.Errorf("prompt for config dir: %w", err)
	}

	if err := os.Setenv("PINNACLE_CONFIG_DIR", dir); err != nil {
		return fmt.Errorf("set PINNACLE_CONFIG_DIR: %w", err)
	}
	if err := config.InitFromDir(dir); err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	if err := config.Save(); err != nil {
		return fmt.Errorf("save default config: %w", err)
	}

	fmt.Printf("Wrote default metaconfig.toml to %s\n", filepath.Join(dir, "metaconfig.toml"))
	return nil
}

// promptConfigDir is the huh-based interactive first-run prompt, mirroring
// the teacher's cmd/setup.go flow of asking the user a small set of
// questions rather than requiring flags for everything up front.
func promptConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultDir := filepath.Join(home, ".config", "pinnacle")

	dir := defaultDir
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Where should pinnacle look for metaconfig.toml?").
				Value(&dir).
				Placeholder(defaultDir),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	if dir == "" {
		dir = defaultDir
	}
	return dir, nil
}

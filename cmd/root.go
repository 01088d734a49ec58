package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set during build.
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "pinnacle",
		Short: "Pinnacle - a tiling Wayland compositor",
		Long: `Pinnacle is a tiling Wayland compositor driven entirely from the
outside: window placement, input bindings and output configuration are
owned by a configuration process talking to the compositor over its
control-plane socket.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configDirCmd)
	rootCmd.AddCommand(socketPathCmd)
	rootCmd.AddCommand(debugTUICmd)
}

func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

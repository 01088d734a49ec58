package cmd

import (
	"fmt"

	"github.com/bnema/pinnacle/internal/config"
	"github.com/bnema/pinnacle/internal/controlplane"
	"github.com/spf13/cobra"
)

var socketPathCmd = &cobra.Command{
	Use:   "socket-path",
	Short: "Print the control-plane socket path a running compositor would use",
	Long: `socket-path resolves the unix-domain socket path the compositor
listens on: metaconfig's socket.dir override if set, else $XDG_RUNTIME_DIR,
else the system temp directory, with the lowest unused pinnacle-grpc[-N].sock
suffix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir := controlplane.ResolveSocketDir(config.Get().Socket.Dir)
		cmd.Println(controlplane.ResolveSocketPath(dir))
		return nil
	},
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/pinnacle/internal/compositor"
	"github.com/bnema/pinnacle/internal/config"
	"github.com/bnema/pinnacle/internal/controlplane"
	"github.com/bnema/pinnacle/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	noConfigFlag  bool
	configDirFlag string
	sessionFlag   bool
	socketDirFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the compositor",
	Long: `Run starts the state loop, the control-plane socket and, unless
--no-config is set, the configuration process named in metaconfig.toml.`,
	RunE: runCompositor,
}

func init() {
	runCmd.Flags().BoolVar(&noConfigFlag, "no-config", false,
		"skip spawning the configuration process; binds load from metaconfig only")
	runCmd.Flags().StringVar(&configDirFlag, "config-dir", "",
		"override the metaconfig discovery path")
	runCmd.Flags().BoolVar(&sessionFlag, "session", false,
		"announce this run to logind as a session leader")
	runCmd.Flags().StringVar(&socketDirFlag, "socket-dir", "",
		"override the control-plane socket directory")
}

func runCompositor(cmd *cobra.Command, args []string) error {
	if configDirFlag != "" {
		if err := config.InitFromDir(configDirFlag); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else if err := config.Init(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Get()

	logger.SetLevel(cfg.Log.Level)
	if logFile, err := logger.SetupFileLogging("pinnacle"); err == nil {
		defer logFile.Close()
	} else {
		logger.Warnf("file logging unavailable, staying on stderr: %v", err)
	}

	if sessionFlag {
		announceSession()
	}

	socketDir := cfg.Socket.Dir
	if socketDirFlag != "" {
		socketDir = socketDirFlag
	}
	socketPath := controlplane.ResolveSocketPath(controlplane.ResolveSocketDir(socketDir))

	loop := compositor.NewLoop(64)

	router := loop.NewRouter(nil)
	loop.State.Router = router
	srv := controlplane.NewServer(socketPath, router.Handle)

	token, err := controlplane.GenerateToken()
	if err != nil {
		return fmt.Errorf("generate control token: %w", err)
	}
	srv.SetToken(token)
	if err := controlplane.WriteTokenFile(controlplane.TokenPath(socketPath), token); err != nil {
		return fmt.Errorf("write control token: %w", err)
	}

	loop.Socket = srv
	loop.Reloader = &compositor.Reloader{
		State:    loop.State,
		NoConfig: noConfigFlag,
		Builtin: func() compositor.ConfigProcess {
			return &compositor.BuiltinConfigProcess{State: loop.State, Binds: cfg.Binds}
		},
	}
	if len(cfg.ConfigProcess.Command) > 0 {
		loop.Reloader.NewConfig = func() compositor.ConfigProcess {
			return compositor.NewExecConfigProcess(cfg.ConfigProcess.Command, cfg.ConfigProcess.Env, socketPath)
		}
	}

	config.WatchForChanges(func(e fsnotify.Event) {
		logger.Infof("metaconfig changed (%s), reloading", e.Name)
		loop.Post(func() {
			if err := loop.Reloader.Reload(context.Background()); err != nil {
				logger.Errorf("reload after metaconfig change: %v", err)
			}
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("pinnacle starting, control plane at %s", socketPath)
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("compositor run: %w", err)
	}

	if !loop.State.QuitRequested() {
		exitError("compositor stopped without an explicit quit request")
	}
	return nil
}

// announceSession is the out-of-scope logind boundary: spec.md §9's
// --session flag only needs to notify logind that a session leader
// exists, which has no Go client library in this corpus and no further
// SPEC_FULL.md component to wire it to. Logged so the flag is at least
// observable.
func announceSession() {
	logger.Info("--session set: announcing to logind is the out-of-scope session-management boundary, logging only")
}

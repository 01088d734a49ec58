package compositor

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/pinnacle/internal/logger"
)

// ConfigProcess is the out-of-scope boundary toward actual child-process
// spawning and stdio piping, which spec.md §1 names as a deliberately
// external collaborator ("process spawning and stdio piping"). The state
// loop only ever sees this narrow shape.
type ConfigProcess interface {
	// Spawn starts the process and returns a channel that receives exactly
	// once, when the process exits (nil error on a clean exit).
	Spawn(ctx context.Context) (<-chan error, error)
	// RequestShutdown asks the process to exit gracefully (ExecConfigProcess
	// sends SIGTERM; BuiltinConfigProcess does nothing) and returns once the
	// request was sent, not once the process has actually exited.
	RequestShutdown(ctx context.Context) error
}

// ShutdownTimeout bounds how long Reloader waits for a graceful exit
// request to be delivered. Reloader does not wait for the process itself
// to exit.
const ShutdownTimeout = 3 * time.Second

// Reloader drives the configuration-process lifecycle of spec.md §9:
// initial spawn, graceful reload, and crash recovery. None of its paths
// may ever bring down the compositor process itself.
type Reloader struct {
	State *State

	// NewConfig constructs the configured (non-default) config process,
	// e.g. running metaconfig's declared command line. Nil when no command
	// is configured.
	NewConfig func() ConfigProcess
	// Builtin constructs the fallback built-in configuration process, used
	// at start and on reload when NewConfig is nil or NoConfig is set, and
	// after a crash. May be nil, meaning there is no fallback.
	Builtin func() ConfigProcess
	// NoConfig (the --no-config CLI flag) never spawns NewConfig; only
	// Builtin runs, which loads the bind fallback table from metaconfig.
	NoConfig bool

	mu      sync.Mutex
	current ConfigProcess
}

// Start spawns the initial configuration process, or the built-in one if
// NoConfig is set or no NewConfig is configured.
func (rl *Reloader) Start(ctx context.Context) error {
	if rl.NoConfig || rl.NewConfig == nil {
		if rl.Builtin != nil {
			return rl.launch(ctx, rl.Builtin())
		}
		return nil
	}
	return rl.launch(ctx, rl.NewConfig())
}

// Reload sends the current process a shutdown request (bounded by
// ShutdownTimeout), clears window rules, the bind store, signal
// subscribers and id allocators, then spawns either the new config or the
// built-in default. It does not wait for the previous process to exit;
// that process's later exit is recognized as superseded, not as a crash.
func (rl *Reloader) Reload(ctx context.Context) error {
	rl.mu.Lock()
	prev := rl.current
	rl.mu.Unlock()

	if prev != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
		if err := prev.RequestShutdown(shutdownCtx); err != nil {
			logger.Errorf("configuration process shutdown request: %v", err)
		}
		cancel()
	}

	rl.State.clearForReload()

	if rl.NewConfig != nil && !rl.NoConfig {
		return rl.launch(ctx, rl.NewConfig())
	}
	if rl.Builtin != nil {
		return rl.launch(ctx, rl.Builtin())
	}
	return nil
}

func (rl *Reloader) launch(ctx context.Context, proc ConfigProcess) error {
	exited, err := proc.Spawn(ctx)
	if err != nil {
		return err
	}

	rl.mu.Lock()
	rl.current = proc
	rl.mu.Unlock()

	go rl.watch(ctx, proc, exited)
	return nil
}

// watch waits for one process's exit, then posts the crash-recovery
// decision back onto the state loop. Superseded processes (replaced by an
// explicit Reload before they exited) are recognized by identity and
// treated as a clean supersession rather than a crash.
func (rl *Reloader) watch(ctx context.Context, proc ConfigProcess, exited <-chan error) {
	select {
	case <-ctx.Done():
		return
	case err := <-exited:
		rl.State.Post(func() { rl.onExited(ctx, proc, err) })
	}
}

func (rl *Reloader) onExited(ctx context.Context, proc ConfigProcess, err error) {
	rl.mu.Lock()
	isCurrent := rl.current == proc
	rl.mu.Unlock()
	if !isCurrent {
		return // superseded by an explicit Reload; not a crash
	}

	if err != nil {
		logger.Errorf("configuration process exited unexpectedly: %v", err)
	} else {
		logger.Info("configuration process exited")
	}

	rl.State.clearForReload()

	if rl.NoConfig || rl.Builtin == nil {
		logger.Error("configuration process crashed with no fallback available, requesting shutdown")
		rl.State.RequestQuit()
		return
	}

	if err := rl.launch(ctx, rl.Builtin()); err != nil {
		logger.Errorf("failed to launch built-in configuration after crash: %v", err)
		rl.State.RequestQuit()
	}
}

package compositor

import (
	"context"
	"strings"

	"github.com/bnema/pinnacle/internal/config"
	"github.com/bnema/pinnacle/internal/core"
)

// BuiltinConfigProcess is the "built-in default" configuration of spec.md
// §9: unlike ExecConfigProcess it never spawns anything. Spawn installs
// metaconfig's keybind fallback table directly into the Bind Store, then
// idles until the Reloader's context is cancelled, standing in for a
// config process that never crashes and never needs a reload of its own.
type BuiltinConfigProcess struct {
	State *State
	Binds []config.BindFallback
}

// Spawn loads the fallback bind table and returns a channel that only
// fires when ctx is cancelled (a clean, unrequested "exit").
func (p *BuiltinConfigProcess) Spawn(ctx context.Context) (<-chan error, error) {
	for _, b := range p.Binds {
		bind := &core.Bind{
			Kind:         core.KeyBind,
			Keysym:       parseKeysym(b.Keysym),
			Mods:         parseMods(b.Mods),
			Quit:         b.Action == "quit",
			ReloadConfig: b.Action == "reload_config",
			Description:  b.Action,
		}
		p.State.Binds.Register(p.State.Alloc, bind)
	}

	exited := make(chan error, 1)
	go func() {
		<-ctx.Done()
		exited <- nil
	}()
	return exited, nil
}

// RequestShutdown is a no-op: there is no process to signal.
func (p *BuiltinConfigProcess) RequestShutdown(context.Context) error { return nil }

// parseKeysym maps a metaconfig keysym name to a keysym value. Only single
// ASCII characters are supported; a full libxkbcommon keysym table is the
// out-of-scope input-backend boundary (spec.md §1), so the fallback table
// is deliberately limited to what it can name without one.
func parseKeysym(name string) uint32 {
	if len(name) == 1 {
		return uint32(name[0])
	}
	return 0
}

// parseMods turns a "super+shift"-style modifier string into a ModMask
// with every named slot Required and every other slot Ignored.
func parseMods(s string) core.ModMask {
	var m core.ModMask
	for _, part := range strings.Split(s, "+") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "shift":
			m.Shift = core.Required
		case "ctrl", "control":
			m.Ctrl = core.Required
		case "alt":
			m.Alt = core.Required
		case "super", "meta", "mod4":
			m.Super = core.Required
		case "isolevel3":
			m.IsoLevel3 = core.Required
		case "isolevel5":
			m.IsoLevel5 = core.Required
		}
	}
	return m
}

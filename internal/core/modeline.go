package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseModeline parses an XFree86 modeline string, per spec.md §4.3: "the
// first token after the name is a pixel clock in MHz." The remaining
// tokens' details (hsync/vsync timings) don't affect the Mode this
// compositor tracks (pixel size + refresh in mHz), so only enough of the
// line is parsed to derive those two fields; a full modeline has the shape:
//
//	<clock_mhz> <hdisp> <hsyncstart> <hsyncend> <htotal> <vdisp> <vsyncstart> <vsyncend> <vtotal> [flags...]
func ParseModeline(modeline string) (Mode, error) {
	fields := strings.Fields(modeline)
	if len(fields) < 9 {
		return Mode{}, fmt.Errorf("modeline has %d fields, need at least 9: %w", len(fields), ErrInvalidArgument)
	}

	clockMHz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Mode{}, fmt.Errorf("invalid pixel clock %q: %w", fields[0], ErrInvalidArgument)
	}

	hdisp, err := strconv.Atoi(fields[1])
	if err != nil || hdisp <= 0 {
		return Mode{}, fmt.Errorf("invalid hdisp %q: %w", fields[1], ErrInvalidArgument)
	}
	htotal, err := strconv.Atoi(fields[4])
	if err != nil || htotal <= 0 {
		return Mode{}, fmt.Errorf("invalid htotal %q: %w", fields[4], ErrInvalidArgument)
	}
	vdisp, err := strconv.Atoi(fields[5])
	if err != nil || vdisp <= 0 {
		return Mode{}, fmt.Errorf("invalid vdisp %q: %w", fields[5], ErrInvalidArgument)
	}
	vtotal, err := strconv.Atoi(fields[8])
	if err != nil || vtotal <= 0 {
		return Mode{}, fmt.Errorf("invalid vtotal %q: %w", fields[8], ErrInvalidArgument)
	}

	// refresh (Hz) = clock (Hz) / (htotal * vtotal); mHz = refresh * 1000.
	clockHz := clockMHz * 1_000_000
	refreshHz := clockHz / (float64(htotal) * float64(vtotal))
	refreshMHz := int32(refreshHz*1000 + 0.5)

	return Mode{
		Width:      int32(hdisp),
		Height:     int32(vdisp),
		RefreshMHz: refreshMHz,
	}, nil
}

// SetModeline parses and applies a modeline string as a custom mode.
func (r *OutputRegistry) SetModeline(name string, modeline string) error {
	mode, err := ParseModeline(modeline)
	if err != nil {
		return err
	}
	return r.SetCustomMode(name, mode)
}

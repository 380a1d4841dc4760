package liveedit

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dpotapov/go-liveedit/markup"
)

// Mode is the interaction mode of the rendering surface.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInspect
	ModeLiveEdit
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInspect:
		return "inspect"
	case ModeLiveEdit:
		return "live-edit"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the wire name of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "normal", "":
		return ModeNormal, nil
	case "inspect":
		return ModeInspect, nil
	case "live-edit":
		return ModeLiveEdit, nil
	}
	return ModeNormal, fmt.Errorf("unknown mode: %s", s)
}

// Handlers is the interaction handler bundle of one mode. It is one of NormalHandlers,
// InspectHandlers or LiveEditHandlers.
type Handlers interface {
	Mode() Mode
}

// NormalHandlers attaches no interaction handlers.
type NormalHandlers struct{}

// InspectHandlers receives the signature of clicked elements.
type InspectHandlers struct {
	OnInspect func(markup.Signature)
}

// LiveEditHandlers receives the serialized content region after each mutation.
type LiveEditHandlers struct {
	OnLiveEdit func(body string)
}

func (NormalHandlers) Mode() Mode   { return ModeNormal }
func (InspectHandlers) Mode() Mode  { return ModeInspect }
func (LiveEditHandlers) Mode() Mode { return ModeLiveEdit }

// Binder builds the handler bundle for a mode. It is called on every installation so the
// bundle closes over the latest state.
type Binder func(Mode) Handlers

// ModeController is the exclusive Normal/Inspect/LiveEdit state machine. It owns the handler
// bundle installed on the surface.
type ModeController struct {
	surface Surface
	editor  TextSurface
	bind    Binder
	logger  *slog.Logger

	mode Mode
}

// NewModeController creates a controller in ModeNormal. editor may be nil when there is no
// selection to clear.
func NewModeController(surface Surface, editor TextSurface, bind Binder, logger *slog.Logger) *ModeController {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if bind == nil {
		bind = func(Mode) Handlers { return NormalHandlers{} }
	}
	return &ModeController{
		surface: surface,
		editor:  editor,
		bind:    bind,
		logger:  logger,
	}
}

// Mode returns the active mode.
func (c *ModeController) Mode() Mode {
	return c.mode
}

// EnableInspect turns LiveEdit off and Inspect on.
func (c *ModeController) EnableInspect() error {
	return c.switchTo(ModeInspect)
}

// EnableLiveEdit turns Inspect off and LiveEdit on.
func (c *ModeController) EnableLiveEdit() error {
	return c.switchTo(ModeLiveEdit)
}

// Disable returns to ModeNormal.
func (c *ModeController) Disable() error {
	return c.switchTo(ModeNormal)
}

// ToggleInspect enables Inspect, or returns to Normal when Inspect is already active.
func (c *ModeController) ToggleInspect() error {
	if c.mode == ModeInspect {
		return c.Disable()
	}
	return c.EnableInspect()
}

// ToggleLiveEdit enables LiveEdit, or returns to Normal when LiveEdit is already active.
func (c *ModeController) ToggleLiveEdit() error {
	if c.mode == ModeLiveEdit {
		return c.Disable()
	}
	return c.EnableLiveEdit()
}

// Set switches to m.
func (c *ModeController) Set(m Mode) error {
	switch m {
	case ModeInspect:
		return c.EnableInspect()
	case ModeLiveEdit:
		return c.EnableLiveEdit()
	default:
		return c.Disable()
	}
}

// Reinstall replaces the surface handlers with a freshly bound bundle for the active mode.
func (c *ModeController) Reinstall() error {
	return c.install(c.mode)
}

func (c *ModeController) install(m Mode) error {
	h := c.bind(m)
	if h == nil || h.Mode() != m {
		return fmt.Errorf("binder returned %v handlers for mode %s", h, m)
	}
	if err := c.surface.Install(h); err != nil {
		return fmt.Errorf("install %s handlers: %w", m, err)
	}
	return nil
}

func (c *ModeController) switchTo(m Mode) error {
	if err := c.install(m); err != nil {
		return err
	}

	prev := c.mode
	c.mode = m
	if prev == m {
		return nil
	}

	if c.editor != nil {
		if err := c.editor.ClearSelection(); err != nil {
			c.logger.Warn("Clear selection", "error", err)
		}
	}
	c.logger.Debug("Mode changed", "from", prev, "to", m)
	return nil
}

package liveedit

import (
	"errors"
	"io"
	"log/slog"

	"github.com/dpotapov/go-liveedit/markup"
)

// Origin tells where a new revision of the source text came from.
type Origin int

const (
	OriginLoad Origin = iota
	OriginEdit
	OriginLiveEdit
	OriginGenerate
	OriginTemplate
	OriginReset
)

func (o Origin) String() string {
	switch o {
	case OriginLoad:
		return "load"
	case OriginEdit:
		return "edit"
	case OriginLiveEdit:
		return "live-edit"
	case OriginGenerate:
		return "generate"
	case OriginTemplate:
		return "template"
	case OriginReset:
		return "reset"
	}
	return "unknown"
}

// Diagnostic kinds.
const (
	DiagMatchNotFound  = "match-not-found"
	DiagRegionNotFound = "region-not-found"
	DiagSurface        = "surface"
	DiagGenerate       = "generate"
	DiagTemplate       = "template"
)

// Diagnostic is a non-fatal outcome reported to the host.
type Diagnostic struct {
	Kind string
	Err  error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Text is the initial source text.
	Text string

	// Surface is the rendering surface. It is loaded by Start.
	Surface Surface

	// Editor is the text-editing surface that receives selections.
	Editor TextSurface

	// LineHeight is the editor line height in pixels, see Highlighter.
	LineHeight int

	// OnText is called after every new revision of the source text.
	OnText func(text string, origin Origin)

	// OnDiagnostic is called for every non-fatal condition.
	OnDiagnostic func(Diagnostic)

	Logger *slog.Logger
}

// Session ties the source text, the rendering surface and the text-editing surface
// together. It is not safe for concurrent use: all calls must come from one event loop.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger

	text   string
	modes  *ModeController
	sync   *Synchronizer
	hl     *Highlighter
	editor TextSurface
}

func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		cfg:    cfg,
		logger: logger,
		text:   cfg.Text,
		editor: cfg.Editor,
		hl:     &Highlighter{LineHeight: cfg.LineHeight, Logger: logger},
	}
	s.modes = NewModeController(cfg.Surface, cfg.Editor, s.bind, logger)
	s.sync = NewSynchronizer(cfg.Surface, s.modes, logger)
	return s
}

// Start loads the rendering surface from the current text.
func (s *Session) Start() error {
	s.sync.Invalidate()
	return s.apply(s.text, OriginLoad)
}

// Text returns the current revision of the source text.
func (s *Session) Text() string {
	return s.text
}

// Mode returns the active interaction mode.
func (s *Session) Mode() Mode {
	return s.modes.Mode()
}

// Modes exposes the mode controller.
func (s *Session) Modes() *ModeController {
	return s.modes
}

// SetMode switches the interaction mode.
func (s *Session) SetMode(m Mode) error {
	return s.modes.Set(m)
}

// Replace installs a new revision of the source text and synchronizes the surface.
func (s *Session) Replace(text string, origin Origin) error {
	return s.apply(text, origin)
}

// Dispatch routes a surface event through the handlers of the active mode.
func (s *Session) Dispatch(ev SurfaceEvent) bool {
	return s.cfg.Surface.Dispatch(ev)
}

func (s *Session) apply(text string, origin Origin) error {
	s.text = text

	res, err := s.sync.Sync(text)
	for _, d := range res.Diagnostics {
		s.report(DiagRegionNotFound, d)
	}
	if err != nil {
		s.report(DiagSurface, err)
		return err
	}

	if s.cfg.OnText != nil {
		s.cfg.OnText(text, origin)
	}
	return nil
}

func (s *Session) bind(m Mode) Handlers {
	switch m {
	case ModeInspect:
		return InspectHandlers{OnInspect: s.inspect}
	case ModeLiveEdit:
		return LiveEditHandlers{OnLiveEdit: s.liveEdit}
	}
	return NormalHandlers{}
}

func (s *Session) inspect(sig markup.Signature) {
	if s.editor == nil {
		return
	}
	m := markup.Locate(sig, s.text)
	if err := s.hl.Apply(m, s.editor); err != nil {
		kind := DiagSurface
		if errors.Is(err, markup.ErrMatchNotFound) {
			kind = DiagMatchNotFound
		}
		s.report(kind, err)
	}
}

func (s *Session) liveEdit(body string) {
	text, err := markup.PatchBody(s.text, body)
	if err != nil {
		s.report(DiagRegionNotFound, err)
		return
	}
	if text == s.text {
		return
	}
	_ = s.apply(text, OriginLiveEdit)
}

func (s *Session) report(kind string, err error) {
	s.logger.Warn("Session diagnostic", "kind", kind, "error", err)
	if s.cfg.OnDiagnostic != nil {
		s.cfg.OnDiagnostic(Diagnostic{Kind: kind, Err: err})
	}
}

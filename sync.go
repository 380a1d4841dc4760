package liveedit

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dpotapov/go-liveedit/markup"
)

// SyncResult reports what a synchronization pass changed.
type SyncResult struct {
	// Cold is set when the surface was fully loaded from the text.
	Cold bool

	HeadReplaced bool
	BodyReplaced bool

	// Diagnostics lists non-fatal conditions, such as a missing body region.
	Diagnostics []error
}

// Replacements returns the number of regions written by an incremental pass.
func (r SyncResult) Replacements() int {
	n := 0
	if r.HeadReplaced {
		n++
	}
	if r.BodyReplaced {
		n++
	}
	return n
}

// Synchronizer keeps a Surface in step with the source text without reloading it.
type Synchronizer struct {
	surface Surface
	modes   *ModeController
	logger  *slog.Logger

	loaded bool
}

func NewSynchronizer(surface Surface, modes *ModeController, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synchronizer{
		surface: surface,
		modes:   modes,
		logger:  logger,
	}
}

// Invalidate makes the next Sync a cold load.
func (s *Synchronizer) Invalidate() {
	s.loaded = false
}

// Sync brings the surface up to date with text.
//
// The first call loads the whole document. Later calls replace the head and body regions
// only when their serialized content differs from the corresponding region of text. A
// region the text does not delimit counts as empty, so removing its tags clears it. A
// live-edit mutation that produced text therefore does not write the body back, which
// keeps the cursor and any in-flight interaction intact. Handlers for the active mode are
// reinstalled after every pass.
func (s *Synchronizer) Sync(text string) (SyncResult, error) {
	var res SyncResult

	regions := markup.Split(text)
	if !regions.HasBody {
		err := &markup.RegionError{Region: markup.RegionBody}
		res.Diagnostics = append(res.Diagnostics, err)
		s.logger.Warn("Sync surface", "error", err)
	}

	if !s.loaded {
		if err := s.surface.Load(text); err != nil {
			return res, fmt.Errorf("load surface: %w", err)
		}
		s.loaded = true
		res.Cold = true
	} else {
		if regions.Head != s.surface.Head() {
			if err := s.surface.SetHead(regions.Head); err != nil {
				return res, fmt.Errorf("replace head: %w", err)
			}
			res.HeadReplaced = true
		}

		if regions.Body != s.surface.Body() {
			if err := s.surface.SetBody(regions.Body); err != nil {
				return res, fmt.Errorf("replace body: %w", err)
			}
			res.BodyReplaced = true
		}
	}

	if s.modes != nil {
		if err := s.modes.Reinstall(); err != nil {
			return res, err
		}
	}

	s.logger.Debug("Sync surface", "cold", res.Cold, "head", res.HeadReplaced, "body", res.BodyReplaced)
	return res, nil
}

package liveedit

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dpotapov/go-liveedit/markup"
)

// DefaultLineHeight is the pixel height of one line of the text-editing surface.
const DefaultLineHeight = 20

// Highlighter applies match results to the text-editing surface.
type Highlighter struct {
	// LineHeight is the pixel height of a line. Zero means DefaultLineHeight.
	LineHeight int

	Logger *slog.Logger
}

// Apply selects exactly [m.Start(), m.End()) in ts, focuses it and scrolls so the first
// selected line sits in the vertical middle of the visible area. A match that was not
// found changes nothing and yields markup.ErrMatchNotFound.
func (h *Highlighter) Apply(m markup.MatchResult, ts TextSurface) error {
	if !m.Found {
		h.logger().Debug("Highlight selection", "error", markup.ErrMatchNotFound)
		return markup.ErrMatchNotFound
	}

	if err := ts.Select(m.Start(), m.End()); err != nil {
		return fmt.Errorf("select range: %w", err)
	}
	if err := ts.Focus(); err != nil {
		return fmt.Errorf("focus editor: %w", err)
	}
	if err := ts.ScrollTo(h.ScrollTop(m.Span.Line, ts.VisibleLines())); err != nil {
		return fmt.Errorf("scroll editor: %w", err)
	}
	return nil
}

// ScrollTop returns the scroll offset that centers the 1-based line within visibleLines.
func (h *Highlighter) ScrollTop(line, visibleLines int) int {
	lh := h.LineHeight
	if lh <= 0 {
		lh = DefaultLineHeight
	}
	top := (line-1)*lh - (visibleLines/2)*lh
	if top < 0 {
		return 0
	}
	return top
}

func (h *Highlighter) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

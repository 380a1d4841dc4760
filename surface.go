package liveedit

import "github.com/dpotapov/go-liveedit/markup"

// Surface is a live rendering of the source text, split into a metadata region (head) and
// a content region (body).
//
// Head and Body return the serialized content of a region: the text last written by
// SetHead/SetBody or Load, or the re-serialization of the region after a live-edit
// mutation. Only the Synchronizer writes to a surface.
type Surface interface {
	// Load initializes the surface from a full document. It destroys any live state and is
	// only used for the first synchronization.
	Load(doc string) error

	Head() string
	Body() string
	SetHead(html string) error
	SetBody(html string) error

	// Install replaces the interaction handler bundle as a whole.
	Install(h Handlers) error

	// Dispatch routes a surface-originated event to the installed bundle. It reports
	// whether a handler consumed the event.
	Dispatch(ev SurfaceEvent) bool
}

// TextSurface is the text-editing surface that displays the source text.
type TextSurface interface {
	// Select selects the byte range [start, end) of the source text.
	Select(start, end int) error
	ClearSelection() error
	Focus() error
	// ScrollTo scrolls the surface so that the pixel offset top is the first visible row.
	ScrollTo(top int) error
	VisibleLines() int
}

// SurfaceEvent is an event produced by an interaction with the rendering surface.
type SurfaceEvent interface {
	surfaceEvent()
}

// InspectEvent is produced when the user clicks a rendered element.
type InspectEvent struct {
	Signature markup.Signature
}

// LiveEditEvent is produced when the user mutates the rendered content region. Body is the
// re-serialized content region.
type LiveEditEvent struct {
	Body string
}

func (InspectEvent) surfaceEvent()  {}
func (LiveEditEvent) surfaceEvent() {}

// handlerSlot holds the single handler bundle of a surface. Surfaces embed it to get
// Install and Dispatch.
type handlerSlot struct {
	handlers Handlers
}

func (s *handlerSlot) Install(h Handlers) error {
	if h == nil {
		h = NormalHandlers{}
	}
	s.handlers = h
	return nil
}

// Installed returns the bundle currently installed.
func (s *handlerSlot) Installed() Handlers {
	if s.handlers == nil {
		return NormalHandlers{}
	}
	return s.handlers
}

func (s *handlerSlot) Dispatch(ev SurfaceEvent) bool {
	return Deliver(s.handlers, ev)
}

// Deliver calls the handler of h for ev, if the bundle has one for the event kind. A bundle
// for one mode never sees the events of another. Surfaces implement Dispatch with it.
func Deliver(h Handlers, ev SurfaceEvent) bool {
	switch ev := ev.(type) {
	case InspectEvent:
		if ih, ok := h.(InspectHandlers); ok && ih.OnInspect != nil {
			ih.OnInspect(ev.Signature)
			return true
		}
	case LiveEditEvent:
		if lh, ok := h.(LiveEditHandlers); ok && lh.OnLiveEdit != nil {
			lh.OnLiveEdit(ev.Body)
			return true
		}
	}
	return false
}

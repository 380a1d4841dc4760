package liveedit

import (
	"unicode/utf16"

	"github.com/dpotapov/go-liveedit/markup"
)

// WebSocket message types. Every frame is a single JSON encoded message.
const (
	// client -> server
	msgHello    = "hello"
	msgText     = "text"
	msgMode     = "mode"
	msgInspect  = "inspect"
	msgLiveEdit = "live-edit"
	msgViewport = "viewport"
	msgGenerate = "generate"
	msgTemplate = "template"
	msgReset    = "reset"
	msgAPIKey   = "api-key"

	// server -> client
	msgLoad          = "load"
	msgHead          = "head"
	msgBody          = "body"
	msgHandlers      = "handlers"
	msgSelect        = "select"
	msgClearSelect   = "clear-selection"
	msgFocus         = "focus"
	msgScroll        = "scroll"
	msgBusy          = "busy"
	msgDiagnostic    = "diagnostic"
	msgGenerateError = "generate-error"
)

type message struct {
	Type string `json:"type"`

	Session      string        `json:"session,omitempty"`
	Text         string        `json:"text,omitempty"`
	HTML         string        `json:"html,omitempty"`
	Mode         string        `json:"mode,omitempty"`
	Tag          string        `json:"tag,omitempty"`
	Attrs        []markup.Attr `json:"attrs,omitempty"`
	Body         string        `json:"body,omitempty"`
	VisibleLines int           `json:"visible_lines,omitempty"`
	Instruction  string        `json:"instruction,omitempty"`
	Name         string        `json:"name,omitempty"`
	Key          string        `json:"key,omitempty"`

	// Offsets are UTF-16 code units, as used by the browser.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
	Top   int `json:"top,omitempty"`

	Busy    bool   `json:"busy,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// remoteSurface mirrors the rendering surface that lives in the browser. Writes are sent as
// messages; Head and Body answer from the mirror of what was last written or reported.
type remoteSurface struct {
	handlerSlot
	send func(message) error

	head string
	body string
}

func (s *remoteSurface) Load(doc string) error {
	r := markup.Split(doc)
	s.head, s.body = r.Head, r.Body
	return s.send(message{Type: msgLoad, HTML: doc})
}

func (s *remoteSurface) Head() string { return s.head }
func (s *remoteSurface) Body() string { return s.body }

func (s *remoteSurface) SetHead(html string) error {
	s.head = html
	return s.send(message{Type: msgHead, HTML: html})
}

func (s *remoteSurface) SetBody(html string) error {
	s.body = html
	return s.send(message{Type: msgBody, HTML: html})
}

func (s *remoteSurface) Install(h Handlers) error {
	if err := s.handlerSlot.Install(h); err != nil {
		return err
	}
	return s.send(message{Type: msgHandlers, Mode: s.Installed().Mode().String()})
}

// inspect delivers a click reported by the browser.
func (s *remoteSurface) inspect(tag string, attrs []markup.Attr) bool {
	return s.Dispatch(InspectEvent{Signature: markup.Signature{Tag: tag, Attrs: attrs}})
}

// liveEdit delivers a body mutation reported by the browser. Reports that arrive while
// live-edit handlers are not installed are stale and dropped.
func (s *remoteSurface) liveEdit(body string) bool {
	if _, ok := s.Installed().(LiveEditHandlers); !ok {
		return false
	}
	s.body = body
	return s.Dispatch(LiveEditEvent{Body: body})
}

// remoteEditor is the browser textarea showing the source text.
type remoteEditor struct {
	send func(message) error

	// text returns the source text the editor currently shows.
	text    func() string
	visible int
}

func (e *remoteEditor) Select(start, end int) error {
	t := e.text()
	return e.send(message{Type: msgSelect, Start: utf16Offset(t, start), End: utf16Offset(t, end)})
}

func (e *remoteEditor) ClearSelection() error {
	return e.send(message{Type: msgClearSelect})
}

func (e *remoteEditor) Focus() error {
	return e.send(message{Type: msgFocus})
}

func (e *remoteEditor) ScrollTo(top int) error {
	return e.send(message{Type: msgScroll, Top: top})
}

func (e *remoteEditor) VisibleLines() int {
	return e.visible
}

// utf16Offset converts a byte offset into s to a UTF-16 code unit offset.
func utf16Offset(s string, off int) int {
	if off > len(s) {
		off = len(s)
	}
	n := 0
	for _, r := range s[:off] {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Package rodsurface renders documents in a headless Chrome page driven by Rod and exposes
// the page as a liveedit.Surface.
package rodsurface

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dpotapov/go-liveedit"
	"github.com/dpotapov/go-liveedit/markup"
)

//go:embed install.js
var installJS string

const bindingName = "__liveeditBinding"

// Surface is a liveedit.Surface backed by a Rod page.
//
// Interactions in the page are posted to Events. The owner of the session reads them and
// passes each one to Dispatch from its own goroutine.
type Surface struct {
	page   *rod.Page
	logger *slog.Logger
	events chan liveedit.SurfaceEvent

	handlers liveedit.Handlers
	head     string
	body     string
}

var _ liveedit.Surface = (*Surface)(nil)

// New attaches a Surface to page. Listening stops when ctx is done.
func New(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Surface, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Surface{
		page:     page,
		logger:   logger,
		events:   make(chan liveedit.SurfaceEvent, 64),
		handlers: liveedit.NormalHandlers{},
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return nil, fmt.Errorf("add binding: %w", err)
	}
	go page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		ev, err := decodeEvent(e.Payload)
		if err != nil {
			s.logger.Warn("Decode surface event", "error", err)
			return
		}
		select {
		case s.events <- ev:
		default:
			s.logger.Warn("Surface event dropped", "event", fmt.Sprintf("%T", ev))
		}
	})()

	return s, nil
}

// Events delivers interactions reported by the page.
func (s *Surface) Events() <-chan liveedit.SurfaceEvent {
	return s.events
}

func (s *Surface) Load(doc string) error {
	if err := s.page.SetDocumentContent(doc); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	r := markup.Split(doc)
	s.head, s.body = r.Head, r.Body
	return s.inject()
}

func (s *Surface) Head() string { return s.head }
func (s *Surface) Body() string { return s.body }

func (s *Surface) SetHead(html string) error {
	if _, err := s.page.Eval(`(h) => { document.head.innerHTML = h }`, html); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	s.head = html
	return nil
}

func (s *Surface) SetBody(html string) error {
	if _, err := s.page.Eval(`(h) => { document.body.innerHTML = h }`, html); err != nil {
		return fmt.Errorf("set body: %w", err)
	}
	s.body = html
	return nil
}

func (s *Surface) Install(h liveedit.Handlers) error {
	if h == nil {
		h = liveedit.NormalHandlers{}
	}
	s.handlers = h
	return s.inject()
}

// Dispatch delivers ev to the installed handlers. A live edit that is delivered also
// becomes the serialized body of the surface.
func (s *Surface) Dispatch(ev liveedit.SurfaceEvent) bool {
	if le, ok := ev.(liveedit.LiveEditEvent); ok {
		if _, ok := s.handlers.(liveedit.LiveEditHandlers); !ok {
			return false
		}
		s.body = le.Body
	}
	return liveedit.Deliver(s.handlers, ev)
}

func (s *Surface) inject() error {
	if _, err := s.page.Eval(installJS, s.handlers.Mode().String()); err != nil {
		return fmt.Errorf("install %s handlers: %w", s.handlers.Mode(), err)
	}
	return nil
}

// Signatures returns the signature of every element inside the body, in document order.
func (s *Surface) Signatures(ctx context.Context) ([]markup.Signature, error) {
	res, err := s.page.Context(ctx).Eval(`() => Array.from(document.body ? document.body.querySelectorAll("*") : []).map((el) => ({
		tag: el.tagName.toLowerCase(),
		attrs: Array.from(el.attributes).map((a) => ({ name: a.name, value: a.value })),
	}))`)
	if err != nil {
		return nil, fmt.Errorf("collect signatures: %w", err)
	}
	var sigs []markup.Signature
	if err := res.Value.Unmarshal(&sigs); err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	return sigs, nil
}

type bindingPayload struct {
	Kind  string        `json:"kind"`
	Tag   string        `json:"tag"`
	Attrs []markup.Attr `json:"attrs"`
	Body  string        `json:"body"`
}

func decodeEvent(payload string) (liveedit.SurfaceEvent, error) {
	var p bindingPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, err
	}
	switch p.Kind {
	case "inspect":
		if p.Tag == "" {
			return nil, fmt.Errorf("inspect event without tag")
		}
		return liveedit.InspectEvent{Signature: markup.Signature{Tag: p.Tag, Attrs: p.Attrs}}, nil
	case "live-edit":
		return liveedit.LiveEditEvent{Body: p.Body}, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", p.Kind)
}

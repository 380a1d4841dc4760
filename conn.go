package liveedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dpotapov/go-liveedit/store"
)

// conn runs one editor session over a WebSocket. All session state is owned by the
// goroutine executing run; the reader and generation goroutines only post to it.
type conn struct {
	h      *Handler
	ws     *websocket.Conn
	id     string
	logger *slog.Logger

	sess    *Session
	surface *remoteSurface
	editor  *remoteEditor

	apiKey  string
	busy    bool
	results chan generateResult

	// err is the first write error. The connection is unusable once it is set.
	err error
}

type generateResult struct {
	text string
	err  error
}

func newConn(h *Handler, ws *websocket.Conn, id string) *conn {
	return &conn{
		h:       h,
		ws:      ws,
		id:      id,
		logger:  h.logger,
		results: make(chan generateResult, 1),
	}
}

func (c *conn) send(m message) error {
	if c.err != nil {
		return c.err
	}
	if err := c.ws.WriteJSON(m); err != nil {
		c.err = fmt.Errorf("write websocket message: %w", err)
	}
	return c.err
}

// read returns the next message. Frames that do not decode are logged and skipped.
func (c *conn) read() (message, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return message{}, errConnClosed
			}
			return message{}, fmt.Errorf("read websocket message: %w", err)
		}
		var m message
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("Decode websocket message", "session", c.id, "error", err)
			continue
		}
		return m, nil
	}
}

var errConnClosed = errors.New("connection closed")

func (c *conn) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hello, err := c.read()
	if errors.Is(err, errConnClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	if hello.Type != msgHello {
		return fmt.Errorf("expected %q message, got %q", msgHello, hello.Type)
	}

	if err := c.open(ctx, hello); err != nil {
		return err
	}

	inbox := make(chan message)
	readErr := make(chan error, 1)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			m, err := c.read()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case inbox <- m:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case m := <-inbox:
			c.handle(ctx, m)
		case r := <-c.results:
			c.finishGenerate(r)
		case err := <-readErr:
			if errors.Is(err, errConnClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
		if c.err != nil {
			return c.err
		}
	}
}

// open restores or creates the session document and loads the browser surfaces.
func (c *conn) open(ctx context.Context, hello message) error {
	if c.id == "" {
		c.id, _ = parseSessionID(hello.Session)
	}
	if c.id == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("new session id: %w", err)
		}
		c.id = id.String()
	}
	c.logger = c.h.logger.With("session", c.id)

	text, err := c.initialText(ctx)
	if err != nil {
		return err
	}
	if c.h.Store != nil {
		key, err := c.h.Store.Pref(ctx, c.id, prefAPIKey)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.logger.Error("Load API key preference", "error", err)
		}
		c.apiKey = key
	}

	c.surface = &remoteSurface{send: c.send}
	c.editor = &remoteEditor{send: c.send, visible: hello.VisibleLines}
	c.sess = NewSession(SessionConfig{
		Text:         text,
		Surface:      c.surface,
		Editor:       c.editor,
		LineHeight:   c.h.LineHeight,
		OnText:       c.onText,
		OnDiagnostic: c.onDiagnostic,
		Logger:       c.logger,
	})
	c.editor.text = c.sess.Text

	if err := c.send(message{Type: msgHello, Session: c.id}); err != nil {
		return err
	}
	if err := c.sess.Start(); err != nil && c.err != nil {
		return c.err
	}
	c.logger.Info("Session started", "bytes", len(text))
	return c.send(message{Type: msgMode, Mode: c.sess.Mode().String()})
}

func (c *conn) initialText(ctx context.Context) (string, error) {
	if c.h.Store != nil {
		doc, err := c.h.Store.LoadDocument(ctx, c.id)
		if err == nil {
			return doc.HTML, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Error("Load document", "error", err)
		}
	}
	text, err := c.h.Templates.Render(c.h.Template, nil)
	if err != nil {
		return "", fmt.Errorf("initial document: %w", err)
	}
	return text, nil
}

func (c *conn) handle(ctx context.Context, m message) {
	switch m.Type {
	case msgText:
		_ = c.sess.Replace(m.Text, OriginEdit)
	case msgMode:
		mode, err := ParseMode(m.Mode)
		if err == nil {
			err = c.sess.SetMode(mode)
		}
		if err != nil {
			c.onDiagnostic(Diagnostic{Kind: DiagSurface, Err: err})
		}
		_ = c.send(message{Type: msgMode, Mode: c.sess.Mode().String()})
	case msgInspect:
		c.surface.inspect(m.Tag, m.Attrs)
	case msgLiveEdit:
		c.surface.liveEdit(m.Body)
	case msgViewport:
		c.editor.visible = m.VisibleLines
	case msgGenerate:
		c.startGenerate(ctx, m.Instruction)
	case msgTemplate:
		c.loadTemplate(m.Name, OriginTemplate)
	case msgReset:
		c.loadTemplate(c.h.Template, OriginReset)
	case msgAPIKey:
		c.apiKey = strings.TrimSpace(m.Key)
		if c.h.Store != nil {
			if err := c.h.Store.SetPref(ctx, c.id, prefAPIKey, c.apiKey); err != nil {
				c.logger.Error("Save API key preference", "error", err)
			}
		}
	default:
		c.logger.Warn("Unknown websocket message", "type", m.Type)
	}
}

func (c *conn) loadTemplate(name string, origin Origin) {
	text, err := c.h.Templates.Render(name, nil)
	if err != nil {
		c.onDiagnostic(Diagnostic{Kind: DiagTemplate, Err: err})
		return
	}
	_ = c.sess.Replace(text, origin)
}

func (c *conn) startGenerate(ctx context.Context, instruction string) {
	if c.busy {
		c.generateError(GenerateBusy, "A generation is already in progress.")
		return
	}
	if err := ValidateInstruction(instruction); err != nil {
		c.generateError(GenerateInvalidRequest, "Please enter an edit instruction.")
		return
	}
	gen := c.h.Generator
	if gen == nil {
		c.generateError(GenerateInvalidCredential, "Generation is not configured on this server.")
		return
	}

	c.busy = true
	_ = c.send(message{Type: msgBusy, Busy: true})

	req := GenerateRequest{Text: c.sess.Text(), Instruction: instruction, APIKey: c.apiKey}
	c.logger.Info("Generate", "instruction", instruction, "own_key", req.APIKey != "")
	go func() {
		text, err := gen.Generate(ctx, req)
		c.results <- generateResult{text: text, err: err}
	}()
}

func (c *conn) finishGenerate(r generateResult) {
	c.busy = false
	_ = c.send(message{Type: msgBusy, Busy: false})

	if r.err != nil {
		c.logger.Warn("Generate", "error", r.err)
		msg := r.err.Error()
		var ge *GenerateError
		if errors.As(r.err, &ge) {
			msg = ge.Message
		}
		c.generateError(GenerateErrorKindOf(r.err), msg)
		return
	}
	_ = c.sess.Replace(r.text, OriginGenerate)
}

func (c *conn) generateError(kind GenerateErrorKind, msg string) {
	_ = c.send(message{Type: msgGenerateError, Kind: string(kind), Message: msg})
}

func (c *conn) onText(text string, origin Origin) {
	if c.h.Store != nil {
		if err := c.h.Store.SaveDocument(context.Background(), c.id, text); err != nil {
			c.logger.Error("Save document", "origin", origin, "error", err)
		}
	}
	if origin != OriginEdit {
		_ = c.send(message{Type: msgText, Text: text})
	}
}

func (c *conn) onDiagnostic(d Diagnostic) {
	_ = c.send(message{Type: msgDiagnostic, Kind: d.Kind, Message: d.Err.Error()})
}

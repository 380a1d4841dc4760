package liveedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dpotapov/go-liveedit/store"
	"github.com/dpotapov/go-liveedit/templates"
)

// sessionCookie carries the session id between page loads.
const sessionCookie = "liveedit_session"

// prefAPIKey is the preference key of the user's own generation credential.
const prefAPIKey = "api-key"

// wsUpgrader is a Gorilla WebSocket instance, used to respond HTTP requests with WebSocket.
var wsUpgrader = websocket.Upgrader{}

// Store persists session documents and preferences.
type Store interface {
	LoadDocument(ctx context.Context, session string) (store.Document, error)
	SaveDocument(ctx context.Context, session, html string) error
	Pref(ctx context.Context, session, key string) (string, error)
	SetPref(ctx context.Context, session, key, value string) error
}

// Handler serves the editor page, its assets and the session WebSocket.
type Handler struct {
	// Store persists documents across reconnects. Optional.
	Store Store

	// Generator serves generate requests. If nil, generation is reported as not configured.
	Generator Generator

	// Templates is the catalog of starter documents. Defaults to templates.Builtin().
	Templates *templates.Catalog

	// Template is the name of the template new sessions start from.
	Template string

	// LineHeight is the line height of the editor textarea in pixels.
	LineHeight int

	// OnError is a callback that is called when an error occurs while serving a request.
	OnError func(*http.Request, error)

	// Logger configures logging for internal events.
	Logger *slog.Logger

	// init is used to initialize the handler only once.
	init sync.Once

	logger  *slog.Logger
	router  chi.Router
	assets  *assetSet
	index   []byte
	initErr error
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(h.setup)

	if h.initErr != nil {
		h.fail(w, r, h.initErr)
		return
	}
	h.router.ServeHTTP(w, r)
}

func (h *Handler) setup() {
	h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if h.Logger != nil {
		h.logger = h.Logger
	}
	if h.Templates == nil {
		h.Templates = templates.Builtin()
	}
	if h.Template == "" {
		h.Template = templates.DefaultName
	}

	h.assets, h.index, h.initErr = clientAssets("/assets")
	if h.initErr != nil {
		h.initErr = fmt.Errorf("load client assets: %w", h.initErr)
		return
	}

	r := chi.NewRouter()
	r.Get("/", h.handle(h.serveIndex))
	r.Method(http.MethodGet, "/assets/*", h.assets)
	r.Method(http.MethodHead, "/assets/*", h.assets)
	r.Get("/templates", h.handle(h.serveTemplates))
	r.Get("/preview/{session}", h.handle(h.servePreview))
	r.Get("/ws", h.serveSocket)
	h.router = r
}

// handle adapts a handler that returns an error. Errors are logged and answered with 500.
func (h *Handler) handle(fn func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.fail(w, r, err)
		}
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	h.report(r, err)
}

func (h *Handler) report(r *http.Request, err error) {
	h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)
	if h.OnError != nil {
		h.OnError(r, err)
	}
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) error {
	if sessionFromRequest(r) == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("new session id: %w", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id.String(),
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, err := w.Write(h.index)
	return err
}

func (h *Handler) serveTemplates(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(h.Templates.List())
}

func (h *Handler) servePreview(w http.ResponseWriter, r *http.Request) error {
	id, ok := parseSessionID(chi.URLParam(r, "session"))
	if !ok || h.Store == nil {
		http.NotFound(w, r)
		return nil
	}
	doc, err := h.Store.LoadDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
	_, err = io.WriteString(w, doc.HTML)
	return err
}

func (h *Handler) serveSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.report(r, fmt.Errorf("upgrade websocket: %w", err))
		return
	}
	defer ws.Close()

	c := newConn(h, ws, sessionFromRequest(r))
	if err := c.run(r.Context()); err != nil {
		h.report(r, err)
	}
}

func sessionFromRequest(r *http.Request) string {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	id, _ := parseSessionID(ck.Value)
	return id
}

func parseSessionID(s string) (string, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

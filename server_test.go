package liveedit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-liveedit/store"
	"github.com/dpotapov/go-liveedit/templates"
)

const serverDoc = `<!DOCTYPE html><html><head><title>T</title></head><body><h1 id="x">Héllo</h1><p>𝄞 note</p></body></html>`

const serverCatalog = `<catalog>
<template name="basic" title="Basic"><![CDATA[` + serverDoc + `]]></template>
<template name="other" title="Other"><![CDATA[<html><head><title>T</title></head><body><p>other ${1+1}</p></body></html>]]></template>
</catalog>`

func newTestServer(t *testing.T, gen Generator) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	catalog, err := templates.Parse([]byte(serverCatalog))
	require.NoError(t, err)

	srv := httptest.NewServer(&Handler{
		Store:     st,
		Generator: gen,
		Templates: catalog,
	})
	t.Cleanup(srv.Close)
	return srv, st
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readN(t *testing.T, ws *websocket.Conn, n int) []message {
	t.Helper()
	out := make([]message, 0, n)
	for range n {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m message
		require.NoError(t, ws.ReadJSON(&m))
		out = append(out, m)
	}
	return out
}

func types(msgs []message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func TestHandler_Index(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	_, ok := parseSessionID(cookie.Value)
	require.True(t, ok)

	js := regexp.MustCompile(`/assets/editor\.[0-9a-f]{16}\.js`).FindString(string(body))
	require.NotEmpty(t, js, "index page references a versioned script")
	require.Regexp(t, `/assets/editor\.[0-9a-f]{16}\.css`, string(body))

	resp, err = http.Get(srv.URL + js)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "public, max-age=31536000, immutable", resp.Header.Get("Cache-Control"))
	require.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	req, err := http.NewRequest(http.MethodGet, srv.URL+js, nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/assets/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Templates(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/templates")
	require.NoError(t, err)
	defer resp.Body.Close()

	var list []templates.Template
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, []templates.Template{{Name: "basic", Title: "Basic"}, {Name: "other", Title: "Other"}}, list)
}

func TestHandler_Session(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, req GenerateRequest) (string, error) {
		if req.APIKey != "user-key" {
			return "", &GenerateError{Kind: GenerateInvalidCredential, Message: "bad key"}
		}
		return strings.Replace(req.Text, "<title>T</title>", "<title>"+req.Instruction+"</title>", 1), nil
	})
	srv, st := newTestServer(t, gen)
	ws := dial(t, srv)
	ctx := context.Background()

	require.NoError(t, ws.WriteJSON(message{Type: msgHello, VisibleLines: 10}))
	msgs := readN(t, ws, 5)
	require.Equal(t, []string{msgHello, msgLoad, msgHandlers, msgText, msgMode}, types(msgs))
	id := msgs[0].Session
	require.NotEmpty(t, id)
	require.Equal(t, serverDoc, msgs[1].HTML)
	require.Equal(t, "normal", msgs[2].Mode)
	require.Equal(t, serverDoc, msgs[3].Text)

	doc, err := st.LoadDocument(ctx, id)
	require.NoError(t, err)
	require.Equal(t, serverDoc, doc.HTML)

	t.Run("inspect", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(message{Type: msgMode, Mode: "inspect"}))
		msgs := readN(t, ws, 3)
		require.Equal(t, []string{msgHandlers, msgClearSelect, msgMode}, types(msgs))
		require.Equal(t, "inspect", msgs[2].Mode)

		require.NoError(t, ws.WriteJSON(message{Type: msgInspect, Tag: "p"}))
		msgs = readN(t, ws, 3)
		require.Equal(t, []string{msgSelect, msgFocus, msgScroll}, types(msgs))
		// "é" is two bytes but one UTF-16 code unit.
		start := strings.Index(serverDoc, "<p>") - 1
		require.Equal(t, start, msgs[0].Start)
		require.Equal(t, start+3, msgs[0].End)

		require.NoError(t, ws.WriteJSON(message{Type: msgInspect, Tag: "table"}))
		msgs = readN(t, ws, 1)
		require.Equal(t, msgDiagnostic, msgs[0].Type)
		require.Equal(t, DiagMatchNotFound, msgs[0].Kind)
	})

	t.Run("live edit", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(message{Type: msgMode, Mode: "live-edit"}))
		msgs := readN(t, ws, 3)
		require.Equal(t, []string{msgHandlers, msgClearSelect, msgMode}, types(msgs))

		require.NoError(t, ws.WriteJSON(message{Type: msgLiveEdit, Body: "<p>typed</p>"}))
		msgs = readN(t, ws, 2)
		require.Equal(t, []string{msgHandlers, msgText}, types(msgs))
		want := `<!DOCTYPE html><html><head><title>T</title></head><body><p>typed</p></body></html>`
		require.Equal(t, want, msgs[1].Text)

		doc, err := st.LoadDocument(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, doc.HTML)
	})

	t.Run("text edit", func(t *testing.T) {
		edited := `<!DOCTYPE html><html><head><title>T</title></head><body><p>edited</p></body></html>`
		require.NoError(t, ws.WriteJSON(message{Type: msgText, Text: edited}))
		msgs := readN(t, ws, 2)
		require.Equal(t, []string{msgBody, msgHandlers}, types(msgs))
		require.Equal(t, "<p>edited</p>", msgs[0].HTML)
	})

	t.Run("generate", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(message{Type: msgGenerate, Instruction: "  "}))
		msgs := readN(t, ws, 1)
		require.Equal(t, msgGenerateError, msgs[0].Type)
		require.Equal(t, string(GenerateInvalidRequest), msgs[0].Kind)

		require.NoError(t, ws.WriteJSON(message{Type: msgGenerate, Instruction: "New"}))
		msgs = readN(t, ws, 3)
		require.Equal(t, []string{msgBusy, msgBusy, msgGenerateError}, types(msgs))
		require.True(t, msgs[0].Busy)
		require.False(t, msgs[1].Busy)
		require.Equal(t, string(GenerateInvalidCredential), msgs[2].Kind)
		require.Equal(t, "bad key", msgs[2].Message)

		require.NoError(t, ws.WriteJSON(message{Type: msgAPIKey, Key: " user-key "}))
		require.NoError(t, ws.WriteJSON(message{Type: msgGenerate, Instruction: "New"}))
		msgs = readN(t, ws, 5)
		require.Equal(t, []string{msgBusy, msgBusy, msgHead, msgHandlers, msgText}, types(msgs))
		require.Equal(t, "<title>New</title>", msgs[2].HTML)

		key, err := st.Pref(ctx, id, prefAPIKey)
		require.NoError(t, err)
		require.Equal(t, "user-key", key)
	})

	t.Run("templates", func(t *testing.T) {
		require.NoError(t, ws.WriteJSON(message{Type: msgTemplate, Name: "nope"}))
		msgs := readN(t, ws, 1)
		require.Equal(t, msgDiagnostic, msgs[0].Type)
		require.Equal(t, DiagTemplate, msgs[0].Kind)

		require.NoError(t, ws.WriteJSON(message{Type: msgTemplate, Name: "other"}))
		msgs = readN(t, ws, 4)
		require.Equal(t, []string{msgHead, msgBody, msgHandlers, msgText}, types(msgs))
		require.Equal(t, "<title>T</title>", msgs[0].HTML)
		require.Equal(t, "<p>other 2</p>", msgs[1].HTML)

		// Same head as the current document, so only the body is written.
		require.NoError(t, ws.WriteJSON(message{Type: msgReset}))
		msgs = readN(t, ws, 3)
		require.Equal(t, []string{msgBody, msgHandlers, msgText}, types(msgs))
		require.Equal(t, serverDoc, msgs[2].Text)
	})

	resp, err := http.Get(srv.URL + "/preview/" + id)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, serverDoc, string(body))

	resp, err = http.Get(srv.URL + "/preview/not-a-session")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_SessionRestored(t *testing.T) {
	srv, st := newTestServer(t, nil)
	ctx := context.Background()

	id := "0190a5b2-7c3d-7e4f-8a9b-0c1d2e3f4a5b"
	saved := `<html><head></head><body><p>saved</p></body></html>`
	require.NoError(t, st.SaveDocument(ctx, id, saved))

	ws := dial(t, srv)
	require.NoError(t, ws.WriteJSON(message{Type: msgHello, Session: id}))
	msgs := readN(t, ws, 5)
	require.Equal(t, id, msgs[0].Session)
	require.Equal(t, saved, msgs[1].HTML)

	require.NoError(t, ws.WriteJSON(message{Type: msgGenerate, Instruction: "x"}))
	msgs = readN(t, ws, 1)
	require.Equal(t, msgGenerateError, msgs[0].Type)
	require.Equal(t, string(GenerateInvalidCredential), msgs[0].Kind)
}

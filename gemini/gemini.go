// Package gemini implements liveedit.Generator on top of the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dpotapov/go-liveedit"
)

const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `You are an expert web developer specializing in HTML and modern CSS. A user has provided HTML code and a request to edit it.

Your task is to return ONLY the full, updated HTML code that incorporates the user's request. Do not add any explanations, introductions, markdown code fences like ` + "```html" + `, or any text other than the code itself. The output must be valid and complete HTML.

User's Edit Request: %q

Original HTML Code:
---
%s
---
`

// Generator asks a Gemini model for a full rewrite of the document.
type Generator struct {
	// Model name, DefaultModel if empty.
	Model string

	// Timeout bounds a single call. Zero means no limit beyond the caller's context.
	Timeout time.Duration

	Logger *slog.Logger

	// call is replaced in tests.
	call func(ctx context.Context, apiKey, model, prompt string) (*genai.GenerateContentResponse, error)
}

var _ liveedit.Generator = (*Generator)(nil)

func (g *Generator) Generate(ctx context.Context, req liveedit.GenerateRequest) (string, error) {
	if err := liveedit.ValidateInstruction(req.Instruction); err != nil {
		return "", err
	}
	if req.APIKey == "" {
		return "", &liveedit.GenerateError{
			Kind:    liveedit.GenerateInvalidCredential,
			Message: "No API key available.",
		}
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	model := g.Model
	if model == "" {
		model = DefaultModel
	}
	call := g.call
	if call == nil {
		call = generateContent
	}

	logger := g.logger()
	start := time.Now()
	resp, err := call(ctx, req.APIKey, model, Prompt(req.Text, req.Instruction))
	if err != nil {
		logger.Error("Gemini request", "model", model, "error", err, "elapsed", time.Since(start))
		return "", classify(err)
	}

	text, err := responseText(resp)
	if err != nil {
		logger.Warn("Gemini response", "model", model, "error", err)
		return "", err
	}
	text = StripFence(text)
	if text == "" {
		return "", emptyResult()
	}
	if !LooksLikeDocument(text) {
		logger.Warn("Gemini response does not start with a document tag, using as-is", "model", model)
	}
	logger.Debug("Gemini request", "model", model, "elapsed", time.Since(start), "bytes", len(text))
	return text, nil
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generateContent(ctx context.Context, apiKey, model, prompt string) (*genai.GenerateContentResponse, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
}

// Prompt builds the instruction sent to the model.
func Prompt(text, instruction string) string {
	return fmt.Sprintf(promptTemplate, instruction, text)
}

// StripFence trims the text and removes a surrounding markdown code fence.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[nl+1:]
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// LooksLikeDocument reports whether s starts the way a full HTML document does.
func LooksLikeDocument(s string) bool {
	head := strings.ToLower(s[:min(len(s), 15)])
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", emptyResult()
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", contentFiltered(nil)
	}
	if len(resp.Candidates) == 0 {
		return "", emptyResult()
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonSafety {
		return "", contentFiltered(nil)
	}
	if c.Content == nil {
		return "", emptyResult()
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

func classify(err error) error {
	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked):
		return contentFiltered(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &liveedit.GenerateError{
			Kind:    liveedit.GenerateNetwork,
			Message: "The request to the AI service timed out.",
			Err:     err,
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key not valid"), strings.Contains(msg, "API_KEY_INVALID"):
		return &liveedit.GenerateError{
			Kind:    liveedit.GenerateInvalidCredential,
			Message: "Your API key is not valid. Please check it and try again.",
			Err:     err,
		}
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"), strings.Contains(msg, "Error 429"), strings.Contains(msg, "quota"):
		return &liveedit.GenerateError{
			Kind:    liveedit.GenerateRateLimited,
			Message: "The AI service quota is exhausted. Please wait a moment and try again.",
			Err:     err,
		}
	}
	return &liveedit.GenerateError{
		Kind:    liveedit.GenerateNetwork,
		Message: "Failed to get a response from the AI. Please check your network connection.",
		Err:     err,
	}
}

func contentFiltered(err error) error {
	return &liveedit.GenerateError{
		Kind:    liveedit.GenerateContentFiltered,
		Message: "The response was blocked by the safety filter. Please rephrase your request.",
		Err:     err,
	}
}

func emptyResult() error {
	return &liveedit.GenerateError{
		Kind:    liveedit.GenerateEmptyResult,
		Message: "The AI returned an empty response. Please try again.",
	}
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-liveedit"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	c := &genai.Content{Role: "model"}
	for _, p := range parts {
		c.Parts = append(c.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: c, FinishReason: genai.FinishReasonStop}},
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<html></html>", "<html></html>"},
		{"  <html></html>\n\n", "<html></html>"},
		{"```html\n<html></html>\n```", "<html></html>"},
		{"```\n<p>x</p>\n```\n", "<p>x</p>"},
		{"```html\n<p>x</p>", "<p>x</p>"},
		{"```<p>x</p>```", "<p>x</p>"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestLooksLikeDocument(t *testing.T) {
	require.True(t, LooksLikeDocument("<!DOCTYPE html><html></html>"))
	require.True(t, LooksLikeDocument("<!doctype html>"))
	require.True(t, LooksLikeDocument("<html lang=en>"))
	require.False(t, LooksLikeDocument("<div></div>"))
	require.False(t, LooksLikeDocument(""))
}

func TestPrompt(t *testing.T) {
	p := Prompt("<p>hi</p>", `make it "red"`)
	require.Contains(t, p, `User's Edit Request: "make it \"red\""`)
	require.Contains(t, p, "---\n<p>hi</p>\n---")
	require.Contains(t, p, "return ONLY the full, updated HTML code")
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		req      liveedit.GenerateRequest
		resp     *genai.GenerateContentResponse
		err      error
		want     string
		wantKind liveedit.GenerateErrorKind
		wantErr  error
	}{
		{
			name: "ok",
			req:  liveedit.GenerateRequest{Text: "<p>a</p>", Instruction: "x", APIKey: "k"},
			resp: textResponse("```html\n<!DOCTYPE html>", "<p>b</p>\n```"),
			want: "<!DOCTYPE html><p>b</p>",
		},
		{
			name: "not a document is accepted",
			req:  liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			resp: textResponse("<p>b</p>"),
			want: "<p>b</p>",
		},
		{
			name:     "blank instruction",
			req:      liveedit.GenerateRequest{Instruction: "  ", APIKey: "k"},
			wantErr:  liveedit.ErrEmptyInstruction,
			wantKind: liveedit.GenerateInvalidRequest,
		},
		{
			name:     "no key",
			req:      liveedit.GenerateRequest{Instruction: "x"},
			wantKind: liveedit.GenerateInvalidCredential,
		},
		{
			name:     "empty text",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			resp:     textResponse("  "),
			wantKind: liveedit.GenerateEmptyResult,
		},
		{
			name:     "no candidates",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			resp:     &genai.GenerateContentResponse{},
			wantKind: liveedit.GenerateEmptyResult,
		},
		{
			name: "safety finish",
			req:  liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			wantKind: liveedit.GenerateContentFiltered,
		},
		{
			name:     "blocked error",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			err:      fmt.Errorf("call: %w", &genai.BlockedError{}),
			wantKind: liveedit.GenerateContentFiltered,
		},
		{
			name:     "invalid key",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			err:      errors.New("rpc error: code = InvalidArgument desc = API key not valid. Please pass a valid API key."),
			wantKind: liveedit.GenerateInvalidCredential,
		},
		{
			name:     "quota",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			err:      errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"),
			wantKind: liveedit.GenerateRateLimited,
		},
		{
			name:     "timeout",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			err:      context.DeadlineExceeded,
			wantKind: liveedit.GenerateNetwork,
		},
		{
			name:     "other",
			req:      liveedit.GenerateRequest{Instruction: "x", APIKey: "k"},
			err:      errors.New("dial tcp: connection refused"),
			wantKind: liveedit.GenerateNetwork,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey, gotModel string
			g := &Generator{
				call: func(ctx context.Context, apiKey, model, prompt string) (*genai.GenerateContentResponse, error) {
					gotKey, gotModel = apiKey, model
					return tt.resp, tt.err
				},
			}
			got, err := g.Generate(context.Background(), tt.req)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, tt.wantKind, liveedit.GenerateErrorKindOf(err))
			case tt.wantKind != "":
				require.Error(t, err)
				require.Equal(t, tt.wantKind, liveedit.GenerateErrorKindOf(err))
			default:
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
				require.Equal(t, tt.req.APIKey, gotKey)
				require.Equal(t, DefaultModel, gotModel)
			}
		})
	}
}

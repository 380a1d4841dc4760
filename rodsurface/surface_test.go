package rodsurface

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-liveedit"
	"github.com/dpotapov/go-liveedit/markup"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    liveedit.SurfaceEvent
		wantErr string
	}{
		{
			name:    "inspect",
			payload: `{"kind":"inspect","tag":"p","attrs":[{"name":"class","value":"b"}]}`,
			want: liveedit.InspectEvent{Signature: markup.Signature{
				Tag:   "p",
				Attrs: []markup.Attr{{Name: "class", Value: "b"}},
			}},
		},
		{
			name:    "live edit",
			payload: `{"kind":"live-edit","body":"<p>x</p>"}`,
			want:    liveedit.LiveEditEvent{Body: "<p>x</p>"},
		},
		{
			name:    "inspect without tag",
			payload: `{"kind":"inspect"}`,
			wantErr: "without tag",
		},
		{
			name:    "unknown",
			payload: `{"kind":"scroll"}`,
			wantErr: `unknown event kind "scroll"`,
		},
		{
			name:    "garbage",
			payload: `{`,
			wantErr: "unexpected end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent(tt.payload)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchUpdatesBody(t *testing.T) {
	var got []string
	s := &Surface{handlers: liveedit.NormalHandlers{}, body: "<p>a</p>"}

	require.False(t, s.Dispatch(liveedit.LiveEditEvent{Body: "<p>stale</p>"}))
	require.Equal(t, "<p>a</p>", s.Body())

	s.handlers = liveedit.LiveEditHandlers{OnLiveEdit: func(b string) { got = append(got, b) }}
	require.True(t, s.Dispatch(liveedit.LiveEditEvent{Body: "<p>b</p>"}))
	require.Equal(t, "<p>b</p>", s.Body())
	require.Equal(t, []string{"<p>b</p>"}, got)
	require.False(t, s.Dispatch(liveedit.InspectEvent{}))
}

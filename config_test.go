package liveedit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "liveedit.yaml")
	err := os.WriteFile(path, []byte(`
addr: ":9000"
line_height: 18
generation:
  rate_limit: -1
  rate_window: 30s
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/x
`), 0o644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := &Config{
		Addr:       ":9000",
		Database:   "liveedit.db",
		LineHeight: 18,
		Template:   "basic",
		Generation: GenerationConfig{
			Model:      "gemini-2.5-flash",
			APIKey:     "from-env",
			RateLimit:  -1,
			RateWindow: 30 * time.Second,
			Timeout:    2 * time.Minute,
		},
		Browser: BrowserConfig{Remote: "ws://127.0.0.1:9222/devtools/browser/x"},
	}
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("LoadConfig() diff (-got +want):\n%s", diff)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, DefaultLineHeight, cfg.LineHeight)
	require.Equal(t, 5, cfg.Generation.RateLimit)
	require.Equal(t, time.Minute, cfg.Generation.RateWindow)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

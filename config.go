package liveedit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration of the liveedit server.
type Config struct {
	Addr       string           `yaml:"addr"`
	Database   string           `yaml:"database"`
	LineHeight int              `yaml:"line_height"`
	Template   string           `yaml:"template"` // template loaded into new sessions
	Generation GenerationConfig `yaml:"generation"`
	Browser    BrowserConfig    `yaml:"browser"`
}

// GenerationConfig controls the document generation call.
type GenerationConfig struct {
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
	Timeout    time.Duration `yaml:"timeout"`
}

// BrowserConfig controls the headless browser used by the check command.
type BrowserConfig struct {
	// Remote is the DevTools WebSocket URL of an external Chrome. Empty launches one.
	Remote string `yaml:"remote"`
}

// LoadConfig reads a YAML configuration file. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Database == "" {
		c.Database = "liveedit.db"
	}
	if c.LineHeight <= 0 {
		c.LineHeight = DefaultLineHeight
	}
	if c.Template == "" {
		c.Template = "basic"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-2.5-flash"
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = os.Getenv("API_KEY")
	}
	if c.Generation.RateLimit == 0 {
		c.Generation.RateLimit = 5
	}
	if c.Generation.RateWindow <= 0 {
		c.Generation.RateWindow = time.Minute
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = 2 * time.Minute
	}
}

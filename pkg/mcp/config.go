package mcp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vlad-ds/street-view-mcp/pkg/streetview"
)

const (
	defaultOutputDir = "output"
	defaultHTMLDir   = "html"
)

// Config carries the file-level settings shared by the CLI and the MCP
// server. Every field is optional; zero values fall back to defaults.
type Config struct {
	OutputDir string `yaml:"output_dir"` // saved images land here
	HTMLDir   string `yaml:"html_dir"`   // generated pages land here

	// Default request parameters, overridable per call.
	Size   string `yaml:"size"`
	Radius int    `yaml:"radius"`
	Source string `yaml:"source"`
}

// LoadConfig reads and validates the YAML config at filePath. A missing file
// is not an error: defaults apply.
func LoadConfig(filePath string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", filePath, err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.HTMLDir == "" {
		cfg.HTMLDir = defaultHTMLDir
	}
	if cfg.Source != "" && cfg.Source != streetview.SourceDefault && cfg.Source != streetview.SourceOutdoor {
		return nil, fmt.Errorf("config file '%s': source must be %q or %q, got %q",
			filePath, streetview.SourceDefault, streetview.SourceOutdoor, cfg.Source)
	}
	if cfg.Radius < 0 {
		return nil, fmt.Errorf("config file '%s': radius must not be negative, got %d", filePath, cfg.Radius)
	}
	return &cfg, nil
}

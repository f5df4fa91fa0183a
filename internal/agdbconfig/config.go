// Package agdbconfig loads the CLI's small, project-level configuration
// knobs from .agentsdb.yaml, falling back to hardcoded defaults when no
// file is present. It is deliberately a fraction of the teacher's
// internal/config: the store's on-disk shape (schema, profile, quant
// scale) lives in each layer's own header, not in a side config file —
// this package only holds invocation-time defaults the CLI needs before
// it has opened any layer.
package agdbconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project-root config file the CLI looks for.
const ConfigFileName = ".agentsdb.yaml"

// Config holds the CLI's default invocation-time knobs.
type Config struct {
	// Root is the default directory holding the four layer files, when
	// a command is not given an explicit path or --root flag.
	Root string `yaml:"root"`

	// Embedder selects the default embedder backend ("hash" or "ollama").
	Embedder string `yaml:"embedder"`

	// Dim is the default embedding dimension for the "hash" backend.
	Dim uint32 `yaml:"dim"`

	// UseIndex enables sidecar .agix use by default for search.
	UseIndex bool `yaml:"use_index"`

	// ExportRedact is the default redaction mode for `export`
	// ("none", "content", "embeddings", "all").
	ExportRedact string `yaml:"export_redact"`
}

// Default returns the CLI's hardcoded defaults.
func Default() Config {
	return Config{
		Root:         ".",
		Embedder:     "hash",
		Dim:          256,
		UseIndex:     true,
		ExportRedact: "none",
	}
}

// Load reads dir/.agentsdb.yaml if present and merges its non-zero
// fields over Default(). A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var parsed rawConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.mergeWith(parsed)
	return cfg, nil
}

// rawConfig mirrors Config but with a pointer for UseIndex, so Load can
// tell "absent from file" apart from "explicitly false".
type rawConfig struct {
	Root         string `yaml:"root"`
	Embedder     string `yaml:"embedder"`
	Dim          uint32 `yaml:"dim"`
	UseIndex     *bool  `yaml:"use_index"`
	ExportRedact string `yaml:"export_redact"`
}

// mergeWith overlays other's present fields onto c.
func (c *Config) mergeWith(other rawConfig) {
	if other.Root != "" {
		c.Root = other.Root
	}
	if other.Embedder != "" {
		c.Embedder = other.Embedder
	}
	if other.Dim != 0 {
		c.Dim = other.Dim
	}
	if other.UseIndex != nil {
		c.UseIndex = *other.UseIndex
	}
	if other.ExportRedact != "" {
		c.ExportRedact = other.ExportRedact
	}
}

// WriteYAML writes cfg to path, overwriting any existing file.
func WriteYAML(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

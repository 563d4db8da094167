// Package config loads and validates the YAML configuration for a
// legopile run. Every field has a default, so an empty or absent file
// yields a fully working configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ouchmyfoot/legopile/internal/logging"
)

// Config is the top-level configuration.
type Config struct {
	// RawDir is the directory holding the raw Rebrickable CSV tables.
	RawDir string `yaml:"raw_dir"`

	// Output is the path of the reduced CSV to produce.
	Output string `yaml:"output"`

	// MaxRows caps the number of rows written to the output. nil means
	// the default cap; an explicit 0 disables the cap entirely.
	MaxRows *int64 `yaml:"max_rows"`

	// ExcludeCategories lists part category names whose rows are skipped.
	// nil means the default exclusions; an explicit empty list keeps
	// every category.
	ExcludeCategories []string `yaml:"exclude_categories"`

	// Explode writes one output row per physical piece instead of one
	// row per inventory entry.
	Explode bool `yaml:"explode"`

	// Progress toggles the progress bar. nil means enabled.
	Progress *bool `yaml:"progress"`

	Files FilesConfig `yaml:"files"`
	Log   LogConfig   `yaml:"log"`
}

// FilesConfig names the raw table files inside RawDir.
type FilesConfig struct {
	Colors         string `yaml:"colors"`
	Parts          string `yaml:"parts"`
	PartCategories string `yaml:"part_categories"`
	InventoryParts string `yaml:"inventory_parts"`
}

// LogConfig controls log verbosity and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultMaxRows is the output row cap applied when max_rows is unset.
const DefaultMaxRows int64 = 800000

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	// A .env file in the working directory feeds the env overrides below.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration without a file: defaults plus any
// LEGOPILE_* environment overrides, .env included.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve applies environment overrides and defaults, then validates.
func (c *Config) resolve() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LEGOPILE_RAW_DIR"); v != "" {
		c.RawDir = v
	}
	if v := os.Getenv("LEGOPILE_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("LEGOPILE_MAX_ROWS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LEGOPILE_MAX_ROWS %q: %w", v, err)
		}
		c.MaxRows = &n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RawDir == "" {
		c.RawDir = "raw_data/rebrickable"
	}
	if c.Output == "" {
		c.Output = "app/data/lego_pile.csv"
	}
	if c.MaxRows == nil {
		n := DefaultMaxRows
		c.MaxRows = &n
	}
	if c.ExcludeCategories == nil {
		c.ExcludeCategories = []string{"Other", "Stickers"}
	}
	if c.Files.Colors == "" {
		c.Files.Colors = "colors.csv"
	}
	if c.Files.Parts == "" {
		c.Files.Parts = "parts.csv"
	}
	if c.Files.PartCategories == "" {
		c.Files.PartCategories = "part_categories.csv"
	}
	if c.Files.InventoryParts == "" {
		c.Files.InventoryParts = "inventory_parts.csv"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.MaxRows != nil && *c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be >= 0, got %d", *c.MaxRows)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q (expected text or json)", c.Log.Format)
	}
	return nil
}

// ShowProgress reports whether the progress bar should be displayed.
func (c *Config) ShowProgress() bool {
	return c.Progress == nil || *c.Progress
}

// RowCap returns the effective output row cap, 0 meaning unlimited.
func (c *Config) RowCap() int64 {
	if c.MaxRows == nil {
		return DefaultMaxRows
	}
	return *c.MaxRows
}

// DefaultYAML is the annotated starter configuration written by
// `legopile init`.
const DefaultYAML = `# legopile configuration
#
# Reduces the raw Rebrickable CSV dump into app/data/lego_pile.csv.

# Directory containing the raw Rebrickable tables.
raw_dir: raw_data/rebrickable

# Path of the reduced CSV to write.
output: app/data/lego_pile.csv

# Maximum number of rows to write. 0 disables the cap.
max_rows: 800000

# Part categories to leave out of the pile. An empty list keeps all.
exclude_categories:
  - Other
  - Stickers

# Write one row per physical piece instead of one row per inventory entry.
explode: false

# Show a progress bar while reducing.
progress: true

# Raw table file names inside raw_dir.
files:
  colors: colors.csv
  parts: parts.csv
  part_categories: part_categories.csv
  inventory_parts: inventory_parts.csv

log:
  level: info   # debug, info, warn, error
  format: text  # text or json
`

// Package config holds the language feature flags and diagnostic options for
// a run, loaded from a .clex.toml file with CLI overrides applied on top.
package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/clex/internal/diag"
)

// LangOptions are the language feature flags the lexer consults. The lexer
// holds its own copy: BCPLComment latches on for the rest of the translation
// unit once a // comment has been diagnosed as an extension.
type LangOptions struct {
	Trigraphs    bool `toml:"trigraphs"`
	BCPLComment  bool `toml:"bcpl_comments"`
	DollarIdents bool `toml:"dollar_idents"`
	Digraphs     bool `toml:"digraphs"`
	CPlusPlus    bool `toml:"cplusplus"`
	CPPMinMax    bool `toml:"cpp_min_max"`
	ObjC1        bool `toml:"objc"`
	HexFloats    bool `toml:"hex_floats"`
}

// Config is the full on-disk configuration.
type Config struct {
	Lang  LangOptions  `toml:"lang"`
	Diags diag.Options `toml:"diagnostics"`

	// Include holds doublestar patterns selecting the files to process
	// when none are named on the command line.
	Include []string `toml:"include"`
}

// Default returns the configuration used when no config file is present:
// C99-flavored defaults with digraphs, trigraphs and // comments available.
func Default() *Config {
	return &Config{
		Lang: LangOptions{
			Trigraphs:   true,
			BCPLComment: true,
			Digraphs:    true,
			HexFloats:   true,
		},
	}
}

// Load reads the configuration from path. A missing file is not an error;
// the defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for mistakes that would otherwise
// surface far from their cause.
func (c *Config) Validate() error {
	for _, pat := range c.Include {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid include pattern %q", pat)
		}
	}
	if c.Lang.CPPMinMax && !c.Lang.CPlusPlus {
		return fmt.Errorf("cpp_min_max requires cplusplus")
	}
	return nil
}

// Package config handles dynlink.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/dynlink/compiler"
	"github.com/chazu/dynlink/indy"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "dynlink.toml"

// Config represents a dynlink.toml configuration.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Runtime  Runtime  `toml:"runtime"`
	Log      Log      `toml:"log"`
	Inspect  Inspect  `toml:"inspect"`
	Profile  Profile  `toml:"profile"`

	// Dir is the directory containing the dynlink.toml file (set at load time).
	Dir string `toml:"-"`
}

// Compiler configures diagnostics collection.
type Compiler struct {
	Tolerance    int    `toml:"tolerance"`
	WarningLevel string `toml:"warning-level"`
}

// Runtime configures call-site caching.
type Runtime struct {
	MegamorphicThreshold *int `toml:"megamorphic-threshold"`
}

// Log configures commonlog output.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Inspect configures the introspection service.
type Inspect struct {
	Listen string `toml:"listen"`
}

// Profile configures the call-site statistics store.
type Profile struct {
	Database string `toml:"database"`
}

// DefaultListen is the inspect service address used when none is configured.
const DefaultListen = "127.0.0.1:7720"

// Default returns the configuration used when no dynlink.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Compiler.Tolerance == 0 {
		c.Compiler.Tolerance = compiler.DefaultCollectorOptions().Tolerance
	}
	if c.Compiler.WarningLevel == "" {
		c.Compiler.WarningLevel = compiler.DefaultCollectorOptions().WarningLevel.String()
	}
	if c.Runtime.MegamorphicThreshold == nil {
		n := indy.DefaultMegamorphicThreshold
		c.Runtime.MegamorphicThreshold = &n
	}
	if c.Inspect.Listen == "" {
		c.Inspect.Listen = DefaultListen
	}
}

// Load parses a dynlink.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a dynlink.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values toml cannot check by type.
func (c *Config) Validate() error {
	if c.Compiler.Tolerance < 0 {
		return fmt.Errorf("compiler.tolerance must not be negative, got %d", c.Compiler.Tolerance)
	}
	if _, err := compiler.ParseWarningLevel(c.Compiler.WarningLevel); err != nil {
		return fmt.Errorf("compiler.warning-level: %w", err)
	}
	if c.Runtime.MegamorphicThreshold != nil && *c.Runtime.MegamorphicThreshold < 0 {
		return fmt.Errorf("runtime.megamorphic-threshold must not be negative, got %d", *c.Runtime.MegamorphicThreshold)
	}
	return nil
}

// CollectorOptions returns the compiler diagnostics settings.
func (c *Config) CollectorOptions() compiler.CollectorOptions {
	opts := compiler.DefaultCollectorOptions()
	if c.Compiler.Tolerance > 0 {
		opts.Tolerance = c.Compiler.Tolerance
	}
	if level, err := compiler.ParseWarningLevel(c.Compiler.WarningLevel); err == nil {
		opts.WarningLevel = level
	}
	return opts
}

// SiteOptions returns the call-site caching settings.
func (c *Config) SiteOptions() indy.SiteOptions {
	opts := indy.DefaultSiteOptions()
	if c.Runtime.MegamorphicThreshold != nil {
		opts.MegamorphicThreshold = *c.Runtime.MegamorphicThreshold
	}
	return opts
}

// ProfilePath returns the profile database path, resolved against Dir.
// Empty means profiling is disabled.
func (c *Config) ProfilePath() string {
	p := c.Profile.Database
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ApplyLogging configures commonlog from the [log] section.
func (c *Config) ApplyLogging() {
	var path *string
	if c.Log.File != "" {
		file := c.Log.File
		if !filepath.IsAbs(file) && c.Dir != "" {
			file = filepath.Join(c.Dir, file)
		}
		path = &file
	}
	commonlog.Configure(c.Log.Verbosity, path)
}

// Package config reads reflex.toml, the optional project configuration of
// the reflex command.
//
//	[registry]
//	path = ["modules", "vendor/modules"]
//	cache = "auto"
//
//	[trace]
//	level = "phase"
//	mode = "stream"
//	output = "-"
//	format = "text"
//	ring_size = 4096
//
// Relative paths are resolved against the directory holding the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"reflex/internal/trace"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "reflex.toml"

// CacheAuto selects the per-user cache directory.
const CacheAuto = "auto"

// Config is the decoded configuration. Path is empty for defaults.
type Config struct {
	Path     string
	Root     string
	Registry Registry
	Trace    Trace
}

// Registry configures where module metadata is read from.
type Registry struct {
	// Paths lists module directories; the first that has a module wins.
	Paths []string
	// Cache is a cache directory, CacheAuto, or empty for no cache.
	Cache string
}

// Trace mirrors trace.Config in its textual form.
type Trace struct {
	Level    string
	Mode     string
	Output   string
	Format   string
	RingSize int
}

type fileConfig struct {
	Registry struct {
		Path  []string `toml:"path"`
		Cache string   `toml:"cache"`
	} `toml:"registry"`
	Trace struct {
		Level    string `toml:"level"`
		Mode     string `toml:"mode"`
		Output   string `toml:"output"`
		Format   string `toml:"format"`
		RingSize int64  `toml:"ring_size"`
	} `toml:"trace"`
}

// Default returns the configuration used without a reflex.toml: modules in
// the working directory, no cache, tracing off.
func Default() *Config {
	return &Config{
		Registry: Registry{Paths: []string{"."}},
		Trace:    Trace{Level: "off", Mode: "stream", Format: "auto"},
	}
}

// Find walks up from startDir to locate reflex.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest reflex.toml above startDir, or the defaults
// when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads the configuration file at path. Keys that are not defined keep
// their default values.
func Load(path string) (*Config, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	cfg := Default()
	cfg.Path = path
	cfg.Root = filepath.Dir(path)

	if md.IsDefined("registry", "path") {
		if len(fc.Registry.Path) == 0 {
			return nil, fmt.Errorf("%s: [registry].path must not be empty", path)
		}
		cfg.Registry.Paths = cfg.Registry.Paths[:0]
		for _, p := range fc.Registry.Path {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("%s: [registry].path contains an empty entry", path)
			}
			cfg.Registry.Paths = append(cfg.Registry.Paths, p)
		}
	}
	if md.IsDefined("registry", "cache") {
		cfg.Registry.Cache = strings.TrimSpace(fc.Registry.Cache)
	}

	if md.IsDefined("trace", "level") {
		cfg.Trace.Level = fc.Trace.Level
	}
	if md.IsDefined("trace", "mode") {
		cfg.Trace.Mode = fc.Trace.Mode
	}
	if md.IsDefined("trace", "output") {
		cfg.Trace.Output = strings.TrimSpace(fc.Trace.Output)
	}
	if md.IsDefined("trace", "format") {
		cfg.Trace.Format = fc.Trace.Format
	}
	if md.IsDefined("trace", "ring_size") {
		n, err := safecast.Conv[int](fc.Trace.RingSize)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: [trace].ring_size must be a positive integer", path)
		}
		cfg.Trace.RingSize = n
	}
	if _, err := cfg.TracerConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ModuleDirs returns the registry paths resolved against the file's
// directory.
func (c *Config) ModuleDirs() []string {
	out := make([]string, len(c.Registry.Paths))
	for i, p := range c.Registry.Paths {
		out[i] = c.resolve(p)
	}
	return out
}

// CacheDir returns the cache directory to open and whether caching is
// enabled. An empty directory with ok set selects the per-user cache.
func (c *Config) CacheDir() (dir string, ok bool) {
	switch strings.ToLower(c.Registry.Cache) {
	case "", "off", "none":
		return "", false
	case CacheAuto:
		return "", true
	}
	return c.resolve(c.Registry.Cache), true
}

// TracerConfig parses the trace settings.
func (c *Config) TracerConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid [trace].level: %w", err)
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid [trace].mode: %w", err)
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid [trace].format: %w", err)
	}
	out := c.Trace.Output
	if out != "" && out != "-" {
		out = c.resolve(out)
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: out,
		RingSize:   c.Trace.RingSize,
	}, nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

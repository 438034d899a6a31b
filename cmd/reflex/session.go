package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reflex/internal/config"
	"reflex/internal/emit"
	"reflex/internal/host"
	"reflex/internal/meta"
	"reflex/internal/rt"
	"reflex/internal/trace"
)

// session bundles what a subcommand needs: the effective configuration,
// the tracer attached to the command context and a registry over the
// configured module directories.
type session struct {
	cfg    *config.Config
	dirs   []string
	reg    *rt.Registry
	tracer trace.Tracer
	close  func()
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	tracer, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, dirs: cfg.ModuleDirs(), tracer: tracer, close: cleanup}

	var cache *meta.DiskCache
	if dir, ok := cfg.CacheDir(); ok {
		cache, err = meta.OpenDiskCache(dir, "reflex")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open metadata cache: %w", err)
		}
	}
	overlay := make(meta.Overlay, 0, len(s.dirs))
	for _, dir := range s.dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			cleanup()
			return nil, fmt.Errorf("module directory %q not found", dir)
		}
		src := meta.NewDirSource(dir, cache)
		src.Ignore = []string{config.FileName}
		overlay = append(overlay, src)
	}

	s.reg, err = rt.NewRegistry(rt.Config{
		Source:  overlay,
		Emitter: emit.New(),
		Bridge:  host.New(),
		Tracer:  tracer,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return s, nil
}

// loadConfig reads --config, or searches upwards from the working
// directory, then applies --path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	if flags.Changed("path") {
		value, err := flags.GetString("path")
		if err != nil {
			return nil, fmt.Errorf("failed to get path flag: %w", err)
		}
		paths := filepath.SplitList(value)
		if len(paths) == 0 {
			return nil, fmt.Errorf("--path must name at least one directory")
		}
		// Flag paths are relative to the working directory.
		cfg.Registry.Paths = paths
		cfg.Root = ""
	}
	return cfg, nil
}

// findType resolves a signature given on the command line. A bare name is
// looked up in every listed module.
func (s *session) findType(text string) (rt.Type, error) {
	if strings.Contains(text, "::") {
		return s.reg.FindType(text, true)
	}
	mods, err := s.reg.List()
	if err != nil && len(mods) == 0 {
		return nil, err
	}
	var matches []rt.Type
	for _, m := range mods {
		if ct := m.FindType(text); ct != nil {
			matches = append(matches, ct)
		}
	}
	switch len(matches) {
	case 0:
		return s.reg.FindType(text, true)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("type name %q is ambiguous: %s and %s", text, matches[0].QName(), matches[1].QName())
}

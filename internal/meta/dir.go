package meta

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Ext is the file extension of module metadata files.
const Ext = ".toml"

// DirSource loads one "<module>.toml" file per module from a directory.
type DirSource struct {
	Dir   string
	Cache *DiskCache
	// Ignore lists file names in Dir that are not module metadata.
	Ignore []string
}

// NewDirSource returns a source reading from dir. cache may be nil.
func NewDirSource(dir string, cache *DiskCache) *DirSource {
	return &DirSource{Dir: dir, Cache: cache}
}

// Path returns the file path for a module name. The name is matched against
// the directory listing without regard to case so that a case mismatch is
// reported by the registry rather than hidden as a missing file.
func (s *DirSource) Path(name string) (string, error) {
	if s.ignored(name + Ext) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	exact := filepath.Join(s.Dir, name+Ext)
	if _, err := os.Stat(exact); err == nil {
		entries, err := os.ReadDir(s.Dir)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if e.Name() == name+Ext {
				return exact, nil
			}
		}
		// Case-insensitive filesystem: report the stored spelling.
		for _, e := range entries {
			if strings.EqualFold(e.Name(), name+Ext) {
				return filepath.Join(s.Dir, e.Name()), nil
			}
		}
		return exact, nil
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name+Ext) {
			return filepath.Join(s.Dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Load implements Source.
func (s *DirSource) Load(name string) (*ModuleDef, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	key := Digest(sha256.Sum256(data))
	if s.Cache != nil {
		if def, ok, err := s.Cache.Get(key); err == nil && ok {
			return def, nil
		}
	}
	stem := strings.TrimSuffix(filepath.Base(path), Ext)
	def, err := Decode(path, string(data), stem)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Put(key, def); err != nil {
			return nil, fmt.Errorf("%s: cache: %w", path, err)
		}
	}
	return def, nil
}

// Names implements Source.
func (s *DirSource) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) || s.ignored(e.Name()) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(out)
	return out, nil
}

func (s *DirSource) ignored(file string) bool {
	for _, n := range s.Ignore {
		if strings.EqualFold(n, file) {
			return true
		}
	}
	return false
}

// Decode parses module metadata from TOML text. When the document does not
// declare a name, fallback is used. path only decorates errors.
func Decode(path, text, fallback string) (*ModuleDef, error) {
	var def ModuleDef
	md, err := toml.Decode(text, &def)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !md.IsDefined("name") || strings.TrimSpace(def.Name) == "" {
		def.Name = fallback
	}
	def.Name = strings.TrimSpace(def.Name)
	if !md.IsDefined("version") {
		def.Version = "0"
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			if isFacetKey(k) {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	for i := range def.Types {
		if def.Types[i].Source == "" {
			def.Types[i].Source = filepath.Base(path)
		}
	}
	return &def, nil
}

// isFacetKey reports whether an undecoded key lives below a facets table.
// Facet values are free-form.
func isFacetKey(k toml.Key) bool {
	for _, part := range k {
		if part == "facets" {
			return true
		}
	}
	return false
}

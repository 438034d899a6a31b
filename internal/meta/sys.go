package meta

import (
	_ "embed"
	"sync"
)

// SysModule is the name of the core module.
const SysModule = "sys"

//go:embed sys.toml
var sysTOML string

var (
	sysOnce sync.Once
	sysDef  *ModuleDef
	sysErr  error
)

// Sys returns the embedded definition of the core module. The returned value
// is shared and must not be modified.
func Sys() (*ModuleDef, error) {
	sysOnce.Do(func() {
		sysDef, sysErr = Decode("sys.toml", sysTOML, SysModule)
	})
	return sysDef, sysErr
}

// NewSysSource returns a source serving only the core module.
func NewSysSource() (Source, error) {
	def, err := Sys()
	if err != nil {
		return nil, err
	}
	return NewMemSource(def), nil
}

// WithSys puts the embedded core module in front of src.
func WithSys(src Source) (Source, error) {
	sys, err := NewSysSource()
	if err != nil {
		return nil, err
	}
	if src == nil {
		return sys, nil
	}
	return Overlay{sys, src}, nil
}

// Package sig parses formal type signatures used by module metadata and
// type lookup. Signatures nest arbitrarily:
//
//	mod::Name           basic type
//	mod::Name?          nullable
//	mod::V[]            list of V
//	[mod::K:mod::V]     map from K to V
//	|mod::A, mod::B -> mod::R|   function
package sig

import (
	"fmt"
	"strings"
)

// Kind distinguishes the signature shapes.
type Kind uint8

const (
	KindBasic Kind = iota
	KindList
	KindMap
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFunc:
		return "func"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Sig is a parsed type signature.
type Sig struct {
	Kind     Kind
	Module   string // KindBasic
	Name     string // KindBasic
	Elem     *Sig   // KindList
	Key      *Sig   // KindMap
	Val      *Sig   // KindMap
	Params   []*Sig // KindFunc
	Ret      *Sig   // KindFunc
	Nullable bool
}

// Basic builds a basic signature.
func Basic(module, name string) *Sig {
	return &Sig{Kind: KindBasic, Module: module, Name: name}
}

// QName returns "module::Name" for basic signatures and "" otherwise.
func (s *Sig) QName() string {
	if s == nil || s.Kind != KindBasic {
		return ""
	}
	return s.Module + "::" + s.Name
}

// IsGenericParam reports whether s names one of the single letter generic
// parameters declared by the sys module.
func (s *Sig) IsGenericParam() bool {
	return s != nil && s.Kind == KindBasic && s.Module == "sys" && len(s.Name) == 1
}

// HasGenericParam reports whether a generic parameter occurs anywhere in s.
func (s *Sig) HasGenericParam() bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case KindBasic:
		return s.IsGenericParam()
	case KindList:
		return s.Elem.HasGenericParam()
	case KindMap:
		return s.Key.HasGenericParam() || s.Val.HasGenericParam()
	case KindFunc:
		for _, p := range s.Params {
			if p.HasGenericParam() {
				return true
			}
		}
		return s.Ret.HasGenericParam()
	}
	return false
}

// NonNullable returns a shallow copy of s without the nullable marker.
func (s *Sig) NonNullable() *Sig {
	if s == nil || !s.Nullable {
		return s
	}
	cp := *s
	cp.Nullable = false
	return &cp
}

// String renders the canonical form of the signature.
func (s *Sig) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s *Sig) write(sb *strings.Builder) {
	if s == nil {
		return
	}
	switch s.Kind {
	case KindBasic:
		sb.WriteString(s.Module)
		sb.WriteString("::")
		sb.WriteString(s.Name)
	case KindList:
		s.Elem.write(sb)
		sb.WriteString("[]")
	case KindMap:
		sb.WriteByte('[')
		s.Key.write(sb)
		sb.WriteByte(':')
		s.Val.write(sb)
		sb.WriteByte(']')
	case KindFunc:
		sb.WriteByte('|')
		for i, p := range s.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			p.write(sb)
		}
		sb.WriteString("->")
		s.Ret.write(sb)
		sb.WriteByte('|')
	}
	if s.Nullable {
		sb.WriteByte('?')
	}
}

package sig

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Parse parses a full type signature.
func Parse(text string) (*Sig, error) {
	p := &parser{src: text}
	p.skipSpace()
	s, err := p.load()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errf("unexpected %q", p.src[p.pos:])
	}
	return s, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Sig {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	src string
	pos int
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("invalid type signature %q: %s", p.src, fmt.Sprintf(format, args...))
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) expect(b byte) error {
	p.skipSpace()
	if p.peek() != b {
		if p.eof() {
			return p.errf("expected %q at end", b)
		}
		return p.errf("expected %q at offset %d", b, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) load() (*Sig, error) {
	p.skipSpace()
	var (
		s   *Sig
		err error
	)
	switch p.peek() {
	case '|':
		s, err = p.loadFunc()
	case '[':
		s, err = p.loadMap()
	default:
		s, err = p.loadBasic()
	}
	if err != nil {
		return nil, err
	}
	if p.peek() == '?' {
		p.pos++
		s.Nullable = true
	}
	for p.peek() == '[' && p.pos+1 < len(p.src) && p.src[p.pos+1] == ']' {
		p.pos += 2
		s = &Sig{Kind: KindList, Elem: s}
		if p.peek() == '?' {
			p.pos++
			s.Nullable = true
		}
	}
	return s, nil
}

func (p *parser) loadMap() (*Sig, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	key, err := p.load()
	if err != nil {
		return nil, err
	}
	if err := p.expect(':'); err != nil {
		return nil, err
	}
	val, err := p.load()
	if err != nil {
		return nil, err
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return &Sig{Kind: KindMap, Key: key, Val: val}, nil
}

func (p *parser) loadFunc() (*Sig, error) {
	if err := p.expect('|'); err != nil {
		return nil, err
	}
	var params []*Sig
	p.skipSpace()
	if p.peek() != '-' {
		for {
			param, err := p.load()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			p.skipSpace()
			if p.peek() == '-' {
				break
			}
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect('-'); err != nil {
		return nil, err
	}
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	ret, err := p.load()
	if err != nil {
		return nil, err
	}
	if err := p.expect('|'); err != nil {
		return nil, err
	}
	return &Sig{Kind: KindFunc, Params: params, Ret: ret}, nil
}

func (p *parser) loadBasic() (*Sig, error) {
	module := p.ident()
	if module == "" {
		return nil, p.errf("expected module name at offset %d", p.pos)
	}
	if p.peek() != ':' || p.pos+1 >= len(p.src) || p.src[p.pos+1] != ':' {
		return nil, p.errf("expected \"::\" after %q, use <module>::<type>", module)
	}
	p.pos += 2
	name := p.ident()
	if name == "" {
		return nil, p.errf("expected type name after %q", module+"::")
	}
	return Basic(module, name), nil
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

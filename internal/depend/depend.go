// Package depend parses module dependency declarations of the form
//
//	"name 1.0"          versions with the 1.0 prefix (1.0, 1.0.7)
//	"name 1.2+"         1.2 or any later version
//	"name 1.0-1.5"      1.0 through any 1.5.x version
//	"name 1.0, 2.1+"    either of the above
//
// and matches them against semantic versions. Each comma separated
// alternative is translated into a semver constraint; the alternatives are
// or-ed together.
package depend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Depend is a parsed dependency: a module name and a version constraint.
type Depend struct {
	Name        string
	raw         string
	constraints *semver.Constraints
}

// Parse parses a dependency declaration.
func Parse(s string) (Depend, error) {
	s = strings.TrimSpace(s)
	sp := strings.IndexByte(s, ' ')
	if sp <= 0 {
		return Depend{}, fmt.Errorf("invalid depend %q: expected \"<name> <constraint>\"", s)
	}
	name := s[:sp]
	raw := strings.TrimSpace(s[sp+1:])
	if raw == "" {
		return Depend{}, fmt.Errorf("invalid depend %q: missing constraint", s)
	}
	expr, err := translate(raw)
	if err != nil {
		return Depend{}, fmt.Errorf("invalid depend %q: %w", s, err)
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return Depend{}, fmt.Errorf("invalid depend %q: %w", s, err)
	}
	return Depend{Name: name, raw: normalizeRaw(raw), constraints: c}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static tables.
func MustParse(s string) Depend {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Constraint returns the constraint text as declared (normalized spacing).
func (d Depend) Constraint() string { return d.raw }

// String returns the canonical "<name> <constraint>" form.
func (d Depend) String() string { return d.Name + " " + d.raw }

// Match reports whether v satisfies the dependency.
func (d Depend) Match(v *semver.Version) bool {
	if d.constraints == nil || v == nil {
		return false
	}
	return d.constraints.Check(v)
}

// ParseVersion parses a module version. Partial versions such as "1.0" are
// accepted and completed with zeros.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

func normalizeRaw(raw string) string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), "")
	}
	return strings.Join(parts, ", ")
}

// translate converts the dependency grammar into a semver constraint
// expression. Anything already using semver operators is passed through.
func translate(raw string) (string, error) {
	if strings.ContainsAny(raw, "<>=~^|*xX") {
		return raw, nil
	}
	alts := strings.Split(raw, ",")
	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		alt = strings.Join(strings.Fields(alt), "")
		if alt == "" {
			return "", errors.New("empty constraint")
		}
		expr, err := translateOne(alt)
		if err != nil {
			return "", err
		}
		out = append(out, expr)
	}
	return strings.Join(out, " || "), nil
}

func translateOne(alt string) (string, error) {
	switch {
	case strings.HasSuffix(alt, "+"):
		v := strings.TrimSuffix(alt, "+")
		if err := checkSegments(v); err != nil {
			return "", err
		}
		return ">= " + v, nil
	case strings.Contains(alt, "-"):
		lo, hi, _ := strings.Cut(alt, "-")
		if err := checkSegments(lo); err != nil {
			return "", err
		}
		if err := checkSegments(hi); err != nil {
			return "", err
		}
		return fmt.Sprintf(">= %s, <= %s || %s", lo, hi, prefix(hi)), nil
	default:
		if err := checkSegments(alt); err != nil {
			return "", err
		}
		return prefix(alt), nil
	}
}

// prefix builds the constraint matching every version starting with v.
func prefix(v string) string {
	switch strings.Count(v, ".") {
	case 0, 1:
		return v + ".x"
	default:
		return "= " + v
	}
}

func checkSegments(v string) error {
	if v == "" {
		return errors.New("missing version")
	}
	segs := strings.Split(v, ".")
	if len(segs) > 3 {
		return fmt.Errorf("version %q has more than three segments", v)
	}
	for _, seg := range segs {
		if seg == "" {
			return fmt.Errorf("version %q has an empty segment", v)
		}
		for _, r := range seg {
			if r < '0' || r > '9' {
				return fmt.Errorf("version %q is not numeric", v)
			}
		}
	}
	return nil
}

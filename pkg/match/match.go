// Package match evaluates minterm-conjunction patterns against candidate
// strings, the smallest reusable piece of the rule-evaluation interpreter.
package match

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// minterm separator within a pattern.
const conjunction = " && "

// Pattern is a compiled conjunction of minterms.
type Pattern struct {
	source   string
	minterms []minterm
}

type mintermKind int

const (
	kindEqual mintermKind = iota
	kindRegex
	kindLess
	kindGreater
	kindEnvEqual
)

type minterm struct {
	kind    mintermKind
	negate  bool
	literal string
	re      *regexp.Regexp
}

// Compile parses a pattern string into a Pattern. An empty pattern compiles
// successfully to a bare-equality minterm that matches only the empty
// string; callers treat "" as "no pattern" before calling Compile.
func Compile(pattern string) (*Pattern, error) {
	parts := strings.Split(pattern, conjunction)
	p := &Pattern{source: pattern, minterms: make([]minterm, 0, len(parts))}

	for _, raw := range parts {
		m, err := compileMinterm(raw)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		p.minterms = append(p.minterms, m)
	}
	return p, nil
}

func compileMinterm(raw string) (minterm, error) {
	negate := false
	if strings.HasPrefix(raw, "!") {
		negate = true
		raw = raw[1:]
	}

	switch {
	case strings.HasPrefix(raw, "=:"):
		return minterm{kind: kindEqual, negate: negate, literal: raw[2:]}, nil
	case strings.HasPrefix(raw, "r:"):
		re, err := regexp.Compile(raw[2:])
		if err != nil {
			return minterm{}, fmt.Errorf("invalid regex %q: %w", raw[2:], err)
		}
		return minterm{kind: kindRegex, negate: negate, re: re}, nil
	case strings.HasPrefix(raw, "<:"):
		return minterm{kind: kindLess, negate: negate, literal: raw[2:]}, nil
	case strings.HasPrefix(raw, ">:"):
		return minterm{kind: kindGreater, negate: negate, literal: raw[2:]}, nil
	default:
		return minterm{kind: kindEnvEqual, negate: negate, literal: raw}, nil
	}
}

// Match evaluates the pattern against a candidate string, returning true iff
// every minterm (after its own negation) matches.
func (p *Pattern) Match(candidate string) bool {
	for _, m := range p.minterms {
		if m.eval(candidate) == m.negate {
			return false
		}
	}
	return true
}

// String returns the original pattern source.
func (p *Pattern) String() string { return p.source }

func (m minterm) eval(candidate string) bool {
	switch m.kind {
	case kindEqual:
		return strings.EqualFold(candidate, m.literal)
	case kindRegex:
		return m.re.MatchString(candidate)
	case kindLess:
		return strings.Compare(candidate, m.literal) < 0
	case kindGreater:
		return strings.Compare(candidate, m.literal) > 0
	case kindEnvEqual:
		return strings.EqualFold(candidate, os.ExpandEnv(m.literal))
	default:
		return false
	}
}

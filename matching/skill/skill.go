// Package skill normalizes free-form skill names so that "Go", " go " and
// "ＧＯ" compare equal.
package skill

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key returns the comparison form of a skill name: NFKC-normalized, trimmed,
// inner whitespace collapsed and case folded. Empty input yields "".
func Key(name string) string {
	name = norm.NFKC.String(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	return cases.Fold().String(name)
}

// Dedupe drops blank and repeated skills, keeping the first spelling of each
// in its original position.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := Key(n)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.Join(strings.Fields(n), " "))
	}
	return out
}

// Set is a membership set keyed by Key.
type Set map[string]struct{}

func NewSet(names []string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if k := Key(n); k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[Key(name)]
	return ok
}

func (s Set) Len() int { return len(s) }

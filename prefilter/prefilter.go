// Package prefilter extracts required literal substrings from a parsed
// pattern and reports where they next occur in a haystack, so a search can
// be skipped once no required literal remains, the "secret-scanner" use case
// named in spec.md §1 (e.g. a set of fixed API-key prefixes).
//
// Grounded on coregx-coregex's prefilter.Prefilter interface (Find/
// IsComplete) and on meta/compile.go's use of github.com/coregx/
// ahocorasick for literal-alternation patterns too wide for a handful of
// memchr calls.
package prefilter

import (
	"github.com/coregx/ahocorasick"
	"github.com/coregx/jsregex/internal/simd"
	"github.com/coregx/jsregex/syntax"
)

// Prefilter reports occurrences of a pattern's required literals without
// ever producing a false negative: every match starting at or after from
// contains an occurrence at or after from, so -1 means no such match
// exists. The reported position is that of the literal, which can lie
// inside a match rather than at its start.
type Prefilter interface {
	// Next returns the index of the next required-literal occurrence at or
	// after from, or -1 if none remains.
	Next(haystack []byte, from int) int
}

// singleByte wraps internal/simd.IndexByte for a one-byte required
// literal (e.g. the pattern `[0-9]+x`, whose required literal is "x").
type singleByte struct{ b byte }

func (p singleByte) Next(haystack []byte, from int) int {
	if from >= len(haystack) {
		return -1
	}
	idx := simd.IndexByte(haystack[from:], p.b)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// literalSet wraps an Aho-Corasick automaton over several required
// literals (e.g. a top-level alternation of plain strings).
type literalSet struct{ auto *ahocorasick.Automaton }

func (p *literalSet) Next(haystack []byte, from int) int {
	if from >= len(haystack) {
		return -1
	}
	m := p.auto.Find(haystack, from)
	if m == nil {
		return -1
	}
	return m.Start
}

// Build extracts a prefilter from pat's top-level structure, or returns
// nil if no required literal can be proven (e.g. the pattern can match
// the empty string, has no literal character outside a quantifier or
// class, or is case-insensitive).
// Build never rejects a valid pattern outright: nil simply means the
// caller's Searcher falls back to the bare per-offset retry loop.
func Build(pat *syntax.Pattern) Prefilter {
	lits := RequiredLiterals(pat)
	switch len(lits) {
	case 0:
		return nil
	case 1:
		if len(lits[0]) == 1 {
			return singleByte{lits[0][0]}
		}
	}
	builder := ahocorasick.NewBuilder()
	for _, lit := range lits {
		builder.AddPattern(lit)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &literalSet{auto: auto}
}

// RequiredLiterals returns literal byte strings one of which must appear
// somewhere in any match of pat: a literal node, the longest run of
// literal characters in a concatenation, the same for the single child of
// a capture or group, or, for an alternation, one such literal per branch
// (nothing unless every branch yields exactly one). IGNORE_CASE patterns
// and anything else yield no literals (an
// empty result, not an error) since spec.md places "guaranteed literal
// extraction for every pattern shape" outside the core's scope — this is
// a best-effort accelerator only.
func RequiredLiterals(pat *syntax.Pattern) [][]byte {
	return requiredLiteralsNode(pat.Root, pat.Flags.IgnoreCase())
}

func requiredLiteralsNode(n *syntax.Node, ignoreCase bool) [][]byte {
	if ignoreCase {
		return nil
	}
	switch n.Op {
	case syntax.OpLiteral:
		if len(n.Rune) == 0 {
			return nil
		}
		return [][]byte{[]byte(string(n.Rune))}
	case syntax.OpConcat:
		return longestLiteralRun(n.Sub)
	case syntax.OpCapture, syntax.OpGroup:
		if len(n.Sub) == 1 {
			return requiredLiteralsNode(n.Sub[0], ignoreCase)
		}
		return nil
	case syntax.OpAlt:
		var out [][]byte
		for _, sub := range n.Sub {
			lits := requiredLiteralsNode(sub, ignoreCase)
			if len(lits) != 1 {
				return nil
			}
			out = append(out, lits[0])
		}
		return out
	default:
		return nil
	}
}

// longestLiteralRun scans a concatenation's children for the longest
// contiguous run of single-rune OpLiteral nodes (the parser never merges
// adjacent literal characters into one node - see syntax.Parser.parseTerm)
// and returns it as the one required literal, or nil if the concatenation
// contains no literal characters at all.
func longestLiteralRun(subs []*syntax.Node) [][]byte {
	var best, cur []rune
	flush := func() {
		if len(cur) > len(best) {
			best = cur
		}
		cur = nil
	}
	for _, sub := range subs {
		if sub.Op == syntax.OpLiteral && len(sub.Rune) > 0 {
			cur = append(cur, sub.Rune...)
			continue
		}
		flush()
	}
	flush()
	if len(best) == 0 {
		return nil
	}
	return [][]byte{[]byte(string(best))}
}

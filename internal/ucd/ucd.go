// Package ucd provides the ECMAScript Unicode predicates the parser and VM
// need: case folding, word/space classification, identifier classification,
// and \p{...} property lookup.
//
// All tables are sourced from the standard library's unicode package —
// generated externally from the Unicode Character Database, exactly the
// "Unicode-property data tables... generated externally" collaborator
// spec.md §1 carves out of this module's scope. This package supplies only
// the lookup predicates on top of that data.
package ucd

import "unicode"

// specialCaseFolds holds the two non-ASCII code points whose Unicode simple
// case fold lands on an ASCII letter (see ECMAScript 21.2.2.8.2 step 3.f):
//
// U+017F (LATIN SMALL LETTER LONG S) folds to 's' (U+0073).
// U+212A (KELVIN SIGN) folds to 'k' (U+006B).
// Both are left unchanged by Canonicalize in Unicode mode per the ASCII
// restriction, so a folded ASCII class such as /[a-z]/iu does not match
// them. IsWordCodePoint below still counts them as word characters when
// ignoreCase && unicodeMode.
var specialCaseFolds = map[rune]rune{
	0x017F: 0x017F,
	0x212A: 0x212A,
}

// Canonicalize implements ECMAScript's Canonicalize abstract operation
// (21.2.2.8.2). In non-Unicode mode, only ASCII letters fold. In Unicode
// mode, Simple_Case_Folding applies, except that a non-ASCII folded value
// that maps back onto an ASCII letter is left unchanged (this prevents
// folding е.g. Kelvin sign onto ASCII 'k' from the VM's perspective).
func Canonicalize(c rune, unicodeMode bool) rune {
	if !unicodeMode {
		if c >= 'a' && c <= 'z' {
			return c - 'a' + 'A'
		}
		return c
	}
	if _, special := specialCaseFolds[c]; special {
		return c
	}
	// unicode.SimpleFold cycles through the orbit of case-equivalent code
	// points. Pick the smallest member, except that folding a non-ASCII
	// code point onto an ASCII letter is rejected by ECMAScript's
	// Canonicalize (step 3.f): such orbit members are skipped.
	best := c
	for r := unicode.SimpleFold(c); r != c; r = unicode.SimpleFold(r) {
		if isASCIILetter(r) && !isASCIILetter(c) {
			continue
		}
		if r < best {
			best = r
		}
	}
	return best
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsWordCodePoint reports whether c is in the \w set: [A-Za-z0-9_], plus,
// when ignoreCase && unicodeMode, U+017F and U+212A (whose case fold maps
// into the ASCII word set, so they must be treated as word characters for
// \b to be consistent with the class '/[A-Za-z0-9_]/iu').
func IsWordCodePoint(c rune, ignoreCase, unicodeMode bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		return true
	}
	if ignoreCase && unicodeMode && (c == 0x017F || c == 0x212A) {
		return true
	}
	return false
}

// IsSpace reports whether c is ECMAScript WhiteSpace or LineTerminator.
func IsSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r', 0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	if c >= 0x2000 && c <= 0x200A {
		return true
	}
	return false
}

// IsLineTerminator reports whether c ends a line for ^/$/. purposes.
func IsLineTerminator(c rune) bool {
	switch c {
	case '\n', '\r', 0x2028, 0x2029:
		return true
	}
	return false
}

// IsIDStart reports whether c can start an ECMAScript IdentifierName (used
// by \p{ID_Start}).
func IsIDStart(c rune) bool {
	return c == '$' || c == '_' || unicode.In(c, unicode.L, unicode.Nl) || unicode.Is(unicode.Other_ID_Start, c)
}

// IsIDContinue reports whether c can continue an ECMAScript IdentifierName
// (used by \p{ID_Continue}).
func IsIDContinue(c rune) bool {
	if c == '$' || c == '_' || c == 0x200C || c == 0x200D {
		return true
	}
	return unicode.In(c, unicode.L, unicode.Nl, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc) ||
		unicode.Is(unicode.Other_ID_Continue, c)
}

// RangeSet is the minimal surface PropertySet returns: a sorted list of
// half-open [lo, hi) intervals. internal/charset builds a charset.Set from
// this without ucd needing to depend on charset (avoids a cycle, since
// charset has no need to know about Unicode property names).
type RangeSet struct {
	Ranges [][2]rune
}

// PropertySet looks up a \p{Name} / \p{Name=Value} Unicode binary or
// general-category/script property and returns it as an ordered interval
// set. Reports ok=false for unrecognized names (the parser turns that into
// a syntax error).
func PropertySet(name, value string) (RangeSet, bool) {
	if value == "" && name == "Assigned" {
		return assignedComplement(), true
	}
	var tab *unicode.RangeTable
	if value != "" {
		tab = lookupValued(name, value)
	} else {
		tab = lookupBinaryOrGC(name)
	}
	if tab == nil {
		return RangeSet{}, false
	}
	return rangeTableToSet(tab), true
}

func lookupValued(name, value string) *unicode.RangeTable {
	switch name {
	case "General_Category", "gc":
		if t, ok := unicode.Categories[value]; ok {
			return t
		}
	case "Script", "sc", "Script_Extensions", "scx":
		if t, ok := unicode.Scripts[value]; ok {
			return t
		}
	}
	return nil
}

func lookupBinaryOrGC(name string) *unicode.RangeTable {
	if t, ok := unicode.Categories[name]; ok {
		return t
	}
	if t, ok := unicode.Scripts[name]; ok {
		return t
	}
	if t, ok := unicode.Properties[name]; ok {
		return t
	}
	switch name {
	case "Any":
		return &unicode.RangeTable{R32: []unicode.Range32{{Lo: 0, Hi: 0x10FFFF, Stride: 1}}}
	}
	return nil
}

// assignedComplement returns "Assigned", i.e. every code point NOT in the
// Cn (unassigned) general category, as a RangeSet. Handled separately from
// lookupBinaryOrGC since it needs the complement, not the table itself.
func assignedComplement() RangeSet {
	unassigned := rangeTableToSet(unicode.Categories["Cn"])
	var out RangeSet
	prev := rune(0)
	for _, r := range unassigned.Ranges {
		if r[0] > prev {
			out.Ranges = append(out.Ranges, [2]rune{prev, r[0]})
		}
		if r[1] > prev {
			prev = r[1]
		}
	}
	if prev < 0x110000 {
		out.Ranges = append(out.Ranges, [2]rune{prev, 0x110000})
	}
	return out
}

func rangeTableToSet(tab *unicode.RangeTable) RangeSet {
	var rs RangeSet
	for _, r := range tab.R16 {
		for lo := rune(r.Lo); lo <= rune(r.Hi); lo += rune(r.Stride) {
			rs.Ranges = append(rs.Ranges, [2]rune{lo, lo + 1})
			if r.Stride == 0 {
				break
			}
		}
	}
	for _, r := range tab.R32 {
		lo, hi, stride := r.Lo, r.Hi, r.Stride
		if stride == 1 {
			rs.Ranges = append(rs.Ranges, [2]rune{rune(lo), rune(hi) + 1})
			continue
		}
		for v := lo; v <= hi; v += stride {
			rs.Ranges = append(rs.Ranges, [2]rune{rune(v), rune(v) + 1})
			if stride == 0 {
				break
			}
		}
	}
	return mergeAdjacent(rs)
}

func mergeAdjacent(rs RangeSet) RangeSet {
	if len(rs.Ranges) == 0 {
		return rs
	}
	out := rs.Ranges[:1]
	for _, r := range rs.Ranges[1:] {
		last := &out[len(out)-1]
		if r[0] <= last[1] {
			if r[1] > last[1] {
				last[1] = r[1]
			}
			continue
		}
		out = append(out, r)
	}
	return RangeSet{Ranges: out}
}

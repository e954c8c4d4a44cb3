package syntax

import (
	"unicode/utf16"
	"unicode/utf8"
)

// unitScanner walks a pattern as a sequence of UTF-16 code units, combining
// surrogate pairs into full code points only in Unicode mode — matching
// ECMAScript's own pattern-source model (spec.md §4.4 "Surrogate
// handling").
type unitScanner struct {
	units       []uint16
	pos         int // index into units
	unicodeMode bool
}

func newUnitScanner(pattern string, unicodeMode bool) *unitScanner {
	runes := []rune(pattern)
	return &unitScanner{units: utf16.Encode(runes), unicodeMode: unicodeMode}
}

func (s *unitScanner) eof() bool { return s.pos >= len(s.units) }

// bytePos approximates a UTF-8 byte offset for error reporting by
// re-encoding the consumed prefix; exactness is not required, only a
// reasonably useful position.
func (s *unitScanner) bytePos() int {
	return len(string(utf16.Decode(s.units[:s.pos])))
}

// peek returns the code point at the current position without advancing,
// and the number of code units it occupies (1, or 2 for a surrogate pair
// combined in Unicode mode). Returns (0, 0) at EOF.
func (s *unitScanner) peek() (rune, int) {
	if s.eof() {
		return 0, 0
	}
	u := s.units[s.pos]
	if s.unicodeMode && isHighSurrogate(u) && s.pos+1 < len(s.units) && isLowSurrogate(s.units[s.pos+1]) {
		r := utf16.DecodeRune(rune(u), rune(s.units[s.pos+1]))
		return r, 2
	}
	if s.unicodeMode && (isHighSurrogate(u) || isLowSurrogate(u)) {
		// A lone surrogate is returned as-is; callers in Unicode mode
		// must treat this as ErrLoneSurrogate where the grammar requires
		// a valid code point.
		return rune(u), 1
	}
	return rune(u), 1
}

// peekAt returns the code point at pos+offset units ahead, without
// combining surrogate pairs (used for small fixed lookahead like "(?:").
func (s *unitScanner) peekAt(offset int) rune {
	if s.pos+offset >= len(s.units) {
		return -1
	}
	return rune(s.units[s.pos+offset])
}

func (s *unitScanner) advance() rune {
	r, width := s.peek()
	s.pos += width
	return r
}

func (s *unitScanner) advanceUnit() uint16 {
	u := s.units[s.pos]
	s.pos++
	return u
}

func isHighSurrogate(u uint16) bool { return u >= 0xD800 && u <= 0xDBFF }
func isLowSurrogate(u uint16) bool  { return u >= 0xDC00 && u <= 0xDFFF }

func isLoneSurrogateRune(r rune) bool {
	return r >= 0xD800 && r <= 0xDFFF
}

func isASCIILetterLocal(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isOctalDigit(r rune) bool { return r >= '0' && r <= '7' }

func isHexDigit(r rune) bool {
	return isASCIIDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

// validUTF8 is used by callers that must confirm an input byte slice is
// well-formed UTF-8 before converting to runes (only relevant when the
// caller hands pattern bytes directly rather than a Go string).
func validUTF8(b []byte) bool { return utf8.Valid(b) }

package syntax

import (
	"fmt"

	"github.com/coregx/jsregex/reflags"
)

// Parser turns ECMAScript regex source text into a Pattern IR tree.
// Grounded on original_source's compiler/mod.rs entry point (compile_regex)
// and the recursive-descent shape of quasilyte-regex's syntax parser, with
// the grammar itself taken from spec.md §4.4.
type Parser struct {
	src   string
	s     *unitScanner
	flags reflags.Flags

	scan *prescanResult

	// nextCap is the next capture-group index to assign; must walk in
	// lockstep with prescan's own left-to-right numbering. Duplicate-name
	// scope validation already happened once during prescan (prescan.go),
	// so the live parse just assigns indices and trusts scan.names.
	nextCap int
}

// Parse compiles pattern source text under flags into a Pattern IR. Flags
// must already have been produced by reflags.Parse (or hand-built) — Parse
// itself never interprets the trailing "/flags" syntax some hosts use.
func Parse(pattern string, flags reflags.Flags) (*Pattern, error) {
	pre, err := runPrescan(pattern, flags)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		src:     pattern,
		s:       newUnitScanner(pattern, flags.UnicodeMode()),
		flags:   flags,
		scan:    pre,
		nextCap: 1,
	}
	root, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if !p.s.eof() {
		return nil, p.errAt(ErrUnterminatedGroup, "unexpected trailing input")
	}
	finalFlags := flags
	if len(pre.names) > 0 {
		finalFlags |= reflags.NAMED_GROUPS
	}
	return &Pattern{
		Root:         root,
		CaptureCount: p.nextCap,
		Names:        pre.names,
		Flags:        finalFlags,
	}, nil
}

func (p *Parser) errAt(kind error, detail string) error {
	return &SyntaxError{Kind: kind, Pos: p.s.bytePos(), Pattern: p.src, Detail: detail}
}

// parseDisjunction parses Alternative ('|' Alternative)*, left-biased
// (earlier alternatives always preferred by the backtracking VM — spec.md
// §4.6.3 "alternation tries branches in source order").
func (p *Parser) parseDisjunction() (*Node, error) {
	var branches []*Node
	for {
		alt, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		branches = append(branches, alt)
		if p.s.eof() || p.s.peekAt(0) != '|' {
			break
		}
		p.s.advanceUnit()
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return &Node{Op: OpAlt, Sub: branches}, nil
}

// parseAlternative parses Term* (an empty sequence is a valid Alternative).
// A bare inline-flags marker `(?ims)` takes effect for the remainder of
// this Alternative only (spec.md SUPPLEMENTED FEATURES); foldBareInlineFlags
// restructures the flat term list into the nested OpInlineFlags shape the
// code generator expects once parsing of the alternative is done.
func (p *Parser) parseAlternative() (*Node, error) {
	var terms []*Node
	savedFlags := p.flags
	for {
		if p.s.eof() {
			break
		}
		r := p.s.peekAt(0)
		if r == '|' || r == ')' {
			break
		}
		term, err := p.parseTerm()
		if err != nil {
			p.flags = savedFlags
			return nil, err
		}
		if term == nil {
			continue
		}
		if term.Op == OpInlineFlags && term.Sub == nil {
			p.flags = (p.flags | term.FlagsOn) &^ term.FlagsOff
		}
		terms = append(terms, term)
	}
	p.flags = savedFlags
	terms = foldBareInlineFlags(terms)
	switch len(terms) {
	case 0:
		return &Node{Op: OpEmpty}, nil
	case 1:
		return terms[0], nil
	default:
		return &Node{Op: OpConcat, Sub: terms}, nil
	}
}

// foldBareInlineFlags rewrites a flat term list containing bare inline-flags
// markers (Op == OpInlineFlags, Sub == nil) so that each marker's Sub holds
// everything that followed it, recursively — giving the code generator a
// normal "scoped flags wrap a subtree" shape uniformly, whether the flags
// came from `(?ims:...)` or bare `(?ims)`.
func foldBareInlineFlags(terms []*Node) []*Node {
	for i, t := range terms {
		if t.Op == OpInlineFlags && t.Sub == nil {
			tail := foldBareInlineFlags(terms[i+1:])
			var sub *Node
			switch len(tail) {
			case 0:
				sub = &Node{Op: OpEmpty}
			case 1:
				sub = tail[0]
			default:
				sub = &Node{Op: OpConcat, Sub: tail}
			}
			t.Sub = []*Node{sub}
			out := append([]*Node{}, terms[:i]...)
			return append(out, t)
		}
	}
	return terms
}

// parseTerm parses one Assertion, or an Atom optionally followed by a
// Quantifier.
func (p *Parser) parseTerm() (*Node, error) {
	if assertion, ok, err := p.tryParseAssertion(); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return p.tryParseQuantifier(assertion)
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return p.tryParseQuantifier(atom)
}

// tryParseAssertion handles ^, $, \b, \B, lookahead, and lookbehind; these
// never take a quantifier (quantifying most assertions is a JS syntax
// error, except lookahead which this parser — like V8 — allows but treats
// as quantifying the assertion itself rather than folding it away).
func (p *Parser) tryParseAssertion() (*Node, bool, error) {
	r := p.s.peekAt(0)
	switch r {
	case '^':
		p.s.advanceUnit()
		return &Node{Op: OpAnchor, Anchor: AnchorLineStart}, true, nil
	case '$':
		p.s.advanceUnit()
		return &Node{Op: OpAnchor, Anchor: AnchorLineEnd}, true, nil
	case '\\':
		if p.s.peekAt(1) == 'b' {
			p.s.advanceUnit()
			p.s.advanceUnit()
			return &Node{Op: OpAnchor, Anchor: AnchorWordBoundary}, true, nil
		}
		if p.s.peekAt(1) == 'B' {
			p.s.advanceUnit()
			p.s.advanceUnit()
			return &Node{Op: OpAnchor, Anchor: AnchorNotWordBoundary}, true, nil
		}
		return nil, false, nil
	case '(':
		if p.s.peekAt(1) == '?' && (p.s.peekAt(2) == '=' || p.s.peekAt(2) == '!') {
			node, err := p.parseLookaround(false)
			return node, true, err
		}
		if p.s.peekAt(1) == '?' && p.s.peekAt(2) == '<' && (p.s.peekAt(3) == '=' || p.s.peekAt(3) == '!') {
			node, err := p.parseLookaround(true)
			return node, true, err
		}
		return nil, false, nil
	}
	return nil, false, nil
}

func (p *Parser) parseLookaround(behind bool) (*Node, error) {
	p.s.advanceUnit() // (
	p.s.advanceUnit() // ?
	if behind {
		p.s.advanceUnit() // <
	}
	negated := p.s.advanceUnit() == '!'
	sub, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if p.s.peekAt(0) != ')' {
		return nil, p.errAt(ErrUnterminatedGroup, "lookaround")
	}
	p.s.advanceUnit()
	return &Node{Op: OpLookAround, Behind: behind, Negated: negated, Sub: []*Node{sub}}, nil
}

// parseAtom parses a single Atom: literal char, '.', character class,
// group, backreference, or escape.
func (p *Parser) parseAtom() (*Node, error) {
	r, width := p.s.peek()
	switch {
	case width == 0:
		return nil, p.errAt(ErrNothingToRepeat, "unexpected end of pattern")
	case r == '.':
		p.s.advance()
		return p.dotNode(), nil
	case r == '[':
		return p.parseClass()
	case r == '(':
		return p.parseGroup()
	case r == '\\':
		return p.parseEscapeAtom()
	case r == ')' || r == '|' || r == '*' || r == '+' || r == '?':
		return nil, p.errAt(ErrNothingToRepeat, fmt.Sprintf("unexpected %q", r))
	case r == '{':
		// A lone '{' that does not introduce a valid quantifier is, per
		// Annex B, treated as a literal character outside Unicode mode;
		// in Unicode mode it must be escaped.
		if p.flags.UnicodeMode() {
			return nil, p.errAt(ErrInvalidQuantifier, "lone '{' must be escaped in unicode mode")
		}
		p.s.advance()
		return &Node{Op: OpLiteral, Rune: []rune{r}}, nil
	default:
		if p.flags.UnicodeMode() && isLoneSurrogateRune(r) {
			return nil, p.errAt(ErrLoneSurrogate, "")
		}
		p.s.advance()
		return &Node{Op: OpLiteral, Rune: []rune{r}}, nil
	}
}

func (p *Parser) dotNode() *Node {
	cn := &ClassNode{Negated: true}
	if !p.flags.DotAll() {
		for _, lt := range []rune{'\n', '\r', 0x2028, 0x2029} {
			cn.Ranges = append(cn.Ranges, RuneRange{lt, lt + 1})
		}
	}
	return &Node{Op: OpClass, Class: cn}
}

// parseGroup parses '(' followed by a capturing group, a non-capturing
// group, a named capturing group, or an inline-flags group.
func (p *Parser) parseGroup() (*Node, error) {
	p.s.advanceUnit() // (
	if p.s.peekAt(0) != '?' {
		return p.parseCapturingGroup("")
	}
	p.s.advanceUnit() // ?
	switch p.s.peekAt(0) {
	case ':':
		p.s.advanceUnit()
		sub, err := p.parseDisjunction()
		if err != nil {
			return nil, err
		}
		if p.s.peekAt(0) != ')' {
			return nil, p.errAt(ErrUnterminatedGroup, "non-capturing group")
		}
		p.s.advanceUnit()
		return &Node{Op: OpGroup, Sub: []*Node{sub}}, nil
	case '<':
		if p.s.peekAt(1) == '=' || p.s.peekAt(1) == '!' {
			// Already handled by tryParseAssertion; reaching here means
			// parseAtom was called directly on a lookbehind, which only
			// happens if a quantifier illegally precedes it — report it
			// as an invalid quantifier.
			return nil, p.errAt(ErrInvalidQuantifier, "lookbehind cannot be quantified")
		}
		name, err := p.parseGroupName()
		if err != nil {
			return nil, err
		}
		return p.parseCapturingGroup(name)
	default:
		return p.parseInlineFlagsGroup()
	}
}

func (p *Parser) parseCapturingGroup(name string) (*Node, error) {
	idx := p.nextCap
	p.nextCap++
	sub, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if p.s.peekAt(0) != ')' {
		return nil, p.errAt(ErrUnterminatedGroup, "capturing group")
	}
	p.s.advanceUnit()
	return &Node{Op: OpCapture, Cap: idx, Name: name, Sub: []*Node{sub}}, nil
}

// parseGroupName parses '<' Name '>' and returns Name (the '<' must already
// be the current character).
func (p *Parser) parseGroupName() (string, error) {
	p.s.advanceUnit() // <
	var name []rune
	for {
		r, width := p.s.peek()
		if width == 0 {
			return "", p.errAt(ErrInvalidGroupRef, "unterminated group name")
		}
		if r == '>' {
			p.s.advance()
			break
		}
		if r == '\\' && p.s.peekAt(1) == 'u' {
			esc, err := p.parseUnicodeEscapeValue()
			if err != nil {
				return "", err
			}
			name = append(name, esc)
			continue
		}
		p.s.advance()
		name = append(name, r)
	}
	if len(name) == 0 {
		return "", p.errAt(ErrInvalidGroupRef, "empty group name")
	}
	return string(name), nil
}

// parseInlineFlagsGroup parses the bracketed `(?ims-ims:...)` form and the
// supplemented bare `(?ims)` form (spec.md SUPPLEMENTED FEATURES).
func (p *Parser) parseInlineFlagsGroup() (*Node, error) {
	on, off, err := p.parseFlagLetters()
	if err != nil {
		return nil, err
	}
	switch p.s.peekAt(0) {
	case ')':
		p.s.advanceUnit()
		// Bare (?ims) / (?-ims): applies from this point to the end of the
		// enclosing alternative, modeled as a zero-width flags node that
		// wraps the rest of the current alternative once the caller
		// collects it; parseAlternative special-cases this by wrapping
		// all subsequent terms as its Sub.
		return &Node{Op: OpInlineFlags, FlagsOn: on, FlagsOff: off, Sub: nil}, nil
	case ':':
		p.s.advanceUnit()
		saved := p.flags
		p.flags = (p.flags | on) &^ off
		sub, err := p.parseDisjunction()
		p.flags = saved
		if err != nil {
			return nil, err
		}
		if p.s.peekAt(0) != ')' {
			return nil, p.errAt(ErrUnterminatedGroup, "inline flags group")
		}
		p.s.advanceUnit()
		return &Node{Op: OpInlineFlags, FlagsOn: on, FlagsOff: off, Sub: []*Node{sub}}, nil
	default:
		return nil, p.errAt(ErrInvalidFlagGroup, "expected ':' or ')'")
	}
}

func (p *Parser) parseFlagLetters() (on, off reflags.Flags, err error) {
	seen := map[rune]bool{}
	neg := false
	for {
		r := p.s.peekAt(0)
		if r == '-' && !neg {
			neg = true
			p.s.advanceUnit()
			continue
		}
		bit, ok := inlineFlagBit(r)
		if !ok {
			break
		}
		if seen[r] {
			return 0, 0, p.errAt(ErrInvalidFlagGroup, "duplicate inline flag")
		}
		seen[r] = true
		p.s.advanceUnit()
		if neg {
			off |= bit
		} else {
			on |= bit
		}
	}
	if on == 0 && off == 0 {
		return 0, 0, p.errAt(ErrInvalidFlagGroup, "no flags given")
	}
	if on&off != 0 {
		return 0, 0, p.errAt(ErrInvalidFlagGroup, "flag both enabled and disabled")
	}
	return on, off, nil
}

func inlineFlagBit(r rune) (reflags.Flags, bool) {
	switch r {
	case 'i':
		return reflags.IGNORE_CASE, true
	case 'm':
		return reflags.MULTILINE, true
	case 's':
		return reflags.DOT_ALL, true
	}
	return 0, false
}

// parseEscapeAtom parses a '\' escape that stands as a full Atom: word
// boundaries are handled earlier by tryParseAssertion, so by this point
// it's a class shorthand, backreference, or single-character escape.
func (p *Parser) parseEscapeAtom() (*Node, error) {
	if p.s.peekAt(1) == 'k' && p.s.peekAt(2) == '<' {
		return p.parseNamedBackref()
	}
	if isASCIIDigit(p.s.peekAt(1)) && p.s.peekAt(1) != '0' {
		if node, ok, err := p.tryParseNumericBackref(); ok || err != nil {
			return node, err
		}
	}
	switch p.s.peekAt(1) {
	case 'd', 'D', 'w', 'W', 's', 'S':
		return p.parseShorthandClass(), nil
	case 'p', 'P':
		return p.parseUnicodePropertyAtom()
	}
	r, err := p.parseCharEscape()
	if err != nil {
		return nil, err
	}
	if p.flags.UnicodeMode() && isLoneSurrogateRune(r) {
		return nil, p.errAt(ErrLoneSurrogate, "")
	}
	return &Node{Op: OpLiteral, Rune: []rune{r}}, nil
}

func (p *Parser) parseNamedBackref() (*Node, error) {
	p.s.advanceUnit() // backslash
	p.s.advanceUnit() // k
	name, err := p.parseGroupName()
	if err != nil {
		return nil, err
	}
	refs := p.scan.refsForName(name)
	if len(refs) == 0 {
		return nil, p.errAt(ErrInvalidGroupRef, "unknown group name \\k<"+name+">")
	}
	return &Node{Op: OpBackRef, Refs: refs}, nil
}

// tryParseNumericBackref applies maximal-munch decimal parsing: the longest
// run of digits that names a valid capture group wins outright; otherwise
// (non-Unicode mode only) falls back to legacy octal/decimal escapes per
// Annex B, and returns ok=false so the caller tries other escape forms.
func (p *Parser) tryParseNumericBackref() (*Node, bool, error) {
	save := p.s.pos
	p.s.advanceUnit() // backslash
	start := p.s.pos
	for isASCIIDigit(p.s.peekAt(0)) {
		p.s.advanceUnit()
	}
	digits := string(utf16ToASCII(p.s.units[start:p.s.pos]))
	n := parseDecimal(digits)
	if n > 0 && n < p.scan.captureCount {
		return &Node{Op: OpBackRef, Refs: []int{n}}, true, nil
	}
	p.s.pos = save
	if p.flags.UnicodeMode() {
		return nil, false, p.errAt(ErrInvalidBackReference, "\\"+digits)
	}
	return nil, false, nil
}

func utf16ToASCII(units []uint16) []byte {
	out := make([]byte, len(units))
	for i, u := range units {
		out[i] = byte(u)
	}
	return out
}

func parseDecimal(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func (p *Parser) parseShorthandClass() *Node {
	letter := p.s.peekAt(1)
	p.s.advanceUnit()
	p.s.advanceUnit()
	return &Node{Op: OpClass, Class: &ClassNode{Ranges: shorthandRealizedRanges(letter, p.flags)}}
}

package syntax

import (
	"github.com/coregx/jsregex/internal/charset"
	"github.com/coregx/jsregex/internal/ucd"
	"github.com/coregx/jsregex/reflags"
)

// parseClass parses a full `[...]` character class, including the v-mode
// (UNICODE_SETS) nested-class and &&/-- set-operation grammar. Negation is
// always realized eagerly into concrete ranges via internal/charset.Invert
// rather than carried as a deferred flag, since v-mode set operators need
// concrete operands to combine — see ClassNode.Negated's doc comment for
// the one case (the built-in `.` class) that still uses the lazy form.
func (p *Parser) parseClass() (*Node, error) {
	p.s.advanceUnit() // [
	vmode := p.flags.UnicodeSets()
	set, err := p.parseClassExpr(vmode, true)
	if err != nil {
		return nil, err
	}
	if p.s.peekAt(0) != ']' {
		return nil, p.errAt(ErrUnbalancedBracket, "unterminated character class")
	}
	p.s.advanceUnit()
	cn := &ClassNode{Strings: set.Strings}
	for _, r := range set.Ranges {
		cn.Ranges = append(cn.Ranges, RuneRange{rune(r.Lo), rune(r.Hi)})
	}
	return &Node{Op: OpClass, Class: cn}, nil
}

// parseClassExpr parses one level of ClassSetExpression: an optional
// leading '^' (only meaningful at topLevel, i.e. not inside a v-mode
// nested-class operand that instead gets its own '^' via a recursive
// topLevel=true call), followed by a union, followed by zero or more &&
// or -- operators applied left to right. Mixing && and -- at the same
// level without parentheses is a syntax error, matching the grammar's own
// restriction against ambiguous set-operator precedence.
func (p *Parser) parseClassExpr(vmode, topLevel bool) (*charset.Set, error) {
	negated := false
	if topLevel && p.s.peekAt(0) == '^' {
		negated = true
		p.s.advanceUnit()
	}
	result, err := p.parseClassUnion(vmode)
	if err != nil {
		return nil, err
	}
	op := rune(0)
	for vmode {
		if p.s.peekAt(0) == '&' && p.s.peekAt(1) == '&' {
			if op == 0 {
				op = '&'
			} else if op != '&' {
				return nil, p.errAt(ErrInvalidClassSetOp, "cannot mix && and -- without parentheses")
			}
			p.s.advanceUnit()
			p.s.advanceUnit()
			next, err := p.parseClassUnion(vmode)
			if err != nil {
				return nil, err
			}
			result = result.Intersect(next)
			continue
		}
		if p.s.peekAt(0) == '-' && p.s.peekAt(1) == '-' {
			if op == 0 {
				op = '-'
			} else if op != '-' {
				return nil, p.errAt(ErrInvalidClassSetOp, "cannot mix && and -- without parentheses")
			}
			p.s.advanceUnit()
			p.s.advanceUnit()
			next, err := p.parseClassUnion(vmode)
			if err != nil {
				return nil, err
			}
			result = result.Subtract(next)
			continue
		}
		break
	}
	if negated {
		if len(result.Strings) > 0 {
			return nil, p.errAt(ErrInvalidClassSetOp, "cannot negate a class containing multi-character strings")
		}
		result = result.Invert()
	}
	return result, nil
}

// parseClassUnion parses a run of ClassAtoms, ranges, nested classes
// (v-mode), and \q{...} string disjunctions (v-mode), unioning them into
// one Set. Stops before a trailing && / -- operator or the closing ']'.
func (p *Parser) parseClassUnion(vmode bool) (*charset.Set, error) {
	out := charset.New()
	for {
		r := p.s.peekAt(0)
		if r == ']' || r == -1 {
			break
		}
		if vmode && r == '&' && p.s.peekAt(1) == '&' {
			break
		}
		if vmode && r == '-' && p.s.peekAt(1) == '-' {
			break
		}
		if vmode && r == '[' {
			p.s.advanceUnit()
			nested, err := p.parseClassExpr(vmode, true)
			if err != nil {
				return nil, err
			}
			if p.s.peekAt(0) != ']' {
				return nil, p.errAt(ErrUnbalancedBracket, "nested class")
			}
			p.s.advanceUnit()
			out = out.Union(nested)
			continue
		}
		if vmode && r == '\\' && p.s.peekAt(1) == 'q' && p.s.peekAt(2) == '{' {
			strs, err := p.parseStringDisjunction()
			if err != nil {
				return nil, err
			}
			for _, str := range strs {
				out.AddString(str)
			}
			continue
		}

		lo, isClass, clsRanges, err := p.parseClassAtomOrShorthand(vmode)
		if err != nil {
			return nil, err
		}
		if isClass {
			for _, rr := range clsRanges {
				out.AddInterval(uint32(rr.Lo), uint32(rr.Hi))
			}
			continue
		}
		if p.s.peekAt(0) == '-' && p.s.peekAt(1) != ']' && p.s.peekAt(1) != -1 &&
			!(vmode && p.s.peekAt(1) == '-') {
			save := p.s.pos
			p.s.advanceUnit() // -
			hi, isClass2, _, err2 := p.parseClassAtomOrShorthand(vmode)
			if err2 != nil {
				return nil, err2
			}
			if isClass2 {
				// e.g. [a-\d]: '-' was never a range operator here.
				p.s.pos = save
				out.AddPoint(uint32(lo))
				continue
			}
			if hi < lo {
				return nil, p.errAt(ErrInvalidClassRange, "range is out of order")
			}
			out.AddInterval(uint32(lo), uint32(hi)+1)
			continue
		}
		out.AddPoint(uint32(lo))
	}
	if p.flags.IgnoreCase() {
		out = out.Canonicalize(func(c uint32) uint32 {
			return uint32(ucd.Canonicalize(rune(c), p.flags.UnicodeMode()))
		})
	}
	return out, nil
}

// parseClassAtomOrShorthand parses one ClassAtom. When it is a shorthand
// class or Unicode property escape, isClass is true and ranges holds the
// fully realized (negation already applied) membership; otherwise it
// returns a single code point.
func (p *Parser) parseClassAtomOrShorthand(vmode bool) (rune, bool, []RuneRange, error) {
	r := p.s.peekAt(0)
	if r != '\\' {
		p.s.advance()
		return r, false, nil, nil
	}
	switch p.s.peekAt(1) {
	case 'd', 'D', 'w', 'W', 's', 'S':
		letter := p.s.peekAt(1)
		p.s.advanceUnit()
		p.s.advanceUnit()
		return 0, true, shorthandRealizedRanges(letter, p.flags), nil
	case 'p', 'P':
		ranges, err := p.parseClassUnicodeProperty()
		if err != nil {
			return 0, false, nil, err
		}
		return 0, true, ranges, nil
	case 'b':
		p.s.advanceUnit()
		p.s.advanceUnit()
		return '\b', false, nil, nil
	case '-':
		p.s.advanceUnit()
		p.s.advanceUnit()
		return '-', false, nil, nil
	}
	r2, err := p.parseCharEscape()
	if err != nil {
		return 0, false, nil, err
	}
	return r2, false, nil, nil
}

// parseStringDisjunction parses \q{alt1|alt2|...}, the v-mode string
// literal set (spec.md §4.4 "v-mode class set operations"). Position must
// be at the backslash.
func (p *Parser) parseStringDisjunction() ([][]rune, error) {
	p.s.advanceUnit() // backslash
	p.s.advanceUnit() // q
	p.s.advanceUnit() // {
	var out [][]rune
	var cur []rune
	for {
		r, w := p.s.peek()
		if w == 0 {
			return nil, p.errAt(ErrInvalidClassSetOp, "unterminated \\q{...}")
		}
		if r == '}' {
			p.s.advance()
			out = append(out, cur)
			return out, nil
		}
		if r == '|' {
			p.s.advance()
			out = append(out, cur)
			cur = nil
			continue
		}
		if r == '\\' {
			p.s.advance()
			esc, w2 := p.s.peek()
			if w2 == 0 {
				return nil, p.errAt(ErrInvalidClassSetOp, "unterminated \\q{...}")
			}
			p.s.advance()
			cur = append(cur, esc)
			continue
		}
		p.s.advance()
		cur = append(cur, r)
	}
}

// parseClassUnicodeProperty parses \p{...} / \P{...} and returns the fully
// realized (negation applied) range list. Position must be at the
// backslash.
func (p *Parser) parseClassUnicodeProperty() ([]RuneRange, error) {
	negated := p.s.peekAt(1) == 'P'
	p.s.advanceUnit() // backslash
	p.s.advanceUnit() // p or P
	if p.s.peekAt(0) != '{' {
		return nil, p.errAt(ErrInvalidUnicodeProperty, "expected '{' after \\p")
	}
	p.s.advanceUnit()
	name, value, err := p.parsePropertyNameValue()
	if err != nil {
		return nil, err
	}
	rs, ok := ucd.PropertySet(name, value)
	if !ok {
		return nil, p.errAt(ErrInvalidUnicodeProperty, name)
	}
	ranges := make([]RuneRange, len(rs.Ranges))
	for i, r := range rs.Ranges {
		ranges[i] = RuneRange{r[0], r[1]}
	}
	if negated {
		s := charset.New()
		for _, rr := range ranges {
			s.AddInterval(uint32(rr.Lo), uint32(rr.Hi))
		}
		inv := s.Invert()
		ranges = ranges[:0]
		for _, r := range inv.Ranges {
			ranges = append(ranges, RuneRange{rune(r.Lo), rune(r.Hi)})
		}
	}
	return ranges, nil
}

// parsePropertyNameValue parses the `Name` or `Name=Value` body of a
// \p{...} escape, up to and including the closing '}'.
func (p *Parser) parsePropertyNameValue() (name, value string, err error) {
	var buf []rune
	for {
		r, w := p.s.peek()
		if w == 0 {
			return "", "", p.errAt(ErrInvalidUnicodeProperty, "unterminated \\p{...}")
		}
		if r == '}' {
			p.s.advance()
			break
		}
		if r == '=' {
			p.s.advance()
			name = string(buf)
			buf = nil
			continue
		}
		p.s.advance()
		buf = append(buf, r)
	}
	if name == "" {
		return string(buf), "", nil
	}
	return name, string(buf), nil
}

// parseUnicodePropertyAtom parses a standalone \p{...}/\P{...} Atom
// (outside a character class).
func (p *Parser) parseUnicodePropertyAtom() (*Node, error) {
	ranges, err := p.parseClassUnicodeProperty()
	if err != nil {
		return nil, err
	}
	return &Node{Op: OpClass, Class: &ClassNode{Ranges: ranges}}, nil
}

// shorthandClassNode returns the un-negated base ranges for \d, \w, \s
// (uppercase letters are handled by the caller by inverting).
func shorthandClassNode(letter rune, flags reflags.Flags) *ClassNode {
	switch lowerShorthand(letter) {
	case 'd':
		return &ClassNode{Ranges: []RuneRange{{'0', '9' + 1}}}
	case 'w':
		return &ClassNode{Ranges: wordRanges(flags)}
	case 's':
		return &ClassNode{Ranges: spaceRanges()}
	}
	return &ClassNode{}
}

func lowerShorthand(letter rune) rune {
	switch letter {
	case 'D':
		return 'd'
	case 'W':
		return 'w'
	case 'S':
		return 's'
	}
	return letter
}

func isUpperShorthand(letter rune) bool {
	return letter == 'D' || letter == 'W' || letter == 'S'
}

// shorthandRealizedRanges returns the full range set for a \d\D\w\W\s\S
// shorthand, with negation (uppercase letter) already applied.
func shorthandRealizedRanges(letter rune, flags reflags.Flags) []RuneRange {
	base := shorthandClassNode(letter, flags)
	if !isUpperShorthand(letter) {
		return base.Ranges
	}
	s := charset.New()
	for _, r := range base.Ranges {
		s.AddInterval(uint32(r.Lo), uint32(r.Hi))
	}
	inv := s.Invert()
	out := make([]RuneRange, len(inv.Ranges))
	for i, r := range inv.Ranges {
		out[i] = RuneRange{rune(r.Lo), rune(r.Hi)}
	}
	return out
}

func wordRanges(flags reflags.Flags) []RuneRange {
	r := []RuneRange{{'a', 'z' + 1}, {'A', 'Z' + 1}, {'0', '9' + 1}, {'_', '_' + 1}}
	if flags.IgnoreCase() && flags.UnicodeMode() {
		r = append(r, RuneRange{0x017F, 0x0180}, RuneRange{0x212A, 0x212B})
	}
	return r
}

func spaceRanges() []RuneRange {
	return []RuneRange{
		{'\t', '\r' + 1},
		{' ', ' ' + 1},
		{0x00A0, 0x00A1},
		{0x1680, 0x1681},
		{0x2000, 0x200B},
		{0x2028, 0x202A},
		{0x202F, 0x2030},
		{0x205F, 0x2060},
		{0x3000, 0x3001},
		{0xFEFF, 0xFEFF + 1},
	}
}

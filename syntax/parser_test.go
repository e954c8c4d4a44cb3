package syntax

import (
	"testing"

	"github.com/coregx/jsregex/reflags"
)

func mustParse(t *testing.T, pattern string, flags reflags.Flags) *Pattern {
	t.Helper()
	pat, err := Parse(pattern, flags)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", pattern, err)
	}
	return pat
}

func TestParseLiteralConcat(t *testing.T) {
	pat := mustParse(t, "cat", 0)
	if pat.Root.Op != OpConcat || len(pat.Root.Sub) != 3 {
		t.Fatalf("expected 3-term concat, got %+v", pat.Root)
	}
}

func TestParseDigitClass(t *testing.T) {
	pat := mustParse(t, `\d+`, 0)
	if pat.Root.Op != OpRepeat || pat.Root.Min != 1 || pat.Root.Max != -1 {
		t.Fatalf("expected unbounded repeat from 1, got %+v", pat.Root)
	}
	cls := pat.Root.Sub[0]
	if cls.Op != OpClass || len(cls.Class.Ranges) != 1 || cls.Class.Ranges[0] != (RuneRange{'0', '9' + 1}) {
		t.Fatalf("unexpected \\d class: %+v", cls.Class)
	}
}

func TestParseCaptureGroups(t *testing.T) {
	pat := mustParse(t, `(a)(b)`, 0)
	if pat.CaptureCount != 3 {
		t.Fatalf("expected capture count 3 (incl. group 0), got %d", pat.CaptureCount)
	}
	if pat.Root.Op != OpConcat || len(pat.Root.Sub) != 2 {
		t.Fatal("expected two capture terms")
	}
	if pat.Root.Sub[0].Cap != 1 || pat.Root.Sub[1].Cap != 2 {
		t.Fatalf("unexpected capture indices: %d, %d", pat.Root.Sub[0].Cap, pat.Root.Sub[1].Cap)
	}
}

func TestParseAlternation(t *testing.T) {
	pat := mustParse(t, `cat|dog`, 0)
	if pat.Root.Op != OpAlt || len(pat.Root.Sub) != 2 {
		t.Fatalf("expected 2-branch alternation, got %+v", pat.Root)
	}
}

func TestParseLookahead(t *testing.T) {
	pat := mustParse(t, `foo(?=bar)`, 0)
	if pat.Root.Op != OpConcat {
		t.Fatalf("expected concat, got %+v", pat.Root)
	}
	la := pat.Root.Sub[len(pat.Root.Sub)-1]
	if la.Op != OpLookAround || la.Behind || la.Negated {
		t.Fatalf("expected positive lookahead, got %+v", la)
	}
}

func TestParseNegativeLookbehind(t *testing.T) {
	pat := mustParse(t, `(?<!foo)bar`, 0)
	if pat.Root.Op != OpConcat {
		t.Fatalf("expected concat, got %+v", pat.Root)
	}
	lb := pat.Root.Sub[0]
	if lb.Op != OpLookAround || !lb.Behind || !lb.Negated {
		t.Fatalf("expected negative lookbehind, got %+v", lb)
	}
}

func TestParseBackreference(t *testing.T) {
	pat := mustParse(t, `(\w+)\s+\1`, 0)
	last := pat.Root.Sub[len(pat.Root.Sub)-1]
	if last.Op != OpBackRef || len(last.Refs) != 1 || last.Refs[0] != 1 {
		t.Fatalf("expected backref to group 1, got %+v", last)
	}
}

func TestParseNamedBackreference(t *testing.T) {
	pat := mustParse(t, `(?<year>\d{4})-\k<year>`, 0)
	last := pat.Root.Sub[len(pat.Root.Sub)-1]
	if last.Op != OpBackRef || len(last.Refs) != 1 || last.Refs[0] != 1 {
		t.Fatalf("expected named backref resolving to group 1, got %+v", last)
	}
	if len(pat.Names) != 1 || pat.Names[0].Name != "year" {
		t.Fatalf("expected name table with 'year', got %+v", pat.Names)
	}
}

func TestParseDuplicateNamedGroupsDifferentBranches(t *testing.T) {
	if _, err := Parse(`(?<x>a)|(?<x>b)`, 0); err != nil {
		t.Fatalf("expected duplicate names in different alternatives to be legal: %v", err)
	}
}

func TestParseDuplicateNamedGroupsSameBranchRejected(t *testing.T) {
	_, err := Parse(`(?<x>a)(?<x>b)`, 0)
	if err == nil {
		t.Fatal("expected error for duplicate name in the same branch")
	}
}

func TestParseQuantifierBounds(t *testing.T) {
	pat := mustParse(t, `a{2,5}`, 0)
	if pat.Root.Op != OpRepeat || pat.Root.Min != 2 || pat.Root.Max != 5 {
		t.Fatalf("unexpected bounds: %+v", pat.Root)
	}
}

func TestParseLazyQuantifier(t *testing.T) {
	pat := mustParse(t, `a+?`, 0)
	if pat.Root.Op != OpRepeat || pat.Root.Greedy {
		t.Fatalf("expected lazy quantifier, got %+v", pat.Root)
	}
}

func TestParseManyRepeatedOptionals(t *testing.T) {
	// a?a?a?a?a?aaaaa — classic catastrophic-backtracking shape; just
	// confirm it parses into five optional repeats followed by five
	// literal a's without error.
	pat := mustParse(t, `a?a?a?a?a?aaaaa`, 0)
	if pat.Root.Op != OpConcat || len(pat.Root.Sub) != 10 {
		t.Fatalf("expected 10 terms, got %d", len(pat.Root.Sub))
	}
}

func TestParseInlineFlagGroup(t *testing.T) {
	pat := mustParse(t, `(?i:abc)def`, 0)
	if pat.Root.Op != OpConcat {
		t.Fatal("expected concat")
	}
	flagNode := pat.Root.Sub[0]
	if flagNode.Op != OpInlineFlags || flagNode.FlagsOn != reflags.IGNORE_CASE {
		t.Fatalf("expected scoped ignore-case group, got %+v", flagNode)
	}
}

func TestParseBareInlineFlags(t *testing.T) {
	pat := mustParse(t, `a(?i)b`, 0)
	if pat.Root.Op != OpConcat || len(pat.Root.Sub) != 2 {
		t.Fatalf("expected [a, flags-wrapping-b], got %+v", pat.Root)
	}
	flagNode := pat.Root.Sub[1]
	if flagNode.Op != OpInlineFlags || flagNode.FlagsOn != reflags.IGNORE_CASE {
		t.Fatalf("expected bare inline flags node, got %+v", flagNode)
	}
	if len(flagNode.Sub) != 1 || flagNode.Sub[0].Op != OpLiteral {
		t.Fatalf("expected 'b' folded under the flags node, got %+v", flagNode.Sub)
	}
}

func TestParseCharClassNegatedRange(t *testing.T) {
	pat := mustParse(t, `[^a-z]`, 0)
	cn := pat.Root.Class
	if cn.Contains('a') || cn.Contains('m') {
		t.Fatalf("expected a-z excluded, got ranges %+v", cn.Ranges)
	}
	if !cn.Contains('A') || !cn.Contains('0') {
		t.Fatalf("expected non a-z included, got ranges %+v", cn.Ranges)
	}
}

func (cn *ClassNode) Contains(r rune) bool {
	for _, rr := range cn.Ranges {
		if r >= rr.Lo && r < rr.Hi {
			return true
		}
	}
	return false
}

func TestParseAWSKeyPattern(t *testing.T) {
	pat := mustParse(t, `((?:ASIA|AKIA|AROA|AIDA)([A-Z0-7]{16}))`, 0)
	if pat.CaptureCount != 3 {
		t.Fatalf("expected 2 explicit capture groups + group0, got %d", pat.CaptureCount)
	}
}

func TestParseManyCaptureGroups(t *testing.T) {
	pattern := ""
	for i := 0; i < 90; i++ {
		pattern += "(a)"
	}
	pat := mustParse(t, pattern, 0)
	if pat.CaptureCount != 91 {
		t.Fatalf("expected 90 explicit groups + group0 = 91, got %d", pat.CaptureCount)
	}
}

func TestParseUnicodePropertyEscape(t *testing.T) {
	pat := mustParse(t, `\p{L}+`, reflags.UNICODE)
	cls := pat.Root.Sub[0]
	if cls.Op != OpClass || len(cls.Class.Ranges) == 0 {
		t.Fatalf("expected non-empty \\p{L} class, got %+v", cls.Class)
	}
}

func TestParseUnicodeSetsClassIntersection(t *testing.T) {
	pat := mustParse(t, `[[0-9]&&[2-8]]`, reflags.UNICODE_SETS|reflags.UNICODE)
	cn := pat.Root.Class
	if cn.Contains('1') || cn.Contains('9') {
		t.Fatalf("expected intersection to exclude 1 and 9, got %+v", cn.Ranges)
	}
	if !cn.Contains('5') {
		t.Fatalf("expected intersection to include 5, got %+v", cn.Ranges)
	}
}

func TestParseUnicodeSetsClassSubtraction(t *testing.T) {
	pat := mustParse(t, `[[a-z]--[aeiou]]`, reflags.UNICODE_SETS|reflags.UNICODE)
	cn := pat.Root.Class
	if cn.Contains('a') || cn.Contains('e') {
		t.Fatalf("expected vowels excluded, got %+v", cn.Ranges)
	}
	if !cn.Contains('b') {
		t.Fatalf("expected consonants included, got %+v", cn.Ranges)
	}
}

func TestParseLoneSurrogateRejectedInUnicodeMode(t *testing.T) {
	_, err := Parse(`\uD800`, reflags.UNICODE)
	if err == nil {
		t.Fatal("expected lone surrogate escape to be rejected in unicode mode")
	}
}

func TestParseSurrogatePairLiteralCombines(t *testing.T) {
	pat := mustParse(t, `😀`, reflags.UNICODE) // U+1F600 GRINNING FACE
	if pat.Root.Op != OpLiteral || pat.Root.Rune[0] != 0x1F600 {
		t.Fatalf("expected combined astral code point, got %+v", pat.Root)
	}
}

func TestParseLegacyOctalEscape(t *testing.T) {
	pat := mustParse(t, `\101`, 0) // octal 101 == 'A'
	if pat.Root.Op != OpLiteral || pat.Root.Rune[0] != 'A' {
		t.Fatalf("expected literal 'A' from octal escape, got %+v", pat.Root)
	}
}

func TestParseNonOctalDigitEscapeLiteral(t *testing.T) {
	pat := mustParse(t, `\8`, 0)
	if pat.Root.Op != OpLiteral || pat.Root.Rune[0] != '8' {
		t.Fatalf("expected literal '8', got %+v", pat.Root)
	}
}

func TestParseBoundedRepeatInContext(t *testing.T) {
	pat := mustParse(t, `a{3,10}b`, 0)
	if pat.Root.Op != OpConcat || len(pat.Root.Sub) != 2 {
		t.Fatal("expected concat of bounded repeat and literal")
	}
	rep := pat.Root.Sub[0]
	if rep.Op != OpRepeat || rep.Min != 3 || rep.Max != 10 {
		t.Fatalf("unexpected bounds: %+v", rep)
	}
}

func TestParseNothingToRepeatError(t *testing.T) {
	if _, err := Parse(`*abc`, 0); err == nil {
		t.Fatal("expected nothing-to-repeat error")
	}
}

func TestParseUnterminatedGroupError(t *testing.T) {
	if _, err := Parse(`(abc`, 0); err == nil {
		t.Fatal("expected unterminated group error")
	}
}

func TestParseUnicodeSetsStringDisjunction(t *testing.T) {
	pat := mustParse(t, `[\q{ab|cd}]`, reflags.UNICODE_SETS|reflags.UNICODE)
	cn := pat.Root.Class
	if len(cn.Strings) != 2 {
		t.Fatalf("expected two string members, got %+v", cn.Strings)
	}
}

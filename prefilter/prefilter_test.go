package prefilter

import (
	"testing"

	"github.com/coregx/jsregex/reflags"
	"github.com/coregx/jsregex/syntax"
)

func mustParse(t *testing.T, pattern string) *syntax.Pattern {
	t.Helper()
	pat, err := syntax.Parse(pattern, 0)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return pat
}

func TestRequiredLiteralsSingleLiteral(t *testing.T) {
	pat := mustParse(t, "hello")
	lits := RequiredLiterals(pat)
	if len(lits) != 1 || string(lits[0]) != "hello" {
		t.Fatalf("RequiredLiterals = %v, want [hello]", lits)
	}
}

func TestRequiredLiteralsAlternation(t *testing.T) {
	pat := mustParse(t, "cat|dog|bird")
	lits := RequiredLiterals(pat)
	if len(lits) != 3 {
		t.Fatalf("RequiredLiterals = %v, want 3 branches", lits)
	}
}

func TestRequiredLiteralsNoneForClassPattern(t *testing.T) {
	pat := mustParse(t, `\d+`)
	if lits := RequiredLiterals(pat); lits != nil {
		t.Fatalf("RequiredLiterals(\\d+) = %v, want nil", lits)
	}
}

func TestRequiredLiteralsNoneWhenIgnoreCase(t *testing.T) {
	pat, err := syntax.Parse("hello", reflags.IGNORE_CASE)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if lits := RequiredLiterals(pat); lits != nil {
		t.Fatalf("RequiredLiterals under IGNORE_CASE = %v, want nil", lits)
	}
}

func TestBuildSingleByteNeverMissesMatch(t *testing.T) {
	pat := mustParse(t, "x")
	pf := Build(pat)
	if pf == nil {
		t.Fatal("Build returned nil for a plain single-byte literal")
	}
	haystack := []byte("aaaaaaaaaaaaaaaaaaaaax")
	if got := pf.Next(haystack, 0); got != 21 {
		t.Errorf("Next = %d, want 21", got)
	}
	if got := pf.Next(haystack, 22); got != -1 {
		t.Errorf("Next past the only occurrence = %d, want -1", got)
	}
}

func TestBuildLiteralSetFindsEarliestBranch(t *testing.T) {
	pat := mustParse(t, "cat|dog")
	pf := Build(pat)
	if pf == nil {
		t.Fatal("Build returned nil for a two-branch literal alternation")
	}
	haystack := []byte("the lazy dog and a cat")
	got := pf.Next(haystack, 0)
	if got != 9 {
		t.Errorf("Next = %d, want 9 (start of \"dog\")", got)
	}
}

func TestBuildReturnsNilWhenNoRequiredLiteral(t *testing.T) {
	pat := mustParse(t, `\d+`)
	if pf := Build(pat); pf != nil {
		t.Errorf("Build(\\d+) = %v, want nil", pf)
	}
}

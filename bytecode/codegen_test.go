package bytecode

import (
	"testing"

	"github.com/coregx/jsregex/reflags"
)

func mustCompile(t *testing.T, pattern string, flags reflags.Flags) *Program {
	t.Helper()
	p, err := CompilePattern(pattern, flags)
	if err != nil {
		t.Fatalf("CompilePattern(%q) error: %v", pattern, err)
	}
	return p
}

func TestCompileHeaderFields(t *testing.T) {
	p := mustCompile(t, `(a)(b)`, 0)
	blob := p.Bytes()
	if len(blob) < headerSize {
		t.Fatalf("blob too short: %d bytes", len(blob))
	}
	if blob[2] != 3 { // group 0 + 2 explicit groups
		t.Fatalf("expected capture count 3, got %d", blob[2])
	}
}

func TestCompileLiteralEmitsChar(t *testing.T) {
	p := mustCompile(t, `a`, 0)
	// Expect at least one OpChar in the body (ignoring the search prologue's
	// Any/SplitGotoFirst/Goto, SaveStart/SaveEnd, and trailing Match).
	found := false
	for _, b := range p.Body {
		if Op(b) == OpChar {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected an OpChar instruction, body=% x", p.Body)
	}
}

func TestCompileIgnoreCaseUsesCharI(t *testing.T) {
	p := mustCompile(t, `a`, reflags.IGNORE_CASE)
	found := false
	for _, b := range p.Body {
		if Op(b) == OpCharI {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected an OpCharI instruction under IGNORE_CASE, body=% x", p.Body)
	}
}

func TestCompileStickyOmitsSearchPrologue(t *testing.T) {
	sticky := mustCompile(t, `a`, reflags.STICKY)
	plain := mustCompile(t, `a`, 0)
	if len(sticky.Body) >= len(plain.Body) {
		t.Fatalf("expected sticky pattern to omit the search prologue: sticky=%d plain=%d", len(sticky.Body), len(plain.Body))
	}
}

func TestCompileAlternationEmitsSplit(t *testing.T) {
	p := mustCompile(t, `cat|dog`, 0)
	found := false
	for _, b := range p.Body {
		if Op(b) == OpSplitNextFirst {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a SplitNextFirst instruction for alternation, body=% x", p.Body)
	}
}

func TestCompileUnboundedStarUsesZeroWidthGuard(t *testing.T) {
	// (a*)* — the outer star's body can match empty, so it needs the
	// SetCharPos/CheckAdvance guard to terminate.
	p := mustCompile(t, `(a*)*`, 0)
	hasSetCharPos, hasCheckAdvance := false, false
	for _, b := range p.Body {
		switch Op(b) {
		case OpSetCharPos:
			hasSetCharPos = true
		case OpCheckAdvance:
			hasCheckAdvance = true
		}
	}
	if !hasSetCharPos || !hasCheckAdvance {
		t.Fatalf("expected zero-width guard opcodes, setCharPos=%v checkAdvance=%v", hasSetCharPos, hasCheckAdvance)
	}
}

func TestCompileBoundedRepeatUnrolls(t *testing.T) {
	p := mustCompile(t, `a{3,5}`, 0)
	count := 0
	for _, b := range p.Body {
		if Op(b) == OpChar {
			count++
		}
	}
	if count != 5 {
		t.Fatalf("expected 5 unrolled OpChar instructions for a{3,5}, got %d", count)
	}
}

func TestCompileNamedGroupAppendsNameTable(t *testing.T) {
	p := mustCompile(t, `(?<year>\d{4})`, 0)
	if !p.Flags.HasNamedGroups() {
		t.Fatal("expected NAMED_GROUPS to be set")
	}
	blob := p.Bytes()
	if len(blob) <= headerSize+len(p.Body) {
		t.Fatal("expected a trailing name table after the body")
	}
}

func TestCompileTooManyCapturesRejected(t *testing.T) {
	pattern := ""
	for i := 0; i < 300; i++ {
		pattern += "(a)"
	}
	_, err := CompilePattern(pattern, 0)
	if err == nil {
		t.Fatal("expected an error for more than 255 capture groups")
	}
}

func TestCompileLookbehindEmitsPrev(t *testing.T) {
	p := mustCompile(t, `(?<=foo)bar`, 0)
	found := false
	for _, b := range p.Body {
		if Op(b) == OpPrev {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected Prev instructions for lookbehind body, body=% x", p.Body)
	}
}

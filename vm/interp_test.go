package vm

import (
	"strings"
	"testing"

	"github.com/coregx/jsregex/bytecode"
	"github.com/coregx/jsregex/reflags"
)

func mustProgram(t *testing.T, pattern string, flags reflags.Flags) *bytecode.Program {
	t.Helper()
	prog, err := bytecode.CompilePattern(pattern, flags)
	if err != nil {
		t.Fatalf("CompilePattern(%q): %v", pattern, err)
	}
	return prog
}

func find(t *testing.T, pattern, input string, flags reflags.Flags) (bool, []int) {
	t.Helper()
	prog := mustProgram(t, pattern, flags)
	th := NewThread(prog)
	outcome := th.Exec(prog, UTF8Haystack(input), 0, Options{})
	if outcome != Match {
		return false, nil
	}
	return true, append([]int(nil), th.Captures...)
}

func TestDigitsRun(t *testing.T) {
	ok, caps := find(t, `\d+`, "abc123def", 0)
	if !ok {
		t.Fatal("expected match")
	}
	if caps[0] != 3 || caps[1] != 6 {
		t.Fatalf("got span [%d,%d), want [3,6)", caps[0], caps[1])
	}
}

func TestTwoCaptureGroups(t *testing.T) {
	ok, caps := find(t, `(a)(b)`, "ab", 0)
	if !ok {
		t.Fatal("expected match")
	}
	want := []int{0, 2, 0, 1, 1, 2}
	for i, w := range want {
		if caps[i] != w {
			t.Fatalf("caps[%d] = %d, want %d (full: %v)", i, caps[i], w, caps)
		}
	}
}

func TestAlternationLeftmost(t *testing.T) {
	ok, caps := find(t, `cat|dog`, "the lazy dog", 0)
	if !ok {
		t.Fatal("expected match")
	}
	if caps[0] != 9 || caps[1] != 12 {
		t.Fatalf("got span [%d,%d), want [9,12)", caps[0], caps[1])
	}
}

func TestLookaheadKeepsMatchOnSuccess(t *testing.T) {
	ok, caps := find(t, `foo(?=bar)`, "foobar foobaz", 0)
	if !ok {
		t.Fatal("expected match")
	}
	if caps[0] != 0 || caps[1] != 3 {
		t.Fatalf("got span [%d,%d), want [0,3)", caps[0], caps[1])
	}
}

func TestLookaheadRejectsOnFailure(t *testing.T) {
	ok, _ := find(t, `foo(?=bar)`, "foobaz", 0)
	if ok {
		t.Fatal("expected no match")
	}
}

func TestBackReferenceRepeatedWord(t *testing.T) {
	ok, caps := find(t, `(\w+)\s+\1`, "hello hello", 0)
	if !ok {
		t.Fatal("expected match")
	}
	if caps[0] != 0 || caps[1] != 11 {
		t.Fatalf("got span [%d,%d), want [0,11)", caps[0], caps[1])
	}

	ok, _ = find(t, `(\w+)\s+\1`, "hello world", 0)
	if ok {
		t.Fatal("expected no match")
	}
}

func TestGreedyOptionalChainBacktracks(t *testing.T) {
	ok, caps := find(t, `a?a?a?a?a?aaaaa`, "aaaaa", 0)
	if !ok {
		t.Fatal("expected match")
	}
	if caps[0] != 0 || caps[1] != 5 {
		t.Fatalf("got span [%d,%d), want [0,5)", caps[0], caps[1])
	}
}

func TestStickyInvariant(t *testing.T) {
	prog := mustProgram(t, `foo`, reflags.STICKY)
	th := NewThread(prog)
	hay := UTF8Haystack("xxfoo")
	if outcome := th.Exec(prog, hay, 0, Options{}); outcome == Match {
		t.Fatal("sticky match should not find an offset match")
	}
	th2 := NewThread(prog)
	if outcome := th2.Exec(prog, hay, 2, Options{}); outcome != Match {
		t.Fatal("sticky match at the exact anchor should succeed")
	}
}

func TestCaseInsensitiveLiteral(t *testing.T) {
	ok, caps := find(t, `HELLO`, "say hello now", reflags.IGNORE_CASE)
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	if caps[0] != 4 || caps[1] != 9 {
		t.Fatalf("got span [%d,%d), want [4,9)", caps[0], caps[1])
	}
}

func TestZeroWidthStarTerminates(t *testing.T) {
	prog := mustProgram(t, `(a*)*`, 0)
	th := NewThread(prog)
	outcome := th.Exec(prog, UTF8Haystack("b"), 0, Options{})
	if outcome != Match {
		t.Fatalf("expected a zero-width match, got %v", outcome)
	}
	if th.Captures[0] != 0 || th.Captures[1] != 0 {
		t.Fatalf("expected empty match at 0, got [%d,%d)", th.Captures[0], th.Captures[1])
	}
}

func TestNamedGroupCaptures(t *testing.T) {
	prog := mustProgram(t, `(?<year>\d{4})-(?<month>\d{2})`, 0)
	th := NewThread(prog)
	outcome := th.Exec(prog, UTF8Haystack("born 2024-07 today"), 0, Options{})
	if outcome != Match {
		t.Fatalf("expected match, got %v", outcome)
	}
	if th.Captures[2] != 5 || th.Captures[3] != 9 {
		t.Fatalf("year span = [%d,%d), want [5,9)", th.Captures[2], th.Captures[3])
	}
	if th.Captures[4] != 10 || th.Captures[5] != 12 {
		t.Fatalf("month span = [%d,%d), want [10,12)", th.Captures[4], th.Captures[5])
	}
}

func TestFindAllAdvancesPastZeroWidthMatch(t *testing.T) {
	prog := mustProgram(t, `a*`, 0)
	s := NewSearcher(prog)
	hay := UTF8Haystack("baab")
	var spans [][2]int
	s.FindAll(hay, 0, Options{}, func(caps []int) bool {
		spans = append(spans, [2]int{caps[0], caps[1]})
		return true
	})
	if len(spans) == 0 {
		t.Fatal("expected at least one match")
	}
	for _, sp := range spans {
		if sp[1] < sp[0] {
			t.Fatalf("invalid span %v", sp)
		}
	}
}

func TestTimeoutOutcome(t *testing.T) {
	prog := mustProgram(t, `(a*)*b`, 0)
	th := NewThread(prog)
	polls := 0
	outcome := th.Exec(prog, UTF8Haystack("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaac"), 0, Options{
		StepBudget: 8,
		Poll: func() bool {
			polls++
			return polls > 2
		},
	})
	if outcome != Timeout {
		t.Fatalf("expected Timeout, got %v", outcome)
	}
}

// TestLongHaystackDoesNotExhaustDepth locks in the explicit backtrack-stack
// design: an unbounded quantifier and the mandatory unanchored "retry at
// every start offset" search prologue each compile to a single repeated
// choice point, so a recursive dispatch loop grows the Go call stack by one
// frame per haystack position/iteration and trips MaxDepth on ordinary long
// input with no backtracking at all. These haystacks are sized comfortably
// past defaultMaxDepth (1<<20) to prove that no longer happens.
func TestLongHaystackDoesNotExhaustDepth(t *testing.T) {
	const n = 1<<20 + 4096

	t.Run("unbounded quantifier", func(t *testing.T) {
		hay := strings.Repeat("a", n)
		ok, caps := find(t, `a+`, hay, 0)
		if !ok {
			t.Fatal("expected match")
		}
		if caps[0] != 0 || caps[1] != n {
			t.Fatalf("got span [%d,%d), want [0,%d)", caps[0], caps[1], n)
		}
	})

	t.Run("digit run past a long prefix", func(t *testing.T) {
		hay := strings.Repeat("x", n) + "42" + strings.Repeat("x", 10)
		ok, caps := find(t, `\d+`, hay, 0)
		if !ok {
			t.Fatal("expected match")
		}
		if caps[0] != n || caps[1] != n+2 {
			t.Fatalf("got span [%d,%d), want [%d,%d)", caps[0], caps[1], n, n+2)
		}
	})

	t.Run("unanchored literal past a long prefix", func(t *testing.T) {
		hay := strings.Repeat("x", n) + "needle"
		ok, caps := find(t, `needle`, hay, 0)
		if !ok {
			t.Fatal("expected match")
		}
		want := n + len("needle")
		if caps[0] != n || caps[1] != want {
			t.Fatalf("got span [%d,%d), want [%d,%d)", caps[0], caps[1], n, want)
		}
	})
}

package vm

import "github.com/coregx/jsregex/bytecode"

// Thread owns the mutable state of one match attempt: the capture array,
// the transient register file used by quantifier lowering, and the
// interrupt/recursion bookkeeping. A compiled bytecode.Program is immutable
// and may be shared across goroutines (spec.md §5 "Thread safety"); each
// concurrent match must use its own Thread, exactly as the nfa package's
// BoundedBacktracker requires its own visited bit vector per search.
//
// Thread backtracks via the explicit stack spec.md §3/§4.6.3/§9 describes:
// SplitGotoFirst, SplitNextFirst, and the Loop* family push a choicePoint
// (see vm/interp.go) onto a plain Go slice local to the current run call
// instead of recursing — a greedy `a+` walking a multi-megabyte haystack
// pushes one choicePoint per repetition and discards them all on overall
// success, without ever growing the Go call stack. Only OpLookahead/
// OpNegativeLookahead recurse into a nested run call, because a lookaround
// is its own match scope whose success or failure must not touch the
// enclosing scope's backtrack stack; that recursion is bounded by how
// deeply lookarounds nest inside the pattern itself; since the depth
// counter is incremented and decremented around each such call, sibling
// (non-nested) lookaheads evaluated repeatedly while scanning a long
// haystack never accumulate depth either. depth/maxDepth (Thread.depth,
// Options.maxDepth) therefore bounds pattern-structural nesting, matching
// spec.md §7's "allocator refuses stack growth" MemoryError — not haystack
// length, which the backtrack-stack slice instead absorbs as ordinary heap
// growth. See DESIGN.md for the full tradeoff against the spec's hand-
// packed 16-byte frames (needed only in a language without a managed,
// growable stack to fall back on).
type Thread struct {
	prog *bytecode.Program
	hay  Haystack
	opts Options

	// Captures holds 2*CaptureCount haystack-encoding-element offsets;
	// -1 means unset. Slot 0/1 is the whole match.
	Captures []int
	// Registers holds RegisterCount transient values used by
	// SetI32/SetCharPos/Loop*.
	Registers []int

	steps   int
	depth   int
	aborted Outcome // NoMatch while running; set to Timeout/MemoryError to unwind
}

// NewThread allocates a Thread sized for prog. Threads are cheap to build
// and safe to pool (e.g. sync.Pool in the root façade) across unrelated
// matches against the same Program.
func NewThread(prog *bytecode.Program) *Thread {
	return &Thread{
		prog:      prog,
		Captures:  make([]int, 2*prog.CaptureCount),
		Registers: make([]int, prog.RegisterCount),
	}
}

// Reset clears Captures/Registers and rearms the interrupt counters for a
// fresh Exec call against hay.
func (t *Thread) Reset(hay Haystack, opts Options) {
	for i := range t.Captures {
		t.Captures[i] = -1
	}
	for i := range t.Registers {
		t.Registers[i] = 0
	}
	t.hay = hay
	t.opts = opts
	t.steps = opts.stepBudget()
	t.depth = 0
	t.aborted = NoMatch
}

// snapshot copies the current capture/register state so a failed choice
// branch can be rolled back before the alternative is tried.
type snapshot struct {
	captures  []int
	registers []int
}

func (t *Thread) snapshot() snapshot {
	return snapshot{
		captures:  append([]int(nil), t.Captures...),
		registers: append([]int(nil), t.Registers...),
	}
}

func (t *Thread) restore(s snapshot) {
	copy(t.Captures, s.captures)
	copy(t.Registers, s.registers)
}

// tick implements the "decrement an iteration counter; poll on zero" rule
// (spec.md §4.6.5). Returns false once the thread should unwind
// (Timeout already recorded into t.aborted).
func (t *Thread) tick() bool {
	if t.aborted != NoMatch {
		return false
	}
	t.steps--
	if t.steps <= 0 {
		if t.opts.Poll != nil && t.opts.Poll() {
			t.aborted = Timeout
			return false
		}
		t.steps = t.opts.stepBudget()
	}
	return true
}

package vm

import (
	"github.com/coregx/jsregex/bytecode"
)

// Prefilter reports where a required literal next occurs (see package
// prefilter). Find uses it only to return NoMatch without running Exec
// when no required literal remains at or after the start offset. A nil
// Prefilter means every search runs Exec, the bare spec.md behavior.
type Prefilter interface {
	Next(haystack []byte, from int) int
}

// Searcher drives repeated Exec calls against one compiled Program,
// implementing the iteration rules spec.md §6 assigns to the caller: a
// non-sticky caller advances past each match (by one haystack element when
// the match was zero-width, to guarantee forward progress) to find the
// next one; a sticky caller never advances past a failed attempt — lastIndex
// owns that.
//
// Grounded on coregx-coregex's regex.go: the same "one Thread per search,
// advance the start offset between matches" driver loop, generalized from a
// single byte-oriented Thompson search to the three haystack encodings and
// capture-array bookkeeping this bytecode interpreter owns.
type Searcher struct {
	prog   *bytecode.Program
	thread *Thread
	pf     Prefilter
}

type byteHaystack interface {
	Bytes() []byte
}

// NewSearcher builds a Searcher owning one Thread for prog. A Searcher is
// not safe for concurrent use; callers needing concurrency pool Searchers
// the same way they would pool Threads.
func NewSearcher(prog *bytecode.Program) *Searcher {
	return &Searcher{prog: prog, thread: NewThread(prog)}
}

// NewSearcherWithPrefilter is NewSearcher plus a Prefilter used to skip
// Exec entirely when no required literal remains in the haystack from the
// current start offset onward — sound because a Prefilter never produces
// false negatives (package prefilter's contract).
func NewSearcherWithPrefilter(prog *bytecode.Program, pf Prefilter) *Searcher {
	return &Searcher{prog: prog, thread: NewThread(prog), pf: pf}
}

// Find runs one match attempt starting at startIndex and returns the
// outcome plus a copy of the capture array (nil unless Outcome is Match).
func (s *Searcher) Find(hay Haystack, startIndex int, opts Options) (Outcome, []int) {
	if s.pf != nil {
		if bh, ok := hay.(byteHaystack); ok {
			if s.pf.Next(bh.Bytes(), startIndex) < 0 {
				return NoMatch, nil
			}
		}
	}
	outcome := s.thread.Exec(s.prog, hay, startIndex, opts)
	if outcome != Match {
		return outcome, nil
	}
	caps := append([]int(nil), s.thread.Captures...)
	return Match, caps
}

// FindAll calls fn for each non-overlapping match found by repeatedly
// advancing the start offset, stopping at the first non-Match outcome or
// when fn returns false. Matching never skips past startIndex without at
// least one attempt there, satisfying the spec's "sticky/global interplay"
// rule: only the caller chooses whether re-attempts happen at the same
// offset (sticky) or the engine's own internal search prologue is allowed
// to range ahead for the next opportunity (non-sticky, the default mode
// bytecode.Compile's search prologue already implements within one Exec).
func (s *Searcher) FindAll(hay Haystack, startIndex int, opts Options, fn func(caps []int) bool) Outcome {
	pos := startIndex
	for pos <= hay.Len() {
		outcome, caps := s.Find(hay, pos, opts)
		if outcome != Match {
			return outcome
		}
		if !fn(caps) {
			return Match
		}
		start, end := caps[0], caps[1]
		if end > start {
			pos = end
		} else {
			_, w := hay.At(end)
			if w == 0 {
				w = 1
			}
			pos = end + w
		}
	}
	return NoMatch
}

package vm

import (
	"encoding/binary"

	"github.com/coregx/jsregex/bytecode"
	"github.com/coregx/jsregex/internal/ucd"
)

func readI32(body []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(body[pos : pos+4]))
}

func readU16(body []byte, pos int) uint16 {
	return binary.LittleEndian.Uint16(body[pos : pos+2])
}

func readU32(body []byte, pos int) uint32 {
	return binary.LittleEndian.Uint32(body[pos : pos+4])
}

// Exec runs prog against hay starting at startIndex, the entry point
// spec.md §6.2 describes. Captures/Registers are reset first.
func (t *Thread) Exec(prog *bytecode.Program, hay Haystack, startIndex int, opts Options) Outcome {
	if prog != t.prog {
		panic("vm: Thread used with a different Program than it was created for")
	}
	t.Reset(hay, opts)
	if t.run(0, startIndex) {
		return Match
	}
	if t.aborted != NoMatch {
		return t.aborted
	}
	return NoMatch
}

// choicePoint is one entry of the explicit backtrack stack spec.md §3/§4.6.3
// describes: the (pc, pos) to resume at, and the capture/register state to
// restore first, tried only once everything pushed after it has failed. Held
// in an ordinary Go slice that grows on the heap as matching proceeds — not
// on the Go call stack — so its size tracks how many live backtracking
// choices the current attempt has open, not how far into the haystack it has
// scanned. A greedy `a+` run against a long haystack pushes one choicePoint
// per repetition and simply abandons all of them on overall success; it
// never recurses.
type choicePoint struct {
	pc, pos int
	snap    snapshot
}

// run attempts to execute prog.Body starting at pc with the haystack cursor
// at pos, returning true iff execution reaches a terminal success opcode
// (Match, LookaheadMatch, or NegativeLookaheadMatch — whichever terminates
// the current scope).
//
// Choice-introducing opcodes (SplitGotoFirst, SplitNextFirst, and the Loop*
// family) push a choicePoint onto a local backtrack stack and continue the
// same loop; failure pops the most recent choicePoint and resumes from it,
// restoring captures/registers first. Only OpLookahead/OpNegativeLookahead
// recurse into a nested run call, because a lookaround is a genuinely
// separate match scope (its own success/failure must not consume or leave
// behind entries on the enclosing scope's backtrack stack) — and that
// recursion is bounded by how deeply lookarounds nest in the pattern itself,
// not by haystack length. See Thread's doc comment for the rationale.
func (t *Thread) run(pc, pos int) bool {
	t.depth++
	defer func() { t.depth-- }()
	if t.depth > t.opts.maxDepth() {
		t.aborted = MemoryError
		return false
	}

	body := t.prog.Body
	unicodeMode := t.prog.Flags.UnicodeMode()

	var stack []choicePoint
	fail := func() bool {
		if len(stack) == 0 {
			return false
		}
		cp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.restore(cp.snap)
		pc, pos = cp.pc, cp.pos
		return true
	}

	for {
		if !t.tick() {
			return false
		}
		op := bytecode.Op(body[pc])

		switch op {
		case bytecode.OpChar, bytecode.OpCharI:
			want := rune(readU16(body, pc+1))
			r, w := t.hay.At(pos)
			if w == 0 || !charEq(r, want, op == bytecode.OpCharI, unicodeMode) {
				if fail() {
					continue
				}
				return false
			}
			pc += 3
			pos += w

		case bytecode.OpChar32, bytecode.OpChar32I:
			want := rune(readU32(body, pc+1))
			r, w := t.hay.At(pos)
			if w == 0 || !charEq(r, want, op == bytecode.OpChar32I, unicodeMode) {
				if fail() {
					continue
				}
				return false
			}
			pc += 5
			pos += w

		case bytecode.OpDot:
			r, w := t.hay.At(pos)
			if w == 0 || ucd.IsLineTerminator(r) {
				if fail() {
					continue
				}
				return false
			}
			pc++
			pos += w

		case bytecode.OpAny:
			_, w := t.hay.At(pos)
			if w == 0 {
				if fail() {
					continue
				}
				return false
			}
			pc++
			pos += w

		case bytecode.OpSpace, bytecode.OpNotSpace:
			r, w := t.hay.At(pos)
			if w == 0 {
				if fail() {
					continue
				}
				return false
			}
			if ucd.IsSpace(r) != (op == bytecode.OpSpace) {
				if fail() {
					continue
				}
				return false
			}
			pc++
			pos += w

		case bytecode.OpLineStart:
			if pos != 0 {
				if fail() {
					continue
				}
				return false
			}
			pc++

		case bytecode.OpLineStartM:
			if pos != 0 {
				if r, _ := t.hay.Before(pos); !ucd.IsLineTerminator(r) {
					if fail() {
						continue
					}
					return false
				}
			}
			pc++

		case bytecode.OpLineEnd:
			if pos != t.hay.Len() {
				if fail() {
					continue
				}
				return false
			}
			pc++

		case bytecode.OpLineEndM:
			if pos != t.hay.Len() {
				if r, _ := t.hay.At(pos); !ucd.IsLineTerminator(r) {
					if fail() {
						continue
					}
					return false
				}
			}
			pc++

		case bytecode.OpWordBoundary, bytecode.OpNotWordBoundary,
			bytecode.OpWordBoundaryI, bytecode.OpNotWordBoundaryI:
			wIC := op == bytecode.OpWordBoundaryI || op == bytecode.OpNotWordBoundaryI
			before, _ := t.hay.Before(pos)
			after, _ := t.hay.At(pos)
			isBoundary := isWordAt(before, pos != 0, wIC, unicodeMode) != isWordAt(after, pos != t.hay.Len(), wIC, unicodeMode)
			want := op == bytecode.OpWordBoundary || op == bytecode.OpWordBoundaryI
			if isBoundary != want {
				if fail() {
					continue
				}
				return false
			}
			pc++

		case bytecode.OpGoto:
			off := int(readI32(body, pc+1))
			pc = pc + 5 + off

		case bytecode.OpSplitGotoFirst:
			off := int(readI32(body, pc+1))
			target := pc + 5 + off
			fallthroughPc := pc + 5
			stack = append(stack, choicePoint{pc: fallthroughPc, pos: pos, snap: t.snapshot()})
			pc = target

		case bytecode.OpSplitNextFirst:
			off := int(readI32(body, pc+1))
			target := pc + 5 + off
			fallthroughPc := pc + 5
			stack = append(stack, choicePoint{pc: target, pos: pos, snap: t.snapshot()})
			pc = fallthroughPc

		case bytecode.OpMatch, bytecode.OpLookaheadMatch, bytecode.OpNegativeLookaheadMatch:
			return true

		case bytecode.OpSaveStart, bytecode.OpSaveEnd:
			idx := int(body[pc+1])
			slot := 2 * idx
			if op == bytecode.OpSaveEnd {
				slot++
			}
			if slot < len(t.Captures) {
				t.Captures[slot] = pos
			}
			pc += 2

		case bytecode.OpSaveReset:
			lo, hi := int(body[pc+1]), int(body[pc+2])
			for g := lo; g <= hi; g++ {
				if 2*g+1 < len(t.Captures) {
					t.Captures[2*g] = -1
					t.Captures[2*g+1] = -1
				}
			}
			pc += 3

		case bytecode.OpSetI32:
			reg := int(body[pc+1])
			v := int(int32(readU32(body, pc+2)))
			if reg < len(t.Registers) {
				t.Registers[reg] = v
			}
			pc += 6

		case bytecode.OpSetCharPos:
			reg := int(body[pc+1])
			if reg < len(t.Registers) {
				t.Registers[reg] = pos
			}
			pc += 2

		case bytecode.OpCheckAdvance:
			reg := int(body[pc+1])
			if reg < len(t.Registers) && t.Registers[reg] == pos {
				if fail() {
					continue
				}
				return false
			}
			pc += 2

		case bytecode.OpLoop:
			reg := int(body[pc+1])
			off := int(readI32(body, pc+2))
			if reg < len(t.Registers) {
				t.Registers[reg]--
				if t.Registers[reg] > 0 {
					pc = pc + 6 + off
					continue
				}
			}
			pc += 6

		case bytecode.OpLoopSplitGotoFirst, bytecode.OpLoopSplitNextFirst,
			bytecode.OpLoopCheckAdvSplitGotoFirst, bytecode.OpLoopCheckAdvSplitNextFirst:
			reg := int(body[pc+1])
			off := int(readI32(body, pc+2))
			checkAdvance := op == bytecode.OpLoopCheckAdvSplitGotoFirst || op == bytecode.OpLoopCheckAdvSplitNextFirst
			gotoFirst := op == bytecode.OpLoopSplitGotoFirst || op == bytecode.OpLoopCheckAdvSplitGotoFirst
			fallthroughPc := pc + 10

			if reg < len(t.Registers) {
				t.Registers[reg]--
			}
			if reg >= len(t.Registers) || t.Registers[reg] <= 0 || (checkAdvance && t.Registers[reg] == pos) {
				pc = fallthroughPc
				continue
			}
			target := pc + 10 + off
			if gotoFirst {
				stack = append(stack, choicePoint{pc: fallthroughPc, pos: pos, snap: t.snapshot()})
				pc = target
			} else {
				stack = append(stack, choicePoint{pc: target, pos: pos, snap: t.snapshot()})
				pc = fallthroughPc
			}

		case bytecode.OpBackReference, bytecode.OpBackReferenceI:
			ok, newPos := t.matchBackRef(body, pc, pos, op == bytecode.OpBackReferenceI, false)
			if !ok {
				if fail() {
					continue
				}
				return false
			}
			pos = newPos
			pc += 2 + int(body[pc+1])

		case bytecode.OpBackwardBackReference, bytecode.OpBackwardBackReferenceI:
			ok, newPos := t.matchBackRef(body, pc, pos, op == bytecode.OpBackwardBackReferenceI, true)
			if !ok {
				if fail() {
					continue
				}
				return false
			}
			pos = newPos
			pc += 2 + int(body[pc+1])

		case bytecode.OpRange, bytecode.OpRangeI:
			r, w := t.hay.At(pos)
			if w == 0 || !rangeContains16(body, pc, r, op == bytecode.OpRangeI, unicodeMode) {
				if fail() {
					continue
				}
				return false
			}
			pc = rangeEnd16(body, pc)
			pos += w

		case bytecode.OpRange32, bytecode.OpRange32I:
			r, w := t.hay.At(pos)
			if w == 0 || !rangeContains32(body, pc, r, op == bytecode.OpRange32I, unicodeMode) {
				if fail() {
					continue
				}
				return false
			}
			pc = rangeEnd32(body, pc)
			pos += w

		case bytecode.OpLookahead, bytecode.OpNegativeLookahead:
			off := int(readI32(body, pc+1))
			lend := pc + 5 + off
			ok := t.run(pc+5, pos)
			if t.aborted != NoMatch {
				return false
			}
			if op == bytecode.OpLookahead {
				if !ok {
					if fail() {
						continue
					}
					return false
				}
			} else if ok {
				if fail() {
					continue
				}
				return false
			}
			pc = lend

		case bytecode.OpPrev:
			_, w := t.hay.Before(pos)
			if w == 0 {
				if fail() {
					continue
				}
				return false
			}
			pos -= w
			pc++

		default:
			if fail() {
				continue
			}
			return false
		}
	}
}

func isWordAt(r rune, exists bool, ignoreCase, unicodeMode bool) bool {
	if !exists {
		return false
	}
	return ucd.IsWordCodePoint(r, ignoreCase, unicodeMode)
}

func charEq(got, want rune, ignoreCase, unicodeMode bool) bool {
	if got == want {
		return true
	}
	if !ignoreCase {
		return false
	}
	return ucd.Canonicalize(got, unicodeMode) == ucd.Canonicalize(want, unicodeMode)
}

func rangeEnd16(body []byte, pc int) int {
	n := int(readU16(body, pc+1))
	return pc + 3 + n*4
}

func rangeEnd32(body []byte, pc int) int {
	n := int(readU16(body, pc+1))
	return pc + 3 + n*8
}

func rangeContains16(body []byte, pc int, r rune, ignoreCase, unicodeMode bool) bool {
	n := int(readU16(body, pc+1))
	base := pc + 3
	folded := r
	if ignoreCase {
		folded = ucd.Canonicalize(r, unicodeMode)
	}
	for i := 0; i < n; i++ {
		lo := rune(readU16(body, base+i*4))
		hi := rune(readU16(body, base+i*4+2))
		if inRangeFold(folded, r, lo, hi, ignoreCase, unicodeMode) {
			return true
		}
	}
	return false
}

func rangeContains32(body []byte, pc int, r rune, ignoreCase, unicodeMode bool) bool {
	n := int(readU16(body, pc+1))
	base := pc + 3
	folded := r
	if ignoreCase {
		folded = ucd.Canonicalize(r, unicodeMode)
	}
	for i := 0; i < n; i++ {
		lo := rune(readU32(body, base+i*8))
		hi := rune(readU32(body, base+i*8+4))
		if inRangeFold(folded, r, lo, hi, ignoreCase, unicodeMode) {
			return true
		}
	}
	return false
}

// inRangeFold reports whether r (or its canonicalized form, for
// case-insensitive ranges) falls in [lo, hi]. The parser already folds
// class ranges into their canonical form at compile time (syntax/classes.go
// IgnoreCase handling), so comparing the folded haystack rune directly
// against the stored bounds is correct without re-folding the bounds here.
func inRangeFold(folded, raw, lo, hi rune, ignoreCase, unicodeMode bool) bool {
	if !ignoreCase {
		return raw >= lo && raw <= hi
	}
	return folded >= lo && folded <= hi
}

// matchBackRef implements BackReference[I]/BackwardBackReference[I]
// (spec.md §4.6.4): try each listed capture index in declaration order,
// succeed on the first one that is set, comparing the haystack substring
// starting at pos against the captured span. If none of the listed
// captures are set, succeed as a zero-width assertion (spec.md's
// duplicate-name-scope dispatch, §9 "ordered duplicate-named groups").
func (t *Thread) matchBackRef(body []byte, pc, pos int, ignoreCase, backward bool) (bool, int) {
	count := int(body[pc+1])
	anySet := false
	for i := 0; i < count; i++ {
		idx := int(body[pc+2+i])
		startSlot, endSlot := 2*idx, 2*idx+1
		if startSlot >= len(t.Captures) || t.Captures[startSlot] < 0 || t.Captures[endSlot] < 0 {
			continue
		}
		anySet = true
		start, end := t.Captures[startSlot], t.Captures[endSlot]
		if ok, newPos := t.compareSpan(pos, start, end, ignoreCase, backward); ok {
			return true, newPos
		}
	}
	if !anySet {
		return true, pos
	}
	return false, pos
}

// compareSpan compares the haystack substring beginning at pos (or ending
// at pos, in backward mode) against the captured [start,end) span,
// code-point by code-point.
func (t *Thread) compareSpan(pos, start, end int, ignoreCase, backward bool) (bool, int) {
	unicodeMode := t.prog.Flags.UnicodeMode()
	if !backward {
		cur := pos
		for p := start; p < end; {
			want, ww := t.hay.At(p)
			if ww == 0 {
				return false, pos
			}
			got, gw := t.hay.At(cur)
			if gw == 0 || !charEq(got, want, ignoreCase, unicodeMode) {
				return false, pos
			}
			p += ww
			cur += gw
		}
		return true, cur
	}
	cur := pos
	for p := end; p > start; {
		want, ww := t.hay.Before(p)
		if ww == 0 {
			return false, pos
		}
		got, gw := t.hay.Before(cur)
		if gw == 0 || !charEq(got, want, ignoreCase, unicodeMode) {
			return false, pos
		}
		p -= ww
		cur -= gw
	}
	return true, cur
}

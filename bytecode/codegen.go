package bytecode

import (
	"math"

	"github.com/coregx/jsregex/reflags"
	"github.com/coregx/jsregex/syntax"
)

// codeGen lowers one syntax.Pattern into a bytecode body. Grounded on
// original_source's compiler::codegen::CodeGenerator: a single builder plus
// the flag bits needed to pick opcode variants (IGNORE_CASE selects the "I"
// opcodes, DOT_ALL/MULTILINE select dot and anchor variants).
type codeGen struct {
	b       Builder
	flags   reflags.Flags
	nextReg int
}

// Compile lowers pat into a finished Program. Mirrors
// CodeGenerator::compile/into_bytecode: a non-sticky pattern gets a
// self-retrying search prologue, group 0 is opened/closed around the body,
// then the header is assembled from the final capture/register counts.
func Compile(pat *syntax.Pattern) (*Program, error) {
	if pat.CaptureCount > 255 {
		return nil, &CompileError{Kind: ErrTooManyCaptures, Count: pat.CaptureCount}
	}

	cg := &codeGen{flags: pat.Flags}

	if !pat.Flags.Sticky() {
		// SplitGotoFirst try_pattern; Any; Goto split_start — retries the
		// whole pattern at the next haystack position on failure. This
		// replaces an outer "find the start" loop in the searcher.
		splitStart := cg.b.Pc()
		splitPc := cg.b.EmitGoto(OpSplitGotoFirst)
		cg.b.EmitOp(OpAny)
		gotoPc := cg.b.EmitGoto(OpGoto)
		cg.b.PatchGoto(gotoPc, splitStart)
		tryPattern := cg.b.Pc()
		cg.b.PatchGoto(splitPc, tryPattern)
	}

	cg.b.EmitOpU8(OpSaveStart, 0)
	if err := cg.compileNode(pat.Root, false); err != nil {
		return nil, err
	}
	cg.b.EmitOpU8(OpSaveEnd, 0)
	cg.b.EmitOp(OpMatch)

	if cg.nextReg > 255 {
		return nil, &CompileError{Kind: ErrTooManyRegisters, Count: cg.nextReg}
	}

	return &Program{
		Flags:         pat.Flags,
		CaptureCount:  pat.CaptureCount,
		RegisterCount: cg.nextReg,
		Body:          cg.b.Bytes(),
		Names:         pat.Names,
	}, nil
}

func (cg *codeGen) allocReg() int {
	r := cg.nextReg
	cg.nextReg++
	return r
}

// compileNode dispatches by Op. backward selects lookbehind codegen mode:
// consuming atoms emit Prev before and after themselves so cptr moves
// leftward, and Concat visits its children in reverse order (spec.md
// §4.5.5).
func (cg *codeGen) compileNode(n *syntax.Node, backward bool) error {
	switch n.Op {
	case syntax.OpEmpty:
		return nil
	case syntax.OpLiteral:
		return cg.compileLiteral(n.Rune, backward)
	case syntax.OpClass:
		return cg.compileClass(n.Class, backward)
	case syntax.OpAnchor:
		cg.compileAnchor(n.Anchor)
		return nil
	case syntax.OpCapture:
		return cg.compileCapture(n, backward)
	case syntax.OpGroup:
		return cg.compileNode(n.Sub[0], backward)
	case syntax.OpAlt:
		return cg.compileAlt(n.Sub, backward)
	case syntax.OpConcat:
		return cg.compileConcat(n.Sub, backward)
	case syntax.OpRepeat:
		return cg.compileRepeat(n, backward)
	case syntax.OpBackRef:
		cg.compileBackRef(n, backward)
		return nil
	case syntax.OpLookAround:
		return cg.compileLookAround(n)
	case syntax.OpInlineFlags:
		return cg.compileInlineFlags(n, backward)
	default:
		return nil
	}
}

func (cg *codeGen) compileConcat(subs []*syntax.Node, backward bool) error {
	if backward {
		for i := len(subs) - 1; i >= 0; i-- {
			if err := cg.compileNode(subs[i], true); err != nil {
				return err
			}
		}
		return nil
	}
	for _, sub := range subs {
		if err := cg.compileNode(sub, false); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// Literals and classes (spec.md §4.5.1)
// ----------------------------------------------------------------------

func (cg *codeGen) compileLiteral(runes []rune, backward bool) error {
	order := runes
	if backward {
		order = make([]rune, len(runes))
		for i, r := range runes {
			order[len(runes)-1-i] = r
		}
	}
	ic := cg.flags.IgnoreCase()
	for _, r := range order {
		cg.emitPrev(backward, true)
		switch {
		case r > 0xFFFF && ic:
			cg.b.EmitOpU32(OpChar32I, uint32(r))
		case r > 0xFFFF:
			cg.b.EmitOpU32(OpChar32, uint32(r))
		case ic:
			cg.b.EmitOpU16(OpCharI, uint16(r))
		default:
			cg.b.EmitOpU16(OpChar, uint16(r))
		}
		cg.emitPrev(backward, false)
	}
	return nil
}

// emitPrev emits a Prev instruction around a single consuming opcode when
// compiling in backward (lookbehind) mode; before is true for the
// pre-instruction Prev, false for the post-instruction one.
func (cg *codeGen) emitPrev(backward, before bool) {
	if backward && before {
		cg.b.EmitOp(OpPrev)
	} else if backward && !before {
		cg.b.EmitOp(OpPrev)
	}
}

// dotOrAny reports whether cn is the hand-built "." class: the parser
// reserves ClassNode.Negated for exactly this node (every other class the
// parser produces is eagerly realized into concrete, non-negated ranges),
// so Negated alone identifies it. Ranges holds the excluded line
// terminators; empty means DOT_ALL ("any code point").
func dotOrAny(cn *syntax.ClassNode) (isDot bool, isAny bool) {
	if !cn.Negated {
		return false, false
	}
	if len(cn.Ranges) == 0 {
		return false, true
	}
	return true, false
}

func (cg *codeGen) compileClass(cn *syntax.ClassNode, backward bool) error {
	if len(cn.Strings) > 0 {
		return cg.compileClassWithStrings(cn, backward)
	}
	cg.emitPrev(backward, true)
	defer cg.emitPrev(backward, false)

	if isDot, isAny := dotOrAny(cn); isDot {
		cg.b.EmitOp(OpDot)
		return nil
	} else if isAny {
		cg.b.EmitOp(OpAny)
		return nil
	}

	cg.emitRanges(cn.Ranges)
	return nil
}

// compileClassWithStrings lowers a v-mode class-set with multi-code-point
// string members: a SplitNextFirst/Goto chain tries each string literal in
// descending length order (equal lengths keep their declaration order),
// falling back to the bare code-point ranges as the final branch (spec.md
// §4.5.1).
func (cg *codeGen) compileClassWithStrings(cn *syntax.ClassNode, backward bool) error {
	strs := append([][]rune(nil), cn.Strings...)
	for i := 1; i < len(strs); i++ {
		for j := i; j > 0 && len(strs[j]) > len(strs[j-1]); j-- {
			strs[j], strs[j-1] = strs[j-1], strs[j]
		}
	}

	var gotoPatches []int
	for _, s := range strs {
		splitPc := cg.b.EmitGoto(OpSplitNextFirst)
		if err := cg.compileLiteral(s, backward); err != nil {
			return err
		}
		gotoPc := cg.b.EmitGoto(OpGoto)
		gotoPatches = append(gotoPatches, gotoPc)
		next := cg.b.Pc()
		cg.b.PatchGoto(splitPc, next)
	}
	cg.emitPrev(backward, true)
	cg.emitRanges(cn.Ranges)
	cg.emitPrev(backward, false)
	end := cg.b.Pc()
	for _, gp := range gotoPatches {
		cg.b.PatchGoto(gp, end)
	}
	return nil
}

func (cg *codeGen) emitRanges(ranges []syntax.RuneRange) {
	if len(ranges) == 0 {
		// An empty, non-negated class matches nothing; encode as a
		// Range with an interval count of zero so the VM's binary
		// search simply always fails.
		op := OpRange
		if cg.flags.IgnoreCase() {
			op = OpRangeI
		}
		cg.b.EmitOp(op)
		cg.b.PushU16(0)
		return
	}
	all16 := true
	for _, r := range ranges {
		if r.Hi-1 > 0xFFFF {
			all16 = false
			break
		}
	}
	ic := cg.flags.IgnoreCase()
	if all16 {
		op := OpRange
		if ic {
			op = OpRangeI
		}
		cg.b.EmitOp(op)
		cg.b.PushU16(uint16(len(ranges)))
		for _, r := range ranges {
			cg.b.PushU16(uint16(r.Lo))
			cg.b.PushU16(uint16(r.Hi - 1))
		}
		return
	}
	op := OpRange32
	if ic {
		op = OpRange32I
	}
	cg.b.EmitOp(op)
	cg.b.PushU16(uint16(len(ranges)))
	for _, r := range ranges {
		cg.b.PushU32(uint32(r.Lo))
		cg.b.PushU32(uint32(r.Hi - 1))
	}
}

// ----------------------------------------------------------------------
// Anchors (spec.md §4.6.4)
// ----------------------------------------------------------------------

func (cg *codeGen) compileAnchor(kind syntax.AnchorKind) {
	m := cg.flags.Multiline()
	switch kind {
	case syntax.AnchorLineStart:
		if m {
			cg.b.EmitOp(OpLineStartM)
		} else {
			cg.b.EmitOp(OpLineStart)
		}
	case syntax.AnchorLineEnd:
		if m {
			cg.b.EmitOp(OpLineEndM)
		} else {
			cg.b.EmitOp(OpLineEnd)
		}
	case syntax.AnchorWordBoundary:
		if cg.flags.IgnoreCase() {
			cg.b.EmitOp(OpWordBoundaryI)
		} else {
			cg.b.EmitOp(OpWordBoundary)
		}
	case syntax.AnchorNotWordBoundary:
		if cg.flags.IgnoreCase() {
			cg.b.EmitOp(OpNotWordBoundaryI)
		} else {
			cg.b.EmitOp(OpNotWordBoundary)
		}
	}
}

// ----------------------------------------------------------------------
// Alternation (spec.md §4.5.2)
// ----------------------------------------------------------------------

func (cg *codeGen) compileAlt(alts []*syntax.Node, backward bool) error {
	if len(alts) == 1 {
		return cg.compileNode(alts[0], backward)
	}

	var gotoPatches []int
	for i, alt := range alts {
		isLast := i == len(alts)-1
		if !isLast {
			splitPc := cg.b.EmitGoto(OpSplitNextFirst)
			if err := cg.compileNode(alt, backward); err != nil {
				return err
			}
			gotoPc := cg.b.EmitGoto(OpGoto)
			gotoPatches = append(gotoPatches, gotoPc)
			next := cg.b.Pc()
			cg.b.PatchGoto(splitPc, next)
		} else {
			if err := cg.compileNode(alt, backward); err != nil {
				return err
			}
		}
	}
	end := cg.b.Pc()
	for _, gp := range gotoPatches {
		cg.b.PatchGoto(gp, end)
	}
	return nil
}

// ----------------------------------------------------------------------
// Capture groups (spec.md §4.5.4)
// ----------------------------------------------------------------------

func (cg *codeGen) compileCapture(n *syntax.Node, backward bool) error {
	idx := uint8(n.Cap)
	cg.b.EmitOpU8(OpSaveStart, idx)
	if err := cg.compileNode(n.Sub[0], backward); err != nil {
		return err
	}
	cg.b.EmitOpU8(OpSaveEnd, idx)
	return nil
}

// ----------------------------------------------------------------------
// Back references (spec.md §4.5.6)
// ----------------------------------------------------------------------

func (cg *codeGen) compileBackRef(n *syntax.Node, backward bool) {
	ic := cg.flags.IgnoreCase()
	var op Op
	switch {
	case backward && ic:
		op = OpBackwardBackReferenceI
	case backward:
		op = OpBackwardBackReference
	case ic:
		op = OpBackReferenceI
	default:
		op = OpBackReference
	}
	cg.b.EmitOp(op)
	cg.b.PushByte(uint8(len(n.Refs)))
	for _, ref := range n.Refs {
		cg.b.PushByte(uint8(ref))
	}
}

// ----------------------------------------------------------------------
// Lookaround (spec.md §4.5.5)
// ----------------------------------------------------------------------

func (cg *codeGen) compileLookAround(n *syntax.Node) error {
	op := OpLookahead
	matchOp := OpLookaheadMatch
	if n.Negated {
		op = OpNegativeLookahead
		matchOp = OpNegativeLookaheadMatch
	}
	lendPc := cg.b.EmitGoto(op)
	if err := cg.compileNode(n.Sub[0], n.Behind); err != nil {
		return err
	}
	cg.b.EmitOp(matchOp)
	end := cg.b.Pc()
	cg.b.PatchGoto(lendPc, end)
	return nil
}

// ----------------------------------------------------------------------
// Inline flag groups (spec.md §3 "SUPPLEMENTED FEATURES")
// ----------------------------------------------------------------------

func (cg *codeGen) compileInlineFlags(n *syntax.Node, backward bool) error {
	saved := cg.flags
	cg.flags = (cg.flags &^ n.FlagsOff) | n.FlagsOn
	err := cg.compileNode(n.Sub[0], backward)
	cg.flags = saved
	return err
}

// ----------------------------------------------------------------------
// Repetition (spec.md §4.5.3)
// ----------------------------------------------------------------------

// alwaysConsumes reports whether n is guaranteed to advance cptr by at
// least one unit on every path through it, used to decide whether a
// quantifier wrapping n needs the SetCharPos/CheckAdvance zero-width guard.
func alwaysConsumes(n *syntax.Node) bool {
	switch n.Op {
	case syntax.OpLiteral:
		return len(n.Rune) > 0
	case syntax.OpClass:
		return true
	case syntax.OpCapture, syntax.OpGroup, syntax.OpInlineFlags:
		return alwaysConsumes(n.Sub[0])
	case syntax.OpConcat:
		for _, sub := range n.Sub {
			if alwaysConsumes(sub) {
				return true
			}
		}
		return false
	case syntax.OpAlt:
		for _, sub := range n.Sub {
			if !alwaysConsumes(sub) {
				return false
			}
		}
		return len(n.Sub) > 0
	case syntax.OpRepeat:
		return n.Min >= 1 && alwaysConsumes(n.Sub[0])
	default:
		// Anchors, backrefs, and lookaround may consume zero units.
		return false
	}
}

// capturesIn reports whether n contains any OpCapture node, and if so the
// smallest and largest capture index found, for SaveReset's operand range.
func capturesIn(n *syntax.Node) (lo, hi int, found bool) {
	lo, hi = math.MaxInt32, -1
	var walk func(*syntax.Node)
	walk = func(n *syntax.Node) {
		if n == nil {
			return
		}
		if n.Op == syntax.OpCapture {
			found = true
			if n.Cap < lo {
				lo = n.Cap
			}
			if n.Cap > hi {
				hi = n.Cap
			}
		}
		for _, sub := range n.Sub {
			walk(sub)
		}
	}
	walk(n)
	return lo, hi, found
}

func (cg *codeGen) compileRepeat(n *syntax.Node, backward bool) error {
	body := n.Sub[0]
	min, max, greedy := n.Min, n.Max, n.Greedy

	if min == 0 && max == 0 {
		return nil
	}
	if min == 1 && max == 1 {
		return cg.compileNode(body, backward)
	}

	lo, hi, needsReset := capturesIn(body)
	needsAdvanceCheck := !alwaysConsumes(body)

	splitOp := OpSplitNextFirst
	splitOpLoopEnter := OpSplitGotoFirst
	if !greedy {
		splitOp, splitOpLoopEnter = splitOpLoopEnter, splitOp
	}

	emitBody := func() error {
		if needsReset {
			cg.b.EmitOpU8U8(OpSaveReset, uint8(lo), uint8(hi))
		}
		return cg.compileNode(body, backward)
	}

	switch {
	case max == 1: // {0,1}
		splitPc := cg.b.EmitGoto(splitOp)
		if err := emitBody(); err != nil {
			return err
		}
		end := cg.b.Pc()
		cg.b.PatchGoto(splitPc, end)
		return nil

	case max < 0 && min == 0: // {0,∞}
		return cg.compileUnboundedTail(body, greedy, needsReset, lo, hi, needsAdvanceCheck, backward)

	case max < 0 && min == 1: // {1,∞}
		loopStart := cg.b.Pc()
		var reg int
		if needsAdvanceCheck {
			reg = cg.allocReg()
			cg.b.EmitOpU8(OpSetCharPos, uint8(reg))
		}
		if err := emitBody(); err != nil {
			return err
		}
		if needsAdvanceCheck {
			cg.b.EmitOpU8(OpCheckAdvance, uint8(reg))
		}
		splitPc := cg.b.EmitGoto(splitOpLoopEnter)
		cg.b.PatchGoto(splitPc, loopStart)
		return nil

	case max < 0: // {n,∞}, n>1: n unrolled copies then the {0,∞} template
		for i := 0; i < min; i++ {
			if err := emitBody(); err != nil {
				return err
			}
		}
		return cg.compileUnboundedTail(body, greedy, needsReset, lo, hi, needsAdvanceCheck, backward)

	case min == max: // {n,n}: n unrolled copies
		for i := 0; i < min; i++ {
			if err := emitBody(); err != nil {
				return err
			}
		}
		return nil

	default: // {n,m}, 0<=n<m<∞: n unrolled copies then (m-n) unrolled optionals
		for i := 0; i < min; i++ {
			if err := emitBody(); err != nil {
				return err
			}
		}
		for i := 0; i < max-min; i++ {
			splitPc := cg.b.EmitGoto(splitOp)
			if err := emitBody(); err != nil {
				return err
			}
			end := cg.b.Pc()
			cg.b.PatchGoto(splitPc, end)
		}
		return nil
	}
}

// compileUnboundedTail emits the {0,∞} template:
//
//	L0: SplitNextFirst Lend; [SetCharPos r;] B; [CheckAdvance r;] Goto L0; Lend:
//
// (lazy swaps SplitNextFirst for SplitGotoFirst). {n,∞} with n>1 emits its
// n unrolled copies and then this same tail.
func (cg *codeGen) compileUnboundedTail(body *syntax.Node, greedy, needsReset bool, lo, hi int, needsAdvanceCheck, backward bool) error {
	splitOp := OpSplitNextFirst
	if !greedy {
		splitOp = OpSplitGotoFirst
	}

	loopStart := cg.b.Pc()
	splitPc := cg.b.EmitGoto(splitOp)

	var reg int
	if needsAdvanceCheck {
		reg = cg.allocReg()
		cg.b.EmitOpU8(OpSetCharPos, uint8(reg))
	}
	if needsReset {
		cg.b.EmitOpU8U8(OpSaveReset, uint8(lo), uint8(hi))
	}
	if err := cg.compileNode(body, backward); err != nil {
		return err
	}
	if needsAdvanceCheck {
		cg.b.EmitOpU8(OpCheckAdvance, uint8(reg))
	}
	gotoPc := cg.b.EmitGoto(OpGoto)
	cg.b.PatchGoto(gotoPc, loopStart)

	lend := cg.b.Pc()
	cg.b.PatchGoto(splitPc, lend)
	return nil
}

// Package syntax parses ECMAScript 2018+ regex source into an intermediate
// representation (IR) tree, ready for lowering to bytecode by the
// bytecode package.
//
// Node mirrors the standard library's regexp/syntax.Regexp: a single
// struct tagged by an Op, carrying only the fields relevant to that op.
// coregx-coregex itself is built directly on regexp/syntax, so reusing its
// shape for our ECMAScript-only IR keeps this codebase in the same idiom —
// while still being a bespoke AST, since regexp/syntax cannot express
// backreferences or lookaround.
package syntax

import "github.com/coregx/jsregex/reflags"

// Op tags the kind of IR node. See spec.md §3 "IR node".
type Op int

const (
	OpEmpty Op = iota
	OpLiteral
	OpClass
	OpAnchor
	OpCapture
	OpGroup
	OpAlt
	OpConcat
	OpRepeat
	OpBackRef
	OpLookAround
	OpInlineFlags
)

// AnchorKind distinguishes the four zero-width assertions.
type AnchorKind int

const (
	AnchorLineStart AnchorKind = iota
	AnchorLineEnd
	AnchorWordBoundary
	AnchorNotWordBoundary
)

// Node is one IR tree node. Only the fields relevant to Op are populated;
// see the per-field comments for which Op(s) use them.
type Node struct {
	Op Op

	// OpLiteral: the literal code points to match in sequence.
	Rune []rune

	// OpClass: the character set to match, already closed under negation.
	// A bracket class parsed under IGNORE_CASE holds canonicalized ranges
	// (the parser folds them in classes.go); codegen applies no further
	// folding.
	Class *ClassNode

	// OpAnchor: which assertion.
	Anchor AnchorKind

	// OpCapture: 1-based capture slot index, and optional name.
	Cap  int
	Name string

	// OpRepeat: bounds (Max == -1 means unbounded) and greediness.
	Min, Max int
	Greedy   bool

	// OpBackRef: candidate capture indices to try in declaration order
	// (more than one only when duplicate-named groups across alternation
	// branches all share this name — spec.md §9 "ordered duplicate-named
	// groups").
	Refs []int

	// OpLookAround: direction/polarity.
	Behind  bool
	Negated bool

	// OpInlineFlags: flags added/removed for the duration of Sub[0].
	FlagsOn, FlagsOff reflags.Flags

	// Sub holds child nodes: one child for OpCapture/OpGroup/OpRepeat/
	// OpLookAround/OpInlineFlags, N children for OpAlt/OpConcat.
	Sub []*Node
}

// ClassNode is a character class as produced by the parser: an ordered set
// of code-point ranges, an optional list of multi-code-point string
// alternatives (v-mode only), and whether the whole class is negated.
type ClassNode struct {
	Ranges  []RuneRange
	Strings [][]rune
	Negated bool
}

// RuneRange is a half-open [Lo, Hi) interval of code points.
type RuneRange struct {
	Lo, Hi rune
}

// NameRecord describes one named capture group declaration, in capture-
// index order, for the bytecode name table (spec.md §6.4).
type NameRecord struct {
	Name  string
	Index int
	// Scope distinguishes groups that share a name across separate
	// top-level alternation branches (spec.md §9 "ordered duplicate-named
	// groups"); a single logical name may have more than one NameRecord,
	// one per scope, all resolved by BackRef.Refs trying each in order.
	Scope int
}

// Pattern is the parser's full output: the IR tree plus the metadata the
// compiler needs to size the bytecode header.
type Pattern struct {
	Root         *Node
	CaptureCount int // includes the implicit group 0
	Names        []NameRecord
	Flags        reflags.Flags // final flags, including any NAMED_GROUPS promotion
}

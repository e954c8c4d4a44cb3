// Package jsregex implements an ECMAScript 2018+-compatible regular
// expression engine: parser, bytecode compiler, and backtracking bytecode
// interpreter, wrapped in a stdlib-regexp-shaped convenience API.
//
// Basic usage:
//
//	re, err := jsregex.Compile(`\d+`, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	match := re.Find([]byte("hello 123 world"))
//	fmt.Println(string(match)) // "123"
//
// Flags (the letters after the closing `/` in a JS regex literal) are
// passed as a reflags.Flags bitset, or parsed from their letter form with
// CompileFlags:
//
//	re, err := jsregex.CompileFlags(`foo`, "gi")
package jsregex

import (
	"sync"

	"github.com/coregx/jsregex/bytecode"
	"github.com/coregx/jsregex/prefilter"
	"github.com/coregx/jsregex/reflags"
	"github.com/coregx/jsregex/syntax"
	"github.com/coregx/jsregex/vm"
)

// Regex represents a compiled ECMAScript regular expression.
//
// A Regex is safe to use concurrently from multiple goroutines: the
// compiled bytecode.Program is immutable, and each call borrows its own
// vm.Searcher from an internal pool (spec.md §5).
type Regex struct {
	source string
	flags  reflags.Flags
	prog   *bytecode.Program
	pool   sync.Pool
}

// Config tunes the interpreter's resource limits, following the teacher's
// Default*Config() pattern (meta.Config).
type Config struct {
	// Poll, if set, is consulted periodically during a match; returning
	// true aborts the match early (vm.Timeout).
	Poll func() bool
	// StepBudget bounds work between Poll checks. Zero uses the vm
	// package default.
	StepBudget int
	// MaxDepth bounds how deeply lookaround scopes may nest during a match
	// (vm.MemoryError beyond it). Zero uses the vm package default.
	MaxDepth int
}

// DefaultConfig returns the zero Config: no polling, default step budget
// and recursion depth.
func DefaultConfig() Config {
	return Config{}
}

func (c Config) options() vm.Options {
	return vm.Options{Poll: c.Poll, StepBudget: c.StepBudget, MaxDepth: c.MaxDepth}
}

// Compile compiles pattern under the given flag set.
func Compile(pattern string, flags reflags.Flags) (*Regex, error) {
	pat, err := syntax.Parse(pattern, flags)
	if err != nil {
		return nil, err
	}
	prog, err := bytecode.Compile(pat)
	if err != nil {
		return nil, err
	}
	pf := prefilter.Build(pat)
	re := &Regex{source: pattern, flags: flags, prog: prog}
	re.pool.New = func() any {
		if pf == nil {
			return vm.NewSearcher(prog)
		}
		return vm.NewSearcherWithPrefilter(prog, pf)
	}
	return re, nil
}

// CompileFlags compiles pattern using the letter-form flag string (e.g.
// "gi", "su"), as ECMAScript's RegExp constructor accepts.
func CompileFlags(pattern, flagLetters string) (*Regex, error) {
	flags, err := reflags.Parse(flagLetters)
	if err != nil {
		return nil, err
	}
	return Compile(pattern, flags)
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string, flags reflags.Flags) *Regex {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic("jsregex: Compile(" + pattern + "): " + err.Error())
	}
	return re
}

// MustCompileFlags is like CompileFlags but panics on error.
func MustCompileFlags(pattern, flagLetters string) *Regex {
	re, err := CompileFlags(pattern, flagLetters)
	if err != nil {
		panic("jsregex: CompileFlags(" + pattern + ", " + flagLetters + "): " + err.Error())
	}
	return re
}

func (r *Regex) haystack(b []byte) vm.Haystack {
	if r.flags.UnicodeMode() {
		return vm.UTF8Haystack(b)
	}
	return vm.LatinHaystack(b)
}

func (r *Regex) borrowSearcher() *vm.Searcher {
	return r.pool.Get().(*vm.Searcher)
}

func (r *Regex) releaseSearcher(s *vm.Searcher) {
	r.pool.Put(s)
}

// findOne runs one search starting at byte offset from, returning the
// capture array (element 0/1 is the overall match span) or nil.
func (r *Regex) findOne(b []byte, from int) []int {
	s := r.borrowSearcher()
	defer r.releaseSearcher(s)
	outcome, caps := s.Find(r.haystack(b), from, DefaultConfig().options())
	if outcome != vm.Match {
		return nil
	}
	return caps
}

// String returns the source pattern text used to compile the regular
// expression.
func (r *Regex) String() string { return r.source }

// Flags returns the flag set the regular expression was compiled with.
func (r *Regex) Flags() reflags.Flags { return r.flags }

// NumSubexp returns the number of capture groups, not counting the whole
// match (group 0).
func (r *Regex) NumSubexp() int { return r.prog.CaptureCount - 1 }

// SubexpNames returns the names of the capturing groups in the regular
// expression, indexed by group number; unnamed groups (and group 0) map
// to "".
func (r *Regex) SubexpNames() []string {
	names := make([]string, r.prog.CaptureCount)
	for _, nr := range r.prog.Names {
		if nr.Index < len(names) {
			names[nr.Index] = nr.Name
		}
	}
	return names
}

// Match reports whether b contains any match of the pattern.
func (r *Regex) Match(b []byte) bool { return r.findOne(b, 0) != nil }

// MatchString reports whether s contains any match of the pattern.
func (r *Regex) MatchString(s string) bool { return r.Match([]byte(s)) }

// Find returns the text of the leftmost match in b, or nil if there is no
// match.
func (r *Regex) Find(b []byte) []byte {
	caps := r.findOne(b, 0)
	if caps == nil {
		return nil
	}
	return b[caps[0]:caps[1]]
}

// FindString is Find for a string argument.
func (r *Regex) FindString(s string) string {
	b := r.Find([]byte(s))
	if b == nil {
		return ""
	}
	return string(b)
}

// FindIndex returns a two-element slice holding the byte offsets of the
// leftmost match, or nil.
func (r *Regex) FindIndex(b []byte) []int {
	caps := r.findOne(b, 0)
	if caps == nil {
		return nil
	}
	return []int{caps[0], caps[1]}
}

// FindStringIndex is FindIndex for a string argument.
func (r *Regex) FindStringIndex(s string) []int { return r.FindIndex([]byte(s)) }

// FindSubmatch returns the text of the leftmost match and the text of each
// of its capture groups, or nil if there is no match. Unmatched groups are
// nil.
func (r *Regex) FindSubmatch(b []byte) [][]byte {
	caps := r.findOne(b, 0)
	if caps == nil {
		return nil
	}
	out := make([][]byte, len(caps)/2)
	for i := range out {
		lo, hi := caps[2*i], caps[2*i+1]
		if lo < 0 || hi < 0 {
			continue
		}
		out[i] = b[lo:hi]
	}
	return out
}

// FindStringSubmatch is FindSubmatch for a string argument.
func (r *Regex) FindStringSubmatch(s string) []string {
	groups := r.FindSubmatch([]byte(s))
	if groups == nil {
		return nil
	}
	out := make([]string, len(groups))
	for i, g := range groups {
		if g != nil {
			out[i] = string(g)
		}
	}
	return out
}

// FindSubmatchIndex returns the byte-offset pairs for the leftmost match
// and each capture group; unmatched groups hold -1.
func (r *Regex) FindSubmatchIndex(b []byte) []int { return r.findOne(b, 0) }

// FindStringSubmatchIndex is FindSubmatchIndex for a string argument.
func (r *Regex) FindStringSubmatchIndex(s string) []int {
	return r.FindSubmatchIndex([]byte(s))
}

// FindAll returns the text of all successive, non-overlapping matches in
// b. If n >= 0, at most n matches are returned.
func (r *Regex) FindAll(b []byte, n int) [][]byte {
	idx := r.FindAllIndex(b, n)
	if idx == nil {
		return nil
	}
	out := make([][]byte, len(idx))
	for i, loc := range idx {
		out[i] = b[loc[0]:loc[1]]
	}
	return out
}

// FindAllString is FindAll for a string argument.
func (r *Regex) FindAllString(s string, n int) []string {
	matches := r.FindAll([]byte(s), n)
	if matches == nil {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m)
	}
	return out
}

// FindAllIndex returns the byte-offset pairs of all successive matches in
// b. If n >= 0, at most n matches are returned.
func (r *Regex) FindAllIndex(b []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	s := r.borrowSearcher()
	defer r.releaseSearcher(s)
	s.FindAll(r.haystack(b), 0, DefaultConfig().options(), func(caps []int) bool {
		out = append(out, []int{caps[0], caps[1]})
		return n < 0 || len(out) < n
	})
	return out
}

// FindAllStringIndex is FindAllIndex for a string argument.
func (r *Regex) FindAllStringIndex(s string, n int) [][]int {
	return r.FindAllIndex([]byte(s), n)
}

// FindAllSubmatch returns the capture groups of all successive matches.
func (r *Regex) FindAllSubmatch(b []byte, n int) [][][]byte {
	if n == 0 {
		return nil
	}
	var out [][][]byte
	s := r.borrowSearcher()
	defer r.releaseSearcher(s)
	s.FindAll(r.haystack(b), 0, DefaultConfig().options(), func(caps []int) bool {
		groups := make([][]byte, len(caps)/2)
		for i := range groups {
			lo, hi := caps[2*i], caps[2*i+1]
			if lo >= 0 && hi >= 0 {
				groups[i] = b[lo:hi]
			}
		}
		out = append(out, groups)
		return n < 0 || len(out) < n
	})
	return out
}

// FindAllSubmatchIndex returns the capture-group byte-offset pairs of all
// successive matches.
func (r *Regex) FindAllSubmatchIndex(b []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	s := r.borrowSearcher()
	defer r.releaseSearcher(s)
	s.FindAll(r.haystack(b), 0, DefaultConfig().options(), func(caps []int) bool {
		out = append(out, append([]int(nil), caps...))
		return n < 0 || len(out) < n
	})
	return out
}

// Split slices s into substrings separated by matches of the pattern,
// returning at most n substrings (n < 0 means unlimited), mirroring
// strings.SplitN applied to a regex separator.
func (r *Regex) Split(s string, n int) []string {
	if n == 0 {
		return nil
	}
	matches := r.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return []string{s}
	}
	var out []string
	last := 0
	for _, loc := range matches {
		if n > 0 && len(out) >= n-1 {
			break
		}
		out = append(out, s[last:loc[0]])
		last = loc[1]
	}
	out = append(out, s[last:])
	return out
}

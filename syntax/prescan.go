package syntax

import "github.com/coregx/jsregex/reflags"

// prescanResult is computed once, before the real recursive-descent parse,
// by walking the raw pattern text for capturing-group and named-group
// structure only. Grounded on original_source's compiler/mod.rs
// count_captures pre-pass, which exists for the same reason: a
// backreference or \k<name> can refer to a group declared later in the
// pattern, so validity and duplicate-name legality must be known before
// the main parse reaches the reference.
type prescanResult struct {
	// captureCount is 1 + the number of explicit capturing groups (group 0
	// is implicit), matching Parser.nextCap's value once parsing finishes.
	captureCount int
	names        []NameRecord
	byName       map[string][]int
}

func (pr *prescanResult) refsForName(name string) []int { return pr.byName[name] }

// scopeStep is one link in the path from the pattern root to a particular
// point in the tree: which Disjunction, and which of its Alternatives.
// Two name declarations are legal duplicates only if their paths diverge
// at a shared Disjunction (spec.md §9 "ordered duplicate-named groups").
type scopeStep struct {
	disjID int
	branch int
}

func runPrescan(pattern string, flags reflags.Flags) (*prescanResult, error) {
	s := newUnitScanner(pattern, flags.UnicodeMode())
	pr := &prescanResult{captureCount: 1}
	declaredPaths := map[string][][]scopeStep{}

	// The root step (disjID 0) tracks the branch of the top-level
	// disjunction, so `(?<x>a)|(?<x>b)` declares x on diverging paths.
	path := []scopeStep{{disjID: 0, branch: 0}}
	disjCounter := 0
	classDepth := 0

	units := s.units
	i := 0
	for i < len(units) {
		if classDepth > 0 {
			switch units[i] {
			case '\\':
				i += 2
			case '[':
				classDepth++
				i++
			case ']':
				classDepth--
				i++
			default:
				i++
			}
			continue
		}
		switch units[i] {
		case '\\':
			i += 2
		case '[':
			classDepth++
			i++
		case '|':
			if len(path) > 0 {
				path[len(path)-1].branch++
			}
			i++
		case '(':
			if i+1 < len(units) && units[i+1] == '?' {
				isNamed := i+2 < len(units) && units[i+2] == '<' &&
					i+3 < len(units) && units[i+3] != '=' && units[i+3] != '!'
				if isNamed {
					j := i + 3
					var nameUnits []uint16
					for j < len(units) && units[j] != '>' {
						nameUnits = append(nameUnits, units[j])
						j++
					}
					name := string(utf16ToASCII(nameUnits))
					idx := pr.captureCount
					pr.captureCount++
					curPath := append([]scopeStep(nil), path...)
					if dupNameConflict(declaredPaths, name, curPath) {
						return nil, &SyntaxError{Kind: ErrDuplicateGroupName, Pos: i, Pattern: pattern, Detail: name}
					}
					scope := len(declaredPaths[name])
					declaredPaths[name] = append(declaredPaths[name], curPath)
					pr.names = append(pr.names, NameRecord{Name: name, Index: idx, Scope: scope})
					i = j + 1
				} else {
					i += 2
				}
			} else {
				pr.captureCount++
				i++
			}
			disjCounter++
			path = append(path, scopeStep{disjID: disjCounter, branch: 0})
		case ')':
			if len(path) > 1 {
				path = path[:len(path)-1]
			}
			i++
		default:
			i++
		}
	}

	byName := map[string][]int{}
	for _, nr := range pr.names {
		byName[nr.Name] = append(byName[nr.Name], nr.Index)
	}
	pr.byName = byName
	return pr, nil
}

func dupNameConflict(existing map[string][][]scopeStep, name string, newPath []scopeStep) bool {
	for _, old := range existing[name] {
		if !pathsDiverge(old, newPath) {
			return true
		}
	}
	return false
}

// pathsDiverge reports whether a and b share a common Disjunction ancestor
// at which they take different branches — meaning a group declared along
// a and a group declared along b can never both be part of the same match,
// so reusing the same capture name for both is safe.
func pathsDiverge(a, b []scopeStep) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i].disjID == b[i].disjID && a[i].branch != b[i].branch {
			return true
		}
	}
	return false
}

package jsregex

import "strconv"

// ReplaceAll returns a copy of src with each non-overlapping match of the
// pattern replaced by repl. Inside repl, $name and $1, $2, ... refer to
// named and numbered capture groups (group 0 is the whole match); $$ is a
// literal dollar sign. A reference to an unmatched or nonexistent group
// expands to the empty string, matching stdlib regexp.Expand's behavior.
func (r *Regex) ReplaceAll(src, repl []byte) []byte {
	matches := r.FindAllSubmatchIndex(src, -1)
	if matches == nil {
		return append([]byte(nil), src...)
	}
	names := r.SubexpNames()
	var out []byte
	last := 0
	for _, caps := range matches {
		out = append(out, src[last:caps[0]]...)
		out = expand(out, repl, src, caps, names)
		last = caps[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllString is ReplaceAll for string arguments.
func (r *Regex) ReplaceAllString(src, repl string) string {
	return string(r.ReplaceAll([]byte(src), []byte(repl)))
}

// ReplaceAllLiteral returns a copy of src with each match replaced by repl,
// taken literally: no $ expansion.
func (r *Regex) ReplaceAllLiteral(src, repl []byte) []byte {
	matches := r.FindAllIndex(src, -1)
	if matches == nil {
		return append([]byte(nil), src...)
	}
	var out []byte
	last := 0
	for _, loc := range matches {
		out = append(out, src[last:loc[0]]...)
		out = append(out, repl...)
		last = loc[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllLiteralString is ReplaceAllLiteral for string arguments.
func (r *Regex) ReplaceAllLiteralString(src, repl string) string {
	return string(r.ReplaceAllLiteral([]byte(src), []byte(repl)))
}

// ReplaceAllFunc returns a copy of src with each match replaced by the
// return value of repl applied to the matched text.
func (r *Regex) ReplaceAllFunc(src []byte, repl func([]byte) []byte) []byte {
	matches := r.FindAllIndex(src, -1)
	if matches == nil {
		return append([]byte(nil), src...)
	}
	var out []byte
	last := 0
	for _, loc := range matches {
		out = append(out, src[last:loc[0]]...)
		out = append(out, repl(src[loc[0]:loc[1]])...)
		last = loc[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllStringFunc is ReplaceAllFunc for string arguments.
func (r *Regex) ReplaceAllStringFunc(src string, repl func(string) string) string {
	out := r.ReplaceAllFunc([]byte(src), func(b []byte) []byte {
		return []byte(repl(string(b)))
	})
	return string(out)
}

// expand appends repl to dst, substituting $name/$N references against
// src using caps (this match's capture offsets) and names (group-name
// table), and returns the extended slice.
func expand(dst, repl, src []byte, caps []int, names []string) []byte {
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' || i+1 >= len(repl) {
			dst = append(dst, c)
			continue
		}
		if repl[i+1] == '$' {
			dst = append(dst, '$')
			i++
			continue
		}
		name, width := scanGroupRef(repl[i+1:])
		if width == 0 {
			dst = append(dst, c)
			continue
		}
		idx := resolveGroup(name, names)
		if idx >= 0 && 2*idx+1 < len(caps) {
			lo, hi := caps[2*idx], caps[2*idx+1]
			if lo >= 0 && hi >= 0 {
				dst = append(dst, src[lo:hi]...)
			}
		}
		i += width
	}
	return dst
}

// scanGroupRef parses a $name or $N reference (braces optional: ${name})
// at the start of s, returning the captured name/digits and the number of
// bytes consumed after the '$'.
func scanGroupRef(s []byte) (string, int) {
	if len(s) == 0 {
		return "", 0
	}
	if s[0] == '{' {
		end := 1
		for end < len(s) && s[end] != '}' {
			end++
		}
		if end == len(s) {
			return "", 0
		}
		return string(s[1:end]), end + 1
	}
	end := 0
	for end < len(s) && isGroupRefByte(s[end]) {
		end++
	}
	if end == 0 {
		return "", 0
	}
	return string(s[:end]), end
}

func isGroupRefByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func resolveGroup(name string, names []string) int {
	if n, err := strconv.Atoi(name); err == nil {
		if n >= 0 && n < len(names) {
			return n
		}
		return -1
	}
	for i, nm := range names {
		if nm == name {
			return i
		}
	}
	return -1
}

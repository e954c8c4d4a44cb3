package bytecode

import (
	"encoding/binary"

	"github.com/coregx/jsregex/reflags"
	"github.com/coregx/jsregex/syntax"
)

// headerSize is the fixed 8-byte bytecode header (spec.md §3 "Bytecode
// blob"): u16 flags, u8 capture count, u8 register count, u32 body length.
const headerSize = 8

// Program is a compiled pattern: the finished instruction stream plus the
// metadata the vm package needs to size its capture array and register
// file, immutable once returned by Compile so it can be shared across
// concurrently executing threads.
type Program struct {
	Flags         reflags.Flags
	CaptureCount  int
	RegisterCount int
	Body          []byte
	Names         []syntax.NameRecord
}

// CompilePattern parses src under flags and lowers it straight to a
// Program, the entry point the root façade package calls.
func CompilePattern(src string, flags reflags.Flags) (*Program, error) {
	pat, err := syntax.Parse(src, flags)
	if err != nil {
		return nil, err
	}
	return Compile(pat)
}

// Bytes assembles the full on-the-wire blob: the 8-byte header, the
// instruction body, and (when NAMED_GROUPS is set) the trailing capture-
// name table — a NUL-terminated UTF-8 name followed by a 1-byte scope
// marker per declaration, in capture-index order (spec.md §3).
func (p *Program) Bytes() []byte {
	out := make([]byte, headerSize, headerSize+len(p.Body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(p.Flags))
	out[2] = uint8(p.CaptureCount)
	out[3] = uint8(p.RegisterCount)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(p.Body)))
	out = append(out, p.Body...)

	if p.Flags.HasNamedGroups() {
		for _, nr := range p.Names {
			out = append(out, []byte(nr.Name)...)
			out = append(out, 0)
			out = append(out, uint8(nr.Scope))
		}
	}
	return out
}

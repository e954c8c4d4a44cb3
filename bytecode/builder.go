package bytecode

import "encoding/binary"

// Builder accumulates a bytecode body and patches forward jumps in place.
// Grounded on original_source's compiler::bytecode_builder::BytecodeBuilder:
// jumps are always stored as i32 offsets relative to the byte immediately
// following the 4-byte offset field, so a finished body is position-
// independent and can be sliced or embedded without pointer fix-ups.
type Builder struct {
	buf []byte
}

// Pc returns the current write position: the byte offset the next emitted
// instruction will occupy.
func (b *Builder) Pc() int { return len(b.buf) }

// Bytes returns the accumulated body. The slice aliases the builder's
// internal buffer and must not be mutated by the caller.
func (b *Builder) Bytes() []byte { return b.buf }

func (b *Builder) push(v byte)        { b.buf = append(b.buf, v) }
func (b *Builder) pushU16(v uint16)   { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }
func (b *Builder) pushU32(v uint32)   { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }

// PushU16 and PushU32 expose raw little-endian emission for operand data
// that isn't shaped like a plain Emit* call, e.g. Range interval tables.
func (b *Builder) PushU16(v uint16) { b.pushU16(v) }
func (b *Builder) PushU32(v uint32) { b.pushU32(v) }
func (b *Builder) PushByte(v byte)  { b.push(v) }

// EmitOp appends a bare, operand-less opcode byte.
func (b *Builder) EmitOp(op Op) {
	b.push(byte(op))
}

// EmitOpU8 appends op followed by a single byte operand (capture-slot
// indices, register numbers).
func (b *Builder) EmitOpU8(op Op, v uint8) {
	b.push(byte(op))
	b.push(v)
}

// EmitOpU8U8 appends op followed by two byte operands (SaveReset's lo/hi
// capture-slot bounds).
func (b *Builder) EmitOpU8U8(op Op, a, c uint8) {
	b.push(byte(op))
	b.push(a)
	b.push(c)
}

// EmitOpU16 appends op followed by a little-endian u16 operand (BMP code
// points for Char/CharI).
func (b *Builder) EmitOpU16(op Op, v uint16) {
	b.push(byte(op))
	b.pushU16(v)
}

// EmitOpU32 appends op followed by a little-endian u32 operand (astral code
// points for Char32/Char32I).
func (b *Builder) EmitOpU32(op Op, v uint32) {
	b.push(byte(op))
	b.pushU32(v)
}

// EmitGoto appends op followed by a 4-byte placeholder offset field and
// returns the byte position of that field, to be resolved later by
// PatchGoto. Used for every jump-carrying opcode: Goto, SplitGotoFirst,
// SplitNextFirst, Lookahead, NegativeLookahead, and the Loop family's jump
// operand.
func (b *Builder) EmitGoto(op Op) int {
	b.push(byte(op))
	pos := len(b.buf)
	b.pushU32(0)
	return pos
}

// PatchGoto resolves a placeholder returned by EmitGoto to jump to
// targetPc: the offset stored is relative to the byte immediately after the
// 4-byte field, i.e. offset = targetPc - (offsetPos + 4).
func (b *Builder) PatchGoto(offsetPos, targetPc int) {
	offset := int32(targetPc - (offsetPos + 4))
	binary.LittleEndian.PutUint32(b.buf[offsetPos:offsetPos+4], uint32(offset))
}

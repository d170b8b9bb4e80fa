package bytecode

// Mask is a single packed 32-bit instruction word. Some opcodes are followed
// in a Buffer by 1-4 further Masks used purely as operand words (their
// opcode field, bits 0-5, is always zero in that case).
type Mask uint32

const (
	cmdBits  = 6
	cmdShift = 0
	cmdMask  = 1<<cmdBits - 1

	arg1Bits26  = 26
	arg1Shift26 = cmdBits

	arg1Bits13  = 13
	arg1Shift13 = cmdBits
	arg2Bits13  = 13
	arg2Shift13 = cmdBits + arg1Bits13

	grpTypeBits  = 2
	grpTypeShift = cmdBits
	grpIdxBits   = 12
	grpIdx1Shift = cmdBits + grpTypeBits
	grpIdx2Shift = cmdBits + grpTypeBits + grpIdxBits
)

// signExtend sign-extends the low `bits` bits of v.
func signExtend(v uint32, bits int) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func truncate(v int32, bits int) uint32 {
	return uint32(v) & (1<<bits - 1)
}

// EncodeArg1 packs op with a single 26-bit signed argument.
func EncodeArg1(op Opcode, arg1 int32) Mask {
	return Mask(uint32(op)&cmdMask | truncate(arg1, arg1Bits26)<<arg1Shift26)
}

// DecodeArg1 unpacks a Mask built by EncodeArg1.
func (m Mask) DecodeArg1() (op Opcode, arg1 int32) {
	op = Opcode(uint32(m) & cmdMask)
	arg1 = signExtend(uint32(m)>>arg1Shift26, arg1Bits26)
	return op, arg1
}

// EncodeArg2 packs op with two 13-bit signed arguments.
func EncodeArg2(op Opcode, arg1, arg2 int32) Mask {
	return Mask(uint32(op)&cmdMask |
		truncate(arg1, arg1Bits13)<<arg1Shift13 |
		truncate(arg2, arg2Bits13)<<arg2Shift13)
}

// DecodeArg2 unpacks a Mask built by EncodeArg2.
func (m Mask) DecodeArg2() (op Opcode, arg1, arg2 int32) {
	op = Opcode(uint32(m) & cmdMask)
	arg1 = signExtend(uint32(m)>>arg1Shift13, arg1Bits13)
	arg2 = signExtend(uint32(m)>>arg2Shift13, arg2Bits13)
	return op, arg1, arg2
}

// GroupType discriminates the three kinds of group/track reference a grp
// Mask can carry (spec.md §4.3, the `g` command's "local/global/track" form).
type GroupType uint8

const (
	GroupLocal GroupType = iota
	GroupGlobal
	GroupTrack
)

// EncodeGrp packs op with a 2-bit group type and two 12-bit signed indices.
func EncodeGrp(op Opcode, typ GroupType, idx1, idx2 int32) Mask {
	return Mask(uint32(op)&cmdMask |
		(uint32(typ)&(1<<grpTypeBits-1))<<grpTypeShift |
		truncate(idx1, grpIdxBits)<<grpIdx1Shift |
		truncate(idx2, grpIdxBits)<<grpIdx2Shift)
}

// DecodeGrp unpacks a Mask built by EncodeGrp.
func (m Mask) DecodeGrp() (op Opcode, typ GroupType, idx1, idx2 int32) {
	op = Opcode(uint32(m) & cmdMask)
	typ = GroupType(uint32(m) >> grpTypeShift & (1<<grpTypeBits - 1))
	idx1 = signExtend(uint32(m)>>grpIdx1Shift, grpIdxBits)
	idx2 = signExtend(uint32(m)>>grpIdx2Shift, grpIdxBits)
	return op, typ, idx1, idx2
}

// Op returns just the opcode field, valid regardless of the Mask's shape.
func (m Mask) Op() Opcode { return Opcode(uint32(m) & cmdMask) }

// Operand wraps a follow-on operand word (a 26-bit signed value above an
// opcode field that is always zero) that trails a multi-word instruction
// such as Attack with an arpeggio, Effect, or SampleRange.
type Operand uint32

func EncodeOperand(v int32) Operand { return Operand(truncate(v, arg1Bits26) << arg1Shift26) }
func (o Operand) Int32() int32      { return signExtend(uint32(o)>>arg1Shift26, arg1Bits26) }

// Buffer is an append-only sequence of packed instruction words, the unit
// the compiler emits into and the linker/interpreter read from (spec.md §3,
// "ByteCode buffer").
type Buffer struct {
	words []uint32
}

// Len reports the number of 32-bit words currently in the buffer.
func (b *Buffer) Len() int { return len(b.words) }

// EmitMask appends a primary instruction word and returns its offset.
func (b *Buffer) EmitMask(m Mask) int {
	off := len(b.words)
	b.words = append(b.words, uint32(m))
	return off
}

// EmitOperand appends a bare follow-on operand word.
func (b *Buffer) EmitOperand(o Operand) {
	b.words = append(b.words, uint32(o))
}

// At returns the raw word at offset off.
func (b *Buffer) At(off int) uint32 { return b.words[off] }

// MaskAt reinterprets the word at offset off as a Mask.
func (b *Buffer) MaskAt(off int) Mask { return Mask(b.words[off]) }

// OperandAt reinterprets the word at offset off as an Operand.
func (b *Buffer) OperandAt(off int) Operand { return Operand(b.words[off]) }

// SetMaskAt overwrites the word at offset off, used by the linker to rewrite
// a GroupJump mask into a resolved Call.
func (b *Buffer) SetMaskAt(off int, m Mask) { b.words[off] = uint32(m) }

// Words exposes the underlying word slice read-only, for the interpreter and
// for golden-byte test comparisons.
func (b *Buffer) Words() []uint32 { return b.words }

package garbage

import (
	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// x64Rex builds a REX prefix. w selects 64-bit operand size; r/b extend the
// ModRM reg/rm fields for registers 8-15, matching the teacher's REX
// construction in mov.go's movX86RegToReg.
func x64Rex(w bool, r, b arch.Register) byte {
	rex := byte(0x40)
	if w {
		rex |= 0x08
	}
	if r.Encoding >= 8 {
		rex |= 0x04
	}
	if b.Encoding >= 8 {
		rex |= 0x01
	}
	return rex
}

func x64ModRM(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func x64pickGPR(m arch.Model, r rng.Source) arch.Register {
	return m.Random(r)
}

// selfRegOp emits a two-operand instruction with the same register as both
// operands: REX(.W) opcode ModRM(11, reg, reg).
func selfRegOp(buf *buffer.Buffer, reg arch.Register, opcode byte) {
	buf.WriteByte(x64Rex(true, reg, reg))
	buf.WriteByte(opcode)
	buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
}

// immOp emits REX.W 81 /digit id — an arithmetic/logical instruction
// against an immediate 32-bit operand, used for the "zero-operand"
// add/sub/xor forms (spec §4.B): the immediate is 0, so the register's
// value is unchanged regardless of which of the three it is.
func immOp(buf *buffer.Buffer, reg arch.Register, digit byte, imm32 uint32) {
	buf.WriteByte(x64Rex(true, arch.Register{}, reg))
	buf.WriteByte(0x81)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(byte(imm32))
	buf.WriteByte(byte(imm32 >> 8))
	buf.WriteByte(byte(imm32 >> 16))
	buf.WriteByte(byte(imm32 >> 24))
}

// shiftImm8 emits REX.W C1 /digit ib — a shift/rotate by an 8-bit
// immediate count.
func shiftImm8(buf *buffer.Buffer, reg arch.Register, digit, count byte) {
	buf.WriteByte(x64Rex(true, arch.Register{}, reg))
	buf.WriteByte(0xC1)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(count)
}

// unaryOp emits REX.W F7 /digit — NOT or NEG against a single register.
func unaryOp(buf *buffer.Buffer, reg arch.Register, digit byte) {
	buf.WriteByte(x64Rex(true, arch.Register{}, reg))
	buf.WriteByte(0xF7)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
}

// incDec emits REX.W FF /digit — INC or DEC against a single register.
func incDec(buf *buffer.Buffer, reg arch.Register, digit byte) {
	buf.WriteByte(x64Rex(true, arch.Register{}, reg))
	buf.WriteByte(0xFF)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
}

// addSubImm8 emits REX.W 83 /digit ib — ADD or SUB against an 8-bit
// sign-extended immediate.
func addSubImm8(buf *buffer.Buffer, reg arch.Register, digit, imm8 byte) {
	buf.WriteByte(x64Rex(true, arch.Register{}, reg))
	buf.WriteByte(0x83)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(imm8)
}

// cmovSelf emits REX.W 0F 4x /r with identical reg/rm, a conditional move
// that is an identity regardless of the flag state (spec §4.B: "all cmovcc
// forms between a register and itself").
func cmovSelf(buf *buffer.Buffer, reg arch.Register, condition byte) {
	buf.WriteByte(x64Rex(true, reg, reg))
	buf.WriteByte(0x0F)
	buf.WriteByte(0x40 | condition)
	buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
}

// cmovConditions covers all 16 x86 condition codes (spec §4.B: "all cmovcc
// forms between a register and itself"), o,no,b,ae,e,ne,be,a,s,ns,p,np,l,ge,le,g.
var cmovConditions = []byte{
	0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7,
	0x8, 0x9, 0xA, 0xB, 0xC, 0xD, 0xE, 0xF,
}

// le32 little-endian-encodes a 32-bit relative displacement, used by the
// jmp-over wrapper's near-jump fallback.
func le32(n int32) []byte {
	u := uint32(n)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

var x64Table = []Emitter{
	// nop
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0x90) },
	// cld
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xFC) },
	// clc
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xF8) },
	// cmc
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xF5) },
	// pause
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xF3, 0x90}) },
	// fnop
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xD0}) },
	// fxam
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xE5}) },
	// ftst
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xE4}) },
	// self mov r, r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x89) },
	// self xchg r, r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x87) },
	// self cmp r, r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x39) },
	// self test r, r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x85) },
	// self and r, r (identity: x & x == x)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x21) },
	// self or r, r (identity: x | x == x)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { selfRegOp(buf, x64pickGPR(m, r), 0x09) },
	// self bt r, r (bit test only touches CF, never the operand)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		buf.WriteByte(x64Rex(true, reg, reg))
		buf.Write([]byte{0x0F, 0xA3})
		buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
	},
	// zero-shift rol/ror/rcl/rcr/shl(sal)/shr/sar
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		digits := []byte{0, 1, 2, 3, 4, 5, 7}
		shiftImm8(buf, x64pickGPR(m, r), digits[r.IntN(len(digits))], 0)
	},
	// zero-operand xor/sub/add (immediate 0, register value unchanged)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		digits := []byte{0x6, 0x5, 0x0} // xor, sub, add extensions for opcode 0x81
		immOp(buf, x64pickGPR(m, r), digits[r.IntN(len(digits))], 0)
	},
	// cmovcc r, r (any condition, same reg on both sides)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		cmovSelf(buf, x64pickGPR(m, r), cmovConditions[r.IntN(len(cmovConditions))])
	},
	// not r; <inner>; not r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		unaryOp(buf, reg, 2)
		recurse(x64Table, buf, m, r, depth)
		unaryOp(buf, reg, 2)
	},
	// neg r; <inner>; neg r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		unaryOp(buf, reg, 3)
		recurse(x64Table, buf, m, r, depth)
		unaryOp(buf, reg, 3)
	},
	// inc r; <inner>; dec r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		incDec(buf, reg, 0)
		recurse(x64Table, buf, m, r, depth)
		incDec(buf, reg, 1)
	},
	// dec r; <inner>; inc r
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		incDec(buf, reg, 1)
		recurse(x64Table, buf, m, r, depth)
		incDec(buf, reg, 0)
	},
	// add r, k; <inner>; sub r, k
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		k := byte(1 + r.IntN(63))
		addSubImm8(buf, reg, 0, k)
		recurse(x64Table, buf, m, r, depth)
		addSubImm8(buf, reg, 5, k)
	},
	// rol r, k; <inner>; ror r, k (symmetric rotate pair)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := x64pickGPR(m, r)
		k := byte(1 + r.IntN(63))
		shiftImm8(buf, reg, 0, k)
		recurse(x64Table, buf, m, r, depth)
		shiftImm8(buf, reg, 1, k)
	},
	// jmp short label; <inner>; label: (spec §4.B: "a forward-only short
	// jump-over wrapper"), mirroring the original source's `jmp 2` entry.
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		inner := buffer.New(nil)
		recurse(x64Table, inner, m, r, depth)
		body := inner.Bytes()
		if len(body) <= 127 {
			buf.WriteByte(0xEB)
			buf.WriteByte(byte(len(body)))
		} else {
			buf.WriteByte(0xE9)
			buf.Write(le32(int32(len(body))))
		}
		buf.Write(body)
	},
}

package garbage

import (
	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// x86-32 mirrors the x86-64 table's principle (spec §4.B: "x86-32 ...
// tables mirror the same principle") but drops the REX prefix entirely —
// 32-bit mode only ever addresses the 8 legacy registers, so Encoding is
// always < 8 and ModRM alone suffices, matching the teacher's own
// 32-bit-only register subset in reg.go (eax/ecx/edx/ebx only).

func x32pickGPR(m arch.Model, r rng.Source) arch.Register {
	return m.Random(r)
}

func x32SelfRegOp(buf *buffer.Buffer, reg arch.Register, opcode byte) {
	buf.WriteByte(opcode)
	buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
}

func x32ImmOp(buf *buffer.Buffer, reg arch.Register, digit byte, imm32 uint32) {
	buf.WriteByte(0x81)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(byte(imm32))
	buf.WriteByte(byte(imm32 >> 8))
	buf.WriteByte(byte(imm32 >> 16))
	buf.WriteByte(byte(imm32 >> 24))
}

func x32ShiftImm8(buf *buffer.Buffer, reg arch.Register, digit, count byte) {
	buf.WriteByte(0xC1)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(count)
}

func x32UnaryOp(buf *buffer.Buffer, reg arch.Register, digit byte) {
	buf.WriteByte(0xF7)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
}

func x32IncDec(buf *buffer.Buffer, reg arch.Register, digit byte) {
	buf.WriteByte(0xFF)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
}

func x32AddSubImm8(buf *buffer.Buffer, reg arch.Register, digit, imm8 byte) {
	buf.WriteByte(0x83)
	buf.WriteByte(x64ModRM(0b11, digit, reg.Encoding))
	buf.WriteByte(imm8)
}

func x32CmovSelf(buf *buffer.Buffer, reg arch.Register, condition byte) {
	buf.Write([]byte{0x0F, 0x40 | condition})
	buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
}

var x32Table = []Emitter{
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0x90) }, // nop
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xFC) }, // cld
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xF8) }, // clc
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.WriteByte(0xF5) }, // cmc
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xD0}) }, // fnop
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xE5}) }, // fxam
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { buf.Write([]byte{0xD9, 0xE4}) }, // ftst
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x89) }, // mov
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x87) }, // xchg
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x39) }, // cmp
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x85) }, // test
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x21) }, // and
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { x32SelfRegOp(buf, x32pickGPR(m, r), 0x09) }, // or
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // bt r, r
		reg := x32pickGPR(m, r)
		buf.Write([]byte{0x0F, 0xA3})
		buf.WriteByte(x64ModRM(0b11, reg.Encoding, reg.Encoding))
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // zero-shift
		digits := []byte{0, 1, 2, 3, 4, 5, 7}
		x32ShiftImm8(buf, x32pickGPR(m, r), digits[r.IntN(len(digits))], 0)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // zero-operand xor/sub/add
		digits := []byte{0x6, 0x5, 0x0}
		x32ImmOp(buf, x32pickGPR(m, r), digits[r.IntN(len(digits))], 0)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // cmovcc r, r
		x32CmovSelf(buf, x32pickGPR(m, r), cmovConditions[r.IntN(len(cmovConditions))])
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // not; inner; not
		reg := x32pickGPR(m, r)
		x32UnaryOp(buf, reg, 2)
		recurse(x32Table, buf, m, r, depth)
		x32UnaryOp(buf, reg, 2)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // neg; inner; neg
		reg := x32pickGPR(m, r)
		x32UnaryOp(buf, reg, 3)
		recurse(x32Table, buf, m, r, depth)
		x32UnaryOp(buf, reg, 3)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // inc; inner; dec
		reg := x32pickGPR(m, r)
		x32IncDec(buf, reg, 0)
		recurse(x32Table, buf, m, r, depth)
		x32IncDec(buf, reg, 1)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // dec; inner; inc
		reg := x32pickGPR(m, r)
		x32IncDec(buf, reg, 1)
		recurse(x32Table, buf, m, r, depth)
		x32IncDec(buf, reg, 0)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // add k; inner; sub k
		reg := x32pickGPR(m, r)
		k := byte(1 + r.IntN(63))
		x32AddSubImm8(buf, reg, 0, k)
		recurse(x32Table, buf, m, r, depth)
		x32AddSubImm8(buf, reg, 5, k)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // rol k; inner; ror k
		reg := x32pickGPR(m, r)
		k := byte(1 + r.IntN(63))
		x32ShiftImm8(buf, reg, 0, k)
		recurse(x32Table, buf, m, r, depth)
		x32ShiftImm8(buf, reg, 1, k)
	},
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) { // jmp short label; inner; label:
		inner := buffer.New(nil)
		recurse(x32Table, inner, m, r, depth)
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

package garbage

import (
	"encoding/binary"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// AArch64 garbage forms are restricted to instructions that provably
// cannot clobber architectural register content (spec §4.B: "limited to
// forms that do not clobber register content"), grounded on the teacher's
// ARM64 instruction encoder style (arm64_instructions.go's
// opcode-base-plus-shifted-field construction, e.g. AddImm64/SubImm64).

func aarch64Emit(buf *buffer.Buffer, instr uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], instr)
	buf.Write(b[:])
}

func aarch64Pick(m arch.Model, r rng.Source) arch.Register {
	return m.Random(r)
}

var aarch64Table = []Emitter{
	// nop
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		aarch64Emit(buf, 0xD503201F)
	},
	// mov x, x (ORR Xd, XZR, Xm with Xd==Xm)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		aarch64Emit(buf, 0xAA0003E0|(rd<<16)|rd)
	},
	// and x, x, x (identity: x & x == x)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		aarch64Emit(buf, 0x8A000000|(rd<<16)|(rd<<5)|rd)
	},
	// add x, x, #0
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		aarch64Emit(buf, 0x91000000|(rd<<5)|rd)
	},
	// sub x, x, #0
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		aarch64Emit(buf, 0xD1000000|(rd<<5)|rd)
	},
	// cmp xzr, xzr (SUBS XZR, XZR, XZR) — flags only, no register write
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		aarch64Emit(buf, 0xEB00001F|(31<<16)|(31<<5))
	},
	// lsl x, x, #0 (UBFM alias; identity shift)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		aarch64Emit(buf, 0xD3400000|(63<<10)|(rd<<5)|rd)
	},
	// csel x, x, x, cond (self-target: both choices are the same register)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		cond := uint32(r.IntN(16))
		aarch64Emit(buf, 0x9A800000|(rd<<16)|(cond<<12)|(rd<<5)|rd)
	},
	// add x, x, #k ; <inner> ; sub x, x, #k
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		k := uint32(1 + r.IntN(4095))
		aarch64Emit(buf, 0x91000000|(k<<10)|(rd<<5)|rd)
		recurse(aarch64Table, buf, m, r, depth)
		aarch64Emit(buf, 0xD1000000|(k<<10)|(rd<<5)|rd)
	},
	// ror x, x, #k ; <inner> ; ror x, x, #(64-k) — symmetric rotate pair
	// (EXTR Xd, Xn, Xm, #imms with Xd==Xn==Xm is the ROR-by-immediate alias)
	func(buf *buffer.Buffer, m arch.Model, r rng.Source, depth int) {
		reg := aarch64Pick(m, r)
		rd := uint32(reg.Encoding)
		k := uint32(1 + r.IntN(63))
		aarch64Emit(buf, 0x93C00000|(rd<<16)|(k<<10)|(rd<<5)|rd)
		recurse(aarch64Table, buf, m, r, depth)
		aarch64Emit(buf, 0x93C00000|(rd<<16)|((64-k)<<10)|(rd<<5)|rd)
	},
}

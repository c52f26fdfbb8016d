package asm

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

type x32Assembler struct{}

func (x32Assembler) Arch() arch.Arch { return arch.X32 }

// x32ModRM/x32Mem mirror x64.go's helpers but without any REX byte — 32-bit
// mode only ever addresses the 8 legacy registers, so ModRM/SIB alone
// suffices (same reasoning as internal/garbage/x32.go).
func x32MemBaseDisp32(reg, base arch.Register, disp32 int32) []byte {
	out := []byte{modRM(0b10, reg.Encoding, 0b100), sib(0, 0b100, base.Encoding)}
	return append(out, le32(disp32)...)
}

func x32MemBaseIndexDisp32(reg, base, index arch.Register, disp32 int32) []byte {
	out := []byte{modRM(0b10, reg.Encoding, 0b100), sib(0, index.Encoding, base.Encoding)}
	return append(out, le32(disp32)...)
}

func (x32Assembler) GarbageInstructions(model arch.Model, r rng.Source, trace io.Writer) []byte {
	return composeGarbage(arch.X32, model, r, trace, x32Assembler{})
}

func (x32Assembler) JumpOver(n int) []byte {
	return append([]byte{0xE9}, le32(int32(n))...)
}

func (x32Assembler) CallOver(n int) []byte {
	return append([]byte{0xE8}, le32(int32(n))...)
}

var errNo8BitCandidate = errors.New("x32: no 8-bit-addressable register left after exclusions")

// x32PickSGNRegisters draws the seed register from {eax, ecx, edx, ebx}
// only — the only x86-32 GPRs with a genuine low-byte sub-register; the
// other four encode to ah/ch/dh/bh, the *high* byte of one of those same
// four registers (internal/arch/registers_x32.go's Low field), so drawing
// one of them as an 8-bit seed register would silently alias whichever of
// eax/ecx/edx/ebx owns that high byte. ECX is further excluded: it is the
// hard-wired loop counter (spec §4.F).
func x32PickSGNRegisters(model arch.Model, r rng.Source) (indexer, seedReg arch.Register, err error) {
	var seedPool []arch.Register
	for _, reg := range model.All() {
		if reg.Encoding < 4 && !reg.Equal(arch.ECX) {
			seedPool = append(seedPool, reg)
		}
	}
	if len(seedPool) == 0 {
		return arch.Register{}, arch.Register{}, errNo8BitCandidate
	}
	seedReg = seedPool[r.IntN(len(seedPool))]
	indexer, err = model.RandomExcluding(r, arch.ECX, seedReg)
	if err != nil {
		return arch.Register{}, arch.Register{}, err
	}
	return indexer, seedReg, nil
}

// SGNDecoderStub is grounded on original_source/src/sgn/x32.rs: a
// call-$+5/pop idiom (rather than x64's RIP-relative lea — 32-bit mode has
// no PC-relative addressing mode) places indexer's own address into a
// register, and the decode loop's memory operand bakes in the fixed
// distance from that address to data-1 as an immediate displacement,
// rather than adjusting the register itself.
func (a x32Assembler) SGNDecoderStub(cfg SGNConfig, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	indexer, seedReg, err := x32PickSGNRegisters(model, r)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "x32", Op: "sgn_decoder_stub", Err: err}
	}

	buf := buffer.New(trace)
	buf.Write([]byte{0xE8, 0x00, 0x00, 0x00, 0x00}) // call $+5
	buf.WriteByte(0x58 + (indexer.Encoding & 7))    // pop indexer (now holds &pop-instr)
	buf.WriteByte(0xB9)                             // mov ecx, imm32
	buf.Write(le32(int32(cfg.PayloadSize)))
	buf.WriteByte(0xB0 + (seedReg.Encoding & 7)) // mov seedReg8, imm8
	buf.WriteByte(cfg.Seed)

	loop := buffer.New(nil)
	// xor BYTE[indexer+ecx+disp], seedReg8 ; add seedReg8, BYTE[indexer+ecx+disp]
	// disp is patched in below once the loop's own length is known — the
	// distance from indexer's value (the pop instruction's own address) to
	// data-1 is len(pop)+len(mov ecx)+len(mov seed)+len(loop)-1, computed after the
	// fact the same way x64.go's SGNDecoderStub computes its rip-disp32.
	xorPos := loop.Len()
	loop.WriteByte(0x30)
	loop.Write(x32MemBaseIndexDisp32(seedReg, indexer, arch.ECX, 0))
	addPos := loop.Len()
	loop.WriteByte(0x02)
	loop.Write(x32MemBaseIndexDisp32(seedReg, indexer, arch.ECX, 0))
	loopRel := -int8(loop.Len() + 2)
	loop.WriteByte(0xE2)
	loop.WriteByte(byte(loopRel))

	// distance from the pop instruction's address to data-1: 1 (pop) +
	// 5 (mov ecx) + 2 (mov seed) + len(loop) — 1.
	disp := int32(1 + 5 + 2 + loop.Len() - 1)
	loopBytes := append([]byte{}, loop.Bytes()...)
	patchDisp32(loopBytes, xorPos+3, disp)
	patchDisp32(loopBytes, addPos+3, disp)

	buf.Write(loopBytes)
	return buf.Bytes(), nil
}

// patchDisp32 overwrites the 4 little-endian bytes at b[at:at+4] in place.
// Used only on freshly-built local slices this package owns outright (as
// opposed to buffer.Buffer's Bytes(), which callers must not mutate).
func patchDisp32(b []byte, at int, v int32) {
	binary.LittleEndian.PutUint32(b[at:at+4], uint32(v))
}

// SchemaDecoder mirrors x64Assembler.SchemaDecoder's structure exactly
// (original_source/src/schema/x64.rs's state machine, generalized to
// 32-bit operand encoding) — no REX, and REG_IDX must still avoid ESP
// (spec §4.E step 4's invariant holds per-architecture). garbagePrefix is
// supplied by the caller rather than generated here, so its length is
// known before schemaop.ApplyForward runs (see the Assembler interface
// doc).
func (a x32Assembler) SchemaDecoder(garbagePrefix, data []byte, seq schemaop.Sequence, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	offset := int32(len(garbagePrefix))

	block := append(append([]byte{}, garbagePrefix...), data...)
	stub := buffer.New(trace)
	stub.Write(a.CallOver(len(block)))
	stub.Write(block)
	stub.Write(a.GarbageInstructions(model, r, trace))

	indexer, err := model.RandomExcluding(r, arch.ESP32)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "x32", Op: "schema_decoder", Err: err}
	}
	stub.WriteByte(0x58 + (indexer.Encoding & 7)) // pop indexer

	for _, op := range seq {
		stub.Write(a.GarbageInstructions(model, r, trace))
		instrBytes, err := x32SchemaOpBytes(indexer, offset, op)
		if err != nil {
			return nil, &errs.AssemblerError{Arch: "x32", Op: "schema_decoder", Err: err}
		}
		stub.Write(instrBytes)
		offset += 4
	}

	stub.WriteByte(0xFF) // jmp indexer
	stub.WriteByte(modRM(0b11, 0b100, indexer.Encoding))

	return stub.Bytes(), nil
}

func x32SchemaOpBytes(indexer arch.Register, offset int32, op schemaop.Op) ([]byte, error) {
	var opcode, digit byte
	switch op.Instruction {
	case schemaop.XOR:
		opcode, digit = 0x81, 6
	case schemaop.ADD:
		opcode, digit = 0x81, 0
	case schemaop.SUB:
		opcode, digit = 0x81, 5
	case schemaop.ROL:
		opcode, digit = 0xC1, 0
	case schemaop.ROR:
		opcode, digit = 0xC1, 1
	case schemaop.NOT:
		opcode, digit = 0xF7, 2
	default:
		return nil, errUnknownInstruction
	}

	buf := buffer.New(nil)
	buf.WriteByte(opcode)
	buf.Write(x32MemBaseDisp32(arch.Register{Encoding: digit}, indexer, offset))
	switch op.Instruction {
	case schemaop.XOR, schemaop.ADD, schemaop.SUB:
		imm := make([]byte, 4)
		binary.LittleEndian.PutUint32(imm, binary.BigEndian.Uint32(op.Key[:]))
		buf.Write(imm)
	case schemaop.ROL, schemaop.ROR:
		buf.WriteByte(op.RotateCount())
	}
	return buf.Bytes(), nil
}

func (x32Assembler) SaveRegistersPrefix() []byte {
	buf := buffer.New(nil)
	for _, reg := range arch.NewModel(arch.X32).All() {
		buf.WriteByte(0x50 + (reg.Encoding & 7))
	}
	return buf.Bytes()
}

func (x32Assembler) SaveRegistersSuffix() []byte {
	regs := arch.NewModel(arch.X32).All()
	buf := buffer.New(nil)
	for i := len(regs) - 1; i >= 0; i-- {
		buf.WriteByte(0x58 + (regs[i].Encoding & 7))
	}
	return buf.Bytes()
}

func (a x32Assembler) XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	return x32XorDynamicStub(model, r, trace)
}

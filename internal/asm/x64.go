package asm

import (
	"encoding/binary"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/garbage"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

type x64Assembler struct{}

func (x64Assembler) Arch() arch.Arch { return arch.X64 }

func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modRM(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func sib(scale, index, base byte) byte {
	return (scale << 6) | ((index & 7) << 3) | (base & 7)
}

func le32(n int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

// memOperandBaseIndexDisp8 returns the ModRM(+SIB)(+disp8) bytes addressing
// [base + index*1 + disp8], always routing through SIB and an explicit
// disp8 (even when disp8 is 0) so that base == RBP/R13 never triggers the
// mod=00/rm=101 "no base, disp32" special case.
func memOperandBaseIndexDisp8(reg, base, index arch.Register, disp8 byte) []byte {
	out := []byte{modRM(0b01, reg.Encoding, 0b100), sib(0, index.Encoding, base.Encoding), disp8}
	return out
}

// memOperandBaseDisp32 returns ModRM(+SIB)(+disp32) addressing
// [base + disp32], again always through SIB to dodge the RBP/R13 quirk.
func memOperandBaseDisp32(reg, base arch.Register, disp32 int32) []byte {
	out := []byte{modRM(0b10, reg.Encoding, 0b100), sib(0, 0b100 /* no index */, base.Encoding)}
	return append(out, le32(disp32)...)
}

func (x64Assembler) GarbageInstructions(model arch.Model, r rng.Source, trace io.Writer) []byte {
	return composeGarbage(arch.X64, model, r, trace, x64Assembler{})
}

func (x64Assembler) JumpOver(n int) []byte {
	return append([]byte{0xE9}, le32(int32(n))...)
}

func (x64Assembler) CallOver(n int) []byte {
	return append([]byte{0xE8}, le32(int32(n))...)
}

// SGNDecoderStub: mov seedReg8,imm8 ; mov ecx,imm32 ; lea indexer,[rip+disp32->data-1] ;
// decode: xor [indexer+rcx],seedReg8 ; add seedReg8,[indexer+rcx] ; loop decode ; data:
// Grounded on original_source/src/sgn/x64.rs's dynasm block, hand-encoded.
func (a x64Assembler) SGNDecoderStub(cfg SGNConfig, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	indexer, seedReg, err := pickDistinctExcluding(model, r, arch.RCX)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "x64", Op: "sgn_decoder_stub", Err: err}
	}

	buf := buffer.New(trace)
	// mov seedReg8, imm8
	buf.WriteByte(rex(false, false, false, seedReg.Encoding >= 8))
	buf.WriteByte(0xB0 + (seedReg.Encoding & 7))
	buf.WriteByte(cfg.Seed)
	// mov ecx, imm32 (zero-extends into rcx)
	buf.WriteByte(0xB8 + (arch.RCX.Encoding & 7))
	buf.Write(le32(int32(cfg.PayloadSize)))

	loop := buffer.New(nil)
	// xor [indexer+rcx], seedReg8
	loop.WriteByte(rex(false, seedReg.Encoding >= 8, false, indexer.Encoding >= 8))
	loop.WriteByte(0x30)
	loop.Write(memOperandBaseIndexDisp8(seedReg, indexer, arch.RCX, 0))
	// add seedReg8, [indexer+rcx]
	loop.WriteByte(rex(false, seedReg.Encoding >= 8, false, indexer.Encoding >= 8))
	loop.WriteByte(0x02)
	loop.Write(memOperandBaseIndexDisp8(seedReg, indexer, arch.RCX, 0))
	// loop <decode (0xE2, rel8 back to the start of this block)
	loopRel := -int8(loop.Len() + 2)
	loop.WriteByte(0xE2)
	loop.WriteByte(byte(loopRel))

	// lea indexer, [rip + disp32] where disp32 targets (data - 1); data
	// begins immediately after loop.
	disp32 := int32(loop.Len() - 1)
	buf.WriteByte(rex(true, indexer.Encoding >= 8, false, false))
	buf.WriteByte(0x8D)
	buf.WriteByte(modRM(0b00, indexer.Encoding, 0b101))
	buf.Write(le32(disp32))

	buf.Write(loop.Bytes())
	return buf.Bytes(), nil
}

// SchemaDecoder follows original_source/src/schema/x64.rs's structure:
// garbagePrefix ∥ data (the wrapped block, already schema-transformed by
// the caller at offset len(garbagePrefix)), call_over that block (pushes
// the address of garbagePrefix's start), garbage2, pop indexer, then
// per-operation garbage+instruction against DWORD PTR [indexer+offset]
// (offset starting at len(garbagePrefix)), and a final jmp indexer — which
// lands back at garbagePrefix's start and falls through into the
// now-decoded data (spec §4.E; garbage instructions never disturb control
// flow except to fall through, spec §4.B).
func (a x64Assembler) SchemaDecoder(garbagePrefix, data []byte, seq schemaop.Sequence, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	offset := int32(len(garbagePrefix))

	block := append(append([]byte{}, garbagePrefix...), data...)
	stub := buffer.New(trace)
	stub.Write(a.CallOver(len(block)))
	stub.Write(block)
	stub.Write(a.GarbageInstructions(model, r, trace))

	indexer, err := model.RandomExcluding(r, arch.RSP64)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "x64", Op: "schema_decoder", Err: err}
	}
	// pop indexer
	stub.WriteByte(rex(false, false, false, indexer.Encoding >= 8))
	stub.WriteByte(0x58 + (indexer.Encoding & 7))

	for _, op := range seq {
		stub.Write(a.GarbageInstructions(model, r, trace))
		instrBytes, err := schemaOpBytes(indexer, offset, op)
		if err != nil {
			return nil, &errs.AssemblerError{Arch: "x64", Op: "schema_decoder", Err: err}
		}
		stub.Write(instrBytes)
		offset += 4
	}

	// jmp indexer (REX.B if needed) FF /4
	stub.WriteByte(rex(false, false, false, indexer.Encoding >= 8))
	stub.WriteByte(0xFF)
	stub.WriteByte(modRM(0b11, 0b100, indexer.Encoding))

	return stub.Bytes(), nil
}

func schemaOpBytes(indexer arch.Register, offset int32, op schemaop.Op) ([]byte, error) {
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

	// DWORD-sized operand (spec §4.E: "DWORD PTR [REG_IDX + offset]") — no
	// REX.W, only REX.B if indexer needs the extended-register bit.
	buf := buffer.New(nil)
	buf.WriteByte(rex(false, false, false, indexer.Encoding >= 8))
	buf.WriteByte(opcode)
	buf.Write(memOperandBaseDisp32(arch.Register{Encoding: digit}, indexer, offset))
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

var errUnknownInstruction = &asmInstructionError{"unknown schema instruction"}

type asmInstructionError struct{ msg string }

func (e *asmInstructionError) Error() string { return e.msg }

// SaveRegistersPrefix pushes all sixteen GPRs of the x64 model (flags are
// not saved); SaveRegistersSuffix
// pops them in reverse. Grounded on the teacher's push/pop pairing idiom
// used throughout mov.go's register spill helpers, generalized to the
// full GPR set (spec §4.C "push/pop all caller-saved on x86").
func (x64Assembler) SaveRegistersPrefix() []byte {
	buf := buffer.New(nil)
	for _, reg := range arch.NewModel(arch.X64).All() {
		buf.WriteByte(rex(false, false, false, reg.Encoding >= 8))
		buf.WriteByte(0x50 + (reg.Encoding & 7))
	}
	return buf.Bytes()
}

func (x64Assembler) SaveRegistersSuffix() []byte {
	regs := arch.NewModel(arch.X64).All()
	buf := buffer.New(nil)
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		buf.WriteByte(rex(false, false, false, reg.Encoding >= 8))
		buf.WriteByte(0x58 + (reg.Encoding & 7))
	}
	return buf.Bytes()
}

func (a x64Assembler) XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	return x64XorDynamicStub(model, r, trace)
}

func composeGarbage(a arch.Arch, model arch.Model, r rng.Source, trace io.Writer, backend Assembler) []byte {
	block := garbage.Generate(a, model, r, trace)
	if !rng.Bool(r) {
		return block
	}
	// AArch64 executes only whole 4-byte words, so its decoy is a whole
	// number of words and the code after it stays word-aligned.
	decoyLen := 10
	if a == arch.AArch64 {
		decoyLen = 12
	}
	decoy := make([]byte, decoyLen)
	rng.Bytes(r, decoy)
	jmp := append(backend.JumpOver(len(decoy)), decoy...)
	if rng.Bool(r) {
		return append(block, jmp...)
	}
	return append(jmp, block...)
}

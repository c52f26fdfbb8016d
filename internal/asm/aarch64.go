package asm

import (
	"encoding/binary"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

type aarch64Assembler struct{}

func (aarch64Assembler) Arch() arch.Arch { return arch.AArch64 }

// aarch64Emit mirrors internal/garbage/aarch64.go's own helper of the same
// shape: AArch64 instructions are fixed 32-bit little-endian words.
func aarch64Emit(buf *buffer.Buffer, instr uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], instr)
	buf.Write(b[:])
}

// movImm64 loads a full 64-bit immediate into reg using MOVZ followed by
// as many MOVK as needed, the same shape as the teacher's
// ARM64Out.MovImm64 (arm64_instructions.go), generalized from "64-bit
// register, no masking" to an explicit helper used for the counter load
// (the seed load uses movImm32 below).
func movImm64(buf *buffer.Buffer, rd uint32, imm uint64) {
	aarch64Emit(buf, 0xD2800000|(uint32(imm&0xFFFF)<<5)|rd)
	if imm>>16&0xFFFF != 0 {
		aarch64Emit(buf, 0xF2A00000|(uint32(imm>>16&0xFFFF)<<5)|rd)
	}
	if imm>>32&0xFFFF != 0 {
		aarch64Emit(buf, 0xF2C00000|(uint32(imm>>32&0xFFFF)<<5)|rd)
	}
	if imm>>48&0xFFFF != 0 {
		aarch64Emit(buf, 0xF2E00000|(uint32(imm>>48&0xFFFF)<<5)|rd)
	}
}

// movImm32 is movImm64's 32-bit-register twin (sf=0 MOVZ/MOVK bases).
func movImm32(buf *buffer.Buffer, rd uint32, imm uint32) {
	aarch64Emit(buf, 0x52800000|(uint32(imm&0xFFFF)<<5)|rd)
	if imm>>16&0xFFFF != 0 {
		aarch64Emit(buf, 0x72A00000|(uint32(imm>>16&0xFFFF)<<5)|rd)
	}
}

// adr emits ADR Xd, label where imm21 is the byte offset from the ADR
// instruction's own address to the label (spec §4.F's AArch64 note: "uses
// adr directly", grounded on original_source/src/sgn/aarch64.rs's
// `adr x1, >_data_sub1`).
func adr(buf *buffer.Buffer, rd uint32, imm21 int32) {
	u := uint32(imm21) & 0x1FFFFF
	immlo := u & 0x3
	immhi := (u >> 2) & 0x7FFFF
	aarch64Emit(buf, 0x10000000|(immlo<<29)|(immhi<<5)|rd)
}

func ldrb(buf *buffer.Buffer, rt, rn uint32, offset uint32) {
	aarch64Emit(buf, 0x39400000|(offset<<10)|(rn<<5)|rt)
}

func strb(buf *buffer.Buffer, rt, rn uint32, offset uint32) {
	aarch64Emit(buf, 0x39000000|(offset<<10)|(rn<<5)|rt)
}

// ldrbReg/strbReg are LDRB/STRB (register offset, plain LSL#0): Wt = [Xn,
// Xm]. Used by SGNDecoderStub so indexer can stay fixed across the loop
// and the counter register supplies the running index, the same [base +
// counter] addressing x64/x32's SGN loops use.
func ldrbReg(buf *buffer.Buffer, rt, rn, rm uint32) {
	aarch64Emit(buf, 0x38606800|(rm<<16)|(rn<<5)|rt)
}

func strbReg(buf *buffer.Buffer, rt, rn, rm uint32) {
	aarch64Emit(buf, 0x38206800|(rm<<16)|(rn<<5)|rt)
}

func eorReg32(buf *buffer.Buffer, rd, rn, rm uint32) {
	aarch64Emit(buf, 0x4A000000|(rm<<16)|(rn<<5)|rd)
}

func addReg32(buf *buffer.Buffer, rd, rn, rm uint32) {
	aarch64Emit(buf, 0x0B000000|(rm<<16)|(rn<<5)|rd)
}

func subImm64(buf *buffer.Buffer, rd, rn uint32, imm uint32) {
	aarch64Emit(buf, 0xD1000000|(imm<<10)|(rn<<5)|rd)
}

func cbnz64(buf *buffer.Buffer, rt uint32, imm19 int32) {
	aarch64Emit(buf, 0xB5000000|((uint32(imm19)&0x7FFFF)<<5)|rt)
}

func (aarch64Assembler) GarbageInstructions(model arch.Model, r rng.Source, trace io.Writer) []byte {
	return composeGarbage(arch.AArch64, model, r, trace, aarch64Assembler{})
}

// JumpOver/CallOver are x86-specific idioms (spec glossary: "on x86");
// AArch64 locates data directly with ADR (see SGNDecoderStub and
// SchemaDecoder below) and never needs a call/jump-over header of its
// own, so composeGarbage's decoy-wrapping branch degrades to an
// unconditional B with a 26-bit word-aligned immediate for the same
// "skip n bytes of filler" role generate_garbage_instructions needs. The
// skip is rounded up to whole 4-byte words, so it is exactly n bytes only
// when n is a multiple of 4.
func (aarch64Assembler) JumpOver(n int) []byte {
	words := (n + 3) / 4
	instr := uint32(0x14000000) | uint32((words+1)&0x3FFFFFF)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, instr)
	return b
}

func (a aarch64Assembler) CallOver(n int) []byte {
	return a.JumpOver(n)
}

// SGNDecoderStub follows the same xor-then-additive-feedback state machine
// as x64Assembler.SGNDecoderStub, adapted to a load/store architecture:
// ldrb the ciphertext byte at [indexer, counter], eor with the low byte of
// seedReg, strb the plaintext byte back, then add the plaintext byte into
// seedReg. indexer is set once via ADR to (data-1) and never changes —
// the counter register (fixed X2, spec §4.F: "a fixed x2 on AArch64")
// supplies the running [indexer+counter] index and counts payloadSize
// down to 1, so the byte at data-1+payloadSize (the LAST byte of data) is
// visited first and data-1+1 (the first byte) last — the same
// last-to-first order x64/x32's RCX/ECX-indexed loops walk, and the order
// internal/feedback.Decode itself walks in.
//
// No masking of seedReg's upper bits is needed between iterations: both
// EOR and ADD are bit/byte-local from low bits to high (no downward carry
// or bit dependency), so the low byte of every subsequent result is
// exactly the 8-bit-wraparound value the x86 stub computes, regardless of
// what garbage accumulates above it.
func (a aarch64Assembler) SGNDecoderStub(cfg SGNConfig, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	indexer, seedReg, err := pickDistinctExcluding(model, r, arch.X2, arch.X3)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "aarch64", Op: "sgn_decoder_stub", Err: err}
	}

	buf := buffer.New(trace)
	movImm32(buf, uint32(seedReg.Encoding), uint32(cfg.Seed))
	movImm64(buf, uint32(arch.X2.Encoding), uint64(cfg.PayloadSize))

	loop := buffer.New(nil)
	loopStart := loop.Len()
	ldrbReg(loop, 3, uint32(indexer.Encoding), uint32(arch.X2.Encoding))
	eorReg32(loop, 3, 3, uint32(seedReg.Encoding))
	strbReg(loop, 3, uint32(indexer.Encoding), uint32(arch.X2.Encoding))
	addReg32(loop, uint32(seedReg.Encoding), uint32(seedReg.Encoding), 3)
	subImm64(loop, uint32(arch.X2.Encoding), uint32(arch.X2.Encoding), 1)
	cbnzAt := loop.Len()
	cbnz64(loop, uint32(arch.X2.Encoding), int32(loopStart-cbnzAt)/4)

	// adr indexer, (data-1): data begins immediately after loop, and ADR's
	// offset is relative to its OWN address (not its end, unlike x86
	// rel32) — so the "-1" lands one byte before loop.Len()+1.
	adr(buf, uint32(indexer.Encoding), int32(4+loop.Len()-1))

	buf.Write(loop.Bytes())
	return buf.Bytes(), nil
}

// SchemaDecoder adapts the x86 garbage1/call-over/garbage2/pop state
// machine (original_source/src/schema/x64.rs) to AArch64 by using ADR to
// locate data directly, the same way SGNDecoderStub does above, rather
// than x86's call-over/jmp-back trick — AArch64 already has a
// PC-relative addressing instruction and does not need the stack-based
// workaround (spec §4.E: "AArch64 ... follow the same state-machine but
// with architecture-appropriate memory-operand encodings"). garbagePrefix
// is supplied by the caller (see the Assembler interface doc) rather than
// generated here.
func (a aarch64Assembler) SchemaDecoder(garbagePrefix, data []byte, seq schemaop.Sequence, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	indexer, err := model.RandomExcluding(r, arch.X2)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: "aarch64", Op: "schema_decoder", Err: err}
	}

	body := buffer.New(nil)
	offset := int32(0)
	for _, op := range seq {
		body.Write(a.GarbageInstructions(model, r, trace))
		instrBytes, err := aarch64SchemaOpBytes(indexer, offset, op)
		if err != nil {
			return nil, &errs.AssemblerError{Arch: "aarch64", Op: "schema_decoder", Err: err}
		}
		body.Write(instrBytes)
		offset += 4
	}

	stub := buffer.New(trace)
	stub.Write(garbagePrefix)
	adr(stub, uint32(indexer.Encoding), int32(4+body.Len()))
	stub.Write(body.Bytes())
	stub.Write(data)
	return stub.Bytes(), nil
}

func aarch64SchemaOpBytes(indexer arch.Register, offset int32, op schemaop.Op) ([]byte, error) {
	buf := buffer.New(nil)
	rn := uint32(indexer.Encoding)
	scaledOffset := uint32(offset) / 4
	switch op.Instruction {
	case schemaop.XOR:
		keyReg := uint32(30) // x30/w30 (link register) used as a scratch key holder; never relied on as a return address here
		movImm32(buf, keyReg, binary.BigEndian.Uint32(op.Key[:]))
		ldrb32Word(buf, 2, rn, scaledOffset)
		eorReg32(buf, 2, 2, keyReg)
		strb32Word(buf, 2, rn, scaledOffset)
	case schemaop.ADD:
		keyReg := uint32(30)
		movImm32(buf, keyReg, binary.BigEndian.Uint32(op.Key[:]))
		ldrb32Word(buf, 2, rn, scaledOffset)
		addReg32(buf, 2, 2, keyReg)
		strb32Word(buf, 2, rn, scaledOffset)
	case schemaop.SUB:
		keyReg := uint32(30)
		movImm32(buf, keyReg, binary.BigEndian.Uint32(op.Key[:]))
		ldrb32Word(buf, 2, rn, scaledOffset)
		subReg32(buf, 2, 2, keyReg)
		strb32Word(buf, 2, rn, scaledOffset)
	case schemaop.ROL:
		ldrb32Word(buf, 2, rn, scaledOffset)
		rorImm32(buf, 2, 2, (32-uint32(op.RotateCount())%32)%32)
		strb32Word(buf, 2, rn, scaledOffset)
	case schemaop.ROR:
		ldrb32Word(buf, 2, rn, scaledOffset)
		rorImm32(buf, 2, 2, uint32(op.RotateCount())%32)
		strb32Word(buf, 2, rn, scaledOffset)
	case schemaop.NOT:
		ldrb32Word(buf, 2, rn, scaledOffset)
		mvn32(buf, 2, 2)
		strb32Word(buf, 2, rn, scaledOffset)
	default:
		return nil, errUnknownInstruction
	}
	return buf.Bytes(), nil
}

// ldrb32Word/strb32Word load/store the 32-bit word at [rn, #offset*4]
// (LDR/STR 32-bit, unsigned immediate offset, scaled by 4) standing in for
// x86's "DWORD PTR [REG_IDX+offset]" operand (spec §4.E).
func ldrb32Word(buf *buffer.Buffer, rt, rn uint32, scaledOffset uint32) {
	aarch64Emit(buf, 0xB9400000|(scaledOffset<<10)|(rn<<5)|rt)
}

func strb32Word(buf *buffer.Buffer, rt, rn uint32, scaledOffset uint32) {
	aarch64Emit(buf, 0xB9000000|(scaledOffset<<10)|(rn<<5)|rt)
}

func subReg32(buf *buffer.Buffer, rd, rn, rm uint32) {
	aarch64Emit(buf, 0x4B000000|(rm<<16)|(rn<<5)|rd)
}

// rorImm32 is the 32-bit EXTR Wd,Wn,Wn,#shift alias (ROR by immediate) —
// ARM64 has no separate "rotate left" opcode, so a named ROL op is
// realized here as a ROR by (32-count), matching aarch64SchemaOpBytes'
// ROL case above.
func rorImm32(buf *buffer.Buffer, rd, rn uint32, shift uint32) {
	aarch64Emit(buf, 0x13800000|(rn<<16)|(shift<<10)|(rn<<5)|rd)
}

// mvn32 is MVN Wd,Wm (ORN Wd,WZR,Wm), standing in for x86's bitwise NOT.
func mvn32(buf *buffer.Buffer, rd, rm uint32) {
	aarch64Emit(buf, 0x2A2003E0|(rm<<16)|rd)
}

func (aarch64Assembler) SaveRegistersPrefix() []byte {
	return stpPushAll()
}

func (aarch64Assembler) SaveRegistersSuffix() []byte {
	return ldpPopAll()
}

// stpPushAll/ldpPopAll save/restore the model's GPRs (x0-x28) two-at-a-time via
// pre/post-indexed STP/LDP on the stack pointer, the teacher's
// push-everything/pop-everything idiom (spec §4.C, §4.F step 7) adapted
// to AArch64's paired load/store. x29 and x30 are not in aarch64GPRs and
// are not saved; the odd register left over (x28) gets its own STR/LDR.
func stpPushAll() []byte {
	buf := buffer.New(nil)
	regs := arch.NewModel(arch.AArch64).All()
	for i := 0; i+1 < len(regs); i += 2 {
		rt := uint32(regs[i].Encoding)
		rt2 := uint32(regs[i+1].Encoding)
		// STP Xt, Xt2, [SP, #-16]!
		aarch64Emit(buf, 0xA9BF0000|(rt2<<10)|(31<<5)|rt)
	}
	if len(regs)%2 == 1 {
		rt := uint32(regs[len(regs)-1].Encoding)
		aarch64Emit(buf, 0xF81F0FE0|rt) // str xt, [sp, #-16]!
	}
	return buf.Bytes()
}

func ldpPopAll() []byte {
	buf := buffer.New(nil)
	regs := arch.NewModel(arch.AArch64).All()
	last := len(regs) - 1
	if len(regs)%2 == 1 {
		rt := uint32(regs[last].Encoding)
		aarch64Emit(buf, 0xF84107E0|rt) // ldr xt, [sp], #16
		last--
	}
	for i := last; i-1 >= 0; i -= 2 {
		rt := uint32(regs[i-1].Encoding)
		rt2 := uint32(regs[i].Encoding)
		// LDP Xt, Xt2, [SP], #16
		aarch64Emit(buf, 0xA8C10000|(rt2<<10)|(31<<5)|rt)
	}
	return buf.Bytes()
}

func (a aarch64Assembler) XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	return aarch64XorDynamicStub(model, r, trace)
}

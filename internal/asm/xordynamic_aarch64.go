package asm

import (
	"encoding/binary"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

func appendInstr(b []byte, instr uint32) []byte {
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], instr)
	return append(b, w[:]...)
}

// bCondInstr encodes B.cond with target expressed as a backward byte
// distance from the branch instruction's own address (pos) — the
// instruction-word count the imm19 field wants is that distance/4.
func bCondInstr(cond uint32, target, pos int) uint32 {
	imm19 := uint32(int32(target-pos)/4) & 0x7FFFF
	return 0x54000000 | (imm19 << 5) | cond
}

// aarch64XorDynamicStub re-renders x64XorDynamicStub's state machine (scan
// for KEY_TERM, then repeating-XOR decrypt with PAYLOAD_TERM detection and
// key-wraparound via re-scanning for KEY_TERM) in AArch64's load/store ISA.
// It uses ADR to locate the key region directly instead of the x86
// call/pop idiom — the same adaptation SGNDecoderStub and SchemaDecoder
// make above — since AArch64 never needs the stack to learn its own
// address. Registers are fixed (x1/x3/x4/x5, scratch w0/w6/w7/w8/w9)
// rather than drawn from model, mirroring the original's own
// fixed-register design for this stub.
func aarch64XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	const (
		keyBase = 1
		scan    = 3
		payload = 4
		keyCur  = 5
	)

	var b []byte

	b = appendInstr(b, 0xAA0003E0|(keyBase<<16)|scan) // mov x3, x1
	lp1Start := len(b)
	b = appendInstr(b, 0x38400400|(1<<12)|(scan<<5)|0) // ldrb w0, [x3], #1
	b = appendInstr(b, 0x7100001F|(KeyTermPlaceholder<<10)|(0<<5))
	b = appendInstr(b, bCondInstr(0x1, lp1Start, len(b))) // bne lp1
	// x3 now points one past the KEY_TERM byte: start of ciphertext.
	b = appendInstr(b, 0xAA0003E0|(scan<<16)|payload) // mov x4, x3

	lp2Start := len(b)
	b = appendInstr(b, 0xAA0003E0|(keyBase<<16)|keyCur) // mov x5, x1

	lp3Start := len(b)
	b = appendInstr(b, 0x39400000|(0<<10)|(keyCur<<5)|0)  // ldrb w0, [x5]
	b = appendInstr(b, 0x39400000|(0<<10)|(payload<<5)|6)  // ldrb w6, [x4]
	b = appendInstr(b, 0x4A000000|(0<<16)|(6<<5)|6)        // eor w6, w6, w0
	b = appendInstr(b, 0x39000000|(0<<10)|(payload<<5)|6)  // strb w6, [x4]
	b = appendInstr(b, 0x91000400|(payload<<5)|payload)    // add x4, x4, #1
	b = appendInstr(b, 0x91000400|(keyCur<<5)|keyCur)      // add x5, x5, #1
	b = appendInstr(b, 0x79400000|(0<<10)|(payload<<5)|7) // ldrh w7, [x4]
	payloadTerm := uint32(PayloadTermPlaceholderA)<<8 | uint32(PayloadTermPlaceholderB)
	b = appendInstr(b, 0x52800000|(payloadTerm<<5)|8) // movz w8, #PAYLOAD_TERM
	b = appendInstr(b, 0x6B00001F|(8<<16)|(7<<5))     // cmp w7, w8

	jePos := len(b)
	b = appendInstr(b, 0x54000000|0x0) // beq jmp_label (patched below)

	b = appendInstr(b, 0x39400000|(0<<10)|(keyCur<<5)|9)            // ldrb w9, [x5]
	b = appendInstr(b, 0x7100001F|(KeyTermPlaceholder<<10)|(9<<5))  // cmp w9, #KEY_TERM
	b = appendInstr(b, bCondInstr(0x1, lp3Start, len(b)))           // bne lp3
	b = appendInstr(b, 0x14000000|(uint32(int32((lp2Start-len(b))/4))&0x3FFFFFF)) // b lp2

	jmpLabelPos := len(b)
	jeImm19 := uint32(int32((jmpLabelPos-jePos)/4)) & 0x7FFFF
	binary.LittleEndian.PutUint32(b[jePos:jePos+4], binary.LittleEndian.Uint32(b[jePos:jePos+4])|((jeImm19<<5)|0x0))

	b = appendInstr(b, 0xD61F0000|(scan<<5)) // br x3 (x3 still holds the ciphertext start)

	adrHeader := make([]byte, 4)
	binary.LittleEndian.PutUint32(adrHeader, adrInstr(keyBase, int32(4+len(b))))

	buf := buffer.New(trace)
	buf.Write(adrHeader)
	buf.Write(b)
	return buf.Bytes(), nil
}

func adrInstr(rd uint32, imm21 int32) uint32 {
	u := uint32(imm21) & 0x1FFFFF
	immlo := u & 0x3
	immhi := (u >> 2) & 0x7FFFF
	return 0x10000000 | (immlo << 29) | (immhi << 5) | rd
}

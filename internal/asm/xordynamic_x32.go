package asm

import (
	"encoding/binary"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// x32XorDynamicStub is the 32-bit-mode twin of x64XorDynamicStub: the same
// instruction sequence (original_source/src/xor_dynamic/x64.rs's dynasm
// block has no 32-bit-specific variant in the pack, so this is generalized
// from the x64 one the same way internal/garbage/x32.go generalizes the
// x64 garbage table), with ebx/ecx/edi/esi/eax in place of the 64-bit GPRs
// and single-byte INC r32 in place of the REX.W "inc r64" form — 32-bit
// mode's INC/DEC opcodes (0x40-0x4F) are single-byte.
func x32XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	var b []byte

	b = append(b, 0x5B)                     // pop ebx
	b = append(b, 0x53)                     // push ebx
	b = append(b, 0x5F)                     // pop edi
	b = append(b, 0xB0, KeyTermPlaceholder) // mov al, KEY_TERM
	b = append(b, 0xFC)                     // cld

	lp1Start := len(b)
	b = append(b, 0xAE) // scasb
	b = append(b, 0x75, jumpRel8(lp1Start, len(b)+2))

	b = append(b, 0x57, 0x59) // push edi; pop ecx

	lp2Start := len(b)
	b = append(b, 0x53, 0x5E) // push ebx; pop esi

	lp3Start := len(b)
	b = append(b, 0x8A, 0x06) // mov al, [esi]
	b = append(b, 0x30, 0x07) // xor [edi], al
	b = append(b, 0x47)       // inc edi
	b = append(b, 0x46)       // inc esi
	b = append(b, 0x66, 0x81, 0x3F, PayloadTermPlaceholderA, PayloadTermPlaceholderB) // cmp word [edi], PAYLOAD_TERM

	jePos := len(b)
	b = append(b, 0x74, 0x00) // je jmp_label (patched below)

	b = append(b, 0x80, 0x3E, KeyTermPlaceholder) // cmp byte [esi], KEY_TERM
	b = append(b, 0x75, jumpRel8(lp3Start, len(b)+2))
	b = append(b, 0xEB, jumpRel8(lp2Start, len(b)+2))

	jmpLabelPos := len(b)
	b[jePos+1] = jumpRel8(jmpLabelPos, jePos+2)

	b = append(b, 0xFF, 0xE1) // jmp ecx

	callLabelPos := len(b)
	callRel := int32(0 - (callLabelPos + 5))
	b = append(b, 0xE8)
	callImm := make([]byte, 4)
	binary.LittleEndian.PutUint32(callImm, uint32(callRel))
	b = append(b, callImm...)

	header := []byte{0xEB, byte(int8(callLabelPos))}

	buf := buffer.New(trace)
	buf.Write(header)
	buf.Write(b)
	return buf.Bytes(), nil
}

package asm

import (
	"encoding/binary"
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// KeyTermPlaceholder and PayloadTermPlaceholder are the well-known bytes
// the assembled stub embeds in place of the runtime-chosen terminators
// (spec §4.G: "0x41 ... as the KEY_TERM placeholder and 0x42 0x42 ... as
// the PAYLOAD_TERM placeholder"). The xordynamic package substitutes these
// after key/terminator selection.
const (
	KeyTermPlaceholder      = 0x41
	PayloadTermPlaceholderA = 0x42
	PayloadTermPlaceholderB = 0x42
)

// x64XorDynamicStub hand-encodes the fixed-register self-locating stub
// described in spec §4.G and grounded directly on
// original_source/src/xor_dynamic/x64.rs's dynasm block:
//
//	jmp short call_label
//	ret_label: pop rbx; push rbx; pop rdi; mov al, KEY_TERM; cld
//	lp1: scasb; jne lp1
//	push rdi; pop rcx
//	lp2: push rbx; pop rsi
//	lp3: mov al,[rsi]; xor [rdi],al; inc rdi; inc rsi
//	     cmp word [rdi], PAYLOAD_TERM; je jmp_label
//	     cmp byte [rsi], KEY_TERM; jne lp3
//	     jmp lp2
//	jmp_label: jmp rcx
//	call_label: call ret_label
//
// The registers are fixed (rax/rbx/rcx/rsi/rdi) rather than drawn from the
// model, matching the original's own fixed-register stub — spec §4.G
// never asks for register randomization here, unlike SGN/schema.
func x64XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error) {
	var b []byte

	b = append(b, 0x5B)             // pop rbx
	b = append(b, 0x53)             // push rbx
	b = append(b, 0x5F)             // pop rdi
	b = append(b, 0xB0, KeyTermPlaceholder) // mov al, KEY_TERM
	b = append(b, 0xFC)             // cld

	lp1Start := len(b)
	b = append(b, 0xAE) // scasb
	b = append(b, 0x75, jumpRel8(lp1Start, len(b)+2))

	b = append(b, 0x57, 0x59) // push rdi; pop rcx

	lp2Start := len(b)
	b = append(b, 0x53, 0x5E) // push rbx; pop rsi

	lp3Start := len(b)
	b = append(b, 0x8A, 0x06)       // mov al, [rsi]
	b = append(b, 0x30, 0x07)       // xor [rdi], al
	b = append(b, 0x48, 0xFF, 0xC7) // inc rdi
	b = append(b, 0x48, 0xFF, 0xC6) // inc rsi
	b = append(b, 0x66, 0x81, 0x3F, PayloadTermPlaceholderA, PayloadTermPlaceholderB) // cmp word [rdi], PAYLOAD_TERM

	jePos := len(b)
	b = append(b, 0x74, 0x00) // je jmp_label (patched below)

	b = append(b, 0x80, 0x3E, KeyTermPlaceholder) // cmp byte [rsi], KEY_TERM
	b = append(b, 0x75, jumpRel8(lp3Start, len(b)+2))
	b = append(b, 0xEB, jumpRel8(lp2Start, len(b)+2))

	jmpLabelPos := len(b)
	b[jePos+1] = jumpRel8(jmpLabelPos, jePos+2)

	b = append(b, 0xFF, 0xE1) // jmp rcx

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

// jumpRel8 computes the signed rel8 displacement for a short jump whose
// encoded-instruction-end offset is end, targeting offset target, both
// measured from the same origin.
func jumpRel8(target, end int) byte {
	return byte(int8(target - end))
}

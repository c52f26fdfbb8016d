// Package asm implements the code-assembler abstraction of spec component
// C: one backend per target architecture, each exposing garbage-instruction
// composition, the jump-over/call-over idioms, and the three stage
// decoders (SGN, schema, XorDynamic) plus register save/restore wrappers.
//
// Grounded on the teacher's unfinished CodeGenerator interface (codegen.go:
// "Exposes: ... eliminate the 100+ switch statements ... Define
// CodeGenerator interface ... Create architecture-specific implementations
// ... NewCodeGenerator creates the appropriate backend for the given
// architecture") — this package is the completed version of that pattern,
// one concrete struct per architecture behind a shared interface, built out
// instead of left as a migration skeleton.
package asm

import (
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"
)

// SGNConfig carries the per-stage parameters needed to emit an SGN decoder
// stub (spec §4.F step 3).
type SGNConfig struct {
	Seed        byte
	PayloadSize int
}

// XorDynamicConfig carries the per-stage parameters needed to emit an
// XorDynamic decoder stub (spec §4.G). KeyTerm/PayloadTerm substitution
// happens after assembly, by the caller, against the stub's well-known
// placeholder bytes (0x41 and 0x42 0x42) — this package only emits the
// placeholder-bearing stub.
type XorDynamicConfig struct{}

// Assembler is the per-architecture code-assembler abstraction (spec
// §4.C). Every method is a pure function of its arguments plus the RNG
// source threaded through it — an Assembler holds no mutable state of its
// own.
type Assembler interface {
	Arch() arch.Arch

	// GarbageInstructions implements generate_garbage_instructions (spec
	// §4.B): one garbage block, optionally paired with a jump-over-garbage
	// construct placed before or after it.
	GarbageInstructions(model arch.Model, r rng.Source, trace io.Writer) []byte

	// JumpOver returns a forward jump header that skips exactly n bytes of
	// subsequent content (the caller appends those n bytes immediately
	// after the returned header).
	JumpOver(n int) []byte

	// CallOver returns a call header such that, once the caller appends n
	// bytes of payload immediately after it, executing the header pushes
	// the address of that payload's first byte onto the stack (spec
	// glossary: "call label; <payload>; label:").
	CallOver(n int) []byte

	// SGNDecoderStub emits the machine code that decodes an
	// additive-feedback-XOR-encoded payload of cfg.PayloadSize bytes
	// placed immediately after the returned stub (spec §4.F step 3).
	SGNDecoderStub(cfg SGNConfig, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error)

	// SchemaDecoder emits a schema decoder stub that decrypts data in
	// place using seq, following a caller-supplied garbage prefix that
	// precedes data inside the wrapped block (spec §4.E steps 1-4). The
	// caller — internal/schemacipher — generates garbagePrefix itself
	// (via GarbageInstructions) before computing seq's length and before
	// running schemaop.ApplyForward, since the schema-size rule and the
	// forward transform's offset both depend on knowing the garbage
	// prefix's exact length ahead of time; SchemaDecoder only assembles
	// around a prefix it is handed, it never invents its own. The
	// returned bytes are self-contained and hold garbagePrefix, data and
	// the decoder together; the order is backend-specific (x86: call
	// header ∥ garbagePrefix ∥ data ∥ decoder; AArch64: garbagePrefix ∥
	// decoder ∥ data).
	SchemaDecoder(garbagePrefix, data []byte, seq schemaop.Sequence, model arch.Model, r rng.Source, trace io.Writer) ([]byte, error)

	// XorDynamicStub emits the self-locating repeating-XOR decoder stub
	// with its KEY_TERM/PAYLOAD_TERM placeholders still in place (spec
	// §4.G). Callers substitute the placeholders and append key/ciphertext
	// around the returned bytes per the stub's expected layout.
	XorDynamicStub(model arch.Model, r rng.Source, trace io.Writer) ([]byte, error)

	// SaveRegistersPrefix/SaveRegistersSuffix emit the architectural-state
	// save/restore wrapper used when a stage's save_registers flag is set
	// (spec §4.C, §4.F step 7).
	SaveRegistersPrefix() []byte
	SaveRegistersSuffix() []byte
}

// New returns the Assembler backend for a.
func New(a arch.Arch) Assembler {
	switch a {
	case arch.X64:
		return x64Assembler{}
	case arch.X32:
		return x32Assembler{}
	case arch.AArch64:
		return aarch64Assembler{}
	default:
		return nil
	}
}

// pickDistinctExcluding draws two distinct registers from model, neither
// equal (per arch.Register.Equal) to any member of excluded. It is the
// shared shape behind "two distinct GPRs ... both excluded from a
// hard-wired counter register" (spec §4.F step 3) and "REG_IDX is a random
// GPR excluding RSP" (spec §4.E step 4).
func pickDistinctExcluding(model arch.Model, r rng.Source, excluded ...arch.Register) (first, second arch.Register, err error) {
	first, err = model.RandomExcluding(r, excluded...)
	if err != nil {
		return arch.Register{}, arch.Register{}, err
	}
	second, err = model.RandomExcluding(r, append(append([]arch.Register{}, excluded...), first)...)
	if err != nil {
		return arch.Register{}, arch.Register{}, err
	}
	return first, second, nil
}

// Package sgn implements the Shikata-Ga-Nai-style encoder (spec component
// F, §4.F): additive-feedback XOR over the payload, a per-architecture
// decoder stub that reverses it at runtime, optional recursive
// re-encoding, an optional schema-cipher wrap of each iteration's stub,
// and an optional outer register save/restore wrapper.
package sgn

import (
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/asm"
	"github.com/LegateJD/sm-encoders/internal/feedback"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemacipher"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

// Config carries the per-stage parameters for an SGN pipeline stage (spec
// §6, type: sgn).
type Config struct {
	Arch arch.Arch
	Seed byte

	// PlainDecoder skips the schema-cipher wrap of each iteration's
	// decoder stub (spec §4.F step 5).
	PlainDecoder bool

	// SaveRegisters wraps the whole encoded result with a prefix that
	// saves architectural state and a suffix that restores it before
	// falling through to the original payload (spec §4.F step 7).
	SaveRegisters bool

	// EncodingCount is the number of recursive encode iterations, 1-10
	// (spec §3 "Stage descriptor").
	EncodingCount int

	BadChars []byte
}

// Encode runs the 7-step SGN algorithm (spec §4.F) against payload.
func Encode(payload []byte, cfg Config, r rng.Source, trace io.Writer) ([]byte, error) {
	backend := asm.New(cfg.Arch)
	if backend == nil {
		return nil, &errs.AssemblerError{Arch: cfg.Arch.String(), Op: "sgn_encode"}
	}
	model := arch.NewModel(cfg.Arch)

	data := append([]byte{}, payload...)

	var savePrefix, saveSuffix []byte
	if cfg.SaveRegisters {
		savePrefix = backend.SaveRegistersPrefix()
		saveSuffix = backend.SaveRegistersSuffix()
		// The suffix is appended to the plaintext before the first
		// iteration's garbage prefix is drawn, so it rides along through
		// every subsequent encoding pass like any other payload byte
		// (spec §4.F step 7).
		data = append(data, saveSuffix...)
	}

	count := cfg.EncodingCount
	if count <= 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		var err error
		data, err = encodeOnce(backend, model, cfg, data, r, trace)
		if err != nil {
			return nil, err
		}
	}

	if cfg.SaveRegisters {
		data = append(append([]byte{}, savePrefix...), data...)
	}

	if err := errs.CheckBadCharacters(data, cfg.BadChars); err != nil {
		return nil, err
	}
	return data, nil
}

// encodeOnce runs steps 1-5 of spec §4.F against data once.
func encodeOnce(backend asm.Assembler, model arch.Model, cfg Config, data []byte, r rng.Source, trace io.Writer) ([]byte, error) {
	// Step 1: prepend a fresh garbage block to the plaintext.
	garbage := backend.GarbageInstructions(model, r, trace)
	transformed := append(append([]byte{}, garbage...), data...)
	payloadSize := len(transformed)

	// Step 2: additive-feedback XOR over the whole garbage∥data buffer.
	feedback.Encode(transformed, cfg.Seed)

	// Step 3: emit the decoder stub sized for payloadSize.
	stub, err := backend.SGNDecoderStub(asm.SGNConfig{Seed: cfg.Seed, PayloadSize: payloadSize}, model, r, trace)
	if err != nil {
		return nil, &errs.AssemblerError{Arch: backend.Arch().String(), Op: "sgn_decoder_stub", Err: err}
	}

	// Step 4: concatenate stub ∥ transformed data.
	blob := append(append([]byte{}, stub...), transformed...)

	// Step 5: optional schema-cipher wrap of the whole stub+data blob.
	// The schema size is computed from the stub's own length (spec §4.F
	// step 5: "compute schema size = ⌈stub_len/4⌉+1"); there is no inert
	// prefix here distinct from the blob itself, so schemacipher.Wrap is
	// called with an empty prefix and the size supplied explicitly,
	// reusing the same schema-size formula schemaop.Length implements.
	if !cfg.PlainDecoder {
		schemaSize := schemaop.Length(len(stub))
		wrapped, err := schemacipher.Wrap(nil, blob, cfg.Arch, schemaSize, r, trace)
		if err != nil {
			return nil, err
		}
		blob = wrapped
	}

	return blob, nil
}

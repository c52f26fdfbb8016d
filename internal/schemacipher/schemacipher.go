// Package schemacipher wires the pure schema model (internal/schemaop)
// to the per-architecture decoder-stub emitter (internal/asm), completing
// component E's stage-level half (spec §4.E). It owns the one invariant
// that must hold across that package boundary: the forward transform's
// starting offset and the schema sequence's length both depend on the
// exact length of whatever region precedes the ciphered data inside the
// call-over'd block, so that region's bytes must be decided here, once,
// before either schemaop.Generate or schemaop.ApplyForward run — never
// inside internal/asm, which only assembles around a prefix it is handed.
package schemacipher

import (
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/asm"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

// Config carries the per-stage parameters for a standalone `type: schema`
// pipeline stage (spec §6).
type Config struct {
	Arch arch.Arch

	// SchemaSize overrides the computed schema length when > 0 (spec §6:
	// "schema_size: <usize, optional> # overrides computed size").
	SchemaSize int

	// BadChars is checked against the final assembled stub (spec §7:
	// "an intermediate or final blob contains a forbidden byte" — the
	// schema stage has no avoidance strategy, only a passive check).
	BadChars []byte
}

// Encode is the standalone schema pipeline stage: draw a fresh garbage
// prefix, then hand it to Wrap exactly as spec §4.E describes.
func Encode(payload []byte, cfg Config, r rng.Source, trace io.Writer) ([]byte, error) {
	backend := asm.New(cfg.Arch)
	if backend == nil {
		return nil, &errs.SchemaEncoderError{Err: &errs.AssemblerError{Arch: cfg.Arch.String(), Op: "schema_encode"}}
	}
	model := arch.NewModel(cfg.Arch)
	garbagePrefix := backend.GarbageInstructions(model, r, trace)
	out, err := Wrap(garbagePrefix, payload, cfg.Arch, cfg.SchemaSize, r, trace)
	if err != nil {
		return nil, err
	}
	if err := errs.CheckBadCharacters(out, cfg.BadChars); err != nil {
		return nil, err
	}
	return out, nil
}

// Wrap applies the schema cipher to data, treating prefix as the opaque
// region that precedes data inside the call-over'd block (spec §4.E steps
// 1-4). For a standalone schema stage prefix is a freshly drawn garbage
// block (see Encode above); when SGN wraps itself in a schema cipher
// (spec §4.F step 5), prefix is nil and schemaSize is supplied explicitly
// as schemaop.Length(len(stub)), so the whole stub∥data blob is ciphered
// from offset 0. A schemaSize <= 0 falls back to ⌈len(prefix)/4⌉+1.
func Wrap(prefix, data []byte, a arch.Arch, schemaSize int, r rng.Source, trace io.Writer) ([]byte, error) {
	backend := asm.New(a)
	if backend == nil {
		return nil, &errs.SchemaEncoderError{Err: &errs.AssemblerError{Arch: a.String(), Op: "schema_wrap"}}
	}
	model := arch.NewModel(a)

	length := schemaSize
	if length <= 0 {
		length = schemaop.Length(len(prefix))
	}
	seq := schemaop.Generate(r, length)

	combined := append(append([]byte{}, prefix...), data...)
	seq.ApplyForward(combined, len(prefix))
	transformed := combined[len(prefix):]

	stub, err := backend.SchemaDecoder(prefix, transformed, seq, model, r, trace)
	if err != nil {
		return nil, &errs.SchemaEncoderError{Err: err}
	}
	return stub, nil
}

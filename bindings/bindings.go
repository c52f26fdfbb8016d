// Package bindings is the stable embedding surface a foreign-function or
// host-language binding layer would sit behind (spec component J: "Stable
// C ABI + embedder bindings (spec records only the interface)"). Building
// an actual cgo/C-ABI export, or bindings for any specific host language,
// is explicitly out of scope (spec.md §1: "any foreign-function or
// host-language bindings"); what this package fixes is the Go-side
// call surface those future bindings would wrap — stable function
// signatures over plain byte slices and primitive types. EncodeOnce takes
// only primitives; EncodePipeline takes a smencoders.PipelineConfig, whose
// StageConfig.Architecture field is internal/arch's Arch type.
package bindings

import (
	"crypto/rand"
	"encoding/binary"

	smencoders "github.com/LegateJD/sm-encoders"
	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// EncodeOptions mirrors smencoders.PipelineConfig's stage-level fields in
// a single-stage, primitive-only shape suitable for a C struct mapping:
// no slices of structs, no Go-specific types beyond []byte and the
// numeric/bool fields an ABI can represent directly.
type EncodeOptions struct {
	StageType     string
	Architecture  string
	Seed          byte
	PlainDecoder  bool
	SaveRegisters bool
	EncodingCount int
	BadChars      []byte
	SchemaSize    int

	// RNGSeed1/RNGSeed2 seed the injected RNG (spec §5/§9: "expose an
	// injection seam that accepts a seeded RNG"); a zero pair draws a
	// fresh, non-reproducible pair from the process' own entropy, the
	// same convention the CLI's randomized single-stage mode uses.
	RNGSeed1 uint64
	RNGSeed2 uint64
}

// EncodeOnce runs a single encoder stage against payload, the shape
// `--encoder-type` single-stage CLI invocations use (spec §6). It is the
// narrowest possible embedding surface: one call, primitive arguments,
// primitive/byte-slice return.
func EncodeOnce(payload []byte, opts EncodeOptions) ([]byte, error) {
	a, err := arch.Parse(opts.Architecture)
	if err != nil {
		return nil, err
	}
	cfg := smencoders.PipelineConfig{
		Name: "bindings-single-stage",
		Stages: []smencoders.StageConfig{{
			Type:          smencoders.StageType(opts.StageType),
			Seed:          opts.Seed,
			Architecture:  a,
			PlainDecoder:  opts.PlainDecoder,
			SaveRegisters: opts.SaveRegisters,
			EncodingCount: opts.EncodingCount,
			BadChars:      opts.BadChars,
			SchemaSize:    opts.SchemaSize,
		}},
	}
	return runPipeline(cfg, payload, opts.RNGSeed1, opts.RNGSeed2)
}

// EncodePipeline runs an already-assembled smencoders.PipelineConfig
// against payload — the shape `--pipeline` CLI invocations use once a
// YAML document has been parsed into the schema (spec §6).
func EncodePipeline(cfg smencoders.PipelineConfig, payload []byte, rngSeed1, rngSeed2 uint64) ([]byte, error) {
	return runPipeline(cfg, payload, rngSeed1, rngSeed2)
}

func runPipeline(cfg smencoders.PipelineConfig, payload []byte, seed1, seed2 uint64) ([]byte, error) {
	p, err := smencoders.NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	if seed1 == 0 && seed2 == 0 {
		var b [16]byte
		if _, err := rand.Read(b[:]); err != nil {
			return nil, err
		}
		seed1 = binary.LittleEndian.Uint64(b[:8])
		seed2 = binary.LittleEndian.Uint64(b[8:])
	}
	r := rng.New(seed1, seed2)
	return p.Run(payload, r, nil)
}

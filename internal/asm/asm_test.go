package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"
)

var allArches = []arch.Arch{arch.X64, arch.X32, arch.AArch64}

func TestNewReturnsABackendPerArchitecture(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		require.NotNil(t, backend)
		assert.Equal(t, a, backend.Arch())
	}
}

func TestGarbageInstructionsNeverPanics(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(1, uint64(a))
		for i := 0; i < 200; i++ {
			assert.NotPanics(t, func() {
				backend.GarbageInstructions(model, r, nil)
			})
		}
	}
}

func TestJumpOverAndCallOverSizeHeaderConsistently(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		for _, n := range []int{0, 1, 4, 10, 37} {
			assert.NotEmpty(t, backend.JumpOver(n))
			assert.NotEmpty(t, backend.CallOver(n))
		}
	}
}

func TestSGNDecoderStubProducesNonEmptyStub(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(7, uint64(a))
		cfg := SGNConfig{Seed: 0x5A, PayloadSize: 128}
		stub, err := backend.SGNDecoderStub(cfg, model, r, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, stub)
	}
}

func TestSGNDecoderStubVariesAcrossDraws(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(11, uint64(a))
		cfg := SGNConfig{Seed: 0x10, PayloadSize: 64}

		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			stub, err := backend.SGNDecoderStub(cfg, model, r, nil)
			require.NoError(t, err)
			seen[string(stub)] = true
		}
		assert.Greater(t, len(seen), 1, "SGN stub should vary with register draw across invocations")
	}
}

func TestAArch64SGNDecoderStubIsWholeWords(t *testing.T) {
	backend := New(arch.AArch64)
	model := arch.NewModel(arch.AArch64)
	r := rng.New(3, 4)
	cfg := SGNConfig{Seed: 0x42, PayloadSize: 256}
	stub, err := backend.SGNDecoderStub(cfg, model, r, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, len(stub)%4, "AArch64 encodes fixed 32-bit instruction words")
}

func schemaSeq(r rng.Source) schemaop.Sequence {
	return schemaop.Generate(r, 3)
}

func TestSchemaDecoderWrapsDataAndIsNeverShorterThanData(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(21, uint64(a))
		garbagePrefix := backend.GarbageInstructions(model, r, nil)
		data := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
		seq := schemaSeq(r)

		stub, err := backend.SchemaDecoder(garbagePrefix, data, seq, model, r, nil)
		require.NoError(t, err)
		assert.Greater(t, len(stub), len(data))
	}
}

func TestSchemaDecoderErrorsNeverPanicOnEmptySequence(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(22, uint64(a))
		garbagePrefix := backend.GarbageInstructions(model, r, nil)
		data := []byte{0xAA, 0xBB}

		var stub []byte
		var err error
		assert.NotPanics(t, func() {
			stub, err = backend.SchemaDecoder(garbagePrefix, data, nil, model, r, nil)
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stub)
	}
}

func TestXorDynamicStubContainsPlaceholders(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		model := arch.NewModel(a)
		r := rng.New(33, uint64(a))
		stub, err := backend.XorDynamicStub(model, r, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, stub)
		assert.Contains(t, string(stub), string([]byte{KeyTermPlaceholder}))
	}
}

func TestSaveRegistersPrefixAndSuffixAreSymmetric(t *testing.T) {
	for _, a := range allArches {
		backend := New(a)
		prefix := backend.SaveRegistersPrefix()
		suffix := backend.SaveRegistersSuffix()
		assert.NotEmpty(t, prefix)
		assert.NotEmpty(t, suffix)
		assert.Equal(t, len(prefix), len(suffix), "pushing and popping the same register file should cost the same number of bytes")
	}
}

func TestPickDistinctExcludingReturnsTwoDifferentRegisters(t *testing.T) {
	for _, a := range allArches {
		model := arch.NewModel(a)
		r := rng.New(44, uint64(a))
		for i := 0; i < 50; i++ {
			first, second, err := pickDistinctExcluding(model, r)
			require.NoError(t, err)
			assert.False(t, first.Equal(second))
		}
	}
}

package asm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

func TestX32PickSGNRegistersOnlyDrawsTrueLowByteRegisters(t *testing.T) {
	model := arch.NewModel(arch.X32)
	r := rng.New(8, 9)

	for i := 0; i < 200; i++ {
		indexer, seedReg, err := x32PickSGNRegisters(model, r)
		require.NoError(t, err)
		assert.Less(t, seedReg.Encoding, uint8(4), "seed register must have a genuine 8-bit low view (eax/ecx/edx/ebx)")
		assert.False(t, seedReg.Equal(arch.ECX), "ecx is the hard-wired loop counter")
		assert.False(t, indexer.Equal(arch.ECX))
		assert.False(t, indexer.Equal(seedReg))
	}
}

func TestX32SGNDecoderStubPatchesDisplacementInPlace(t *testing.T) {
	model := arch.NewModel(arch.X32)
	r := rng.New(14, 15)
	backend := x32Assembler{}
	cfg := SGNConfig{Seed: 0x99, PayloadSize: 17}

	stub, err := backend.SGNDecoderStub(cfg, model, r, nil)
	require.NoError(t, err)
	// call $+5, pop reg, mov ecx imm32 (5 bytes), mov reg8 imm8 (2 bytes), then the loop.
	assert.GreaterOrEqual(t, len(stub), 5+1+5+2)
	// The loop's xor (offset 13: opcode, ModRM, SIB) carries disp32 at
	// bytes 16..19: the distance from the popped address (offset 5) to
	// data-1, the stub's last byte.
	disp := int32(binary.LittleEndian.Uint32(stub[16:20]))
	assert.Equal(t, int32(len(stub)-1-5), disp)
}

func TestX32SchemaDecoderNeverPicksESPAsIndexer(t *testing.T) {
	model := arch.NewModel(arch.X32)
	r := rng.New(16, 17)
	for i := 0; i < 100; i++ {
		indexer, err := model.RandomExcluding(r, arch.ESP32)
		require.NoError(t, err)
		assert.False(t, indexer.Equal(arch.ESP32))
	}
}

func TestX32SaveRegistersRoundTripsFullGPRFile(t *testing.T) {
	backend := x32Assembler{}
	model := arch.NewModel(arch.X32)
	assert.Equal(t, len(model.All()), len(backend.SaveRegistersPrefix()))
	assert.Equal(t, len(model.All()), len(backend.SaveRegistersSuffix()))
}

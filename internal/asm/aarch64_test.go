package asm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

func TestAArch64SGNDecoderStubNeverCollidesWithFixedScratchRegisters(t *testing.T) {
	model := arch.NewModel(arch.AArch64)
	r := rng.New(50, 51)
	for i := 0; i < 200; i++ {
		indexer, seedReg, err := pickDistinctExcluding(model, r, arch.X2, arch.X3)
		require.NoError(t, err)
		assert.False(t, indexer.Equal(arch.X2))
		assert.False(t, indexer.Equal(arch.X3))
		assert.False(t, seedReg.Equal(arch.X2))
		assert.False(t, seedReg.Equal(arch.X3))
		assert.False(t, indexer.Equal(seedReg))
	}
}

func TestAArch64SGNDecoderStubLayoutIsMovMovAdrThenLoop(t *testing.T) {
	model := arch.NewModel(arch.AArch64)
	r := rng.New(52, 53)
	backend := aarch64Assembler{}
	cfg := SGNConfig{Seed: 0x21, PayloadSize: 40}

	stub, err := backend.SGNDecoderStub(cfg, model, r, nil)
	require.NoError(t, err)
	require.Equal(t, 0, len(stub)%4)

	// movImm32(seed) is 1 word (low byte seed never needs a MOVK), movImm64
	// for a small PayloadSize is also 1 word, then one ADR word precedes
	// the 6-instruction loop body.
	require.GreaterOrEqual(t, len(stub), 4*3)
	adrWord := binary.LittleEndian.Uint32(stub[8:12])
	assert.Equal(t, uint32(0x10000000), adrWord&0x9F000000, "third word must be an ADR instruction")
}

func TestAdrAndMovImmHelpersRoundTripIntoExpectedOpcodeFamilies(t *testing.T) {
	buf := buffer.New(nil)
	movImm32(buf, 5, 0xBEEF)
	adr(buf, 6, 123)
	b := buf.Bytes()
	require.Equal(t, 8, len(b))

	w0 := binary.LittleEndian.Uint32(b[0:4])
	assert.Equal(t, uint32(0x52800000), w0&0xFFE00000, "MOVZ opcode family")

	w1 := binary.LittleEndian.Uint32(b[4:8])
	assert.Equal(t, uint32(0x10000000), w1&0x9F000000, "ADR opcode family")
}

func TestStpPushAllAndLdpPopAllCoverEveryGPR(t *testing.T) {
	prefix := stpPushAll()
	suffix := ldpPopAll()
	assert.Equal(t, 0, len(prefix)%4)
	assert.Equal(t, 0, len(suffix)%4)
	assert.Equal(t, len(prefix), len(suffix))
}

func TestAArch64XorDynamicStubIsWholeWordsAndContainsKeyTermImmediate(t *testing.T) {
	model := arch.NewModel(arch.AArch64)
	r := rng.New(60, 61)
	backend := aarch64Assembler{}

	stub, err := backend.XorDynamicStub(model, r, nil)
	require.NoError(t, err)
	require.Equal(t, 0, len(stub)%4)

	found := false
	for i := 0; i+4 <= len(stub); i += 4 {
		word := binary.LittleEndian.Uint32(stub[i : i+4])
		if word&0xFFC00000 == 0x71000000 && (word>>10)&0xFFF == uint32(KeyTermPlaceholder) {
			found = true
			break
		}
	}
	assert.True(t, found, "stub must embed a CMP against the KEY_TERM placeholder immediate")
}

func TestBCondInstrEncodesWordOffsetNotByteOffset(t *testing.T) {
	// target 16 bytes before pos -> imm19 should be -4 (word count)
	instr := bCondInstr(0x1, 0, 16)
	imm19 := int32(instr>>5) & 0x7FFFF
	if imm19&0x40000 != 0 {
		imm19 |= ^int32(0x7FFFF)
	}
	assert.Equal(t, int32(-4), imm19)
}

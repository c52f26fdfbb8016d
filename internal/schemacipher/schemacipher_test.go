package schemacipher

import (
	"encoding/binary"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemaop"

	"github.com/LegateJD/sm-encoders/errs"
)

var allArches = []arch.Arch{arch.X64, arch.X32, arch.AArch64}

func TestEncodeProducesNonEmptyOutputAcrossArchitectures(t *testing.T) {
	for _, a := range allArches {
		r := rng.New(1, uint64(a))
		payload := []byte{0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC}
		out, err := Encode(payload, Config{Arch: a}, r, nil)
		require.NoError(t, err)
		assert.Greater(t, len(out), len(payload))
	}
}

func TestEncodeIsReproducibleWithTheSameSeed(t *testing.T) {
	payload := []byte{0x90, 0x90, 0x90, 0x90}
	a := rng.New(42, 42)
	b := rng.New(42, 42)

	out1, err := Encode(payload, Config{Arch: arch.X64}, a, nil)
	require.NoError(t, err)
	out2, err := Encode(payload, Config{Arch: arch.X64}, b, nil)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestEncodeVariesWithIndependentSeeds(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r := rng.New(uint64(i), uint64(i*7+1))
		out, err := Encode(payload, Config{Arch: arch.X64}, r, nil)
		require.NoError(t, err)
		seen[string(out)] = true
	}
	assert.Greater(t, len(seen), 1, "independent RNG draws should resample garbage/schema/registers (spec testable property 6)")
}

func TestSchemaSizeOverrideIsHonored(t *testing.T) {
	r := rng.New(3, 4)
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	out, err := Encode(payload, Config{Arch: arch.X64, SchemaSize: 7}, r, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestEncodeRejectsUnknownArchitecture(t *testing.T) {
	r := rng.New(5, 6)
	_, err := Encode([]byte{0x01}, Config{Arch: arch.Arch(99)}, r, nil)
	require.Error(t, err)
	var schemaErr *errs.SchemaEncoderError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestWrapUsesPrefixLengthForTheSchemaSizeFormula(t *testing.T) {
	// Wrap with an explicit prefix must compute length = ceil(len(prefix)/4)+1
	// exactly as schemaop.Length documents (spec §4.E schema-size rule),
	// the same formula SGN reuses with its stub bytes standing in for
	// "garbage" (spec §4.F step 5).
	prefix := make([]byte, 17) // ceil(17/4)+1 == 6
	data := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	r := rng.New(9, 10)

	out, err := Wrap(prefix, data, arch.X64, 0, r, nil)
	require.NoError(t, err)
	assert.Equal(t, schemaop.Length(len(prefix)), 6)
	assert.NotEmpty(t, out)
}

// simulateRuntimeDecode reproduces, in pure Go, exactly what the assembled
// decoder stub's literal-mnemonic instruction computes against a schema
// operation's key — the same check strategy SPEC_FULL §8 calls for in
// place of a CPU emulator. The byte-order reasoning: the stub's immediate
// operand is encoded as LE(BE_u32(key)) (internal/asm's schemaOpBytes), so
// a native (little-endian) memory read/write of the block composes with
// that immediate to undo ApplyForward's BE/LE convention exactly.
func simulateRuntimeDecode(block []byte, op schemaop.Op) {
	imm := binary.BigEndian.Uint32(op.Key[:])
	switch op.Instruction {
	case schemaop.XOR:
		v := binary.LittleEndian.Uint32(block)
		v ^= imm
		binary.LittleEndian.PutUint32(block, v)
	case schemaop.ADD:
		v := binary.LittleEndian.Uint32(block)
		v += imm
		binary.LittleEndian.PutUint32(block, v)
	case schemaop.SUB:
		v := binary.LittleEndian.Uint32(block)
		v -= imm
		binary.LittleEndian.PutUint32(block, v)
	case schemaop.ROL:
		v := binary.LittleEndian.Uint32(block)
		v = bits.RotateLeft32(v, int(op.RotateCount())%32)
		binary.LittleEndian.PutUint32(block, v)
	case schemaop.ROR:
		v := binary.LittleEndian.Uint32(block)
		v = bits.RotateLeft32(v, -int(op.RotateCount())%32)
		binary.LittleEndian.PutUint32(block, v)
	case schemaop.NOT:
		v := binary.LittleEndian.Uint32(block)
		v = ^v
		binary.LittleEndian.PutUint32(block, v)
	}
}

func TestApplyForwardThenSimulatedRuntimeDecodeRoundTrips(t *testing.T) {
	r := rng.New(100, 200)
	for i := 0; i < 500; i++ {
		original := make([]byte, 4)
		rng.Bytes(r, original)
		op := schemaop.Generate(r, 1)[0]

		block := append([]byte{}, original...)
		schemaop.Sequence{op}.ApplyForward(block, 0)
		simulateRuntimeDecode(block, op)

		assert.Equal(t, original, block, "op=%s key=%x", op.Instruction, op.Key)
	}
}

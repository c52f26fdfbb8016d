package schemaop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/rng"
)

func TestLengthRoundsUpAndAddsOne(t *testing.T) {
	assert.Equal(t, 1, Length(0))
	assert.Equal(t, 2, Length(1))
	assert.Equal(t, 2, Length(4))
	assert.Equal(t, 3, Length(5))
	assert.Equal(t, 6, Length(20))
}

func TestGenerateProducesSchemaInvariants(t *testing.T) {
	r := rng.New(1, 2)
	seq := Generate(r, 500)
	require.Len(t, seq, 500)
	for _, op := range seq {
		switch op.Instruction {
		case NOT:
			assert.False(t, op.HasKey, "NOT must carry no key")
		case ROL, ROR:
			assert.True(t, op.HasKey)
			assert.Equal(t, byte(0), op.Key[0])
			assert.Equal(t, byte(0), op.Key[1])
			assert.Equal(t, byte(0), op.Key[2])
		default:
			assert.True(t, op.HasKey)
		}
	}
}

func TestApplyForwardXOR(t *testing.T) {
	block := []byte{0x00, 0x00, 0x00, 0x0F}
	op := Op{Instruction: XOR, Key: [4]byte{0xFF, 0x00, 0x00, 0x00}, HasKey: true}
	seq := Sequence{op}
	seq.ApplyForward(block, 0)
	// BE(block) = 0x0000000F; LE(key) = 0x000000FF; XOR = 0x000000F0
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xF0}, block)
}

func TestApplyForwardNOT(t *testing.T) {
	block := []byte{0x00, 0x00, 0x00, 0x00}
	seq := Sequence{{Instruction: NOT}}
	seq.ApplyForward(block, 0)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, block)
}

func TestApplyForwardStopsShortOfPartialBlock(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 1, 2}
	seq := Sequence{{Instruction: NOT}, {Instruction: NOT}}
	assert.NotPanics(t, func() {
		seq.ApplyForward(buf, 0)
	})
	assert.Equal(t, []byte{1, 2}, buf[4:])
}

func TestApplyForwardAtOffset(t *testing.T) {
	buf := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0x00, 0x00, 0x00, 0x00}
	seq := Sequence{{Instruction: NOT}}
	seq.ApplyForward(buf, 4)
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0xAA}, buf[:4])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf[4:])
}

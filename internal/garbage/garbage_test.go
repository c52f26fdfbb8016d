package garbage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

func TestGenerateNeverPanicsAcrossArchitectures(t *testing.T) {
	for _, a := range []arch.Arch{arch.X64, arch.X32, arch.AArch64} {
		model := arch.NewModel(a)
		r := rng.New(1, uint64(a))
		for i := 0; i < 200; i++ {
			assert.NotPanics(t, func() {
				Generate(a, model, r, nil)
			})
		}
	}
}

func TestAArch64BlocksAreWholeInstructions(t *testing.T) {
	model := arch.NewModel(arch.AArch64)
	r := rng.New(9, 9)
	for i := 0; i < 100; i++ {
		block := Generate(arch.AArch64, model, r, nil)
		assert.Equal(t, 0, len(block)%4, "AArch64 is fixed 32-bit-instruction width")
	}
}

func TestGenerateProducesVaryingLengths(t *testing.T) {
	model := arch.NewModel(arch.X64)
	r := rng.New(123, 456)
	lengths := map[int]bool{}
	for i := 0; i < 300; i++ {
		lengths[len(Generate(arch.X64, model, r, nil))] = true
	}
	assert.Greater(t, len(lengths), 1, "garbage blocks should vary in length across draws")
}

func TestCmovConditionsCoverAllSixteenEncodings(t *testing.T) {
	seen := map[byte]bool{}
	for _, c := range cmovConditions {
		seen[c] = true
	}
	assert.Len(t, seen, 16)
	for c := byte(0); c <= 0xF; c++ {
		assert.True(t, seen[c], "condition 0x%x missing from cmovConditions", c)
	}
}

func TestX64TableIncludesAJumpOverWrapper(t *testing.T) {
	model := arch.NewModel(arch.X64)
	r := rng.New(1, 1)
	sawJumpOver := false
	for i := 0; i < 400 && !sawJumpOver; i++ {
		block := Generate(arch.X64, model, r, nil)
		if len(block) >= 2 && (block[0] == 0xEB || block[0] == 0xE9) {
			sawJumpOver = true
		}
	}
	assert.True(t, sawJumpOver, "expected to observe a jmp-short-over-garbage block across repeated draws")
}

func TestX32TableIncludesAJumpOverWrapper(t *testing.T) {
	model := arch.NewModel(arch.X32)
	r := rng.New(2, 2)
	sawJumpOver := false
	for i := 0; i < 400 && !sawJumpOver; i++ {
		block := Generate(arch.X32, model, r, nil)
		if len(block) >= 2 && (block[0] == 0xEB || block[0] == 0xE9) {
			sawJumpOver = true
		}
	}
	assert.True(t, sawJumpOver, "expected to observe a jmp-short-over-garbage block across repeated draws")
}

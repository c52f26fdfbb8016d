package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/LegateJD/sm-encoders/internal/rng"
)

func TestParse(t *testing.T) {
	cases := map[string]Arch{
		"x64": X64, "amd64": X64, "x86_64": X64,
		"x32": X32, "x86": X32,
		"aarch64": AArch64, "arm64": AArch64,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Parse("riscv64")
	assert.Error(t, err)
}

func TestRegisterEqual(t *testing.T) {
	a := Register{Quad: "rax", Double: "eax"}
	b := Register{Quad: "rax", Double: "esi"} // same physical register, different cosmetic Double
	c := Register{Quad: "rbx"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	x0 := Register{X: "x0", W: "w0"}
	x1 := Register{X: "x1", W: "w1"}
	assert.False(t, x0.Equal(x1))
	assert.True(t, x0.Equal(Register{X: "x0"}))
}

func TestRandomExcludingCoversEveryGPR(t *testing.T) {
	r := rng.New(1, 2)
	model := NewModel(X64)
	all := model.All()

	_, err := model.RandomExcluding(r, all...)
	assert.Error(t, err)
}

func TestRandomExcludingDistinctFromExclusion(t *testing.T) {
	r := rng.New(42, 7)
	model := NewModel(X64)

	for i := 0; i < 50; i++ {
		picked, err := model.RandomExcluding(r, RCX)
		require.NoError(t, err)
		assert.False(t, picked.Equal(RCX))
	}
}

func TestByNameFindsAnyWidthView(t *testing.T) {
	model := NewModel(X64)
	reg, ok := model.ByName("al")
	require.True(t, ok)
	assert.Equal(t, "rax", reg.Quad)
}

func TestYAMLRoundTripsThroughCanonicalSpelling(t *testing.T) {
	for _, a := range []Arch{X64, X32, AArch64} {
		out, err := yaml.Marshal(a)
		require.NoError(t, err)
		assert.Equal(t, a.String()+"\n", string(out))

		var got Arch
		require.NoError(t, yaml.Unmarshal(out, &got))
		assert.Equal(t, a, got)
	}
}

func TestYAMLUnmarshalRejectsAnUnknownSpelling(t *testing.T) {
	var a Arch
	err := yaml.Unmarshal([]byte("riscv64\n"), &a)
	assert.Error(t, err)
}

func TestAArch64ModelExcludesFixedCounter(t *testing.T) {
	r := rng.New(3, 4)
	model := NewModel(AArch64)
	for i := 0; i < 50; i++ {
		picked, err := model.RandomExcluding(r, X2)
		require.NoError(t, err)
		assert.False(t, picked.Equal(X2))
	}
}

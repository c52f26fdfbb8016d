package smencoders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"

	"github.com/LegateJD/sm-encoders/errs"
)

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{})
	require.Error(t, err)
	var cfgErr *errs.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunSingleSGNStageProducesLongerOutput(t *testing.T) {
	cfg := PipelineConfig{
		Name: "single-sgn",
		Stages: []StageConfig{
			{Type: StageSGN, Architecture: arch.X64, Seed: 0x11, EncodingCount: 1, PlainDecoder: true},
		},
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	r := rng.New(1, 2)
	payload := []byte{0xCC, 0xCC, 0xCC}
	out, err := p.Run(payload, r, nil)
	require.NoError(t, err)
	assert.Greater(t, len(out), len(payload))
}

func TestRunComposesMultipleStagesSequentially(t *testing.T) {
	// Scenario S5: pipeline [sgn(x64,seed=1,count=1,plain=true),
	// schema(x64,seed=2)] applied to a short plaintext.
	cfg := PipelineConfig{
		Name: "s5",
		Stages: []StageConfig{
			{Type: StageSGN, Architecture: arch.X64, Seed: 1, EncodingCount: 1, PlainDecoder: true},
			{Type: StageSchema, Architecture: arch.X64},
		},
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	r := rng.New(3, 4)
	payload := []byte{0x90, 0x90, 0x90, 0x90}
	out, err := p.Run(payload, r, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Greater(t, len(out), len(payload))
}

func TestRunWrapsStageErrorsWithTheFailingIndex(t *testing.T) {
	// Every byte value is forbidden, so the second stage's key search is
	// guaranteed to fail at run time — a config-valid (|badchars| <= 256)
	// but runtime-impossible request, unlike an invalid architecture tag
	// which Validate would already reject before the pipeline is built.
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}
	cfg := PipelineConfig{
		Name: "doomed-second-stage",
		Stages: []StageConfig{
			{Type: StageSGN, Architecture: arch.X64, EncodingCount: 1, PlainDecoder: true},
			{Type: StageXorDynamic, Architecture: arch.X64, BadChars: allBytes},
		},
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	r := rng.New(5, 6)
	_, err = p.Run([]byte{0x01, 0x02}, r, nil)
	require.Error(t, err)
	var stageErr *errs.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 1, stageErr.Index)
	assert.Equal(t, "xor_dynamic", stageErr.Type)
}

func TestRunIsReproducibleWithTheSameSeed(t *testing.T) {
	cfg := PipelineConfig{
		Name: "repro",
		Stages: []StageConfig{
			{Type: StageXorDynamic, Architecture: arch.X64, BadChars: []byte{0xFF}},
		},
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	payload := []byte("repeat me please")
	a := rng.New(7, 8)
	b := rng.New(7, 8)

	out1, err := p.Run(payload, a, nil)
	require.NoError(t, err)
	out2, err := p.Run(payload, b, nil)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestPipelineNameIsExposed(t *testing.T) {
	cfg := PipelineConfig{
		Name:   "named",
		Stages: []StageConfig{{Type: StageSGN, Architecture: arch.X64, EncodingCount: 1, PlainDecoder: true}},
	}
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	assert.Equal(t, "named", p.Name())
}

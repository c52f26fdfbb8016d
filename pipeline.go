package smencoders

import (
	"io"

	"github.com/LegateJD/sm-encoders/internal/rng"
	"github.com/LegateJD/sm-encoders/internal/schemacipher"
	"github.com/LegateJD/sm-encoders/internal/sgn"
	"github.com/LegateJD/sm-encoders/internal/xordynamic"

	"github.com/LegateJD/sm-encoders/errs"
)

// Pipeline is a validated, ready-to-run stage sequence (spec §3
// "Pipeline", §4.H). It holds no state beyond its stage list: every Run
// call threads its own RNG and starts from a fresh copy of the input.
type Pipeline struct {
	name   string
	stages []StageConfig
}

// NewPipeline validates cfg and returns a Pipeline ready to Run. This is
// the only constructor — spec §7's "ConfigurationError ... pipeline never
// built" means a Pipeline value can never exist in an unvalidated state.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{name: cfg.Name, stages: cfg.Stages}, nil
}

// Name returns the pipeline's configured name.
func (p *Pipeline) Name() string {
	return p.name
}

// Run folds input through every stage left to right: `output := input;
// for each stage: output := stage.encode(output)` (spec §4.H). Any
// stage-level error aborts the run and is wrapped with that stage's
// index (spec §7).
func (p *Pipeline) Run(input []byte, r rng.Source, trace io.Writer) ([]byte, error) {
	output := append([]byte{}, input...)
	for i, stage := range p.stages {
		next, err := runStage(stage, output, r, trace)
		if err != nil {
			return nil, &errs.StageError{Index: i, Type: string(stage.Type), Err: err}
		}
		output = next
	}
	return output, nil
}

func runStage(stage StageConfig, input []byte, r rng.Source, trace io.Writer) ([]byte, error) {
	switch stage.Type {
	case StageSGN:
		return sgn.Encode(input, sgn.Config{
			Arch:          stage.Architecture,
			Seed:          stage.Seed,
			PlainDecoder:  stage.PlainDecoder,
			SaveRegisters: stage.SaveRegisters,
			EncodingCount: stage.EncodingCount,
			BadChars:      stage.BadChars,
		}, r, trace)
	case StageXorDynamic:
		return xordynamic.Encode(input, xordynamic.Config{
			Arch:     stage.Architecture,
			Seed:     stage.Seed,
			BadChars: stage.BadChars,
		}, r, trace)
	case StageSchema:
		return schemacipher.Encode(input, schemacipher.Config{
			Arch:       stage.Architecture,
			SchemaSize: stage.SchemaSize,
			BadChars:   stage.BadChars,
		}, r, trace)
	default:
		return nil, &errs.ConfigurationError{Field: "type", Reason: "unknown stage type " + string(stage.Type)}
	}
}

// Command sgnenc is the CLI front-end external collaborator (spec §6):
// either a single randomized-seed stage (`--encoder-type`) or a staged
// YAML pipeline (`--pipeline`). File I/O and YAML parsing live here and
// only here — the core packages never read a file or call yaml.Unmarshal
// (spec.md §1 Non-goals).
package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	smencoders "github.com/LegateJD/sm-encoders"
	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// pipelineDocument mirrors spec §6's authoritative YAML shape, where the
// validated schema is nested under a top-level `pipeline:` key.
type pipelineDocument struct {
	Pipeline smencoders.PipelineConfig `yaml:"pipeline"`
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		inputPath    string
		outputPath   string
		encoderType  string
		plainDecoder bool
		pipelinePath string
	)

	cmd := &cobra.Command{
		Use:   "sgnenc",
		Short: "Polymorphic shellcode encoder pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" || outputPath == "" {
				return fmt.Errorf("--input and --output are required")
			}
			if (encoderType == "") == (pipelinePath == "") {
				return fmt.Errorf("exactly one of --encoder-type or --pipeline must be set")
			}

			payload, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			var out []byte
			if pipelinePath != "" {
				out, err = runPipelineFile(pipelinePath, payload)
			} else {
				out, err = runSingleStage(encoderType, plainDecoder, payload)
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(outputPath, out, 0o644); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "binary payload to encode")
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the encoded binary")
	cmd.Flags().StringVar(&encoderType, "encoder-type", "", "sgn | schema | xor-dynamic (single-stage x64-only mode)")
	cmd.Flags().BoolVar(&plainDecoder, "plain-decoder", false, "skip the schema-cipher wrap (sgn only; a schema stage ignores it)")
	cmd.Flags().StringVar(&pipelinePath, "pipeline", "", "path to a staged pipeline YAML document")

	return cmd
}

// runSingleStage implements `--encoder-type` mode: a single stage,
// x64-only, with a seed randomized per invocation (spec §6).
func runSingleStage(encoderType string, plainDecoder bool, payload []byte) ([]byte, error) {
	stageType, err := parseEncoderType(encoderType)
	if err != nil {
		return nil, err
	}

	seed, err := randomSeed()
	if err != nil {
		return nil, fmt.Errorf("drawing random seed: %w", err)
	}

	cfg := smencoders.PipelineConfig{
		Name: "single-stage",
		Stages: []smencoders.StageConfig{{
			Type:          stageType,
			Seed:          seed,
			Architecture:  arch.X64,
			PlainDecoder:  plainDecoder,
			EncodingCount: 1,
		}},
	}

	pipeline, err := smencoders.NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(payload, processRNG(), nil)
}

func runPipelineFile(path string, payload []byte) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config: %w", err)
	}

	var doc pipelineDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}

	pipeline, err := smencoders.NewPipeline(doc.Pipeline)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(payload, processRNG(), nil)
}

func parseEncoderType(s string) (smencoders.StageType, error) {
	switch s {
	case "sgn":
		return smencoders.StageSGN, nil
	case "schema":
		return smencoders.StageSchema, nil
	case "xor-dynamic":
		return smencoders.StageXorDynamic, nil
	default:
		return "", fmt.Errorf("unsupported --encoder-type %q (want sgn, schema, or xor-dynamic)", s)
	}
}

func randomSeed() (byte, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// processRNG seeds the module's injected RNG from crypto/rand once per
// process invocation — the CLI has no reproducibility contract (spec §6:
// "seed randomized per invocation"), unlike library callers who supply
// their own rng.Source for deterministic tests.
func processRNG() rng.Source {
	var seed [16]byte
	_, _ = rand.Read(seed[:])
	return rng.New(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
}

// Package smencoders is the pipeline driver (component H) and
// configuration schema (component I): it validates a declarative stage
// list, instantiates one encoder per stage, and folds a byte buffer
// through them left to right.
package smencoders

import (
	"strconv"

	"github.com/LegateJD/sm-encoders/internal/arch"

	"github.com/LegateJD/sm-encoders/errs"
)

// StageType names one of the three encoder kinds a stage can select
// (spec §3 "Stage descriptor").
type StageType string

const (
	StageSGN        StageType = "sgn"
	StageXorDynamic StageType = "xor_dynamic"
	StageSchema     StageType = "schema"
)

// StageConfig is one pipeline stage's validated parameters. Its yaml keys
// are read directly from the stage entry, beside `type`; a nested
// `config:` block under a stage entry is not read. yaml tags
// are carried here — rather than on a CLI-only shadow struct — so that
// any future loader, not just cmd/sgnenc's, can unmarshal this schema
// directly; the core itself never calls yaml.Unmarshal (spec.md §1 Non-
// goals: "YAML configuration loading and parsing").
type StageConfig struct {
	Type StageType `yaml:"type"`

	Seed          byte      `yaml:"seed"`
	Architecture  arch.Arch `yaml:"architecture"`
	PlainDecoder  bool      `yaml:"plain_decoder"`
	SaveRegisters bool      `yaml:"save_registers"`
	EncodingCount int       `yaml:"encoding_count"`
	BadChars      []byte    `yaml:"badchars,omitempty"`
	SchemaSize    int       `yaml:"schema_size"`
}

// PipelineConfig is the top-level `pipeline:` document (spec §6).
type PipelineConfig struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Stages      []StageConfig `yaml:"stages"`
}

// Validate checks PipelineConfig against spec §6's validation rules,
// returning a *errs.ConfigurationError naming the first rule violated.
// The pipeline is never built from a configuration that fails this
// check (spec §7: "ConfigurationError ... Fatal; pipeline never built").
func (p PipelineConfig) Validate() error {
	if p.Name == "" {
		return &errs.ConfigurationError{Field: "pipeline.name", Reason: "must be non-empty"}
	}
	if len(p.Stages) == 0 {
		return &errs.ConfigurationError{Field: "pipeline.stages", Reason: "must be non-empty"}
	}
	for i, stage := range p.Stages {
		if err := stage.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (s StageConfig) validate(index int) error {
	field := func(name string) string {
		return stageFieldName(index, name)
	}

	switch s.Type {
	case StageSGN, StageXorDynamic, StageSchema:
	default:
		return &errs.ConfigurationError{Field: field("type"), Reason: "must be one of sgn, xor_dynamic, schema"}
	}

	switch s.Architecture {
	case arch.X64, arch.X32, arch.AArch64:
	default:
		return &errs.ConfigurationError{Field: field("architecture"), Reason: "must be one of x64, x32, aarch64"}
	}

	if s.Type == StageSGN {
		if s.EncodingCount < 1 || s.EncodingCount > 10 {
			return &errs.ConfigurationError{Field: field("encoding_count"), Reason: "must be between 1 and 10 inclusive when type is sgn"}
		}
	}

	if s.Type == StageSchema && s.SchemaSize < 0 {
		return &errs.ConfigurationError{Field: field("schema_size"), Reason: "must be > 0 if present"}
	}

	if len(s.BadChars) > 256 {
		return &errs.ConfigurationError{Field: field("badchars"), Reason: "must contain at most 256 entries"}
	}

	return nil
}

func stageFieldName(index int, name string) string {
	return "stages[" + strconv.Itoa(index) + "]." + name
}

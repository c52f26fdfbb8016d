// Package arch enumerates the target architectures this module encodes
// for and the per-architecture general-purpose register model (spec §3,
// §4.A). It is grounded on the teacher's (xyproto/flapc) Arch enum and
// register table (main.go's Arch/ParseArch, reg.go's x86_64Registers /
// arm64Registers maps), generalized from flapc's three compiler targets
// (x86_64, arm64, riscv64) to this spec's three encoder targets
// (x64, x32, aarch64).
package arch

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LegateJD/sm-encoders/internal/rng"
)

// Arch is the architecture tag threaded through every stage (spec §3:
// "Architecture tag: one of {x64, x32, aarch64}. Immutable per stage.").
type Arch int

const (
	X64 Arch = iota
	X32
	AArch64
)

func (a Arch) String() string {
	switch a {
	case X64:
		return "x64"
	case X32:
		return "x32"
	case AArch64:
		return "aarch64"
	default:
		return "unknown"
	}
}

// Parse parses an architecture tag from its YAML/CLI spelling (spec §6).
func Parse(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x64", "amd64", "x86_64", "x86-64":
		return X64, nil
	case "x32", "x86", "x86_32", "i386":
		return X32, nil
	case "aarch64", "arm64":
		return AArch64, nil
	default:
		return 0, fmt.Errorf("unsupported architecture: %s (supported: x64, x32, aarch64)", s)
	}
}

// MarshalYAML renders Arch as its canonical spelling rather than the
// underlying int, so the configuration schema (spec §6) round-trips
// through YAML as the documented "x64 | x32 | aarch64" strings.
func (a Arch) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalYAML accepts any spelling Parse recognizes.
func (a *Arch) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Register is a general-purpose register descriptor with its width-aliased
// views (spec §3). x86 registers populate Quad/Double/Word/Low; AArch64
// registers populate X/W and leave Word/Low empty.
type Register struct {
	Quad   string // x86 64-bit name (e.g. "rax"); AArch64 uses X instead
	Double string // x86 32-bit name (e.g. "eax")
	Word   string // x86 16-bit name (e.g. "ax")
	Low    string // x86 8-bit name (e.g. "al")

	X string // AArch64 64-bit view (e.g. "x0")
	W string // AArch64 32-bit view (e.g. "w0")

	// Encoding is the architectural register number used to build ModR/M,
	// REX and AArch64 Rd/Rn/Rm fields.
	Encoding uint8
}

// Equal implements the "names any common underlying physical register"
// rule from spec §3: two descriptors are equal if their quad identifiers
// match (x86) or their x identifiers match (AArch64).
func (r Register) Equal(other Register) bool {
	if r.Quad != "" || other.Quad != "" {
		return r.Quad == other.Quad
	}
	return r.X == other.X
}

// Name returns the canonical (widest) name of the register, used for
// tracing and error messages.
func (r Register) Name() string {
	if r.Quad != "" {
		return r.Quad
	}
	return r.X
}

// Model is the per-architecture register table plus its selection
// operations (spec §4.A).
type Model struct {
	arch      Arch
	registers []Register
}

// excludedAllError is returned by RandomExcluding when the exclusion set
// covers every GPR in the model.
type excludedAllError struct{ arch Arch }

func (e excludedAllError) Error() string {
	return fmt.Sprintf("%s: exclusion set covers every general-purpose register", e.arch)
}

// NewModel returns the register model for arch.
func NewModel(a Arch) Model {
	switch a {
	case X64:
		return Model{arch: X64, registers: x64GPRs}
	case X32:
		return Model{arch: X32, registers: x32GPRs}
	case AArch64:
		return Model{arch: AArch64, registers: aarch64GPRs}
	default:
		return Model{arch: a}
	}
}

// Arch returns the architecture this model was built for.
func (m Model) Arch() Arch { return m.arch }

// All returns every general-purpose register in the model. Callers must
// not mutate the returned slice.
func (m Model) All() []Register { return m.registers }

// Random returns a uniformly chosen GPR (spec §4.A: random_gpr()).
func (m Model) Random(r rng.Source) Register {
	return m.registers[r.IntN(len(m.registers))]
}

// RandomExcluding returns a uniformly chosen GPR that is not Equal (§3) to
// any member of excluded (spec §4.A: random_gpr_excluding(S)). It returns
// an error only if excluded covers every GPR in the model — callers must
// not construct that situation.
func (m Model) RandomExcluding(r rng.Source, excluded ...Register) (Register, error) {
	candidates := make([]Register, 0, len(m.registers))
	for _, reg := range m.registers {
		excludedHere := false
		for _, ex := range excluded {
			if reg.Equal(ex) {
				excludedHere = true
				break
			}
		}
		if !excludedHere {
			candidates = append(candidates, reg)
		}
	}
	if len(candidates) == 0 {
		return Register{}, excludedAllError{arch: m.arch}
	}
	return candidates[r.IntN(len(candidates))], nil
}

// ByName looks up a register by any of its width-view names within the
// model's architecture.
func (m Model) ByName(name string) (Register, bool) {
	for _, reg := range m.registers {
		if reg.Quad == name || reg.Double == name || reg.Word == name || reg.Low == name ||
			reg.X == name || reg.W == name {
			return reg, true
		}
	}
	return Register{}, false
}

// Package garbage implements the per-architecture library of
// semantically-identity or reversible instruction templates (spec §4.B).
// Every emitter appends instructions that are legal on the architecture,
// preserve architectural state relevant to the surrounding code (flag
// perturbation is permitted), and fall through without altering control
// flow.
//
// Grounded on the teacher's (xyproto/flapc) per-instruction encoder style
// — arm64_instructions.go's opcode-constant-plus-field-shift encodings,
// and x86_64_codegen.go's REX/ModRM byte-builder helpers — generalized
// from "compile this language construct" emitters into "emit one
// identity/reversible instruction" emitters.
package garbage

import (
	"io"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/buffer"
	"github.com/LegateJD/sm-encoders/internal/rng"
)

// maxRecursionDepth bounds the wrapper entries' recursive <inner> draws
// (spec §9: "Bound recursion by ... an explicit depth cap"; combined here
// with the coin-flip short-circuit the original source uses, per spec
// §9's note that "the source uses the latter" — belt and suspenders, since
// a pure coin flip is only probabilistically bounded).
const maxRecursionDepth = 6

// Emitter appends zero or more instructions to buf. depth tracks wrapper
// recursion so Generate can cap it.
type Emitter func(buf *buffer.Buffer, model arch.Model, r rng.Source, depth int)

// table returns the fixed ordered emitter table for a.
func table(a arch.Arch) []Emitter {
	switch a {
	case arch.X64:
		return x64Table
	case arch.X32:
		return x32Table
	case arch.AArch64:
		return aarch64Table
	default:
		return nil
	}
}

// Generate emits one randomly-selected garbage block for a (spec §4.B
// step 1 of generate_garbage_instructions; the jump-over-garbage
// composition in steps 2-3 is performed by internal/asm, which also
// implements jump_over).
func Generate(a arch.Arch, model arch.Model, r rng.Source, trace io.Writer) []byte {
	t := table(a)
	if len(t) == 0 {
		return nil
	}
	buf := buffer.New(trace)
	t[r.IntN(len(t))](buf, model, r, 0)
	return buf.Bytes()
}

// recurse draws one inner emitter from the same table used at depth 0,
// short-circuiting to an empty body on the coin flip or once
// maxRecursionDepth is reached (spec §9).
func recurse(t []Emitter, buf *buffer.Buffer, model arch.Model, r rng.Source, depth int) {
	if depth >= maxRecursionDepth || rng.Bool(r) {
		return
	}
	t[r.IntN(len(t))](buf, model, r, depth+1)
}

// Package schemaop holds the schema cipher's pure data model and forward
// transform (spec §4.E / §3 "Schema operation", "Schema sequence"). It has
// no assembler dependency — the matching decoder stub lives in
// internal/asm, which imports this package one-directionally, the same
// leaf-then-consumer split the teacher uses between reg.go's pure lookup
// tables and the codegen files that consume them.
package schemaop

import (
	"encoding/binary"
	"math/bits"

	"github.com/LegateJD/sm-encoders/internal/rng"
)

// Instruction names one of the six schema operations. The forward
// transform (ApplyForward) deliberately swaps ADD/SUB and ROL/ROR against
// their literal names, so that a decoder stub emitting the literal
// mnemonic performs the inverse at runtime (spec §4.E note).
type Instruction uint8

const (
	XOR Instruction = iota
	ADD
	SUB
	ROL
	ROR
	NOT
)

func (i Instruction) String() string {
	switch i {
	case XOR:
		return "xor"
	case ADD:
		return "add"
	case SUB:
		return "sub"
	case ROL:
		return "rol"
	case ROR:
		return "ror"
	case NOT:
		return "not"
	default:
		return "unknown"
	}
}

// Op is a single schema operation against one 4-byte block. Key is absent
// for NOT, is [0,0,0,r] for ROL/ROR (r is the rotate count), and is 4
// uniformly-random bytes otherwise (spec §3 "Schema operation" invariant).
type Op struct {
	Instruction Instruction
	Key         [4]byte
	HasKey      bool
}

// RotateCount returns the rotate amount encoded in a ROL/ROR key.
func (o Op) RotateCount() byte {
	return o.Key[3]
}

// Sequence is an ordered list of schema operations, applied against
// successive 4-byte blocks starting at a known offset (spec §3 "Schema
// sequence").
type Sequence []Op

// Length computes the schema length for a buffer whose garbage-prefix
// portion is G bytes long: ⌈G/4⌉ + 1 (spec §4.E "Schema-size rule").
func Length(garbageLen int) int {
	return (garbageLen+3)/4 + 1
}

// Generate produces a random schema sequence of the given length (spec §3:
// "one schema is generated per encoder invocation, mutated nowhere").
func Generate(r rng.Source, length int) Sequence {
	seq := make(Sequence, length)
	for i := range seq {
		seq[i] = randomOp(r)
	}
	return seq
}

func randomOp(r rng.Source) Op {
	instr := Instruction(r.IntN(6))
	switch instr {
	case NOT:
		return Op{Instruction: NOT}
	case ROL, ROR:
		var key [4]byte
		key[3] = byte(r.IntN(256))
		return Op{Instruction: instr, Key: key, HasKey: true}
	default:
		var key [4]byte
		rng.Bytes(r, key[:])
		return Op{Instruction: instr, Key: key, HasKey: true}
	}
}

// ApplyForward walks buf in 4-byte blocks starting at offset, applying the
// schema sequence's operations in order (spec §4.E table). buf's length
// from offset onward must be a multiple of 4 times len(seq), or at least
// cover len(seq) whole blocks; ApplyForward stops after the last operation
// that has a complete 4-byte block available.
func (seq Sequence) ApplyForward(buf []byte, offset int) {
	pos := offset
	for _, op := range seq {
		if pos+4 > len(buf) {
			return
		}
		applyOne(buf[pos:pos+4], op)
		pos += 4
	}
}

func applyOne(block []byte, op Op) {
	switch op.Instruction {
	case XOR:
		w := binary.BigEndian.Uint32(block)
		w ^= binary.LittleEndian.Uint32(op.Key[:])
		binary.BigEndian.PutUint32(block, w)
	case ADD:
		// Named ADD, forward operation subtracts (spec §4.E swap note).
		w := binary.LittleEndian.Uint32(block)
		w -= binary.BigEndian.Uint32(op.Key[:])
		binary.LittleEndian.PutUint32(block, w)
	case SUB:
		// Named SUB, forward operation adds.
		w := binary.LittleEndian.Uint32(block)
		w += binary.BigEndian.Uint32(op.Key[:])
		binary.LittleEndian.PutUint32(block, w)
	case ROL:
		// Named ROL, forward operation rotates right.
		w := binary.LittleEndian.Uint32(block)
		w = bits.RotateLeft32(w, -int(binary.BigEndian.Uint32(op.Key[:])%32))
		binary.LittleEndian.PutUint32(block, w)
	case ROR:
		// Named ROR, forward operation rotates left.
		w := binary.LittleEndian.Uint32(block)
		w = bits.RotateLeft32(w, int(binary.BigEndian.Uint32(op.Key[:])%32))
		binary.LittleEndian.PutUint32(block, w)
	case NOT:
		w := binary.BigEndian.Uint32(block)
		w = ^w
		binary.BigEndian.PutUint32(block, w)
	}
}

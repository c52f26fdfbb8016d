// Package buffer implements the small append-only byte sink every
// architecture backend writes machine code into. It is grounded on the
// teacher's BufferWrapper (emit.go), generalized from a single
// stderr-tracing writer into one that accepts any optional trace sink
// (spec §2.1 ambient-stack note: a global VerboseMode cannot be reused
// safely across concurrently-running stages).
package buffer

import "io"

// Buffer accumulates emitted bytes and optionally traces them as they are
// written, the same shape as the teacher's Write/Write2/Write4/Write8
// family but collapsed to the two primitives every encoder actually needs:
// single bytes and byte slices.
type Buffer struct {
	bytes []byte
	trace io.Writer // nil disables tracing
}

// New returns an empty Buffer. trace may be nil.
func New(trace io.Writer) *Buffer {
	return &Buffer{trace: trace}
}

// WriteByte appends a single byte (matches io.ByteWriter).
func (b *Buffer) WriteByte(c byte) error {
	b.bytes = append(b.bytes, c)
	if b.trace != nil {
		io.WriteString(b.trace, " ")
		io.WriteString(b.trace, hex(c))
	}
	return nil
}

// Write appends p, satisfying io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	for _, c := range p {
		b.WriteByte(c)
	}
	return len(p), nil
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.bytes) }

// Bytes returns the accumulated bytes. Callers must not mutate the
// returned slice.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Prepend inserts prefix before everything already written, used when a
// save-registers prefix or schema decoder header must go in front of an
// already-assembled stub+payload blob (spec §4.F step 7, §4.E step "prepend
// the matching schema decoder").
func (b *Buffer) Prepend(prefix []byte) {
	combined := make([]byte, 0, len(prefix)+len(b.bytes))
	combined = append(combined, prefix...)
	combined = append(combined, b.bytes...)
	b.bytes = combined
}

const hexDigits = "0123456789abcdef"

func hex(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}

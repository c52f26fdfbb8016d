// Package feedback implements the additive-feedback XOR transform used by
// the SGN encoder (spec §4.D) and its decoder's mirror-image arithmetic.
// It has no architecture or assembler dependency — it is a pure byte
// transform, grounded on the teacher's treatment of data transforms as
// small standalone pure functions (e.g. reg.go's table lookups) rather
// than objects with hidden state.
package feedback

// Encode applies the additive-feedback XOR transform in place, walking
// payload from the last byte to the first (spec §4.D):
//
//	for b in payload in reverse order:
//	    original = b
//	    b ← b XOR seed
//	    seed ← (original + seed) mod 256
//
// The reverse direction matches the decoder stub, which runs forward at
// runtime from a counter-initialized state and walks memory backwards.
func Encode(payload []byte, seed byte) {
	s := seed
	for i := len(payload) - 1; i >= 0; i-- {
		original := payload[i]
		payload[i] = original ^ s
		s = original + s
	}
}

// Decode applies the inverse transform. It walks payload in the same
// last-to-first direction as Encode — matching the runtime decoder stub,
// which starts its counter at the last byte and decrements toward the
// first (spec §4.F) — except the feedback here uses the already-decoded
// byte rather than the pre-transform byte (spec §4.D invariant: "its
// inverse is structurally identical except the feedback uses the
// already-decoded byte").
func Decode(payload []byte, seed byte) {
	s := seed
	for i := len(payload) - 1; i >= 0; i-- {
		decoded := payload[i] ^ s
		s = decoded + s
		payload[i] = decoded
	}
}

// Package xordynamic implements the bad-character-avoiding repeating-XOR
// encoder with a runtime self-locating stub (spec component G, §4.G). The
// assembled output has the shape stub ∥ key ∥ KEY_TERM ∥ ciphertext ∥
// PAYLOAD_TERM — the stub finds its own key/ciphertext at runtime via the
// call-over idiom built into internal/asm's XorDynamicStub, and this
// package is responsible only for the one-time selection of a key and a
// pair of terminator bytes that the ciphertext and key themselves never
// collide with.
package xordynamic

import (
	"io"
	"math"

	"github.com/LegateJD/sm-encoders/internal/arch"
	"github.com/LegateJD/sm-encoders/internal/asm"
	"github.com/LegateJD/sm-encoders/internal/rng"

	"github.com/LegateJD/sm-encoders/errs"
)

// Config carries the per-stage parameters for an XorDynamic pipeline
// stage (spec §6, type: xor_dynamic).
type Config struct {
	Arch arch.Arch

	// Seed is accepted for interface-compatibility with the other two
	// stage types' identical field (spec §3 "Stage descriptor" applies
	// seed uniformly across sgn/xor_dynamic/schema) but never read by
	// this package: XorDynamic's key/terminator selection depends only
	// on the payload and the RNG draws, never on a fixed seed byte (spec
	// §9 open question 3: "the parameter is retained ... for interface
	// stability but has no semantic effect").
	Seed byte

	// BadChars is the caller-configured forbidden-byte set. The encoder
	// always additionally avoids 0x00, 0x0a, 0x0d regardless of what the
	// caller supplies (spec §4.G: "the configured bad-character set
	// (default includes 0x00, 0x0a, 0x0d)").
	BadChars []byte
}

// defaultBadChars are always avoided by XorDynamic's key selection, on
// top of whatever the stage configuration adds (spec §4.G).
var defaultBadChars = []byte{0x00, 0x0A, 0x0D}

type encoded struct {
	stub              []byte
	key               []byte
	keyTerm           byte
	ciphertext        []byte
	payloadTermA      byte
	payloadTermB      byte
	effectiveBadChars []byte
}

// Encode produces stub ∥ key ∥ KEY_TERM ∥ ciphertext ∥ PAYLOAD_TERM for
// payload, per spec §4.G.
func Encode(payload []byte, cfg Config, r rng.Source, trace io.Writer) ([]byte, error) {
	enc, err := build(payload, cfg, r, trace)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, len(enc.stub)+len(enc.key)+1+len(enc.ciphertext)+2)
	blob = append(blob, enc.stub...)
	blob = append(blob, enc.key...)
	blob = append(blob, enc.keyTerm)
	blob = append(blob, enc.ciphertext...)
	blob = append(blob, enc.payloadTermA, enc.payloadTermB)

	// "After substitution the final assembled blob is verified against
	// bad; any residual bad byte raises BadCharacters" (spec §4.G).
	if err := errs.CheckBadCharacters(blob, enc.effectiveBadChars); err != nil {
		return nil, err
	}
	return blob, nil
}

func build(payload []byte, cfg Config, r rng.Source, trace io.Writer) (encoded, error) {
	bad := mergeBad(cfg.BadChars, defaultBadChars)
	keyChars := buildKeyChars(bad)

	key, err := selectKey(payload, keyChars, bad)
	if err != nil {
		return encoded{}, err
	}

	keyTerm, err := selectKeyTerm(keyChars, key, r)
	if err != nil {
		return encoded{}, err
	}

	ciphertext := make([]byte, len(payload))
	for i, b := range payload {
		ciphertext[i] = b ^ key[i%len(key)]
	}

	payloadTermA, payloadTermB, err := selectPayloadTerm(keyChars, ciphertext, r)
	if err != nil {
		return encoded{}, err
	}

	backend := asm.New(cfg.Arch)
	if backend == nil {
		return encoded{}, &errs.AssemblerError{Arch: cfg.Arch.String(), Op: "xor_dynamic_encode"}
	}
	model := arch.NewModel(cfg.Arch)
	stub, err := backend.XorDynamicStub(model, r, trace)
	if err != nil {
		return encoded{}, &errs.AssemblerError{Arch: cfg.Arch.String(), Op: "xor_dynamic_stub", Err: err}
	}
	stub = substitutePlaceholders(stub, keyTerm, payloadTermA, payloadTermB)

	return encoded{
		stub:              stub,
		key:               key,
		keyTerm:           keyTerm,
		ciphertext:        ciphertext,
		payloadTermA:      payloadTermA,
		payloadTermB:      payloadTermB,
		effectiveBadChars: bad,
	}, nil
}

func mergeBad(configured, defaults []byte) []byte {
	set := map[byte]bool{}
	var merged []byte
	for _, b := range configured {
		if !set[b] {
			set[b] = true
			merged = append(merged, b)
		}
	}
	for _, b := range defaults {
		if !set[b] {
			set[b] = true
			merged = append(merged, b)
		}
	}
	return merged
}

func toSet(bs []byte) map[byte]bool {
	set := make(map[byte]bool, len(bs))
	for _, b := range bs {
		set[b] = true
	}
	return set
}

// buildKeyChars returns [1..255] minus bad, in ascending order (spec §4.G:
// "key_chars = [1..=255] \ bad in some fixed order").
func buildKeyChars(bad []byte) []byte {
	badSet := toSet(bad)
	chars := make([]byte, 0, 255)
	for v := 1; v <= 255; v++ {
		if !badSet[byte(v)] {
			chars = append(chars, byte(v))
		}
	}
	return chars
}

// selectKey implements spec §4.G's key-selection algorithm.
func selectKey(payload, keyChars, bad []byte) ([]byte, error) {
	l := len(payload)
	badSet := toSet(bad)
	nBad := float64(len(bad))

	minLen := int(math.Floor(float64(l) * (0.2 + 0.05*nBad) / 100))
	if minLen < 1 {
		minLen = 1
	}
	maxLen := l
	if maxLen < 1 {
		// A zero-length payload has no stride positions to satisfy, so any
		// single key byte trivially works; this case isn't named by the
		// spec, which assumes non-empty input.
		maxLen = 1
	}
	if minLen > maxLen {
		minLen = maxLen
	}

	keyInc := int(math.Floor(float64(l) * (0.01 + 0.001*nBad) / 100))
	if keyInc < 1 {
		keyInc = 1
	}

	for keyLen := minLen; keyLen <= maxLen; keyLen += keyInc {
		key := make([]byte, keyLen)
		ok := true
		for x := 0; x < keyLen; x++ {
			candidate, found := firstSafeCandidate(payload, keyChars, badSet, x, keyLen)
			if !found {
				ok = false
				break
			}
			key[x] = candidate
		}
		if ok {
			return key, nil
		}
	}
	return nil, &errs.NonExistentKeyError{InputLen: l, BadChars: bad}
}

func firstSafeCandidate(payload, keyChars []byte, badSet map[byte]bool, x, keyLen int) (byte, bool) {
candidates:
	for _, candidate := range keyChars {
		for pos := x; pos < len(payload); pos += keyLen {
			if badSet[payload[pos]^candidate] {
				continue candidates
			}
		}
		return candidate, true
	}
	return 0, false
}

// selectKeyTerm returns the first byte, in a random shuffle of keyChars,
// that does not occur in key (spec §4.G).
func selectKeyTerm(keyChars, key []byte, r rng.Source) (byte, error) {
	shuffled := append([]byte{}, keyChars...)
	rng.Shuffle(r, shuffled)
	inKey := toSet(key)
	for _, c := range shuffled {
		if !inKey[c] {
			return c, nil
		}
	}
	return 0, &errs.NonExistentKeyTerminatorError{}
}

type bytePair struct{ a, b byte }

// selectPayloadTerm returns the first pair, in a random shuffle of
// keyChars×keyChars, that does not occur contiguously in ciphertext (spec
// §4.G). rng.Shuffle operates only on []byte, so the pair list is
// shuffled with a local Fisher-Yates rather than reusing it directly.
func selectPayloadTerm(keyChars, ciphertext []byte, r rng.Source) (byte, byte, error) {
	pairs := make([]bytePair, 0, len(keyChars)*len(keyChars))
	for _, a := range keyChars {
		for _, b := range keyChars {
			pairs = append(pairs, bytePair{a, b})
		}
	}
	for i := len(pairs) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	for _, p := range pairs {
		if !containsPair(ciphertext, p.a, p.b) {
			return p.a, p.b, nil
		}
	}
	return 0, 0, &errs.NonExistentPayloadTerminatorError{}
}

func containsPair(buf []byte, a, b byte) bool {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == a && buf[i+1] == b {
			return true
		}
	}
	return false
}

// substitutePlaceholders replaces the stub's well-known KEY_TERM (0x41)
// and PAYLOAD_TERM (0x42 0x42) placeholder bytes with the selected
// terminators (spec §4.G). Every occurrence is replaced: the x86 stubs
// carry the KEY_TERM byte twice (the scan's mov al and the key-wrap cmp)
// and the PAYLOAD_TERM pair once. The AArch64 stub encodes both inside
// shifted instruction immediates, where no literal placeholder byte
// appears, so nothing in it is replaced.
func substitutePlaceholders(stub []byte, keyTerm, payloadTermA, payloadTermB byte) []byte {
	out := make([]byte, len(stub))
	copy(out, stub)
	for i := 0; i < len(out); i++ {
		if i+1 < len(out) && out[i] == asm.PayloadTermPlaceholderA && out[i+1] == asm.PayloadTermPlaceholderB {
			out[i] = payloadTermA
			out[i+1] = payloadTermB
			i++
			continue
		}
		if out[i] == asm.KeyTermPlaceholder {
			out[i] = keyTerm
		}
	}
	return out
}

// Package errs defines the error taxonomy shared by every encoding stage
// (spec §7). Each concrete type carries enough context to let a caller
// distinguish a fatal assembler failure from a bad-character collision
// without string-matching the message.
package errs

import "fmt"

// AssemblerError reports that machine-code emission failed: an operand
// could not be encoded, or a label could not be resolved.
type AssemblerError struct {
	Arch string
	Op   string
	Err  error
}

func (e *AssemblerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assembler: %s %s: %v", e.Arch, e.Op, e.Err)
	}
	return fmt.Sprintf("assembler: %s %s", e.Arch, e.Op)
}

func (e *AssemblerError) Unwrap() error { return e.Err }

// BadCharactersError reports that an intermediate or final blob contains
// a forbidden byte.
type BadCharactersError struct {
	Offending []byte
}

func (e *BadCharactersError) Error() string {
	return fmt.Sprintf("bad characters present in output: %x", e.Offending)
}

// CheckBadCharacters returns a *BadCharactersError if buf contains any
// byte in bad, nil otherwise. Every encoder stage runs its final output
// through this (spec §7: "an intermediate or final blob contains a
// forbidden byte"); only XorDynamic additionally avoids bad characters
// proactively during key selection — SGN and the schema cipher have no
// avoidance strategy and simply fail the check.
func CheckBadCharacters(buf []byte, bad []byte) error {
	if len(bad) == 0 {
		return nil
	}
	set := make(map[byte]bool, len(bad))
	for _, b := range bad {
		set[b] = true
	}
	var offending []byte
	seen := make(map[byte]bool)
	for _, b := range buf {
		if set[b] && !seen[b] {
			offending = append(offending, b)
			seen[b] = true
		}
	}
	if len(offending) > 0 {
		return &BadCharactersError{Offending: offending}
	}
	return nil
}

// NonExistentKeyError reports that XorDynamic could not find a repeating
// key avoiding the configured bad characters for the given input.
type NonExistentKeyError struct {
	InputLen int
	BadChars []byte
}

func (e *NonExistentKeyError) Error() string {
	return fmt.Sprintf("no repeating xor key avoids badchars %x for %d input bytes", e.BadChars, e.InputLen)
}

// NonExistentKeyTerminatorError reports that no byte could be found to
// terminate the key region.
type NonExistentKeyTerminatorError struct{}

func (e *NonExistentKeyTerminatorError) Error() string {
	return "no key terminator byte available that is absent from the key"
}

// NonExistentPayloadTerminatorError reports that no byte pair could be
// found that does not already occur in the ciphertext.
type NonExistentPayloadTerminatorError struct{}

func (e *NonExistentPayloadTerminatorError) Error() string {
	return "no payload terminator pair available that is absent from the ciphertext"
}

// SchemaEncoderError wraps a failure that originated in the schema cipher
// while it was being used to wrap an SGN stage.
type SchemaEncoderError struct {
	Err error
}

func (e *SchemaEncoderError) Error() string {
	return fmt.Sprintf("schema encoder: %v", e.Err)
}

func (e *SchemaEncoderError) Unwrap() error { return e.Err }

// ConfigurationError reports that a pipeline configuration failed
// validation before any stage was built.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// StageError attaches the index of the failing stage within a pipeline to
// whichever error kind above caused the stage to fail (spec §7:
// "the pipeline driver attaches the failing stage's index").
type StageError struct {
	Index int
	Type  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Package idgen generates the opaque identifiers used for sessions and files.
package idgen

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet matches the regex ^[A-Za-z0-9_-]{21}$ required by both the
// session and file id formats.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// length is the fixed id length required by callers downstream (LibreChat's
// file/session id validation, among others).
const length = 21

// New returns a fresh 21-character id drawn uniformly from alphabet.
//
// Panics only if the underlying CSPRNG fails to produce randomness, which
// gonanoid itself treats as unrecoverable.
func New() string {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		panic(fmt.Sprintf("idgen: failed to generate id: %v", err))
	}
	return id
}

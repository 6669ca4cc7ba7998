package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformed is returned by stores asked to persist a Digest that Of
// could not have produced.
var ErrMalformed = errors.New("malformed content hash")

// Size is the length in hex characters of a Digest.
const Size = sha256.Size * 2

// Digest is the lowercase hex SHA-256 of a text. It is the dedup key and the
// primary key of the analysis log.
type Digest string

// Of fingerprints the full text after Unicode NFC normalization, so composed
// and decomposed spellings of the same characters collide. Input is never
// truncated: two texts that only differ past the provider prompt cap still
// get different digests.
func Of(text string) Digest {
	sum := sha256.Sum256(Normalize(text))
	return Digest(hex.EncodeToString(sum[:]))
}

// Normalize returns the bytes that Of hashes.
func Normalize(text string) []byte {
	return norm.NFC.Bytes([]byte(text))
}

func (d Digest) String() string { return string(d) }

// Valid reports whether d has the shape produced by Of.
func (d Digest) Valid() bool {
	if len(d) != Size {
		return false
	}
	for _, c := range d {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

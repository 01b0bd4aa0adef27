package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Fingerprint is the SHA-256 digest of the exact bytes a caller submitted.
type Fingerprint [Size]byte

// Of returns the fingerprint of data. It must be taken before the bytes are handed to
// extraction or wiped.
func Of(data []byte) Fingerprint {
	return Fingerprint(sha256.Sum256(data))
}

// Hex returns the lowercase hex encoding used in receipts.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string {
	return f.Hex()
}

// Equal compares two fingerprints in constant time.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return subtle.ConstantTimeCompare(f[:], other[:]) == 1
}

// ParseHex decodes a 64-character hex fingerprint.
func ParseHex(s string) (Fingerprint, error) {
	var f Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("parse fingerprint: %w", err)
	}
	if len(raw) != Size {
		return f, fmt.Errorf("parse fingerprint: expected %d bytes, got %d", Size, len(raw))
	}
	copy(f[:], raw)
	return f, nil
}

package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashAlgo names the digest used to derive object keys.
type HashAlgo string

const (
	SHA1   HashAlgo = "sha1"
	SHA256 HashAlgo = "sha256"
	BLAKE3 HashAlgo = "blake3"
)

// Size returns the digest width in bytes.
func (a HashAlgo) Size() int {
	switch a {
	case SHA256, BLAKE3:
		return 32
	default:
		return sha1.Size
	}
}

// Sum hashes data and returns the lowercase hex key.
func (a HashAlgo) Sum(data []byte) string {
	switch a {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	case BLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha1.Sum(data)
		return hex.EncodeToString(sum[:])
	}
}

// Validate reports whether sha is a well-formed key for this algorithm:
// lowercase hex, exactly twice the digest width.
func (a HashAlgo) Validate(sha string) error {
	if len(sha) != 2*a.Size() {
		return fmt.Errorf("%w: %q: want %d hex characters", ErrInvalidKey, sha, 2*a.Size())
	}
	for i := 0; i < len(sha); i++ {
		c := sha[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q: not lowercase hex", ErrInvalidKey, sha)
		}
	}
	return nil
}

// ParseHashAlgo maps a configuration value to a HashAlgo. Empty means SHA1.
func ParseHashAlgo(s string) (HashAlgo, error) {
	switch HashAlgo(s) {
	case "", SHA1:
		return SHA1, nil
	case SHA256, BLAKE3:
		return HashAlgo(s), nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q", s)
}

package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

const (
	codeMin  = 100000
	codeSpan = 900000
	// HashKeySize is the length of generated hash keys.
	HashKeySize = 32
)

// generateCode returns a uniformly distributed code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// GenerateHashKey returns a fresh random key suitable for code hashing.
func GenerateHashKey() ([]byte, error) {
	key := make([]byte, HashKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("verification: generate hash key: %w", err)
	}
	return key, nil
}

// codeHasher produces keyed BLAKE2b-256 digests bound to the email address.
type codeHasher struct {
	key []byte
}

func newCodeHasher(key []byte) (*codeHasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("verification: hash key must be 1-%d bytes, got %d", blake2b.Size, len(key))
	}
	// validate once so sum never fails
	if _, err := blake2b.New256(key); err != nil {
		return nil, fmt.Errorf("verification: hash key: %w", err)
	}
	return &codeHasher{key: append([]byte(nil), key...)}, nil
}

func (h *codeHasher) sum(email, code string) []byte {
	mac, _ := blake2b.New256(h.key)
	mac.Write([]byte(email))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return mac.Sum(nil)
}

func (h *codeHasher) matches(digest []byte, email, code string) bool {
	return subtle.ConstantTimeCompare(digest, h.sum(email, code)) == 1
}

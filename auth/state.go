package auth

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// stateByteLength gives 256 bits of entropy, 43 characters once encoded.
const stateByteLength = 32

// GenerateState returns a fresh anti-forgery token from crypto/rand,
// base64url encoded without padding.
func GenerateState() (string, error) {
	b := make([]byte, stateByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "error while reading random")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package lifecycle

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// tokenBytes is the entropy per confirmation token. Encoded tokens are 32
// URL-safe characters.
const tokenBytes = 24

// RandomTokens mints confirmation tokens from a cryptographic source.
type RandomTokens struct {
	// Reader defaults to crypto/rand.Reader.
	Reader io.Reader
}

// NewToken implements TokenSource.
func (t RandomTokens) NewToken() (string, error) {
	r := t.Reader
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("lifecycle: read token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var _ TokenSource = RandomTokens{}

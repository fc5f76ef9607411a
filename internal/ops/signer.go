package ops

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/vietddude/cycler/internal/core/domain"
)

// hmacSigner authenticates requests with HMAC-SHA256 over the wallet
// secret. The core never sees the key material.
type hmacSigner struct {
	key []byte
}

// NewHMACSigner is the storage.SignerFactory for HMAC-authenticated
// endpoints.
func NewHMACSigner(secret string) (domain.Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty wallet secret")
	}
	return hmacSigner{key: []byte(secret)}, nil
}

func (s hmacSigner) Sign(message []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(message)
	return mac.Sum(nil), nil
}

// Package directorytest signs host state the way a registered host does, for
// tests that serve directory responses.
package directorytest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/DeBrosOfficial/hdsview/pkg/directory"
)

// DefaultTTL is the hds.ttl used by Attribute.
const DefaultTTL = 259200

// Signer holds a host key pair. Identity is the servername derived from it.
type Signer struct {
	Identity string
	key      *rsa.PrivateKey
}

// NewSigner generates a 2048-bit host key.
func NewSigner() (*Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Signer{Identity: base58.Encode(der), key: key}, nil
}

// MustSigner is NewSigner that panics on failure.
func MustSigner() *Signer {
	s, err := NewSigner()
	if err != nil {
		panic(fmt.Sprintf("directorytest: %v", err))
	}
	return s
}

// Attribute returns a signed host state entry with DefaultTTL.
func (s *Signer) Attribute(key string, value interface{}) map[string]interface{} {
	return s.AttributeTTL(key, value, DefaultTTL)
}

// AttributeTTL returns a signed host state entry.
func (s *Signer) AttributeTTL(key string, value interface{}, ttl int64) map[string]interface{} {
	rawValue, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("directorytest: value for %s: %v", key, err))
	}
	rawTTL, _ := json.Marshal(ttl)

	payload, err := directory.SignedPayload(key, rawValue, rawTTL)
	if err != nil {
		panic(fmt.Sprintf("directorytest: payload for %s: %v", key, err))
	}
	digest := sha512.Sum512(payload)
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA512, digest[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA512})
	if err != nil {
		panic(fmt.Sprintf("directorytest: sign %s: %v", key, err))
	}

	return map[string]interface{}{
		"value":         value,
		"hds.signature": base64.StdEncoding.EncodeToString(sig),
		"hds.ttl":       ttl,
	}
}

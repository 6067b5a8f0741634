package directory

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// HDS error types reported for attribute verification failures.
const (
	ErrTypeBadSignature = "hds.error.payload.bad_signature"
	ErrTypeBadKey       = "hds.error.badkey"
	ErrTypeNotRSA       = "hds.error.servername.not_rsa"
)

// signedAttribute is one host state entry as served, before verification.
type signedAttribute struct {
	Value     json.RawMessage `json:"value"`
	Signature *string         `json:"hds.signature"`
	TTL       json.RawMessage `json:"hds.ttl"`
}

func (a signedAttribute) signed() bool {
	return a.Signature != nil && *a.Signature != ""
}

// ParseServerKey decodes a servername into the host's RSA public key. A
// servername is the base58 encoding of a DER (PKIX) public key.
func ParseServerKey(servername string) (*rsa.PublicKey, error) {
	der, err := base58.Decode(servername)
	if err != nil || len(der) == 0 {
		return nil, errors.NewProtocolError(fmt.Sprintf("servername %.16s is not base58", servername), err).
			WithHDSType(ErrTypeBadKey)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.NewProtocolError(fmt.Sprintf("servername %.16s is not a public key", servername), err).
			WithHDSType(ErrTypeBadKey)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.NewProtocolError(fmt.Sprintf("servername %.16s is not an RSA key", servername), nil).
			WithHDSType(ErrTypeNotRSA)
	}
	return rsaKey, nil
}

// SignedPayload returns the bytes a host signs for one attribute: the
// canonical JSON of {key: value, "hds.ttl": ttl}.
func SignedPayload(key string, value, ttl json.RawMessage) ([]byte, error) {
	body := map[string]interface{}{
		key:       rawOrNull(value),
		"hds.ttl": rawOrNull(ttl),
	}
	return canonicalJSON(body)
}

// canonicalJSON encodes v with sorted keys, no insignificant whitespace and
// no HTML escaping. Nested raw values are re-encoded the same way.
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// normalize decodes raw JSON into generic values so maps get sorted keys.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case json.RawMessage:
		dec := json.NewDecoder(bytes.NewReader(t))
		dec.UseNumber()
		var out interface{}
		if err := dec.Decode(&out); err != nil {
			return nil
		}
		return out
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	default:
		return v
	}
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// verifyAttribute checks an attribute's RSA-PSS/SHA-512 signature.
func verifyAttribute(pub *rsa.PublicKey, key string, attr signedAttribute) error {
	bad := func(msg string, cause error) error {
		return errors.NewProtocolError(fmt.Sprintf("attribute %s: %s", key, msg), cause).
			WithHDSType(ErrTypeBadSignature)
	}

	sig, err := base64.StdEncoding.DecodeString(*attr.Signature)
	if err != nil {
		return bad("could not decode signature bytes", err)
	}
	payload, err := SignedPayload(key, attr.Value, attr.TTL)
	if err != nil {
		return bad("could not encode payload", err)
	}
	digest := sha512.Sum512(payload)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA512}
	if err := rsa.VerifyPSS(pub, crypto.SHA512, digest[:], sig, opts); err != nil {
		return bad("signature failed to verify", err)
	}
	return nil
}

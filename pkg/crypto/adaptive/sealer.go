package adaptive

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// envelopeVersion prefixes every sealed value.
const envelopeVersion = "v1"

// ErrEnvelope is returned by Open for values that are not sealed envelopes.
var ErrEnvelope = errors.New("adaptive: not a sealed envelope")

// Sealer turns secrets into printable envelopes of the form
// "v1:<cipher>:<base64url>".
type Sealer struct {
	key     []byte
	current *Cipher
}

// DeriveKey expands secret into a KeySize key bound to info.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("adaptive: empty secret")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("adaptive: derive key: %w", err)
	}
	return key, nil
}

// NewSealer derives a key from secret and seals with the preferred cipher.
func NewSealer(secret []byte, info string) (*Sealer, error) {
	key, err := DeriveKey(secret, info)
	if err != nil {
		return nil, err
	}
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key, current: c}, nil
}

// Type returns the cipher used for new envelopes.
func (s *Sealer) Type() CipherType {
	return s.current.Type()
}

// Seal encrypts plaintext and encodes it as an envelope.
func (s *Sealer) Seal(plaintext, additionalData []byte) (string, error) {
	ct, err := s.current.Encrypt(plaintext, additionalData)
	if err != nil {
		return "", err
	}
	return envelopeVersion + ":" + string(s.current.Type()) + ":" +
		base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decodes and decrypts an envelope. The cipher named in the envelope
// is used, so values sealed on another architecture still open.
func (s *Sealer) Open(envelope string, additionalData []byte) ([]byte, error) {
	parts := strings.SplitN(envelope, ":", 3)
	if len(parts) != 3 || parts[0] != envelopeVersion {
		return nil, ErrEnvelope
	}

	ct, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrEnvelope
	}

	c := s.current
	if typ := CipherType(parts[1]); typ != c.Type() {
		if c, err = NewWithType(s.key, typ); err != nil {
			return nil, err
		}
	}
	return c.Decrypt(ct, additionalData)
}

// IsSealed reports whether v looks like an envelope produced by Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, envelopeVersion+":")
}

package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the key length accepted by every cipher in this package.
const KeySize = 32

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

var (
	// ErrKeySize is returned for keys that are not KeySize bytes.
	ErrKeySize = errors.New("adaptive: key must be 32 bytes")

	// ErrCiphertext is returned when a ciphertext is truncated or fails
	// authentication.
	ErrCiphertext = errors.New("adaptive: message authentication failed")
)

// Cipher is an AEAD that manages its own nonces.
type Cipher struct {
	typ  CipherType
	aead cipher.AEAD
}

// New returns the preferred cipher for this platform.
func New(key []byte) (*Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType returns a cipher of the requested type.
func NewWithType(key []byte, typ CipherType) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch typ {
	case CipherAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown cipher type %q", typ)
	}
	if err != nil {
		return nil, fmt.Errorf("adaptive: init %s: %w", typ, err)
	}
	return &Cipher{typ: typ, aead: aead}, nil
}

// Preferred reports the algorithm New selects on this platform.
// Go's crypto/aes is hardware accelerated on amd64 and arm64.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// Type returns the cipher type.
func (c *Cipher) Type() CipherType {
	return c.typ
}

// Overhead returns the bytes added to each plaintext (nonce and tag).
func (c *Cipher) Overhead() int {
	return c.aead.NonceSize() + c.aead.Overhead()
}

// Encrypt seals plaintext under a fresh random nonce. The nonce is
// prepended to the result.
func (c *Cipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrCiphertext
	}
	out, err := c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
	if err != nil {
		return nil, ErrCiphertext
	}
	return out, nil
}

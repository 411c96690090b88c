package adaptive

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

var testKey = bytes.Repeat([]byte{0x42}, KeySize)

func TestNew(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type() != Preferred() {
		t.Errorf("New() type = %s, want %s", c.Type(), Preferred())
	}
}

func TestNewWithType_InvalidInput(t *testing.T) {
	if _, err := NewWithType(testKey[:16], CipherAESGCM); !errors.Is(err, ErrKeySize) {
		t.Errorf("short key: got %v, want ErrKeySize", err)
	}
	if _, err := NewWithType(testKey, CipherType("rot13")); err == nil {
		t.Error("unknown cipher type should fail")
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(testKey, typ)
			if err != nil {
				t.Fatal(err)
			}

			plaintext := []byte("eyJhbGciOiJIUzI1NiJ9.payload.sig")
			aad := []byte("token")

			ct, err := c.Encrypt(plaintext, aad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(ct) != len(plaintext)+c.Overhead() {
				t.Errorf("ciphertext length = %d, want %d", len(ct), len(plaintext)+c.Overhead())
			}

			got, err := c.Decrypt(ct, aad)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", got, plaintext)
			}

			if _, err := c.Decrypt(ct, []byte("user")); !errors.Is(err, ErrCiphertext) {
				t.Errorf("wrong aad: got %v, want ErrCiphertext", err)
			}
			if _, err := c.Decrypt(ct[:4], aad); !errors.Is(err, ErrCiphertext) {
				t.Errorf("truncated: got %v, want ErrCiphertext", err)
			}

			again, _ := c.Encrypt(plaintext, aad)
			if bytes.Equal(ct, again) {
				t.Error("two encryptions of the same plaintext should differ")
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey([]byte("secret"), "notekeep/session")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := DeriveKey([]byte("secret"), "notekeep/session")
	c, _ := DeriveKey([]byte("secret"), "other")

	if len(a) != KeySize {
		t.Errorf("key length = %d", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("derivation should be deterministic")
	}
	if bytes.Equal(a, c) {
		t.Error("different info should yield different keys")
	}
	if _, err := DeriveKey(nil, "x"); err == nil {
		t.Error("empty secret should fail")
	}
}

func TestSealer_SealOpen(t *testing.T) {
	s, err := NewSealer([]byte("correct horse"), "notekeep/session")
	if err != nil {
		t.Fatal(err)
	}

	env, err := s.Seal([]byte("T1"), []byte("token"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !IsSealed(env) || !strings.HasPrefix(env, "v1:"+string(s.Type())+":") {
		t.Errorf("unexpected envelope %q", env)
	}

	got, err := s.Open(env, []byte("token"))
	if err != nil || string(got) != "T1" {
		t.Fatalf("Open() = %q, %v", got, err)
	}

	other, _ := NewSealer([]byte("wrong horse"), "notekeep/session")
	if _, err := other.Open(env, []byte("token")); !errors.Is(err, ErrCiphertext) {
		t.Errorf("wrong secret: got %v, want ErrCiphertext", err)
	}
}

func TestSealer_OpenForeignCipher(t *testing.T) {
	s, _ := NewSealer([]byte("secret"), "info")

	foreign := CipherChaCha20
	if s.Type() == CipherChaCha20 {
		foreign = CipherAESGCM
	}
	c, _ := NewWithType(s.key, foreign)
	ct, _ := c.Encrypt([]byte("T2"), nil)
	env := "v1:" + string(foreign) + ":" + encodeForTest(ct)

	got, err := s.Open(env, nil)
	if err != nil || string(got) != "T2" {
		t.Errorf("Open(foreign) = %q, %v", got, err)
	}
}

func TestSealer_OpenRejectsPlain(t *testing.T) {
	s, _ := NewSealer([]byte("secret"), "info")
	for _, in := range []string{"", "plain-token", "v2:aes-gcm:abc", "v1:aes-gcm:!!!"} {
		if _, err := s.Open(in, nil); !errors.Is(err, ErrEnvelope) {
			t.Errorf("Open(%q) = %v, want ErrEnvelope", in, err)
		}
	}
	if IsSealed("plain-token") {
		t.Error("plain token is not sealed")
	}
}

func encodeForTest(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

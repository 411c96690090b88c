// Package adaptive seals small secrets at rest with an AEAD chosen for the
// host CPU.
//
// Supported algorithms:
//
//   - AES-256-GCM: preferred where Go uses hardware AES (amd64, arm64)
//   - ChaCha20-Poly1305: everywhere else
//
// A Sealer derives its key from an operator secret with HKDF-SHA256 and
// produces printable envelopes that record which algorithm sealed them, so
// a value sealed on one machine opens on another:
//
//	s, err := adaptive.NewSealer(secret, "notekeep/session")
//	env, err := s.Seal([]byte(token), []byte("token"))
//	raw, err := s.Open(env, []byte("token"))
package adaptive

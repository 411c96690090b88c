// Package session holds the authentication state shared by the gateway,
// the typed API and the CLI.
//
// A Store owns one immutable domain.Session snapshot behind an atomic
// pointer. Writers (Login, Logout, Rotate) are serialized, persist to the
// backing storage.KV first and only then publish the new snapshot, so a
// failed write leaves the previous session in place and readers never see
// a credential without its identity.
package session

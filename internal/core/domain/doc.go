// Package domain defines the core domain models for notekeep.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Credential: opaque bearer token issued by the notes API
//   - Identity / Session: the authenticated user and the immutable
//     session snapshot handed out by the session store
//   - Note / NoteInput / Profile: API payloads and their validation
//   - Errors: domain-specific error definitions
//
// Everything here is safe to share between goroutines once constructed;
// nothing in this package mutates a value after it has been returned.
package domain

// Package apitest runs an in-memory notes backend for tests.
//
// The server implements the notes API routes and the refresh endpoint on
// one httptest.Server. Tokens are HS256 JWTs; tests expire them with
// Expire to drive the refresh path.
package apitest

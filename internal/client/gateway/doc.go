// Package gateway sends every notes API request.
//
// Send attaches the current credential as a bearer header and recovers from
// an expired credential on its own: the first caller to see a 401 performs a
// single refresh against the refresh endpoint while every other caller that
// hits a 401 (or starts a new request) waits for that refresh to settle.
// Each request is replayed at most once. Failures other than 401 are
// returned to the caller untouched.
//
// State machine of the refresh coordinator:
//
//	Idle --401 with current credential--> Refreshing(waiters)
//	Refreshing --refresh settled, credential persisted--> Idle
//
// Waiters are released by closing the flight's done channel, whether the
// refresh succeeded or not.
package gateway

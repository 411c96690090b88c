// Package connection opens the notekeep client stack from configuration:
// the session backend, the session store, the request gateway, the query
// cache and the typed API client.
//
// A Manager opens the stack lazily, once per process, and closes it in
// reverse order through a shutdown handler.
package connection

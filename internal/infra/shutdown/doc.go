// Package shutdown runs cleanup hooks when the process exits.
//
// Hooks run in reverse registration order under a shared timeout, so
// resources opened last are released first:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown("session store", kv.Close)
//	defer h.Shutdown()
//
// WithSignals derives a context that is cancelled on SIGINT or SIGTERM.
package shutdown

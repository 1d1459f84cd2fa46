// Package cli provides the interactive offlinekit command-line client.
//
// It wires configuration, local storage, the connectivity monitor, the sync
// engine and the request facade, then hands control to a small REPL. While
// the REPL runs, the monitor probes the remote API, the scheduler retries
// pending actions and sweeps expired cache entries, and an optional
// Prometheus endpoint exposes sync metrics.
//
// Key features:
//   - GET through the facade with cache fallback when offline
//   - POST/PUT/PATCH/DELETE that are queued while offline and replayed on reconnect
//   - Direct cache management and a manual sync trigger
//   - Bearer token login / logout
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See NewApp and runREPL for details.
package cli

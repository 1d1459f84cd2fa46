// Package services contains the application services the CLI (or any other
// front end) calls.
//
//   - RequestService is the single entry point for network operations. It
//     decides per call whether to go live, read from the cache or defer a
//     write to the action queue.
//   - OfflineService exposes the offline layer itself: pending actions,
//     cached data, forced sync and status subscriptions.
//   - AuthService keeps the bearer token attached to outbound calls.
package services

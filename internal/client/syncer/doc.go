// Package syncer replays queued write intents against the remote API.
//
// # Passes
//
// A drain pass takes a snapshot of the action queue and attempts every
// action in it once, oldest first. Actions queued while a pass runs wait for
// the next one. Only one pass runs at a time: a trigger that arrives while a
// pass is in flight is dropped, and the next natural trigger picks up what
// is left.
//
// Passes are triggered by the network monitor going online, by an explicit
// SyncNow or Trigger call, by Enqueue while online and by RetryPending, which
// the application schedules periodically.
//
// # Failures
//
// A failed replay increments the action's retry count. When the count
// reaches the action's cap the action is dropped and reported as
// "dropped after N retries: <endpoint>". An action whose remote call always
// fails is therefore attempted exactly maxRetries times.
//
// A persistent store failure aborts the rest of the pass. The engine still
// returns to idle and publishes the accumulated status, with the failure
// reported as "store error: ...".
package syncer

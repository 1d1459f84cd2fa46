// Package client contains the client-side building blocks that talk to the
// outside world.
//
// # Overview
//
//  1. Client, the transport contract used by the request facade and the sync
//     engine: one call per (method, endpoint, payload) with the bearer token
//     attached. HTTPClient is the net/http implementation.
//  2. Prober, a connectivity check polled by the network monitor. HTTPProber
//     issues GET requests against a health path; GRPCHealthProber asks a
//     grpc.health.v1 service.
//  3. InitDatabase and RunMigrations, which open the local SQLite file and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Transport failures and timeouts match ErrUnavailable, 401/403 responses
// match ErrUnauthorized. Every other non-2xx status is returned as a
// *StatusError carrying the code and body.
package client

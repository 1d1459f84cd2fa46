// Package common contains constants and sentinel errors shared across the
// offline client packages. Match the errors with errors.Is.
package common

const (
	// AuthorizationHeader carries the bearer token on outbound API calls.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	ContentTypeJSON = "application/json"
)

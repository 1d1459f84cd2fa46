package services

import "errors"

var (
	// ErrNoConnectionNoCache is returned for reads made offline when nothing
	// is cached under the requested key. It is distinct from
	// client.ErrUnavailable, which means a live call was tried and failed.
	ErrNoConnectionNoCache = errors.New("no connection and no cached data")

	// ErrNoConnection is returned for writes made offline without an action
	// descriptor to queue.
	ErrNoConnection = errors.New("no connection")
)

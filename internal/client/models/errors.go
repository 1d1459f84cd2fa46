package models

import "errors"

// ErrInvalidAction is returned for descriptors that cannot be queued.
var ErrInvalidAction = errors.New("invalid pending action")

package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoToken      = errors.New("no access token")
)

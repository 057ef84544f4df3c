package service

import "errors"

// ErrUnauthenticated is returned for bad, missing or expired credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrInvalidInput is returned for malformed or missing request fields.
var ErrInvalidInput = errors.New("invalid input")

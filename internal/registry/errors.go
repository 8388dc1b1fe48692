package registry

import "errors"

// ErrNotFound indicates an operation referenced a registration that does not exist.
var ErrNotFound = errors.New("registration not found")

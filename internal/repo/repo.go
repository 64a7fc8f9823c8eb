package repo

import "errors"

// ErrNotFound is returned by every repository when the requested
// record does not exist, so handlers can map it to a 404 uniformly.
var ErrNotFound = errors.New("resource not found")

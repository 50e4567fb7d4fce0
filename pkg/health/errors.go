package health

import "errors"

// ErrCheckTimeout is joined into a check error when the run deadline expires.
var ErrCheckTimeout = errors.New("health: check timeout")

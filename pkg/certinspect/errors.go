package certinspect

import "errors"

var ErrInvalidDomain = errors.New("certinspect: domain is required")

package proxyconf

import "errors"

var (
	ErrInvalidDomain    = errors.New("proxyconf: invalid domain")
	ErrInvalidUpstream  = errors.New("proxyconf: upstream must be an absolute http or https url")
	ErrInvalidSSLStatus = errors.New("proxyconf: unknown ssl status")
	ErrInvalidCertsDir  = errors.New("proxyconf: invalid certificates directory")
	ErrRender           = errors.New("proxyconf: failed to render template")
)

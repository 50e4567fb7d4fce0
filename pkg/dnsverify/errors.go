package dnsverify

import "errors"

var (
	ErrInvalidInput    = errors.New("dnsverify: domain and token are required")
	ErrInvalidDomain   = errors.New("dnsverify: invalid domain name")
	ErrDNSLookupFailed = errors.New("dnsverify: dns lookup failed")
	ErrLookupTimeout   = errors.New("dnsverify: dns lookup timed out")
	ErrNoResolvers     = errors.New("dnsverify: no resolvers configured")
	ErrZoneNotFound    = errors.New("dnsverify: no enclosing zone found")
	ErrTokenGeneration = errors.New("dnsverify: failed to generate token")
)

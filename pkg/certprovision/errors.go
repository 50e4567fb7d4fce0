package certprovision

import "errors"

var (
	ErrUnknownACMEClient      = errors.New("certprovision: unknown acme client")
	ErrCDNNotConfigured       = errors.New("certprovision: cdn client is not configured")
	ErrInspectorNotConfigured = errors.New("certprovision: inspector is not configured")
	ErrRegistryNotConfigured  = errors.New("certprovision: registry is not configured")
)

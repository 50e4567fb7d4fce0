package domainmap

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Manager wraps exactly one of them,
// so callers can branch with errors.Is or KindOf.
var (
	ErrValidation      = errors.New("domainmap: validation failed")
	ErrConflict        = errors.New("domainmap: conflict")
	ErrLimitExceeded   = errors.New("domainmap: limit exceeded")
	ErrNotFound        = errors.New("domainmap: not found")
	ErrState           = errors.New("domainmap: operation not allowed in current state")
	ErrExternalService = errors.New("domainmap: external service failure")
)

// Specific errors.
var (
	ErrInvalidDomain       = fmt.Errorf("%w: invalid domain", ErrValidation)
	ErrOwnerRequired       = fmt.Errorf("%w: owner id is required", ErrValidation)
	ErrOwnerInactive       = fmt.Errorf("%w: owner is not an active tenant", ErrValidation)
	ErrSameOwner           = fmt.Errorf("%w: mapping already belongs to this owner", ErrValidation)
	ErrReasonRequired      = fmt.Errorf("%w: reason is required", ErrValidation)
	ErrInvalidProvider     = fmt.Errorf("%w: unknown certificate provider", ErrValidation)
	ErrProviderDisabled    = fmt.Errorf("%w: certificate provider is disabled", ErrValidation)
	ErrNotConfigured       = fmt.Errorf("%w: collaborator is not configured", ErrValidation)
	ErrDomainTaken         = fmt.Errorf("%w: domain is already mapped", ErrConflict)
	ErrDuplicateTransfer   = fmt.Errorf("%w: a pending transfer request already exists", ErrConflict)
	ErrQuotaReached        = fmt.Errorf("%w: owner reached the domain quota", ErrLimitExceeded)
	ErrMappingNotFound     = fmt.Errorf("%w: domain mapping", ErrNotFound)
	ErrTransferNotFound    = fmt.Errorf("%w: transfer request", ErrNotFound)
	ErrTransferNotPending  = fmt.Errorf("%w: transfer request is not pending", ErrState)
	ErrStatusChanged       = fmt.Errorf("%w: mapping status changed concurrently", ErrState)
	ErrLookupFailed        = fmt.Errorf("%w: dns lookup", ErrExternalService)
	ErrOwnerLookupFailed   = fmt.Errorf("%w: owner directory", ErrExternalService)
	ErrProvisioningFailure = fmt.Errorf("%w: certificate provisioning", ErrExternalService)
)

// Kind tags an error with one of the categories above.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindLimitExceeded   Kind = "limit_exceeded"
	KindNotFound        Kind = "not_found"
	KindState           Kind = "state"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrConflict, KindConflict},
	{ErrLimitExceeded, KindLimitExceeded},
	{ErrNotFound, KindNotFound},
	{ErrState, KindState},
	{ErrExternalService, KindExternalService},
}

// KindOf reports the kind of err. Nil yields the empty kind, errors that
// wrap none of the package sentinels yield KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// stateError builds an ErrState error naming the operation and the status
// that rejected it.
func stateError(op string, s Status) error {
	return fmt.Errorf("%w: cannot %s a mapping in status %q", ErrState, op, s)
}

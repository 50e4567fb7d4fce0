// Package domainmap implements the lifecycle of custom domain mappings for a
// multi-tenant storefront.
//
// A mapping binds a domain to an owner and moves through a fixed set of
// states:
//
//	pending --verify--> verified --approve--> approved --mark live--> live
//	                        \
//	                         --reject--> rejected
//
// Any mapping can be deleted and any mapping can be transferred to another
// owner; transfers keep the status. Verification only runs on pending
// mappings unless Config.ReopenRejected allows rejected ones back in.
//
// The Manager is the single entry point for transitions. It depends on a
// Registry for persistence (MemoryRegistry for tests, a Postgres registry in
// production), a Verifier for the DNS TXT challenge and, optionally, a
// certificate Inspector and Provisioner, a ConfigPublisher and a Notifier for
// lifecycle events:
//
//	reg := domainmap.NewMemoryRegistry()
//	mgr := domainmap.New(reg, dnsverify.NewChecker(), domainmap.Config{
//		MaxDomainsPerOwner: 5,
//		UpstreamURL:        "http://127.0.0.1:8080",
//	}, domainmap.WithLogger(log))
//
//	res, err := mgr.AddDomain(ctx, ownerID, "https://shop.example.com/")
//	// publish res.Instructions to the owner, later:
//	v, err := mgr.VerifyDomain(ctx, res.Mapping.ID)
//
// # Errors
//
// Every error returned by the Manager wraps one of ErrValidation,
// ErrConflict, ErrLimitExceeded, ErrNotFound, ErrState or
// ErrExternalService. KindOf maps an error to its Kind for transport layers.
// A negative verification and a missing certificate are results, not errors.
package domainmap

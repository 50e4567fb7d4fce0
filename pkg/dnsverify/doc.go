// Package dnsverify implements the DNS TXT challenge used to prove control of
// a custom domain.
//
// The platform issues a token with GenerateToken and asks the domain owner to
// publish it as a TXT record on the domain itself:
//
//	example.com.  300  IN  TXT  "storefront-domain-verification=4f1c..."
//
// A Checker then looks the record up:
//
//	checker := dnsverify.NewChecker(dnsverify.WithTimeout(5 * time.Second))
//	res, err := checker.Check(ctx, "example.com", token)
//	if err != nil {
//		// every resolver failed; retry later
//	}
//	if res.Verified {
//		// ownership proven
//	}
//
// A missing record is not an error: Check returns Verified=false with an
// empty AllRecords slice. Records that exist but do not carry the token are
// returned in AllRecords to help the owner debug their zone.
//
// # Resolvers
//
// Lookups go through the Resolver interface:
//
//   - NetResolver uses the net package, optionally pinned to one server.
//   - DNSClientResolver talks to a server directly with github.com/miekg/dns.
//   - DigResolver runs the dig binary with a hard timeout (at most 10s).
//   - FallbackResolver tries a list of resolvers in order.
//
// # Propagation
//
// Propagation repeats the challenge against a panel of public resolvers
// (DefaultPanel) in parallel and reports the share that already see the
// token. It is meant for user feedback only.
//
// # Normalization
//
// Normalize converts user input into the canonical domain form: scheme, path
// and port are stripped, the name is lowercased and IDNs are converted to
// punycode. Validate checks label syntax.
package dnsverify

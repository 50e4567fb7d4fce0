// Package certinspect connects to a domain over TLS and reports what certificate it
// serves.
//
// The check is observational: it accepts any certificate (no chain or host
// name verification) so that expired or self-signed certificates are still
// reported. A host that refuses the connection or times out yields a Result
// with Present=false rather than an error.
//
//	in := certinspect.New(certinspect.WithTimeout(10 * time.Second))
//	res, err := in.Inspect(ctx, "shop.example.com")
//	if err != nil {
//		// invalid input or cancelled context
//	}
//	if res.Present && res.DaysRemaining <= 30 {
//		// schedule renewal
//	}
//
// Classify buckets an issuer organization into managed_cdn, automated_ca or
// other.
package certinspect

// Package cache provides TTL caches for expensive lookups such as DNS
// propagation checks and TLS certificate inspections.
//
// Two backends implement Cache: Memory for a single process and Redis when
// several replicas should share results. Loader wraps either one and
// collapses concurrent misses for the same key into one load:
//
//	inspections := cache.NewLoader[*certinspect.Result](
//		cache.NewRedis[*certinspect.Result](client, nil, "certinspect", 0),
//		5*time.Minute,
//	)
//	res, err := inspections.Get(ctx, domain, func(ctx context.Context) (*certinspect.Result, error) {
//		return inspector.Inspect(ctx, domain)
//	})
//
// Failed loads are not cached.
package cache

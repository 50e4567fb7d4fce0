// Package health runs named dependency checks and serves them as liveness
// and readiness checks.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//	}))
//
// Handlers answer in plain text ("OK" or "Service Unavailable") unless the
// client asks for JSON with Accept: application/json or ?format=json.
// Readiness returns 503 when any check fails.
//
// Run executes the same checks outside HTTP; the periodic health sample job
// uses it with WithObserver to publish per-check gauges.
package health

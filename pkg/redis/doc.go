// Package redis opens the go-redis client used for the propagation and
// certificate inspection caches.
//
//	client, err := redis.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	checks := health.Checks{"redis": redis.Healthcheck(client)}
//
// Open pings the server and retries RetryAttempts times, waiting
// n*RetryInterval before attempt n. Config.Enabled is false when REDIS_URL
// is empty; the service then keeps caches in memory.
package redis

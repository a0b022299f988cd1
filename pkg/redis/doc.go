// Package redis wraps github.com/redis/go-redis/v9 with startup and
// coordination helpers.
//
// Connect pings the server with retries so the process fails fast when Redis
// is configured but unreachable. Config.Enabled reports whether a URL is set;
// Redis is optional and features backed by it degrade to single-replica
// behaviour without it.
//
// Locker provides non-blocking leases (SET NX PX with token-checked release)
// used to keep overlapping billing job triggers from running concurrently on
// several replicas:
//
//	locker := redis.NewLocker(client, cfg.KeyPrefix)
//	release, ok, err := locker.TryAcquire(ctx, "billing-job", 10*time.Minute)
//	if err != nil || !ok {
//		return
//	}
//	defer release(ctx)
package redis

// Package cache provides a generic, thread-safe in-memory cache with LRU
// eviction and per-entry expiry.
//
// Entries expire after the TTL they were stored with and are evicted least
// recently used first once the cache holds more than its capacity. Expired
// entries are dropped lazily on access and by Purge.
//
//	c := cache.New[string, *feature.Flag](10_000, 5*time.Minute)
//	c.Set("flag:t:f:PROD", flag)
//	if f, ok := c.Get("flag:t:f:PROD"); ok {
//		// hit
//	}
//
// All operations are O(1) except RemoveFunc and Purge, which scan every entry.
package cache

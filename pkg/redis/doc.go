// Package redis connects a go-redis client with retries and exposes a
// healthcheck closure.
package redis

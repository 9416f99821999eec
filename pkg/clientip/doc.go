// Package clientip resolves the address of the client behind reverse proxies.
//
// The forwarding headers are consulted in order and the first valid address
// wins; RemoteAddr is the fallback. Addresses are normalized, so IPv4-mapped
// IPv6 addresses come back in dotted form.
//
//	r.Use(clientip.Middleware())
//	ip := clientip.FromContext(r.Context())
//
// Only enable headers that the proxy in front of the service overwrites.
// A client can set any of them itself.
package clientip

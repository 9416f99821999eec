// Package requestid tags every HTTP request with a correlation identifier.
//
// A client supplied X-Request-ID header is reused when it is a short token of
// letters, digits, dashes and underscores; anything else is replaced by a new
// UUID. The identifier is echoed in the response header, stored in the
// request context, and exposed to pkg/logger through LoggerExtractor.
package requestid

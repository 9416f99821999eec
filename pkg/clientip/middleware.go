package clientip

import "net/http"

// Middleware resolves the client address once per request and stores it in
// the request context. Without arguments DefaultHeaders are trusted; pass
// headers to narrow the list, or an empty string to use RemoteAddr only.
func Middleware(headers ...string) func(http.Handler) http.Handler {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIP(r.Context(), lookup(r, headers))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
